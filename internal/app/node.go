package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/modkit/internal/adapters/backup"    //nolint:depguard // Wired in app layer
	"go.trai.ch/modkit/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/modkit/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/modkit/internal/adapters/prompt"    //nolint:depguard // Wired in app layer
	"go.trai.ch/modkit/internal/adapters/provider"  //nolint:depguard // Wired in app layer
	"go.trai.ch/modkit/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/modkit/internal/adapters/tokens"    //nolint:depguard // Wired in app layer
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
	"go.trai.ch/modkit/internal/engine/installer"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components holds what the command layer needs.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.ConfigNodeID,
			installer.NodeID,
			provider.NodeID,
			tokens.NodeID,
			backup.NodeID,
			prompt.NodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	cfg, err := graft.Dep[*domain.Config](ctx)
	if err != nil {
		return nil, err
	}
	service, err := graft.Dep[*installer.Installer](ctx)
	if err != nil {
		return nil, err
	}
	providers, err := graft.Dep[ports.ProviderResolver](ctx)
	if err != nil {
		return nil, err
	}
	store, err := graft.Dep[ports.TokenStore](ctx)
	if err != nil {
		return nil, err
	}
	backups, err := graft.Dep[ports.BackupManager](ctx)
	if err != nil {
		return nil, err
	}
	prompter, err := graft.Dep[ports.Prompter](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	tracer, err := graft.Dep[*telemetry.OTelTracer](ctx)
	if err != nil {
		return nil, err
	}

	return New(cfg, service, providers, store, backups, prompter, log).WithTracer(tracer), nil
}
