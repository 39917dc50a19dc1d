package installer

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/modkit/internal/adapters/archive"
	"go.trai.ch/modkit/internal/adapters/backup"
	"go.trai.ch/modkit/internal/adapters/composer"
	"go.trai.ch/modkit/internal/adapters/config"
	"go.trai.ch/modkit/internal/adapters/fs"
	"go.trai.ch/modkit/internal/adapters/hooks"
	"go.trai.ch/modkit/internal/adapters/lock"
	"go.trai.ch/modkit/internal/adapters/logger"
	"go.trai.ch/modkit/internal/adapters/telemetry"
	"go.trai.ch/modkit/internal/adapters/validator"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
)

// NodeID is the unique identifier for the installer Graft node.
const NodeID graft.ID = "engine.installer"

func init() {
	graft.Register(graft.Node[*Installer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.ConfigNodeID,
			lock.NodeID,
			backup.NodeID,
			archive.NodeID,
			validator.NodeID,
			composer.NodeID,
			hooks.NodeID,
			fs.WalkerNodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: runNode,
	})
}

func runNode(ctx context.Context) (*Installer, error) {
	cfg, err := graft.Dep[*domain.Config](ctx)
	if err != nil {
		return nil, err
	}
	locker, err := graft.Dep[ports.Locker](ctx)
	if err != nil {
		return nil, err
	}
	backups, err := graft.Dep[ports.BackupManager](ctx)
	if err != nil {
		return nil, err
	}
	extractor, err := graft.Dep[ports.Extractor](ctx)
	if err != nil {
		return nil, err
	}
	v, err := graft.Dep[ports.Validator](ctx)
	if err != nil {
		return nil, err
	}
	merger, err := graft.Dep[ports.ManifestMerger](ctx)
	if err != nil {
		return nil, err
	}
	hookRunner, err := graft.Dep[ports.HookRunner](ctx)
	if err != nil {
		return nil, err
	}
	walker, err := graft.Dep[*fs.Walker](ctx)
	if err != nil {
		return nil, err
	}
	tracer, err := graft.Dep[*telemetry.OTelTracer](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(cfg, Deps{
		Locker:    locker,
		Backups:   backups,
		Extractor: extractor,
		Validator: v,
		Merger:    merger,
		Hooks:     hookRunner,
		Mover:     walker,
		Tracer:    tracer,
		Logger:    log,
	}), nil
}
