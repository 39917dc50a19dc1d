package hooks

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/modkit/internal/adapters/config"
	"go.trai.ch/modkit/internal/adapters/shell"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
)

// NodeID is the unique identifier for the hook runner Graft node.
const NodeID graft.ID = "adapter.hooks"

func init() {
	graft.Register(graft.Node[ports.HookRunner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ConfigNodeID, shell.NodeID},
		Run: func(ctx context.Context) (ports.HookRunner, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			return NewRunner(executor, cfg.Validation.MetadataFile, cfg.HookTimeout), nil
		},
	})
}
