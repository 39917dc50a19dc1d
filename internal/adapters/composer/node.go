package composer

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/modkit/internal/adapters/config"
	"go.trai.ch/modkit/internal/adapters/shell"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
)

// NodeID is the unique identifier for the manifest merger Graft node.
const NodeID graft.ID = "adapter.composer"

func init() {
	graft.Register(graft.Node[ports.ManifestMerger]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ConfigNodeID, shell.NodeID},
		Run: func(ctx context.Context) (ports.ManifestMerger, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			return NewMerger(executor, cfg.Composer, cfg.HookTimeout), nil
		},
	})
}
