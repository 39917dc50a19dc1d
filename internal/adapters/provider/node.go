package provider

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/modkit/internal/adapters/config"
	"go.trai.ch/modkit/internal/adapters/tokens"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
)

// NodeID is the unique identifier for the provider resolver Graft node.
const NodeID graft.ID = "adapter.provider"

func init() {
	graft.Register(graft.Node[ports.ProviderResolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ConfigNodeID, tokens.NodeID},
		Run: func(ctx context.Context) (ports.ProviderResolver, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.TokenStore](ctx)
			if err != nil {
				return nil, err
			}
			return NewResolver(cfg, store), nil
		},
	})
}
