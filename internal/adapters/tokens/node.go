package tokens

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/modkit/internal/adapters/config"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
)

// NodeID is the unique identifier for the token store Graft node.
const NodeID graft.ID = "adapter.tokens"

func init() {
	graft.Register(graft.Node[ports.TokenStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ConfigNodeID},
		Run: func(ctx context.Context) (ports.TokenStore, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			return newLazyStore(cfg.TokenFile(), func() (ports.Cipher, error) {
				secret, err := LoadAppKey(os.Getenv, cfg.AppKeyFile())
				if err != nil {
					return nil, err
				}
				return NewCipher(secret)
			}), nil
		},
	})
}
