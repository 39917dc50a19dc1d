package backup

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/modkit/internal/adapters/config"
	"go.trai.ch/modkit/internal/adapters/fs"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
)

// NodeID is the unique identifier for the backup manager Graft node.
const NodeID graft.ID = "adapter.backup"

func init() {
	graft.Register(graft.Node[ports.BackupManager]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ConfigNodeID, fs.WalkerNodeID, fs.HasherNodeID},
		Run: func(ctx context.Context) (ports.BackupManager, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			walker, err := graft.Dep[*fs.Walker](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[*fs.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			return NewManager(cfg.BackupDir, cfg.BackupExcludes, walker, hasher), nil
		},
	})
}
