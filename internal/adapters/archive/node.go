package archive

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/modkit/internal/adapters/config"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
)

// NodeID is the unique identifier for the archive extractor Graft node.
const NodeID graft.ID = "adapter.archive"

func init() {
	graft.Register(graft.Node[ports.Extractor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ConfigNodeID},
		Run: func(ctx context.Context) (ports.Extractor, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			// Source code compresses well; allow the expanded tree to be larger than the download.
			return NewExtractor(cfg.MaxDownloadSize * expansionFactor), nil
		},
	})
}

const expansionFactor = 8
