package linear

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/modkit/internal/adapters/prompt"
	"go.trai.ch/modkit/internal/core/ports"
)

// NodeID is the unique identifier for the linear renderer Graft node.
const NodeID graft.ID = "adapter.linear"

func init() {
	graft.Register(graft.Node[*Renderer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{prompt.NodeID},
		Run: func(ctx context.Context) (*Renderer, error) {
			prompter, err := graft.Dep[ports.Prompter](ctx)
			if err != nil {
				return nil, err
			}
			return NewRenderer(prompter.Writer()), nil
		},
	})
}
