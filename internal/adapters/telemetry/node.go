package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/modkit/internal/adapters/linear"
)

// TracerNodeID is the unique identifier for the Telemetry adapter Graft node.
const TracerNodeID graft.ID = "adapter.telemetry"

func init() {
	graft.Register(graft.Node[*OTelTracer]{
		ID:        TracerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{linear.NodeID},
		Run: func(ctx context.Context) (*OTelTracer, error) {
			renderer, err := graft.Dep[*linear.Renderer](ctx)
			if err != nil {
				return nil, err
			}
			return NewOTelTracer("modkit", renderer), nil
		},
	})
}
