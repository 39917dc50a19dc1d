package ports

import "time"

// Renderer presents step progress.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// OnStepStart is called when a step begins.
	// spanID: unique identifier for this step
	// parentID: spanID of the enclosing operation (empty if root)
	OnStepStart(spanID, parentID, name string, startTime time.Time)

	// OnStepLog is called when a step emits output.
	OnStepLog(spanID string, data []byte)

	// OnStepComplete is called when a step finishes; err is nil on success.
	OnStepComplete(spanID string, endTime time.Time, err error)
}
