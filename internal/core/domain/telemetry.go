package domain

// StepStatus is the lifecycle state of an operation step as shown to the user.
type StepStatus string

const (
	// StepStatusRunning indicates the step has started and not finished.
	StepStatusRunning StepStatus = "running"
	// StepStatusCompleted indicates the step finished successfully.
	StepStatusCompleted StepStatus = "completed"
	// StepStatusFailed indicates the step returned an error.
	StepStatusFailed StepStatus = "failed"
	// StepStatusInterrupted indicates the operation ended while the step was still running.
	StepStatusInterrupted StepStatus = "interrupted"
)

// IsTerminal reports whether the step has finished one way or another.
func (s StepStatus) IsTerminal() bool {
	return s != StepStatusRunning
}

// Step span names, one per state machine transition.
const (
	StepLock      = "lock"
	StepBackup    = "backup"
	StepFetch     = "fetch"
	StepExtract   = "extract"
	StepValidate  = "validate"
	StepCommit    = "commit"
	StepMerge     = "merge manifest"
	StepRetention = "backup retention"
	StepRestore   = "restore"
	StepRemove    = "remove"
)

// HookStep is the span name of a lifecycle hook run.
func HookStep(hook string) string {
	return hook + " hook"
}
