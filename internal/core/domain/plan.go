package domain

// State is a step of the install state machine.
type State int

// States of the install state machine, in transition order.
const (
	StateIdle State = iota
	StateLocked
	StateBackedUp
	StateStaged
	StateValidated
	StateMerged
	StateCommitted
	StateUnlocked
	StateRolledBack
	StateFailed
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateLocked:     "locked",
	StateBackedUp:   "backed-up",
	StateStaged:     "staged",
	StateValidated:  "validated",
	StateMerged:     "merged",
	StateCommitted:  "committed",
	StateUnlocked:   "unlocked",
	StateRolledBack: "rolled-back",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// InstallPlan describes a single install call. It is built once and never mutated.
type InstallPlan struct {
	Identifier Identifier
	Version    string
	// InstallPath is the absolute final module directory.
	InstallPath  string
	CreateBackup bool
	ExecuteHooks bool
	Validate     bool
	DryRun       bool
}

// UninstallPlan describes a single uninstall call.
type UninstallPlan struct {
	Identifier   Identifier
	InstallPath  string
	CreateBackup bool
	ExecuteHooks bool
	DryRun       bool
}

// RollbackPlan describes a restore of a module from a snapshot.
type RollbackPlan struct {
	Identifier  Identifier
	InstallPath string
	// BackupPath selects a snapshot; empty means the newest one for the module label.
	BackupPath string
}

// Result is the outcome of an install, uninstall or rollback.
type Result struct {
	Success    bool
	Identifier string
	Version    string
	Namespace  string
	// ModulePath is the install path relative to the application root.
	ModulePath string
	// InstallPath is the absolute final install path.
	InstallPath string
	BackupPath  string
	DryRun      bool
	RolledBack  bool
	// States records every state the operation passed through, in order.
	States   []State
	Warnings []string
	Error    string
}

// State returns the last state reached.
func (r *Result) State() State {
	if len(r.States) == 0 {
		return StateIdle
	}
	return r.States[len(r.States)-1]
}

// Enter appends a state transition.
func (r *Result) Enter(s State) {
	r.States = append(r.States, s)
}

// Reached reports whether the operation passed through s.
func (r *Result) Reached(s State) bool {
	for _, st := range r.States {
		if st == s {
			return true
		}
	}
	return false
}
