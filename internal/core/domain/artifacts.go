package domain

import "time"

// Lock is a held mutual-exclusion token for one key.
type Lock struct {
	Key        string
	Identifier string
	Token      string
	PID        int
	Host       string
	AcquiredAt time.Time
	// Path is the lock file backing this lock.
	Path string
}

// Snapshot describes a backup directory and its metadata sidecar.
type Snapshot struct {
	Path      string
	Label     string
	Source    string
	CreatedAt time.Time
	ModTime   time.Time
	SizeBytes int64
	Files     int
	Digest    string
}

// BackupMeta is the JSON sidecar stored in every snapshot.
type BackupMeta struct {
	Label     string `json:"label"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
	SizeBytes int64  `json:"size_bytes"`
	Files     int    `json:"files"`
	Digest    string `json:"digest,omitempty"`
}

// Command is an external process to run.
type Command struct {
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// ProcessResult is the outcome of an external process.
type ProcessResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// HookInvocation records one lifecycle hook run.
type HookInvocation struct {
	Name       string
	WorkingDir string
	Command    []string
	Timeout    time.Duration
	Stdout     string
	Stderr     string
	ExitCode   int
	Duration   time.Duration
	// Skipped is set when the module does not declare the hook.
	Skipped bool
}

// MergeReport summarises the changes a manifest merge made or would make.
type MergeReport struct {
	AddedRequires   []string
	AddedAutoload   []string
	UpdatedRequires []string
	UpdatedAutoload []string
	RemovedRequires []string
	RemovedAutoload []string
	Resolved        bool
}

// Changed reports whether the merge touched the manifest.
func (r *MergeReport) Changed() bool {
	return len(r.AddedRequires)+len(r.AddedAutoload)+
		len(r.UpdatedRequires)+len(r.UpdatedAutoload)+
		len(r.RemovedRequires)+len(r.RemovedAutoload) > 0
}

// ChangedRequires lists every package whose requirement was added, updated or removed.
func (r *MergeReport) ChangedRequires() []string {
	names := make([]string, 0, len(r.AddedRequires)+len(r.UpdatedRequires)+len(r.RemovedRequires))
	names = append(names, r.AddedRequires...)
	names = append(names, r.UpdatedRequires...)
	return append(names, r.RemovedRequires...)
}
