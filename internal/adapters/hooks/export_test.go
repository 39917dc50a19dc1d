package hooks

// SetGetenv replaces the environment lookup used for hook variable expansion.
func (r *Runner) SetGetenv(fn func(string) string) {
	r.getenv = fn
}
