// Package hooks runs the lifecycle scripts a module declares in its metadata.
package hooks

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
	"go.trai.ch/zerr"
	"mvdan.cc/sh/v3/shell"
)

// maxOutputInError caps the captured output attached to a hook failure.
const maxOutputInError = 2048

// inheritedVars are the system variables a hook command may reference.
var inheritedVars = []string{"HOME", "PATH", "USER", "TERM"}

// Runner implements ports.HookRunner.
type Runner struct {
	executor     ports.Executor
	metadataFile string
	timeout      time.Duration
	getenv       func(string) string
}

// NewRunner creates a Runner that reads hooks from metadataFile and bounds each run by timeout.
func NewRunner(executor ports.Executor, metadataFile string, timeout time.Duration) *Runner {
	return &Runner{
		executor:     executor,
		metadataFile: metadataFile,
		timeout:      timeout,
		getenv:       os.Getenv,
	}
}

// Run executes hookName for the module rooted at workingDir.
// The invocation is returned alongside HookFailed and HookTimeout errors so callers can report its output.
func (r *Runner) Run(ctx context.Context, hookName, workingDir string, env ports.HookEnv) (*domain.HookInvocation, error) {
	inv := &domain.HookInvocation{
		Name:       hookName,
		WorkingDir: workingDir,
		Timeout:    r.timeout,
	}

	meta, err := domain.ReadModuleMetadata(workingDir, r.metadataFile)
	if errors.Is(err, fs.ErrNotExist) {
		inv.Skipped = true
		return inv, nil
	}
	if err != nil {
		return nil, err
	}

	script := strings.TrimSpace(meta.Hooks[hookName])
	if script == "" {
		inv.Skipped = true
		return inv, nil
	}

	hookEnv := []string{
		"MODKIT_HOOK=" + hookName,
		"MODKIT_MODULE_DIR=" + env.ModuleDir,
		"MODKIT_MODULE_VERSION=" + env.Version,
		"MODKIT_APP_ROOT=" + env.AppRoot,
	}
	vars := make(map[string]string, len(inheritedVars)+len(hookEnv))
	for _, k := range inheritedVars {
		vars[k] = r.getenv(k)
	}
	for _, kv := range hookEnv {
		k, v, _ := strings.Cut(kv, "=")
		vars[k] = v
	}

	args, err := shell.Fields(script, func(name string) string { return vars[name] })
	if err != nil || len(args) == 0 {
		if err == nil {
			err = zerr.New("empty command")
		}
		invalid := zerr.With(zerr.Wrap(domain.ErrInvalidHook, err.Error()), "hook", hookName)
		return nil, zerr.With(invalid, "command", script)
	}
	inv.Command = args

	res, err := r.executor.Run(ctx, domain.Command{
		Args:    args,
		Dir:     workingDir,
		Env:     hookEnv,
		Timeout: r.timeout,
	})
	if err != nil {
		return inv, zerr.With(zerr.Wrap(domain.ErrHookFailed, err.Error()), "hook", hookName)
	}

	inv.Stdout = string(res.Stdout)
	inv.Stderr = string(res.Stderr)
	inv.ExitCode = res.ExitCode
	inv.Duration = res.Duration

	if res.TimedOut {
		failure := zerr.With(zerr.Wrap(domain.ErrHookTimeout, "process group killed"), "hook", hookName)
		return inv, zerr.With(failure, "timeout", r.timeout.String())
	}
	if res.ExitCode != 0 {
		failure := zerr.With(zerr.Wrap(domain.ErrHookFailed, "non-zero exit"), "hook", hookName)
		failure = zerr.With(failure, "exit_code", res.ExitCode)
		if out := tail(inv.Stderr, inv.Stdout); out != "" {
			failure = zerr.With(failure, "output", out)
		}
		return inv, failure
	}
	return inv, nil
}

// tail returns the end of the first non-empty output.
func tail(outputs ...string) string {
	for _, out := range outputs {
		out = strings.TrimSpace(out)
		if out == "" {
			continue
		}
		if len(out) > maxOutputInError {
			out = "..." + out[len(out)-maxOutputInError:]
		}
		return out
	}
	return ""
}
