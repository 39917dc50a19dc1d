// Package shell provides the process executor used for hooks and dependency resolution.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
	"go.trai.ch/zerr"
)

// waitDelay bounds how long Wait keeps draining output after the process was killed.
const waitDelay = 2 * time.Second

// Executor implements ports.Executor using os/exec and pty.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
	}
}

// Run executes cmd with stdout and stderr captured. Output lines are also forwarded to the logger.
// A non-zero exit is reported through ProcessResult.ExitCode, not as an error.
func (e *Executor) Run(ctx context.Context, command domain.Command) (*domain.ProcessResult, error) {
	runCtx, cancel := withTimeout(ctx, command.Timeout)
	defer cancel()

	cmd, err := prepare(runCtx, command)
	if err != nil {
		return nil, err
	}
	setProcessGroup(cmd)

	stdoutLog := &logWriter{logger: e.logger, level: "info"}
	stderrLog := &logWriter{logger: e.logger, level: "warn"}
	defer func() {
		_ = stdoutLog.Close()
		_ = stderrLog.Close()
	}()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = io.MultiWriter(&stdout, stdoutLog)
	cmd.Stderr = io.MultiWriter(&stderr, stderrLog)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to start command"), "command", command.Args[0])
	}
	waitErr := cmd.Wait()

	res := &domain.ProcessResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	return finish(ctx, runCtx, res, waitErr)
}

// Stream executes cmd attached to a pseudo-terminal and copies its merged output to w.
// The output is also captured into ProcessResult.Stdout.
func (e *Executor) Stream(ctx context.Context, command domain.Command, w io.Writer) (*domain.ProcessResult, error) {
	runCtx, cancel := withTimeout(ctx, command.Timeout)
	defer cancel()

	cmd, err := prepare(runCtx, command)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to start pty"), "command", command.Args[0])
	}

	outLog := &logWriter{logger: e.logger, level: "info"}
	var captured lockedBuffer

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		defer func() { _ = ptmx.Close() }()
		defer func() { _ = outLog.Close() }()

		// The pty merges stdout and stderr. Reading fails with EIO once the child side closes.
		_, _ = io.Copy(io.MultiWriter(w, outLog, &captured), ptmx)
	}()

	waitErr := cmd.Wait()
	select {
	case <-ioDone:
	case <-time.After(waitDelay):
		// A leftover grandchild still holds the terminal open.
		_ = ptmx.Close()
		<-ioDone
	}

	res := &domain.ProcessResult{
		Stdout:   captured.Bytes(),
		Duration: time.Since(start),
	}
	return finish(ctx, runCtx, res, waitErr)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func prepare(ctx context.Context, command domain.Command) (*exec.Cmd, error) {
	if len(command.Args) == 0 {
		return nil, zerr.New("empty command")
	}

	name := command.Args[0]
	cmdEnv := resolveEnvironment(os.Environ(), command.Env)

	// Paths with a separator resolve against cmd.Dir at exec time.
	executable := name
	if !strings.ContainsRune(name, '/') && !strings.ContainsRune(name, filepath.Separator) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		} else {
			return nil, zerr.With(zerr.Wrap(err, "command not found"), "command", name)
		}
	}

	cmd := exec.CommandContext(ctx, executable, command.Args[1:]...) //nolint:gosec // module-declared command
	cmd.Args[0] = name
	cmd.Dir = command.Dir
	cmd.Env = cmdEnv
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)
	return cmd, nil
}

func finish(parent, runCtx context.Context, res *domain.ProcessResult, waitErr error) (*domain.ProcessResult, error) {
	if waitErr == nil {
		return res, nil
	}

	if parent.Err() != nil {
		res.ExitCode = -1
		return res, zerr.Wrap(parent.Err(), "command cancelled")
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	// Output kept flowing past WaitDelay after a clean exit.
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		return res, nil
	}

	res.ExitCode = -1
	return res, zerr.Wrap(waitErr, "command failed")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

type logWriter struct {
	logger ports.Logger
	level  string
	buf    []byte
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)

	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}

		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

func (w *logWriter) Close() error {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	// PTYs terminate lines with \r\n.
	msg := strings.TrimSuffix(string(line), "\r")
	if msg == "" {
		return
	}

	if w.level == "info" {
		w.logger.Info(msg)
	} else {
		w.logger.Warn(msg)
	}
}

// allowListedEnvVars are the system environment variables a child process inherits.
var allowListedEnvVars = map[string]struct{}{
	"HOME": {},
	"TERM": {},
	"USER": {},
	"PATH": {},
}

// resolveEnvironment returns the allow-listed part of sysEnv overridden by extra.
func resolveEnvironment(sysEnv, extra []string) []string {
	envMap := filterSystemEnv(sysEnv)

	for _, entry := range extra {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

func filterSystemEnv(sysEnv []string) map[string]string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			if _, allowed := allowListedEnvVars[k]; allowed {
				envMap[k] = v
			}
		}
	}
	return envMap
}

// lookPath searches for an executable in the directories named by the PATH entry of env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
