// Package composer merges module dependency declarations into the host composer.json.
package composer

import (
	"context"
	"encoding/json"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	keyRequire  = "require"
	keyAutoload = "autoload"
	keyPSR4     = "psr-4"
)

// Merger implements ports.ManifestMerger for composer.json.
type Merger struct {
	executor ports.Executor
	binary   string
	resolve  bool
	timeout  time.Duration
	out      io.Writer
}

// Option configures a Merger.
type Option func(*Merger)

// WithOutput sets the writer receiving the terminal output of dependency resolution.
func WithOutput(w io.Writer) Option {
	return func(m *Merger) { m.out = w }
}

// NewMerger creates a Merger. Resolution runs cfg.Binary through executor, bounded by timeout.
func NewMerger(executor ports.Executor, cfg domain.ComposerConfig, timeout time.Duration, opts ...Option) *Merger {
	m := &Merger{
		executor: executor,
		binary:   cfg.Binary,
		resolve:  cfg.Resolve,
		timeout:  timeout,
		out:      io.Discard,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// edit is a pending change to a parsed host manifest.
type edit struct {
	original []byte
	mode     os.FileMode
	root     *object
	require  *object
	autoload *object
	psr4     *object
	report   *domain.MergeReport
}

// Check reports what Merge would change without writing.
func (m *Merger) Check(hostManifest string, fragment, previous domain.ManifestFragment) (*domain.MergeReport, error) {
	if fragment.Empty() && previous.Empty() {
		return &domain.MergeReport{}, nil
	}
	e, err := m.planMerge(hostManifest, fragment, previous)
	if err != nil {
		return nil, err
	}
	return e.report, nil
}

// Merge adds the fragment to the host manifest and runs dependency resolution.
// Entries still holding the value previous declared belong to the module and are
// updated, or dropped when fragment no longer declares them. Any other differing
// entry is left alone and reported in a *domain.ConflictError.
func (m *Merger) Merge(ctx context.Context, hostManifest string, fragment, previous domain.ManifestFragment) (*domain.MergeReport, error) {
	if fragment.Empty() && previous.Empty() {
		return &domain.MergeReport{}, nil
	}
	e, err := m.planMerge(hostManifest, fragment, previous)
	if err != nil {
		return nil, err
	}
	if !e.report.Changed() {
		return e.report, nil
	}
	if err := m.apply(ctx, hostManifest, e, e.report.ChangedRequires()); err != nil {
		return nil, err
	}
	return e.report, nil
}

// Remove drops the fragment entries that still hold the value the module declared.
func (m *Merger) Remove(ctx context.Context, hostManifest string, fragment domain.ManifestFragment) (*domain.MergeReport, error) {
	if fragment.Empty() {
		return &domain.MergeReport{}, nil
	}
	e, err := load(hostManifest)
	if err != nil {
		return nil, err
	}

	for _, name := range slices.Sorted(maps.Keys(fragment.Require)) {
		if e.ownsRequire(name, fragment.Require[name]) {
			e.require.delete(name)
			e.report.RemovedRequires = append(e.report.RemovedRequires, name)
		}
	}

	for _, ns := range slices.Sorted(maps.Keys(fragment.Autoload)) {
		if e.ownsAutoload(ns, fragment.Autoload[ns]) {
			e.psr4.delete(ns)
			e.report.RemovedAutoload = append(e.report.RemovedAutoload, ns)
		}
	}

	if !e.report.Changed() {
		return e.report, nil
	}
	if err := m.apply(ctx, hostManifest, e, e.report.RemovedRequires); err != nil {
		return nil, err
	}
	return e.report, nil
}

func load(hostManifest string) (*edit, error) {
	info, err := os.Stat(hostManifest)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifestReadFailed, err.Error()), "path", hostManifest)
	}
	data, err := os.ReadFile(hostManifest) //nolint:gosec // configured host manifest
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifestReadFailed, err.Error()), "path", hostManifest)
	}

	e := &edit{original: data, mode: info.Mode().Perm(), report: &domain.MergeReport{}}
	invalid := func(err error) error {
		return zerr.With(zerr.Wrap(domain.ErrManifestReadFailed, err.Error()), "path", hostManifest)
	}

	if e.root, err = parseObject(data); err != nil {
		return nil, invalid(err)
	}
	if e.require, err = e.root.child(keyRequire); err != nil {
		return nil, invalid(err)
	}
	if e.autoload, err = e.root.child(keyAutoload); err != nil {
		return nil, invalid(err)
	}
	if e.psr4, err = e.autoload.child(keyPSR4); err != nil {
		return nil, invalid(err)
	}
	return e, nil
}

// ownsRequire reports whether the host requirement for name still holds declared.
func (e *edit) ownsRequire(name, declared string) bool {
	raw, ok := e.require.get(name)
	if !ok || declared == "" {
		return false
	}
	var existing string
	return json.Unmarshal(raw, &existing) == nil && existing == declared
}

// ownsAutoload reports whether the host mapping for ns is exactly declared.
func (e *edit) ownsAutoload(ns, declared string) bool {
	raw, ok := e.psr4.get(ns)
	if !ok || declared == "" {
		return false
	}
	targets, ok := autoloadTargets(raw)
	return ok && len(targets) == 1 && samePath(targets[0], declared)
}

func (m *Merger) planMerge(hostManifest string, fragment, previous domain.ManifestFragment) (*edit, error) {
	e, err := load(hostManifest)
	if err != nil {
		return nil, err
	}

	var conflicts []domain.Conflict
	put := func(o *object, key, value string) error {
		raw, err := encode(value)
		if err != nil {
			return zerr.Wrap(err, domain.ErrManifestWriteFailed.Error())
		}
		o.set(key, raw)
		return nil
	}

	for _, name := range slices.Sorted(maps.Keys(fragment.Require)) {
		if isPlatform(name) {
			continue
		}
		want := fragment.Require[name]
		raw, ok := e.require.get(name)
		switch {
		case !ok:
			if err := put(e.require, name, want); err != nil {
				return nil, err
			}
			e.report.AddedRequires = append(e.report.AddedRequires, name)
		case e.ownsRequire(name, want):
		case e.ownsRequire(name, previous.Require[name]):
			if err := put(e.require, name, want); err != nil {
				return nil, err
			}
			e.report.UpdatedRequires = append(e.report.UpdatedRequires, name)
		default:
			conflicts = append(conflicts, domain.Conflict{Name: name, Existing: string(raw), Required: want})
		}
	}

	for _, ns := range slices.Sorted(maps.Keys(fragment.Autoload)) {
		want := fragment.Autoload[ns]
		raw, ok := e.psr4.get(ns)
		switch {
		case !ok:
			if err := put(e.psr4, ns, want); err != nil {
				return nil, err
			}
			e.report.AddedAutoload = append(e.report.AddedAutoload, ns)
		case mapsTo(raw, want):
		case e.ownsAutoload(ns, previous.Autoload[ns]):
			if err := put(e.psr4, ns, want); err != nil {
				return nil, err
			}
			e.report.UpdatedAutoload = append(e.report.UpdatedAutoload, ns)
		default:
			conflicts = append(conflicts, domain.Conflict{Name: ns, Existing: string(raw), Required: want})
		}
	}

	if len(conflicts) > 0 {
		for i := range conflicts {
			conflicts[i].Existing = strings.Trim(conflicts[i].Existing, `"`)
		}
		return nil, zerr.With(&domain.ConflictError{Conflicts: conflicts}, "path", hostManifest)
	}

	// Entries the replaced copy declared and this one dropped.
	for _, name := range slices.Sorted(maps.Keys(previous.Require)) {
		if _, kept := fragment.Require[name]; !kept && !isPlatform(name) && e.ownsRequire(name, previous.Require[name]) {
			e.require.delete(name)
			e.report.RemovedRequires = append(e.report.RemovedRequires, name)
		}
	}
	for _, ns := range slices.Sorted(maps.Keys(previous.Autoload)) {
		if _, kept := fragment.Autoload[ns]; !kept && e.ownsAutoload(ns, previous.Autoload[ns]) {
			e.psr4.delete(ns)
			e.report.RemovedAutoload = append(e.report.RemovedAutoload, ns)
		}
	}
	return e, nil
}

// mapsTo reports whether a psr-4 value already lists target.
func mapsTo(raw json.RawMessage, target string) bool {
	targets, _ := autoloadTargets(raw)
	return slices.ContainsFunc(targets, func(t string) bool { return samePath(t, target) })
}

// apply writes the edited manifest and resolves dependencies, restoring the original bytes on failure.
func (m *Merger) apply(ctx context.Context, hostManifest string, e *edit, packages []string) error {
	if err := e.autoload.putChild(keyPSR4, e.psr4); err != nil {
		return zerr.Wrap(err, domain.ErrManifestWriteFailed.Error())
	}
	if err := e.root.putChild(keyRequire, e.require); err != nil {
		return zerr.Wrap(err, domain.ErrManifestWriteFailed.Error())
	}
	if err := e.root.putChild(keyAutoload, e.autoload); err != nil {
		return zerr.Wrap(err, domain.ErrManifestWriteFailed.Error())
	}

	data, err := render(e.root)
	if err != nil {
		return zerr.Wrap(err, domain.ErrManifestWriteFailed.Error())
	}
	if err := writeAtomic(hostManifest, data, e.mode); err != nil {
		return err
	}

	if !m.resolve {
		return nil
	}

	if err := m.runResolution(ctx, hostManifest, packages); err != nil {
		if restoreErr := writeAtomic(hostManifest, e.original, e.mode); restoreErr != nil {
			return zerr.With(err, "restore_error", restoreErr.Error())
		}
		return err
	}
	e.report.Resolved = true
	return nil
}

func (m *Merger) runResolution(ctx context.Context, hostManifest string, packages []string) error {
	args := []string{m.binary}
	if len(packages) > 0 {
		args = append(args, "update", "--no-interaction")
		args = append(args, packages...)
	} else {
		args = append(args, "dump-autoload", "--no-interaction")
	}

	res, err := m.executor.Stream(ctx, domain.Command{
		Args:    args,
		Dir:     filepath.Dir(hostManifest),
		Env:     []string{"COMPOSER_NO_INTERACTION=1"},
		Timeout: m.timeout,
	}, m.out)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrResolutionFailed, err.Error()), "command", strings.Join(args, " "))
	}
	if res.TimedOut {
		failure := zerr.With(zerr.Wrap(domain.ErrResolutionFailed, "timed out"), "command", strings.Join(args, " "))
		return zerr.With(failure, "timeout", m.timeout.String())
	}
	if res.ExitCode != 0 {
		failure := zerr.With(zerr.Wrap(domain.ErrResolutionFailed, "composer exited with an error"), "command", strings.Join(args, " "))
		return zerr.With(failure, "exit_code", res.ExitCode)
	}
	return nil
}

// isPlatform reports whether name is a platform requirement composer satisfies from the runtime.
func isPlatform(name string) bool {
	return name == "php" || strings.HasPrefix(name, "ext-") || strings.HasPrefix(name, "lib-")
}

func samePath(a, b string) bool {
	return strings.TrimSuffix(strings.TrimPrefix(a, "./"), "/") == strings.TrimSuffix(strings.TrimPrefix(b, "./"), "/")
}

func writeAtomic(path string, data []byte, mode os.FileMode) error {
	fail := func(err error) error {
		return zerr.With(zerr.Wrap(domain.ErrManifestWriteFailed, err.Error()), "path", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fail(err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fail(err)
	}
	return nil
}
