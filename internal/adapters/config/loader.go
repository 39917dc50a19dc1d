// Package config provides the configuration loader for modkit.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (
	// EnvRoot overrides the application root.
	EnvRoot = "MODKIT_ROOT"
	// EnvConfig overrides the configuration file path.
	EnvConfig = "MODKIT_CONFIG"
)

// Loader implements ports.ConfigLoader using an optional YAML file.
type Loader struct {
	// Filename is resolved against the root unless absolute.
	Filename string
}

// NewLoader creates a Loader honouring the MODKIT_CONFIG override.
func NewLoader() *Loader {
	name := os.Getenv(EnvConfig)
	if name == "" {
		name = domain.ConfigFileName
	}
	return &Loader{Filename: name}
}

// Load returns the defaults for root overlaid with the config file, if present.
func (l *Loader) Load(root string) (*domain.Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve application root")
	}

	cfg := domain.DefaultConfig(absRoot)

	path := l.Filename
	if path == "" {
		path = domain.ConfigFileName
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(absRoot, path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by the operator
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	var file Modkitfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}

	if err := apply(cfg, &file); err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return cfg, nil
}

//nolint:cyclop // flat field mapping
func apply(cfg *domain.Config, f *Modkitfile) error {
	resolve := func(dst *string, rel string) {
		if rel == "" {
			return
		}
		if filepath.IsAbs(rel) {
			*dst = filepath.Clean(rel)
			return
		}
		*dst = filepath.Join(cfg.Root, filepath.FromSlash(rel))
	}
	resolve(&cfg.ModulesDir, f.Paths.Modules)
	resolve(&cfg.BackupDir, f.Paths.Backups)
	resolve(&cfg.LockDir, f.Paths.Locks)
	resolve(&cfg.StagingDir, f.Paths.Staging)
	resolve(&cfg.KeysDir, f.Paths.Keys)
	resolve(&cfg.HostManifest, f.Paths.Manifest)

	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"timeouts.lock", f.Timeouts.Lock, &cfg.LockTimeout},
		{"timeouts.hook", f.Timeouts.Hook, &cfg.HookTimeout},
		{"timeouts.http", f.Timeouts.HTTP, &cfg.HTTPTimeout},
		{"backups.expiry", f.Backups.Expiry, &cfg.BackupExpiry},
	} {
		if err := parseDuration(d.name, d.raw, d.dst); err != nil {
			return err
		}
	}

	if f.Backups.Keep != nil {
		if *f.Backups.Keep < 1 {
			return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "backups.keep must be at least 1"), "value", *f.Backups.Keep)
		}
		cfg.BackupKeepCount = *f.Backups.Keep
	}
	if len(f.Backups.Exclude) > 0 {
		cfg.BackupExcludes = f.Backups.Exclude
	}

	if f.Download.MaxSize < 0 {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "download.max_size must be positive"), "value", f.Download.MaxSize)
	}
	if f.Download.MaxSize > 0 {
		cfg.MaxDownloadSize = f.Download.MaxSize
	}

	setString(&cfg.GitHub.APIBaseURL, f.GitHub.API)
	setString(&cfg.GitHub.TokenEnv, f.GitHub.TokenEnv)
	setString(&cfg.Registry.Host, f.Registry.Host)
	setString(&cfg.Registry.Scheme, f.Registry.Scheme)
	setString(&cfg.Registry.APIBaseURL, f.Registry.API)
	setString(&cfg.Registry.TokenEnv, f.Registry.TokenEnv)
	setString(&cfg.Composer.Binary, f.Composer.Binary)
	if f.Composer.Resolve != nil {
		cfg.Composer.Resolve = *f.Composer.Resolve
	}

	setString(&cfg.Validation.MetadataFile, f.Validation.MetadataFile)
	if f.Validation.RequiredDirs != nil {
		cfg.Validation.RequiredDirs = f.Validation.RequiredDirs
	}
	if f.Validation.Disallowed != nil {
		cfg.Validation.Disallowed = f.Validation.Disallowed
	}

	return nil
}

func parseDuration(name, raw string, dst *time.Duration) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, err.Error()), "field", name)
	}
	if d <= 0 {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "duration must be positive"), "field", name)
	}
	*dst = d
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ResolveRoot returns the application root: MODKIT_ROOT when set, otherwise the working directory.
func ResolveRoot() (string, error) {
	if root := os.Getenv(EnvRoot); root != "" {
		return root, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", zerr.Wrap(err, "failed to determine working directory")
	}
	return wd, nil
}
