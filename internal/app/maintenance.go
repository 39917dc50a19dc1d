package app

import (
	"errors"
	"strconv"
	"time"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/zerr"
)

// Backups returns the snapshots of a module newest-first, or of every module when raw is empty.
// Snapshots whose metadata cannot be read are reported with their path only.
func (a *App) Backups(raw string) ([]*domain.Snapshot, error) {
	label, err := a.label(raw)
	if err != nil {
		return nil, err
	}
	paths, err := a.backups.ListBackups(label)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*domain.Snapshot, 0, len(paths))
	for _, p := range paths {
		snap, err := a.backups.Inspect(p)
		if err != nil {
			a.logger.Warn("unreadable backup metadata: " + p)
			snap = &domain.Snapshot{Path: p}
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// CleanOptions select the retention policies applied by CleanBackups.
type CleanOptions struct {
	// Keep is the number of snapshots kept per label. Zero disables count retention.
	Keep int
	// OlderThan removes snapshots older than this age. Zero disables age retention.
	OlderThan time.Duration
}

// CleanBackups applies the retention policies and returns the removed snapshot paths.
// Without an identifier, count retention runs once per label found in the backup root.
func (a *App) CleanBackups(raw string, opts CleanOptions) ([]string, error) {
	if opts.Keep < 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "keep must not be negative"), "keep", opts.Keep)
	}
	label, err := a.label(raw)
	if err != nil {
		return nil, err
	}

	var removed []string
	var errs error
	if opts.Keep > 0 {
		labels := []string{label}
		if label == "" {
			if labels, err = a.labels(); err != nil {
				return nil, err
			}
		}
		for _, l := range labels {
			gone, err := a.backups.CleanOldBackups(l, opts.Keep)
			removed = append(removed, gone...)
			errs = errors.Join(errs, err)
		}
	}
	if opts.OlderThan > 0 {
		gone, err := a.backups.CleanExpiredBackups(opts.OlderThan)
		removed = append(removed, gone...)
		errs = errors.Join(errs, err)
	}

	a.logger.Info("removed " + strconv.Itoa(len(removed)) + " backup(s)")
	return removed, errs
}

func (a *App) label(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	id, err := a.parse(raw)
	if err != nil {
		return "", err
	}
	return id.Label(), nil
}

func (a *App) labels() ([]string, error) {
	snapshots, err := a.Backups("")
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var labels []string
	for _, s := range snapshots {
		if s.Label == "" || seen[s.Label] {
			continue
		}
		seen[s.Label] = true
		labels = append(labels, s.Label)
	}
	return labels, nil
}

// SaveToken stores a token for a GitHub owner, or for the module registry
// when owner names the registry host.
func (a *App) SaveToken(owner, token string) error {
	if token == "" {
		return zerr.Wrap(domain.ErrTokenStoreFailed, "token cannot be empty")
	}
	key := a.tokenKey(owner)
	if err := a.tokens.Save(key, token); err != nil {
		return err
	}
	a.logger.Info("token saved for " + ownerName(key))
	return nil
}

// ForgetToken removes a stored token.
func (a *App) ForgetToken(owner string) error {
	key := a.tokenKey(owner)
	if err := a.tokens.Forget(key); err != nil {
		return err
	}
	a.logger.Info("token removed for " + ownerName(key))
	return nil
}

func (a *App) tokenKey(owner string) string {
	if owner == "registry" || owner == a.cfg.Registry.Host {
		return ""
	}
	return owner
}
