// Package validator inspects staged modules against the module layout contract.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	modfs "go.trai.ch/modkit/internal/adapters/fs"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/zerr"
)

// Validator implements ports.Validator. It only reads the staged tree.
type Validator struct {
	cfg    domain.ValidationConfig
	walker *modfs.Walker
}

// New creates a Validator.
func New(cfg domain.ValidationConfig, walker *modfs.Walker) *Validator {
	if cfg.MetadataFile == "" {
		cfg.MetadataFile = domain.ModuleMetadataFile
	}
	return &Validator{cfg: cfg, walker: walker}
}

// metadataFile mirrors domain.ModuleMetadata with hooks left raw so each entry can be checked.
type metadataFile struct {
	Name      string                     `json:"name"`
	Namespace string                     `json:"namespace"`
	Hooks     map[string]json.RawMessage `json:"hooks"`
}

type report struct {
	violations []string
}

func (r *report) addf(format string, args ...any) {
	r.violations = append(r.violations, fmt.Sprintf(format, args...))
}

// Validate checks the staged module rooted at staged and returns its metadata.
// Every violation found is reported in a single *domain.ValidationError.
func (v *Validator) Validate(staged string) (*domain.ModuleMetadata, error) {
	info, err := os.Stat(staged)
	if err != nil || !info.IsDir() {
		return nil, zerr.With(&domain.ValidationError{Violations: []string{"staged module directory is missing"}}, "path", staged)
	}

	r := &report{}
	meta := v.checkMetadata(staged, r)
	v.checkRequiredDirs(staged, r)
	if err := v.checkTree(staged, r); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to inspect staged module"), "path", staged)
	}
	v.checkManifest(staged, r)

	if len(r.violations) > 0 {
		return nil, zerr.With(&domain.ValidationError{Violations: r.violations}, "path", staged)
	}
	return meta, nil
}

func (v *Validator) checkMetadata(staged string, r *report) *domain.ModuleMetadata {
	data, err := os.ReadFile(filepath.Join(staged, v.cfg.MetadataFile)) //nolint:gosec // inside the staged tree
	if err != nil {
		r.addf("missing metadata file %s", v.cfg.MetadataFile)
		return nil
	}

	var raw metadataFile
	if err := json.Unmarshal(data, &raw); err != nil {
		r.addf("%s is not valid JSON: %v", v.cfg.MetadataFile, err)
		return nil
	}

	if strings.TrimSpace(raw.Name) == "" {
		r.addf("%s: name is required", v.cfg.MetadataFile)
	}
	if !domain.ValidNamespace(raw.Namespace) {
		r.addf("%s: namespace %q must look like Vendor\\Package", v.cfg.MetadataFile, raw.Namespace)
	}

	hooks := make(map[string]string, len(raw.Hooks))
	for _, name := range slices.Sorted(maps.Keys(raw.Hooks)) {
		var script string
		if err := json.Unmarshal(raw.Hooks[name], &script); err != nil {
			r.addf("%s: hook %q must be a string", v.cfg.MetadataFile, name)
			continue
		}
		hooks[name] = script
	}

	// The typed decode fails when a hook is not a string; the raw pass already reported it.
	var meta domain.ModuleMetadata
	_ = json.Unmarshal(data, &meta)
	meta.Hooks = hooks
	return &meta
}

func (v *Validator) checkRequiredDirs(staged string, r *report) {
	for _, dir := range v.cfg.RequiredDirs {
		info, err := os.Stat(filepath.Join(staged, filepath.FromSlash(dir)))
		if err != nil || !info.IsDir() {
			r.addf("required directory %s/ is missing", dir)
		}
	}
}

func (v *Validator) checkTree(staged string, r *report) error {
	var flagged []string

	for e, err := range v.walker.Walk(staged, nil) {
		if err != nil {
			return err
		}
		if slices.ContainsFunc(flagged, func(dir string) bool { return strings.HasPrefix(e.Rel, dir+"/") }) {
			continue
		}

		if slices.Contains(v.cfg.Disallowed, path.Base(e.Rel)) {
			r.addf("disallowed entry %s", e.Rel)
			if e.Mode.IsDir() {
				flagged = append(flagged, e.Rel)
			}
			continue
		}

		if e.Mode&fs.ModeSymlink != 0 {
			target, err := os.Readlink(e.Path)
			if err != nil {
				return err
			}
			if escapes(e.Rel, target) {
				r.addf("symlink %s points outside the module (%s)", e.Rel, target)
			}
		}
	}
	return nil
}

// escapes reports whether the symlink at rel resolves outside the tree it lives in.
func escapes(rel, target string) bool {
	target = filepath.ToSlash(target)
	if path.IsAbs(target) || filepath.IsAbs(target) || filepath.VolumeName(target) != "" {
		return true
	}
	resolved := path.Join(path.Dir(rel), target)
	return resolved == ".." || strings.HasPrefix(resolved, "../")
}

func (v *Validator) checkManifest(staged string, r *report) {
	data, err := os.ReadFile(filepath.Join(staged, domain.ModuleManifestFile)) //nolint:gosec // inside the staged tree
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		r.addf("%s cannot be read: %v", domain.ModuleManifestFile, err)
		return
	}

	var manifest struct {
		Autoload struct {
			PSR4 map[string]json.RawMessage `json:"psr-4"`
		} `json:"autoload"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		r.addf("%s is not valid JSON: %v", domain.ModuleManifestFile, err)
		return
	}

	for _, ns := range slices.Sorted(maps.Keys(manifest.Autoload.PSR4)) {
		targets, ok := psr4Targets(manifest.Autoload.PSR4[ns])
		if !ok {
			r.addf("%s: psr-4 mapping for %q is invalid", domain.ModuleManifestFile, ns)
			continue
		}
		for _, target := range targets {
			p := filepath.Join(staged, filepath.FromSlash(strings.TrimPrefix(target, "./")))
			if info, err := os.Stat(p); err != nil || !info.IsDir() {
				r.addf("%s: psr-4 directory %s for %q does not exist", domain.ModuleManifestFile, target, ns)
			}
		}
	}
}

func psr4Targets(raw json.RawMessage) ([]string, bool) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, true
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many, true
	}
	return nil, false
}
