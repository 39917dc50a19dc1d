package domain

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/zerr"
)

// Lifecycle hook names a module may declare in its metadata.
const (
	HookPreInstall    = "pre-install"
	HookPostInstall   = "post-install"
	HookPreUninstall  = "pre-uninstall"
	HookPostUninstall = "post-uninstall"
)

var namespacePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\\[A-Za-z_][A-Za-z0-9_]*)+\\?$`)

// ValidNamespace reports whether ns is a PHP namespace of at least two segments.
func ValidNamespace(ns string) bool {
	return namespacePattern.MatchString(ns)
}

// ModuleMetadata is the content of a module's metadata file.
type ModuleMetadata struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	Version     string            `json:"version,omitempty"`
	Description string            `json:"description,omitempty"`
	Hooks       map[string]string `json:"hooks,omitempty"`
}

// ReadModuleMetadata reads the metadata file of the module rooted at dir.
func ReadModuleMetadata(dir, file string) (*ModuleMetadata, error) {
	if file == "" {
		file = ModuleMetadataFile
	}
	p := filepath.Join(dir, file)

	data, err := os.ReadFile(p) //nolint:gosec // path is derived from the module directory
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, ErrManifestReadFailed.Error()), "path", p)
	}

	var meta ModuleMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, zerr.With(zerr.Wrap(err, ErrManifestReadFailed.Error()), "path", p)
	}
	return &meta, nil
}

// ManifestFragment is what a module contributes to the host dependency manifest.
type ManifestFragment struct {
	// Require maps package names to version constraints.
	Require map[string]string
	// Autoload maps PSR-4 namespace prefixes to paths relative to the host root.
	Autoload map[string]string
}

// Empty reports whether the fragment contributes nothing.
func (f ManifestFragment) Empty() bool {
	return len(f.Require) == 0 && len(f.Autoload) == 0
}

type moduleComposer struct {
	Require  map[string]string `json:"require"`
	Autoload struct {
		PSR4 map[string]json.RawMessage `json:"psr-4"`
	} `json:"autoload"`
}

// ReadManifestFragment builds the fragment contributed by the module rooted at dir.
// relDir is the module directory relative to the host root and prefixes every autoload path.
// A module without a dependency manifest contributes only its metadata namespace mapped to src/.
func ReadManifestFragment(dir, relDir string, meta *ModuleMetadata) (ManifestFragment, error) {
	frag := ManifestFragment{Require: map[string]string{}, Autoload: map[string]string{}}
	relDir = strings.TrimSuffix(filepath.ToSlash(relDir), "/")

	p := filepath.Join(dir, ModuleManifestFile)
	data, err := os.ReadFile(p) //nolint:gosec // path is derived from the module directory
	switch {
	case err == nil:
		var mc moduleComposer
		if err := json.Unmarshal(data, &mc); err != nil {
			return frag, zerr.With(zerr.Wrap(err, ErrManifestReadFailed.Error()), "path", p)
		}
		for name, constraint := range mc.Require {
			frag.Require[name] = constraint
		}
		for ns, raw := range mc.Autoload.PSR4 {
			target, ok := firstAutoloadPath(raw)
			if !ok {
				return frag, zerr.With(zerr.Wrap(ErrManifestReadFailed, "invalid psr-4 mapping"), "namespace", ns)
			}
			frag.Autoload[ns] = joinAutoload(relDir, target)
		}
	case os.IsNotExist(err):
	default:
		return frag, zerr.With(zerr.Wrap(err, ErrManifestReadFailed.Error()), "path", p)
	}

	if len(frag.Autoload) == 0 && meta != nil && meta.Namespace != "" {
		frag.Autoload[NormalizeNamespace(meta.Namespace)] = joinAutoload(relDir, "src/")
	}
	return frag, nil
}

// NormalizeNamespace returns ns with exactly one trailing backslash, as PSR-4 keys require.
func NormalizeNamespace(ns string) string {
	return strings.TrimRight(ns, `\`) + `\`
}

func firstAutoloadPath(raw json.RawMessage) (string, bool) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, true
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0], true
	}
	return "", false
}

func joinAutoload(relDir, target string) string {
	target = strings.TrimPrefix(filepath.ToSlash(target), "./")
	joined := relDir + "/" + target
	if !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}
