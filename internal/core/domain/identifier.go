package domain

import (
	"path"
	"regexp"
	"strings"

	"go.trai.ch/zerr"
)

// SourceKind is the closed set of module sources.
type SourceKind int

const (
	// KindGitHub resolves modules from GitHub releases.
	KindGitHub SourceKind = iota
	// KindRegistry resolves modules from the first-party module registry.
	KindRegistry
)

func (k SourceKind) String() string {
	switch k {
	case KindGitHub:
		return "github"
	case KindRegistry:
		return "registry"
	default:
		return "unknown"
	}
}

var (
	segmentPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	unsafeLabel    = regexp.MustCompile(`[^a-z0-9_.-]+`)
)

// Identifier names a module's remote source.
type Identifier struct {
	// Raw is the identifier as given by the caller.
	Raw  string
	Kind SourceKind
	// Owner is the GitHub owner or the registry vendor (empty for vendorless registry modules).
	Owner string
	// Name is the repository or registry module name.
	Name string
}

// ParseIdentifier parses a module identifier. Registry identifiers are recognised by
// the registry scheme prefix or by containing the registry host; anything else is
// treated as a GitHub repository.
func ParseIdentifier(raw string, registry RegistryConfig) (Identifier, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Identifier{}, zerr.Wrap(ErrInvalidIdentifier, "identifier is empty")
	}

	if registry.Scheme != "" && strings.HasPrefix(s, registry.Scheme) {
		return parseRegistryPath(raw, strings.TrimPrefix(s, registry.Scheme))
	}
	if registry.Host != "" {
		if _, rest, ok := strings.Cut(s, registry.Host); ok {
			rest = strings.TrimPrefix(rest, "/")
			rest = strings.TrimPrefix(rest, "modules/")
			return parseRegistryPath(raw, rest)
		}
	}

	return parseGitHub(raw, s)
}

func parseGitHub(raw, s string) (Identifier, error) {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || !validSegment(parts[0]) || !validSegment(parts[1]) {
		return Identifier{}, zerr.With(zerr.Wrap(ErrInvalidIdentifier, "expected owner/repo"), "identifier", raw)
	}

	return Identifier{Raw: raw, Kind: KindGitHub, Owner: parts[0], Name: parts[1]}, nil
}

func parseRegistryPath(raw, rest string) (Identifier, error) {
	rest = strings.Trim(rest, "/")
	parts := strings.Split(rest, "/")

	id := Identifier{Raw: raw, Kind: KindRegistry}
	switch len(parts) {
	case 1:
		id.Name = parts[0]
	case 2:
		id.Owner, id.Name = parts[0], parts[1]
		if !validSegment(id.Owner) {
			return Identifier{}, zerr.With(zerr.Wrap(ErrInvalidIdentifier, "invalid registry vendor"), "identifier", raw)
		}
	default:
		return Identifier{}, zerr.With(zerr.Wrap(ErrInvalidIdentifier, "expected name or vendor/name"), "identifier", raw)
	}
	if !validSegment(id.Name) {
		return Identifier{}, zerr.With(zerr.Wrap(ErrInvalidIdentifier, "invalid registry module name"), "identifier", raw)
	}

	return id, nil
}

func validSegment(s string) bool {
	return s != "." && s != ".." && segmentPattern.MatchString(s)
}

// Slug is the provider-facing path: owner/repo, vendor/name or name.
func (id Identifier) Slug() string {
	if id.Owner == "" {
		return id.Name
	}
	return id.Owner + "/" + id.Name
}

func (id Identifier) String() string {
	if id.Kind == KindRegistry {
		return "wk://" + id.Slug()
	}
	return id.Slug()
}

// Label is a filesystem-safe token used as lock key and backup label.
// acme/widgets becomes acme-widgets; registry modules are prefixed with "wk-".
func (id Identifier) Label() string {
	label := strings.ToLower(id.Slug())
	if id.Kind == KindRegistry {
		label = "wk-" + label
	}
	label = unsafeLabel.ReplaceAllString(label, "-")
	return strings.Trim(label, "-.")
}

// InstallSubPath is the module directory relative to the modules directory.
func (id Identifier) InstallSubPath() string {
	return path.Join(id.Owner, id.Name)
}

// TokenOwner is the key under which a saved token for this module is stored.
// Registry modules share a single token and return an empty owner.
func (id Identifier) TokenOwner() string {
	if id.Kind == KindRegistry {
		return ""
	}
	return id.Owner
}
