package domain

import "time"

// Release is a published version of a module as reported by its provider.
type Release struct {
	TagName     string
	Name        string
	PublishedAt time.Time
	Prerelease  bool
	// ArchiveURL is the download reference for the release package.
	ArchiveURL string
}

// Label renders the release for a selection prompt: "tag - name (YYYY-MM-DD) [PRE-RELEASE]".
func (r Release) Label() string {
	name := r.Name
	if name == "" {
		name = r.TagName
	}

	label := r.TagName + " - " + name
	if !r.PublishedAt.IsZero() {
		label += " (" + r.PublishedAt.UTC().Format(time.DateOnly) + ")"
	}
	if r.Prerelease {
		label += " [PRE-RELEASE]"
	}
	return label
}

// Option is one choice offered by a selection prompt.
type Option struct {
	Value string
	Label string
}
