// Package fs provides filesystem adapters for walking, copying and digesting module trees.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
	"regexp"
	"strings"
)

// Matcher decides whether a path relative to a walk root is excluded.
// Patterns are globs where "*" matches any run of characters including "/".
// They are matched against the path with a leading "/", so "*/locks" also
// matches a top-level "locks".
type Matcher struct {
	patterns []*regexp.Regexp
}

// NewMatcher compiles exclusion patterns.
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(p), `\*`, ".*") + "$"
		m.patterns = append(m.patterns, regexp.MustCompile(expr))
	}
	return m
}

// Match reports whether the slash-separated relative path rel is excluded.
func (m *Matcher) Match(rel string) bool {
	if m == nil {
		return false
	}
	subject := "/" + strings.TrimPrefix(rel, "/")
	for _, re := range m.patterns {
		if re.MatchString(subject) {
			return true
		}
	}
	return false
}

// Entry is a filesystem object yielded by a walk.
type Entry struct {
	// Path is the full path including the walk root.
	Path string
	// Rel is the slash-separated path relative to the walk root.
	Rel  string
	Mode fs.FileMode
	Size int64
}

// Walker walks module trees.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// Walk yields every entry below root in lexical order, skipping the root itself
// and anything the matcher excludes. Excluded directories are not descended into.
// Symlinks are yielded, not followed.
func (w *Walker) Walk(root string, exclude *Matcher) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			if exclude.Match(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}

			if !yield(Entry{Path: path, Rel: rel, Mode: info.Mode(), Size: info.Size()}, nil) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			yield(Entry{}, err)
		}
	}
}

// Size returns the number of regular files and their total size below root.
func (w *Walker) Size(root string, exclude *Matcher) (files int, bytes int64, err error) {
	for e, err := range w.Walk(root, exclude) {
		if err != nil {
			return 0, 0, err
		}
		if e.Mode.IsRegular() {
			files++
			bytes += e.Size
		}
	}
	return files, bytes, nil
}
