package fs

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// Hasher computes content digests of module trees.
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// TreeDigest hashes the relative paths, entry types, permissions and contents of
// every entry below root that exclude does not match. Two trees with the same
// file set and contents produce the same digest.
func (h *Hasher) TreeDigest(root string, exclude *Matcher) (string, error) {
	digest := xxhash.New()

	for e, err := range h.walker.Walk(root, exclude) {
		if err != nil {
			return "", zerr.With(zerr.Wrap(err, "failed to walk tree"), "path", root)
		}

		_, _ = digest.WriteString(e.Rel)
		_, _ = digest.Write([]byte{0})
		_, _ = fmt.Fprintf(digest, "%o", e.Mode.Type()|e.Mode.Perm())
		_, _ = digest.Write([]byte{0})

		switch {
		case e.Mode&os.ModeSymlink != 0:
			link, err := os.Readlink(e.Path)
			if err != nil {
				return "", zerr.With(zerr.Wrap(err, "failed to read symlink"), "path", e.Path)
			}
			_, _ = digest.WriteString(link)
		case e.Mode.IsRegular():
			if err := hashFile(digest, e.Path); err != nil {
				return "", err
			}
		}
		_, _ = digest.Write([]byte{0})
	}

	return fmt.Sprintf("%016x", digest.Sum64()), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path) //nolint:gosec // path comes from a walk of a trusted root
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	if _, err := io.Copy(w, f); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}
	return nil
}
