// Package archive unpacks fetched module packages.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/zerr"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zipMagic  = []byte("PK\x03\x04")
	zipEmpty  = []byte("PK\x05\x06")
)

// member is one archive entry, independent of the container format.
type member struct {
	name string
	mode os.FileMode
	link string
}

// Extractor unpacks gzip tarballs and zip archives.
type Extractor struct {
	// maxBytes caps the total uncompressed size; zero disables the cap.
	maxBytes int64
}

// NewExtractor creates an extractor that refuses archives expanding beyond maxBytes.
func NewExtractor(maxBytes int64) *Extractor {
	return &Extractor{maxBytes: maxBytes}
}

// Extract unpacks archivePath into dest. When every member sits below one
// top-level directory, as in GitHub tarballs, that directory is stripped.
func (e *Extractor) Extract(ctx context.Context, archivePath, dest string) error {
	zipped, err := sniff(archivePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create extraction directory"), "path", dest)
	}

	if zipped {
		return e.extractZip(ctx, archivePath, dest)
	}
	return e.extractTar(ctx, archivePath, dest)
}

func (e *Extractor) extractZip(ctx context.Context, archivePath, dest string) error {
	zr, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		if zr != nil {
			_ = zr.Close()
		}
		return zerr.With(zerr.Wrap(domain.ErrUnsafeArchive, "insecure zip entry"), "path", archivePath)
	}
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrUnsupportedArchive, err.Error()), "path", archivePath)
	}
	defer zr.Close() //nolint:errcheck // read-only archive

	members := make([]member, 0, len(zr.File))
	for _, zf := range zr.File {
		members = append(members, member{name: zf.Name, mode: zf.Mode()})
	}
	prefix, err := commonRoot(members)
	if err != nil {
		return err
	}

	w, err := newWriter(dest, prefix, e.maxBytes)
	if err != nil {
		return err
	}
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.place(member{name: zf.Name, mode: zf.Mode()}, zf.Open); err != nil {
			return err
		}
	}
	return w.checkLinks()
}

func (e *Extractor) extractTar(ctx context.Context, archivePath, dest string) error {
	var members []member
	err := scanTar(archivePath, func(hdr *tar.Header, _ io.Reader) error {
		if m, ok := tarMember(hdr); ok {
			members = append(members, m)
		}
		return nil
	})
	if err != nil {
		return err
	}
	prefix, err := commonRoot(members)
	if err != nil {
		return err
	}

	w, err := newWriter(dest, prefix, e.maxBytes)
	if err != nil {
		return err
	}
	err = scanTar(archivePath, func(hdr *tar.Header, r io.Reader) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, ok := tarMember(hdr)
		if !ok {
			return nil
		}
		return w.place(m, func() (io.ReadCloser, error) { return io.NopCloser(r), nil })
	})
	if err != nil {
		return err
	}
	return w.checkLinks()
}

// tarMember maps a tar header to a member. Hard links are rejected by
// commonRoot; devices, fifos and pax headers are skipped.
func tarMember(hdr *tar.Header) (member, bool) {
	m := member{name: hdr.Name, link: hdr.Linkname}
	switch hdr.Typeflag {
	case tar.TypeDir:
		m.mode = os.ModeDir | os.FileMode(hdr.Mode).Perm() //nolint:gosec // tar modes fit in 32 bits
	case tar.TypeSymlink:
		m.mode = os.ModeSymlink | 0o777
	case tar.TypeReg:
		m.mode = os.FileMode(hdr.Mode).Perm() //nolint:gosec // tar modes fit in 32 bits
	case tar.TypeLink:
		m.mode = os.ModeIrregular
	default:
		return m, false
	}
	return m, true
}

// writer places members below dest. Nothing is ever written through a
// symlink the archive created: an entry at or below one is unsafe.
type writer struct {
	dest     string
	realDest string
	prefix   string
	maxBytes int64
	written  int64
	links    map[string]string
}

func newWriter(dest, prefix string, maxBytes int64) (*writer, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to resolve extraction directory"), "path", dest)
	}
	realDest, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to resolve extraction directory"), "path", dest)
	}
	return &writer{dest: abs, realDest: realDest, prefix: prefix, maxBytes: maxBytes, links: map[string]string{}}, nil
}

func (w *writer) place(m member, open func() (io.ReadCloser, error)) error {
	rel := strings.TrimPrefix(cleanName(m.name), w.prefix)
	rel = strings.TrimSuffix(rel, "/")
	if rel == "" {
		return nil
	}
	if w.throughLink(rel) {
		return zerr.With(zerr.Wrap(domain.ErrUnsafeArchive, "entry below symlink"), "entry", m.name)
	}
	target := filepath.Join(w.dest, filepath.FromSlash(rel))

	switch {
	case m.mode.IsDir():
		if err := os.MkdirAll(target, m.mode.Perm()|0o700); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", target)
		}
	case m.mode&os.ModeSymlink != 0:
		link := m.link
		if link == "" {
			data, err := readLink(open)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to read symlink entry"), "entry", m.name)
			}
			link = data
		}
		return w.symlink(target, link, m.name)
	case m.mode.IsRegular():
		return w.file(target, m, open)
	}
	return nil
}

func (w *writer) file(target string, m member, open func() (io.ReadCloser, error)) error {
	if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", filepath.Dir(target))
	}

	rc, err := open()
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to read archive entry"), "entry", m.name)
	}
	defer rc.Close() //nolint:errcheck // read-only entry

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, m.mode.Perm()|0o600) //nolint:gosec // target is inside dest
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create file"), "path", target)
	}

	var src io.Reader = rc
	if w.maxBytes > 0 {
		src = io.LimitReader(rc, w.maxBytes-w.written+1)
	}
	n, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	w.written += n
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to extract file"), "path", target)
	}
	if w.maxBytes > 0 && w.written > w.maxBytes {
		return zerr.With(zerr.Wrap(domain.ErrDownloadTooLarge, "extracted package too large"), "max_bytes", w.maxBytes)
	}
	return nil
}

// symlink creates a link at target whose destination must stay inside dest.
func (w *writer) symlink(target, link, name string) error {
	if filepath.IsAbs(link) || path.IsAbs(link) {
		return zerr.With(zerr.Wrap(domain.ErrUnsafeArchive, "unsafe symlink"), "entry", name)
	}
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(link))
	if !inside(w.dest, resolved) {
		return zerr.With(zerr.Wrap(domain.ErrUnsafeArchive, "unsafe symlink"), "entry", name)
	}
	if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", filepath.Dir(target))
	}
	if err := os.Symlink(link, target); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create symlink"), "path", target)
	}
	w.links[target] = name
	return nil
}

// throughLink reports whether rel or one of its parents is a symlink
// extracted earlier.
func (w *writer) throughLink(rel string) bool {
	for p := rel; p != "." && p != ""; p = path.Dir(p) {
		if _, ok := w.links[filepath.Join(w.dest, filepath.FromSlash(p))]; ok {
			return true
		}
	}
	return false
}

// checkLinks resolves every extracted symlink once the tree is complete.
// Chained links can escape dest even when each one looks contained on its own.
func (w *writer) checkLinks() error {
	for target, name := range w.links {
		resolved, err := resolveLink(target)
		if err != nil || !inside(w.realDest, resolved) {
			return zerr.With(zerr.Wrap(domain.ErrUnsafeArchive, "unsafe symlink"), "entry", name)
		}
	}
	return nil
}

// maxLinkHops bounds resolveLink on cyclic links.
const maxLinkHops = 40

// resolveLink returns where the absolute path p points, following symlinks
// one component at a time. Unlike filepath.EvalSymlinks it also resolves
// dangling links: components past the first missing one are taken literally.
func resolveLink(p string) (string, error) {
	vol := filepath.VolumeName(p)
	root := vol + string(filepath.Separator)
	resolved := root
	pending := strings.Split(filepath.ToSlash(p[len(vol):]), "/")
	hops := 0

	for len(pending) > 0 {
		c := pending[0]
		pending = pending[1:]
		switch c {
		case "", ".":
			continue
		case "..":
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, c)
		fi, err := os.Lstat(next)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && fi.Mode()&os.ModeSymlink == 0) {
			resolved = next
			continue
		}
		if err != nil {
			return "", err
		}

		if hops++; hops > maxLinkHops {
			return "", zerr.With(zerr.Wrap(domain.ErrUnsafeArchive, "symlink cycle"), "path", p)
		}
		link, err := os.Readlink(next)
		if err != nil {
			return "", err
		}
		if filepath.IsAbs(link) {
			resolved = root
		}
		pending = append(strings.Split(filepath.ToSlash(link), "/"), pending...)
	}
	return resolved, nil
}

// sniff reports whether the archive is a zip; anything else must be a gzip tarball.
func sniff(archivePath string) (bool, error) {
	f, err := os.Open(archivePath) //nolint:gosec // archive is written by the installer
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to open archive"), "path", archivePath)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	head, err := bufio.NewReader(f).Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, zerr.With(zerr.Wrap(err, "failed to read archive"), "path", archivePath)
	}
	switch {
	case bytes.HasPrefix(head, zipMagic), bytes.HasPrefix(head, zipEmpty):
		return true, nil
	case bytes.HasPrefix(head, gzipMagic):
		return false, nil
	default:
		return false, zerr.With(zerr.Wrap(domain.ErrUnsupportedArchive, "unrecognised package"), "path", archivePath)
	}
}

// scanTar walks a gzip tarball and calls fn for every header.
func scanTar(archivePath string, fn func(*tar.Header, io.Reader) error) error {
	f, err := os.Open(archivePath) //nolint:gosec // archive is written by the installer
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open archive"), "path", archivePath)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	gz, err := gzip.NewReader(f)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrUnsupportedArchive, err.Error()), "path", archivePath)
	}
	defer gz.Close() //nolint:errcheck // read-only stream

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return zerr.With(zerr.Wrap(domain.ErrUnsafeArchive, "insecure tar entry"), "entry", hdr.Name)
		}
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to read tar entry"), "path", archivePath)
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

// commonRoot validates every member name and returns "top/" when all of them
// live below one top-level directory.
func commonRoot(members []member) (string, error) {
	root := ""
	single := true
	for _, m := range members {
		if unsafeName(m.name) || m.mode&os.ModeIrregular != 0 {
			return "", zerr.With(zerr.Wrap(domain.ErrUnsafeArchive, "unsafe entry"), "entry", m.name)
		}
		name := cleanName(m.name)
		if name == "" {
			continue
		}
		top, _, nested := strings.Cut(name, "/")
		switch {
		case !nested && !m.mode.IsDir():
			single = false
		case root == "":
			root = top
		case root != top:
			single = false
		}
	}
	if !single || root == "" {
		return "", nil
	}
	return root + "/", nil
}

func unsafeName(name string) bool {
	name = strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(name, "/") || (len(name) > 1 && name[1] == ':') {
		return true
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func cleanName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	trailing := strings.HasSuffix(name, "/")
	cleaned := strings.TrimPrefix(path.Clean("/"+name), "/")
	if trailing && cleaned != "" {
		cleaned += "/"
	}
	return cleaned
}

func inside(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func readLink(open func() (io.ReadCloser, error)) (string, error) {
	rc, err := open()
	if err != nil {
		return "", err
	}
	defer rc.Close() //nolint:errcheck // read-only entry
	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	return string(data), err
}
