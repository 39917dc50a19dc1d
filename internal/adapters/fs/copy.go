package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// copyConcurrency bounds the number of files copied in parallel.
const copyConcurrency = 8

// CopyStats summarises a tree copy.
type CopyStats struct {
	Files int
	Bytes int64
}

// CopyTree copies src into dst, which must not exist yet. Directories and symlinks
// are recreated in walk order; regular files are copied concurrently with their
// mode and modification time preserved.
func (w *Walker) CopyTree(ctx context.Context, src, dst string, exclude *Matcher) (CopyStats, error) {
	var stats CopyStats

	info, err := os.Stat(src)
	if err != nil {
		return stats, zerr.With(zerr.Wrap(err, "failed to stat copy source"), "path", src)
	}
	if err := os.MkdirAll(dst, info.Mode().Perm()|0o700); err != nil {
		return stats, zerr.With(zerr.Wrap(err, "failed to create copy destination"), "path", dst)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)

	for e, walkErr := range w.Walk(src, exclude) {
		if walkErr != nil {
			_ = g.Wait()
			return stats, zerr.With(zerr.Wrap(walkErr, "failed to walk copy source"), "path", src)
		}
		if ctx.Err() != nil {
			break
		}

		target := filepath.Join(dst, filepath.FromSlash(e.Rel))
		switch {
		case e.Mode.IsDir():
			if err := os.MkdirAll(target, e.Mode.Perm()|0o700); err != nil {
				_ = g.Wait()
				return stats, zerr.With(zerr.Wrap(err, "failed to create directory"), "path", target)
			}
		case e.Mode&os.ModeSymlink != 0:
			link, err := os.Readlink(e.Path)
			if err != nil {
				_ = g.Wait()
				return stats, zerr.With(zerr.Wrap(err, "failed to read symlink"), "path", e.Path)
			}
			if err := os.Symlink(link, target); err != nil {
				_ = g.Wait()
				return stats, zerr.With(zerr.Wrap(err, "failed to create symlink"), "path", target)
			}
		case e.Mode.IsRegular():
			stats.Files++
			stats.Bytes += e.Size
			g.Go(func() error {
				return copyFile(ctx, e.Path, target, e.Mode.Perm())
			})
		}
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, ctx.Err()
}

func copyFile(ctx context.Context, src, dst string, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(src) //nolint:gosec // path comes from a walk of a trusted root
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open file"), "path", src)
	}
	defer in.Close() //nolint:errcheck // read-only handle

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm) //nolint:gosec // destination is under a trusted root
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create file"), "path", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return zerr.With(zerr.Wrap(err, "failed to copy file"), "path", dst)
	}
	if err := out.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to close file"), "path", dst)
	}

	info, err := in.Stat()
	if err == nil {
		_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	}
	return nil
}

// Move renames src to dst, falling back to copy-and-remove across filesystems.
func (w *Walker) Move(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create parent directory"), "path", dst)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if _, err := w.CopyTree(ctx, src, dst, nil); err != nil {
		_ = os.RemoveAll(dst)
		return zerr.With(zerr.Wrap(err, "failed to move directory"), "from", src)
	}
	return os.RemoveAll(src)
}
