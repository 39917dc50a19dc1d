package archive_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/modkit/internal/adapters/archive"
	"go.trai.ch/modkit/internal/core/domain"
)

type entry struct {
	name string
	body string
	link string
	dir  bool
}

func writeTarGz(t *testing.T, entries []entry) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	require.NoError(t, tw.WriteHeader(&tar.Header{Typeflag: tar.TypeXGlobalHeader, Name: "pax_global_header", PAXRecords: map[string]string{"comment": "sha"}}))
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		switch {
		case e.dir:
			hdr.Typeflag, hdr.Mode, hdr.Size = tar.TypeDir, 0o755, 0
		case e.link != "":
			hdr.Typeflag, hdr.Linkname, hdr.Size = tar.TypeSymlink, e.link, 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	p := filepath.Join(t.TempDir(), "package.tar.gz")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), domain.FilePerm))
	return p
}

func writeZip(t *testing.T, entries []entry) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	p := filepath.Join(t.TempDir(), "package.zip")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), domain.FilePerm))
	return p
}

func TestExtract_TarGzStripsTopDirectory(t *testing.T) {
	archivePath := writeTarGz(t, []entry{
		{name: "acme-widgets-1a2b3c/", dir: true},
		{name: "acme-widgets-1a2b3c/module.json", body: `{"name":"Widgets"}`},
		{name: "acme-widgets-1a2b3c/src/", dir: true},
		{name: "acme-widgets-1a2b3c/src/Widget.php", body: "<?php"},
		{name: "acme-widgets-1a2b3c/current", link: "src/Widget.php"},
	})
	dest := filepath.Join(t.TempDir(), "staged")

	require.NoError(t, archive.NewExtractor(0).Extract(context.Background(), archivePath, dest))

	data, err := os.ReadFile(filepath.Join(dest, "module.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Widgets"}`, string(data))
	assert.FileExists(t, filepath.Join(dest, "src", "Widget.php"))

	link, err := os.Readlink(filepath.Join(dest, "current"))
	require.NoError(t, err)
	assert.Equal(t, "src/Widget.php", link)
}

func TestExtract_ZipWithoutTopDirectory(t *testing.T) {
	archivePath := writeZip(t, []entry{
		{name: "module.json", body: "{}"},
		{name: "src/Widget.php", body: "<?php"},
	})
	dest := t.TempDir()

	require.NoError(t, archive.NewExtractor(0).Extract(context.Background(), archivePath, dest))

	assert.FileExists(t, filepath.Join(dest, "module.json"))
	assert.FileExists(t, filepath.Join(dest, "src", "Widget.php"))
}

func TestExtract_ZipStripsTopDirectory(t *testing.T) {
	archivePath := writeZip(t, []entry{
		{name: "widgets-2.0.0/module.json", body: "{}"},
		{name: "widgets-2.0.0/src/Widget.php", body: "<?php"},
	})
	dest := t.TempDir()

	require.NoError(t, archive.NewExtractor(0).Extract(context.Background(), archivePath, dest))

	assert.FileExists(t, filepath.Join(dest, "module.json"))
	assert.NoDirExists(t, filepath.Join(dest, "widgets-2.0.0"))
}

func TestExtract_RejectsUnsafeEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []entry
	}{
		{name: "parent traversal", entries: []entry{{name: "../evil.php", body: "x"}}},
		{name: "nested traversal", entries: []entry{{name: "top/../../evil.php", body: "x"}}},
		{name: "absolute path", entries: []entry{{name: "/etc/evil", body: "x"}}},
		{name: "escaping symlink", entries: []entry{{name: "top/module.json", body: "{}"}, {name: "top/escape", link: "../../outside"}}},
		{name: "absolute symlink", entries: []entry{{name: "top/passwd", link: "/etc/passwd"}}},
		{name: "file written through chained symlinks", entries: []entry{
			{name: "top/m/n/l", link: "../.."},
			{name: "top/m/n/l/x", link: "../.."},
			{name: "top/m/n/l/x/pwn.txt", body: "escaped"},
		}},
		{name: "file written through contained symlink", entries: []entry{
			{name: "top/sub/", dir: true},
			{name: "top/l", link: "sub"},
			{name: "top/l/f.txt", body: "x"},
		}},
		{name: "symlink escaping via sibling symlink", entries: []entry{
			{name: "top/b", link: "."},
			{name: "top/a", link: "b/.."},
		}},
		{name: "dangling symlink escaping via later symlink", entries: []entry{
			{name: "top/a", link: "c/../missing"},
			{name: "top/c", link: "d/.."},
			{name: "top/d", link: "."},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			dest := filepath.Join(base, "stage", "module")
			err := archive.NewExtractor(0).Extract(context.Background(), writeTarGz(t, tt.entries), dest)
			require.ErrorIs(t, err, domain.ErrUnsafeArchive)
			assert.NoFileExists(t, filepath.Join(base, "pwn.txt"))
			assert.NoFileExists(t, filepath.Join(base, "stage", "pwn.txt"))
		})
	}
}

func TestExtract_KeepsContainedSymlinks(t *testing.T) {
	archivePath := writeTarGz(t, []entry{
		{name: "top/src/", dir: true},
		{name: "top/src/Widget.php", body: "<?php"},
		{name: "top/alias", link: "src/Widget.php"},
		{name: "top/docs", link: "missing/readme.md"},
	})
	dest := t.TempDir()

	require.NoError(t, archive.NewExtractor(0).Extract(context.Background(), archivePath, dest))
	data, err := os.ReadFile(filepath.Join(dest, "alias"))
	require.NoError(t, err)
	assert.Equal(t, "<?php", string(data))
}

func TestExtract_ZipRejectsTraversal(t *testing.T) {
	archivePath := writeZip(t, []entry{{name: "../evil.php", body: "x"}})

	err := archive.NewExtractor(0).Extract(context.Background(), archivePath, t.TempDir())
	require.ErrorIs(t, err, domain.ErrUnsafeArchive)
}

func TestExtract_SizeCap(t *testing.T) {
	archivePath := writeTarGz(t, []entry{
		{name: "top/a.txt", body: "0123456789"},
		{name: "top/b.txt", body: "0123456789"},
	})

	err := archive.NewExtractor(15).Extract(context.Background(), archivePath, t.TempDir())
	require.ErrorIs(t, err, domain.ErrDownloadTooLarge)

	require.NoError(t, archive.NewExtractor(20).Extract(context.Background(), archivePath, t.TempDir()))
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	p := filepath.Join(t.TempDir(), "package.bin")
	require.NoError(t, os.WriteFile(p, []byte("<html>rate limited</html>"), domain.FilePerm))

	err := archive.NewExtractor(0).Extract(context.Background(), p, t.TempDir())
	require.ErrorIs(t, err, domain.ErrUnsupportedArchive)
}
