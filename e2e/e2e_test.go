//go:build e2e

package e2e_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rogpeppe/go-internal/testscript"
)

var (
	modkitBinary string
	githubURL    string
)

func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "modkit-e2e-*")
	if err != nil {
		panic(err)
	}

	modkitBinary = filepath.Join(tmpDir, "modkit")

	//nolint:gosec // Building binary with static arguments, not user input
	cmd := exec.Command("go", "build", "-o", modkitBinary, "./cmd/modkit")
	cmd.Dir = ".."
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		panic("failed to build modkit binary: " + err.Error())
	}

	server := httptest.NewServer(fakeGitHub())
	githubURL = server.URL

	exitCode := m.Run()

	server.Close()
	_ = os.RemoveAll(tmpDir)

	os.Exit(exitCode)
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:   "testdata",
		Setup: setupE2E,
	})
}

func setupE2E(env *testscript.Env) error {
	env.Setenv("NO_COLOR", "1")
	env.Setenv("CI", "true")
	env.Setenv("MODKIT_ROOT", env.WorkDir)
	env.Setenv("MODKIT_APP_KEY", "e2e-app-key")
	env.Setenv("GITHUB_TOKEN", "")

	binDir := filepath.Dir(modkitBinary)
	currentPath := env.Getenv("PATH")
	env.Setenv("PATH", binDir+string(os.PathListSeparator)+currentPath)

	homeDir := filepath.Join(env.WorkDir, ".home")
	if err := os.MkdirAll(homeDir, 0o750); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)

	config := fmt.Sprintf("github:\n  api: %s\ncomposer:\n  resolve: false\n", githubURL)
	return os.WriteFile(filepath.Join(env.WorkDir, "modkit.yaml"), []byte(config), 0o600)
}

type release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"published_at"`
	Prerelease  bool      `json:"prerelease"`
}

// fakeGitHub serves the releases and tarballs of acme/widgets, acme/broken and acme/empty.
func fakeGitHub() http.Handler {
	widgets := []release{
		{TagName: "v2.0.0", Name: "Widgets 2", PublishedAt: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{TagName: "v1.0.0", Name: "Widgets 1", PublishedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets/releases", serveJSON(widgets))
	mux.HandleFunc("GET /repos/acme/broken/releases", serveJSON(widgets[:1]))
	mux.HandleFunc("GET /repos/acme/empty/releases", serveJSON([]release{}))
	mux.HandleFunc("GET /repos/acme/widgets/tarball/{tag}", func(w http.ResponseWriter, r *http.Request) {
		tag := r.PathValue("tag")
		serveTarball(w, map[string]string{
			"module.json":    `{"name": "Widgets", "namespace": "Acme\\Widgets", "version": "` + tag + `"}`,
			"src/Widget.php": "<?php // " + tag + "\n",
		})
	})
	mux.HandleFunc("GET /repos/acme/broken/tarball/{tag}", func(w http.ResponseWriter, _ *http.Request) {
		serveTarball(w, map[string]string{"README.md": "no metadata\n"})
	})
	return mux
}

func serveJSON(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

func serveTarball(w http.ResponseWriter, files map[string]string) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	const top = "acme-module-0a1b2c3/"

	_ = tw.WriteHeader(&tar.Header{Name: top, Typeflag: tar.TypeDir, Mode: 0o755})
	for name, body := range files {
		if dir, _, ok := strings.Cut(name, "/"); ok {
			_ = tw.WriteHeader(&tar.Header{Name: top + dir + "/", Typeflag: tar.TypeDir, Mode: 0o755})
		}
		_ = tw.WriteHeader(&tar.Header{Name: top + name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(body))})
		_, _ = tw.Write([]byte(body))
	}
	_ = tw.Close()
	_ = gz.Close()

	w.Header().Set("Content-Type", "application/x-gzip")
	_, _ = w.Write(buf.Bytes())
}
