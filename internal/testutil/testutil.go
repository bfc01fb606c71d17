// Package testutil provides shared test helpers for setting up source and
// destination trees and manifests.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/vimwiki2neorg/internal/manifest"
	"github.com/starford/vimwiki2neorg/internal/storage"
)

// TestManifest creates a temporary SQLite manifest that is automatically
// cleaned up.
func TestManifest(t *testing.T) *manifest.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "vimwiki2neorg-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := manifest.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestTrees creates empty source and destination roots with their providers.
func TestTrees(t *testing.T) (srcDir, dstDir string, src, dst storage.Provider) {
	t.Helper()
	srcDir = filepath.Join(t.TempDir(), "vimwiki")
	dstDir = filepath.Join(t.TempDir(), "neorg")
	for _, d := range []string{srcDir, dstDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	s, err := storage.NewFS(srcDir)
	if err != nil {
		t.Fatal(err)
	}
	d, err := storage.NewFS(dstDir)
	if err != nil {
		t.Fatal(err)
	}
	return srcDir, dstDir, s, d
}

// WriteFile writes content to root/rel, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ReadFile returns the content of root/rel, failing the test if it is absent.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
