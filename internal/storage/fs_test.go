package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/vimwiki2neorg/internal/apperr"
)

func tempTree(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempTree(t)
	content := []byte("* Hello\nWorld\n")
	if err := s.Write("note.norg", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.norg")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempTree(t)
	if err := s.Write("a/b/c.norg", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(filepath.Join(s.Root(), "a", "b"))
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory a/b to exist: %v", err)
	}
}

func TestWriteOverwritesAndIsWorldReadable(t *testing.T) {
	s := tempTree(t)
	_ = s.Write("x.norg", []byte("old"))
	if err := s.Write("x.norg", []byte("new")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("x.norg")
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}
	info, err := os.Stat(filepath.Join(s.Root(), "x.norg"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("perm = %v, want 0644", info.Mode().Perm())
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), tmpPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestDeleteAndExists(t *testing.T) {
	s := tempTree(t)
	_ = s.Write("del.norg", []byte("bye"))
	if !s.Exists("del.norg") {
		t.Fatal("expected file to exist")
	}
	if err := s.Delete("del.norg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists("del.norg") {
		t.Error("file still exists after delete")
	}
	err := s.Delete("del.norg")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("second delete error = %v, want ErrNotExist", err)
	}
}

func TestExistsIgnoresDirectories(t *testing.T) {
	s := tempTree(t)
	_ = s.Write("dir/file.norg", []byte("x"))
	if s.Exists("dir") {
		t.Error("directory reported as file")
	}
}

func TestListFiltersBySuffix(t *testing.T) {
	s := tempTree(t)
	_ = s.Write("a.wiki", []byte("a"))
	_ = s.Write("sub/b.wiki", []byte("b"))
	_ = s.Write("readme.txt", []byte("not wiki"))
	_ = s.Write("sub/c.wiki.bak", []byte("backup"))

	items, err := s.List("", ".wiki")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	paths := map[string]bool{}
	for _, it := range items {
		paths[it.Path] = !it.UpdatedAt.IsZero()
	}
	if !paths["sub/b.wiki"] || !paths["a.wiki"] {
		t.Errorf("missing entries or mod times in %v", paths)
	}
}

func TestListDoesNotReadContents(t *testing.T) {
	s := tempTree(t)
	_ = s.Write("good.wiki", []byte("= Good ="))
	if err := os.Symlink(filepath.Join(s.Root(), "gone"), filepath.Join(s.Root(), "broken.wiki")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	items, err := s.List("", ".wiki")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2: %+v", len(items), items)
	}
	if _, err := s.Read("broken.wiki"); err == nil {
		t.Error("Read of a dangling link should fail")
	}
}

func TestNewFSResolvesSymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "real")
	if err := os.MkdirAll(filepath.Join(target, "a"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "a", "b.wiki"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(base, "vimwiki")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	s, err := NewFS(link)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	want, _ := filepath.EvalSymlinks(target)
	if s.Root() != want {
		t.Errorf("Root = %q, want %q", s.Root(), want)
	}
	items, err := s.List("", ".wiki")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "a/b.wiki" {
		t.Errorf("items = %+v", items)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempTree(t)
	for _, p := range []string{"../../etc/passwd", "../outside.wiki", "/etc/shadow"} {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrOutsideRoot) {
			t.Errorf("Read(%q) error = %v, want ErrOutsideRoot", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, apperr.ErrRootMissing) {
		t.Errorf("error = %v, want ErrRootMissing", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
}
