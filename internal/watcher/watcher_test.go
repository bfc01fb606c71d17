package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/vimwiki2neorg/internal/pipeline"
	"github.com/starford/vimwiki2neorg/internal/storage"
	"github.com/starford/vimwiki2neorg/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(kind, source, _ string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+source)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) has(e string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.events {
		if got == e {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T) (srcDir, dstDir string, rec *recorder) {
	t.Helper()
	srcDir, dstDir, _, _ = testutil.TestTrees(t)
	return srcDir, dstDir, startWatcherAt(t, srcDir, dstDir)
}

// startWatcherAt watches root, which may differ from the directory the
// source provider resolves to.
func startWatcherAt(t *testing.T, root, dstDir string) *recorder {
	t.Helper()
	src, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	dst, err := storage.NewFS(dstDir)
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	p := pipeline.New(src, dst,
		pipeline.WithLogger(testutil.Logger()),
		pipeline.WithManifest(testutil.TestManifest(t)),
		pipeline.WithEventCallback(rec.add))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, FromPipeline(p), root, 50*time.Millisecond, testutil.Logger())
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return rec
}

func fileContent(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func TestWatcher_NewFileConverted(t *testing.T) {
	srcDir, dstDir, rec := startWatcher(t)

	_ = os.WriteFile(filepath.Join(srcDir, "new.wiki"), []byte("= New ="), 0o644)

	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return fileContent(filepath.Join(dstDir, "new.norg")) == "* New"
	}, "new.norg was not written")
	if !rec.has("converted:new.wiki") {
		t.Errorf("events = %v", rec.list())
	}
}

func TestWatcher_ModifiedFileReconverted(t *testing.T) {
	srcDir, dstDir, _ := startWatcher(t)
	path := filepath.Join(srcDir, "page.wiki")

	_ = os.WriteFile(path, []byte("= One ="), 0o644)
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return fileContent(filepath.Join(dstDir, "page.norg")) == "* One"
	}, "initial conversion missing")

	_ = os.WriteFile(path, []byte("== Two =="), 0o644)
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return fileContent(filepath.Join(dstDir, "page.norg")) == "** Two"
	}, "modified file was not reconverted")
}

func TestWatcher_DeletedFileRemovesOutput(t *testing.T) {
	srcDir, dstDir, rec := startWatcher(t)
	path := filepath.Join(srcDir, "gone.wiki")

	_ = os.WriteFile(path, []byte("x"), 0o644)
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return fileContent(filepath.Join(dstDir, "gone.norg")) == "x"
	}, "initial conversion missing")

	_ = os.Remove(path)
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		_, err := os.Stat(filepath.Join(dstDir, "gone.norg"))
		return os.IsNotExist(err)
	}, "output of deleted file still present")
	if !rec.has("removed:gone.wiki") {
		t.Errorf("events = %v", rec.list())
	}
}

func TestWatcher_RenameReconciles(t *testing.T) {
	srcDir, dstDir, _ := startWatcher(t)
	oldPath := filepath.Join(srcDir, "old.wiki")

	_ = os.WriteFile(oldPath, []byte("= Moved ="), 0o644)
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return fileContent(filepath.Join(dstDir, "old.norg")) == "* Moved"
	}, "initial conversion missing")

	_ = os.Rename(oldPath, filepath.Join(srcDir, "new.wiki"))
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		_, err := os.Stat(filepath.Join(dstDir, "old.norg"))
		return os.IsNotExist(err) && fileContent(filepath.Join(dstDir, "new.norg")) == "* Moved"
	}, "rename was not reconciled")
}

func TestWatcher_NewDirectory(t *testing.T) {
	srcDir, dstDir, _ := startWatcher(t)

	sub := filepath.Join(srcDir, "journal")
	_ = os.Mkdir(sub, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "day.wiki"), []byte("=== Day ==="), 0o644)

	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return fileContent(filepath.Join(dstDir, "journal", "day.norg")) == "*** Day"
	}, "file in new directory was not converted")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	srcDir, dstDir, rec := startWatcher(t)

	_ = os.WriteFile(filepath.Join(srcDir, "notes.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(srcDir, "marker.wiki"), []byte("x"), 0o644)
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("converted:marker.wiki")
	}, "marker file not converted")

	entries, _ := os.ReadDir(dstDir)
	for _, e := range entries {
		if e.Name() != "marker.norg" {
			t.Errorf("unexpected output %s", e.Name())
		}
	}
}

func TestWatcher_SymlinkedRoot(t *testing.T) {
	srcDir, dstDir, _, _ := testutil.TestTrees(t)
	testutil.WriteFile(t, srcDir, "sub/keep.txt", "x")
	link := filepath.Join(t.TempDir(), "vimwiki")
	if err := os.Symlink(srcDir, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	rec := startWatcherAt(t, link, dstDir)

	_ = os.WriteFile(filepath.Join(srcDir, "sub", "linked.wiki"), []byte("= Linked ="), 0o644)

	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return fileContent(filepath.Join(dstDir, "sub", "linked.norg")) == "* Linked"
	}, "file under symlinked root was not converted")
	if !rec.has("converted:sub/linked.wiki") {
		t.Errorf("events = %v", rec.list())
	}
}
