// Package watcher keeps a Neorg tree in sync with a VimWiki tree by
// reconverting files as fsnotify reports changes.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/vimwiki2neorg/internal/pipeline"
)

// Converter is the part of the pipeline the watcher drives.
type Converter interface {
	ConvertFile(ctx context.Context, rel string) error
	RemoveFile(ctx context.Context, rel string) error
	Reconcile(ctx context.Context) error
}

type pipelineConverter struct{ p *pipeline.Pipeline }

func (c pipelineConverter) ConvertFile(ctx context.Context, rel string) error {
	_, err := c.p.ConvertFile(ctx, rel)
	return err
}

func (c pipelineConverter) RemoveFile(ctx context.Context, rel string) error {
	return c.p.RemoveFile(ctx, rel)
}

func (c pipelineConverter) Reconcile(ctx context.Context) error {
	return c.p.Reconcile(ctx)
}

// FromPipeline adapts a Pipeline to Converter.
func FromPipeline(p *pipeline.Pipeline) Converter {
	return pipelineConverter{p: p}
}

// Watch starts an fsnotify watcher on root and processes change events until
// ctx is cancelled.
//
// Create and write events on .wiki files reconvert that file; remove events
// delete its output. fsnotify reports a rename on the old path only, so a
// rename removes the old output and schedules a Reconcile after debounce to
// pick up the new name. Directories created at runtime are added to the
// watch list and their .wiki files converted. A symlinked root is resolved
// first so its target tree is watched.
func Watch(ctx context.Context, conv Converter, root string, debounce time.Duration, logger *slog.Logger) error {
	root, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("watcher: resolve root: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(debounce)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := conv.Reconcile(ctx); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			handleEvent(ctx, w, conv, root, ev, logger, scheduleReconcile)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func handleEvent(ctx context.Context, w *fsnotify.Watcher, conv Converter, root string, ev fsnotify.Event, logger *slog.Logger, scheduleReconcile func()) {
	absPath := ev.Name

	if ev.Has(fsnotify.Create) {
		if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
			if addErr := addDirsRecursive(w, absPath); addErr != nil {
				logger.Warn("watcher: add new dir failed",
					slog.String("path", absPath),
					slog.String("error", addErr.Error()))
			} else {
				logger.Debug("watcher: watching new dir", slog.String("path", absPath))
			}
			convertDir(ctx, conv, root, absPath, logger)
			return
		}
	}

	if !pipeline.IsSource(absPath) {
		return
	}
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if err := conv.ConvertFile(ctx, rel); err != nil {
			logger.Warn("watcher: convert failed", slog.String("path", rel), slog.String("error", err.Error()))
		}

	case ev.Has(fsnotify.Remove):
		if err := conv.RemoveFile(ctx, rel); err != nil {
			logger.Warn("watcher: remove failed", slog.String("path", rel), slog.String("error", err.Error()))
		}

	case ev.Has(fsnotify.Rename):
		if err := conv.RemoveFile(ctx, rel); err != nil {
			logger.Warn("watcher: rename remove failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
		scheduleReconcile()
	}
}

// convertDir converts any .wiki files already inside a newly created directory.
func convertDir(ctx context.Context, conv Converter, root, dir string, logger *slog.Logger) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !pipeline.IsSource(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if convErr := conv.ConvertFile(ctx, filepath.ToSlash(rel)); convErr != nil {
			logger.Warn("watcher: convert failed", slog.String("path", rel), slog.String("error", convErr.Error()))
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
