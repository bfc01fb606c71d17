// Package pipeline mirrors a VimWiki tree into a Neorg tree: it walks the
// source root, rewrites every .wiki file and writes the result under the
// destination root with the extension swapped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vimwiki2neorg/internal/manifest"
	"github.com/starford/vimwiki2neorg/internal/models"
	"github.com/starford/vimwiki2neorg/internal/rewrite"
	"github.com/starford/vimwiki2neorg/internal/storage"
)

// Pipeline converts files from a source Provider into a destination Provider.
type Pipeline struct {
	src storage.Provider
	dst storage.Provider
	rw  *rewrite.Rewriter

	logger          *slog.Logger
	manifest        manifest.Store
	workers         int
	continueOnError bool
	incremental     bool
	onEvent         EventCallback
}

// New creates a Pipeline. Without options it runs sequentially, halts on the
// first error and keeps no manifest.
func New(src, dst storage.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:     src,
		dst:     dst,
		rw:      rewrite.New(),
		logger:  slog.Default(),
		workers: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Rewriter returns the rewriter the pipeline applies to each file.
func (p *Pipeline) Rewriter() *rewrite.Rewriter { return p.rw }

// FileError describes a file that failed to convert.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Report summarises one tree conversion.
type Report struct {
	RunID        string        `json:"run_id,omitempty"`
	Converted    int           `json:"converted"`
	Skipped      int           `json:"skipped"`
	Failed       []FileError   `json:"failed,omitempty"`
	RootsMissing bool          `json:"roots_missing,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// HasFailures reports whether any file failed.
func (r *Report) HasFailures() bool {
	return len(r.Failed) > 0
}

// ConvertFile rewrites the source file at rel and writes it to DestPath(rel),
// replacing any existing file.
func (p *Pipeline) ConvertFile(ctx context.Context, rel string) (*models.Conversion, error) {
	return p.convert(ctx, rel, "")
}

func (p *Pipeline) convert(ctx context.Context, rel, runID string) (*models.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := p.src.Read(rel)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", rel, err)
	}
	return p.write(ctx, rel, runID, data)
}

// convertChanged reads rel once and converts it unless recorded holds the same
// checksum and the output still exists. It reports whether the file was
// skipped.
func (p *Pipeline) convertChanged(ctx context.Context, rel, runID string, recorded map[string]string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	data, err := p.src.Read(rel)
	if err != nil {
		return false, fmt.Errorf("pipeline: %s: %w", rel, err)
	}
	if cs, ok := recorded[rel]; ok && cs == storage.Checksum(data) && p.dst.Exists(DestPath(rel)) {
		p.logger.Debug("unchanged, skipping", slog.String("path", rel))
		return true, nil
	}
	_, err = p.write(ctx, rel, runID, data)
	return false, err
}

func (p *Pipeline) write(ctx context.Context, rel, runID string, data []byte) (*models.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dest := DestPath(rel)
	p.logger.Info("converting file", slog.String("path", rel))

	content := string(data)
	if err := p.dst.Write(dest, []byte(p.rw.Rewrite(content))); err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", rel, err)
	}

	c := &models.Conversion{
		Source:      rel,
		Dest:        dest,
		Checksum:    storage.Checksum(data),
		RunID:       runID,
		ConvertedAt: time.Now(),
	}
	if p.manifest != nil {
		if err := p.manifest.RecordConversion(*c, rewrite.Links(content)); err != nil {
			return nil, fmt.Errorf("pipeline: %s: %w", rel, err)
		}
	}

	p.logger.Info("converted file saved", slog.String("path", dest))
	if p.onEvent != nil {
		p.onEvent(EventConverted, rel, dest)
	}
	return c, nil
}

// ConvertTree converts every source file. By default the first failure stops
// the run and is returned; with WithContinueOnError failures are collected in
// the report instead. The report is returned in both cases.
func (p *Pipeline) ConvertTree(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}

	files, err := p.src.List("", SourceExt)
	if err != nil {
		return report, fmt.Errorf("pipeline: %w", err)
	}

	var recorded map[string]string
	if p.manifest != nil {
		if report.RunID, err = p.manifest.BeginRun(); err != nil {
			return report, fmt.Errorf("pipeline: %w", err)
		}
		if p.incremental {
			if recorded, err = p.manifest.AllChecksums(); err != nil {
				return report, fmt.Errorf("pipeline: %w", err)
			}
		}
	} else {
		report.RunID = uuid.NewString()
	}

	p.logger.Info("converting tree",
		slog.String("run_id", report.RunID),
		slog.String("source", p.src.Root()),
		slog.String("dest", p.dst.Root()),
		slog.Int("files", len(files)))

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, f := range files {
		if gCtx.Err() != nil {
			break
		}
		path := f.Path
		g.Go(func() error {
			skipped, err := p.convertChanged(gCtx, path, report.RunID, recorded)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && skipped:
				report.Skipped++
				return nil
			case err == nil:
				report.Converted++
				return nil
			}
			if p.continueOnError && !errors.Is(err, context.Canceled) {
				p.logger.Warn("conversion failed", slog.String("path", path), slog.String("error", err.Error()))
				report.Failed = append(report.Failed, FileError{Path: path, Error: err.Error()})
				return nil
			}
			return err
		})
	}
	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}
	report.Duration = time.Since(start)

	if p.manifest != nil {
		counts := manifest.RunCounts{Converted: report.Converted, Skipped: report.Skipped, Failed: len(report.Failed)}
		if err := p.manifest.FinishRun(report.RunID, counts); err != nil {
			p.logger.Warn("record run failed", slog.String("run_id", report.RunID), slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		return report, runErr
	}
	p.logger.Info("conversion completed",
		slog.String("run_id", report.RunID),
		slog.Int("converted", report.Converted),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", len(report.Failed)),
		slog.Duration("duration", report.Duration))
	return report, nil
}

// RemoveFile deletes the output produced for the source file at rel and
// forgets it in the manifest. A missing output is not an error.
func (p *Pipeline) RemoveFile(_ context.Context, rel string) error {
	dest := DestPath(rel)
	if err := p.dst.Delete(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("pipeline: remove %s: %w", dest, err)
	}
	if p.manifest != nil {
		if err := p.manifest.DeleteConversion(rel); err != nil {
			return fmt.Errorf("pipeline: remove %s: %w", rel, err)
		}
	}
	p.logger.Info("removed output", slog.String("path", dest))
	if p.onEvent != nil {
		p.onEvent(EventRemoved, rel, dest)
	}
	return nil
}

// Reconcile brings the destination tree in line with the source tree after
// changes the caller may have missed. Sources whose output is missing or
// stale are converted. Outputs are removed only for sources the manifest
// recorded and that no longer exist; without a manifest nothing is removed
// and staleness is judged by modification time.
func (p *Pipeline) Reconcile(ctx context.Context) error {
	sources, err := p.src.List("", SourceExt)
	if err != nil {
		return fmt.Errorf("pipeline: reconcile: %w", err)
	}

	onDisk := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		onDisk[s.Path] = struct{}{}
	}

	var recorded map[string]string
	destTimes := make(map[string]time.Time)
	if p.manifest != nil {
		if recorded, err = p.manifest.AllChecksums(); err != nil {
			return fmt.Errorf("pipeline: reconcile: %w", err)
		}
		for src := range recorded {
			if _, ok := onDisk[src]; ok {
				continue
			}
			if err := p.RemoveFile(ctx, src); err != nil {
				p.logger.Warn("reconcile: remove failed", slog.String("path", src), slog.String("error", err.Error()))
			}
		}
	} else {
		outputs, err := p.dst.List("", DestExt)
		if err != nil {
			return fmt.Errorf("pipeline: reconcile: %w", err)
		}
		for _, o := range outputs {
			destTimes[o.Path] = o.UpdatedAt
		}
	}

	for _, s := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t, ok := destTimes[DestPath(s.Path)]; ok && !s.UpdatedAt.After(t) {
			continue
		}
		if _, err := p.convertChanged(ctx, s.Path, "", recorded); err != nil {
			p.logger.Warn("reconcile: convert failed", slog.String("path", s.Path), slog.String("error", err.Error()))
		}
	}
	return nil
}
