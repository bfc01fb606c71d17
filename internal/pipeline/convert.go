package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/vimwiki2neorg/internal/apperr"
	"github.com/starford/vimwiki2neorg/internal/storage"
)

// CheckRoots returns an error wrapping apperr.ErrRootMissing unless both
// roots exist and are directories.
func CheckRoots(srcRoot, dstRoot string) error {
	for _, root := range []string{srcRoot, dstRoot} {
		info, err := os.Stat(root)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("pipeline: %s: %w", root, apperr.ErrRootMissing)
			}
			return fmt.Errorf("pipeline: stat %s: %w", root, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("pipeline: %s is not a directory: %w", root, apperr.ErrRootMissing)
		}
	}
	return nil
}

// Convert mirrors every .wiki file under srcRoot into a .norg file under
// dstRoot. Both roots must already exist. When one does not, nothing is
// written, the condition is logged and reported through
// Report.RootsMissing, and the error is nil. I/O errors are returned.
func Convert(ctx context.Context, srcRoot, dstRoot string, logger *slog.Logger, opts ...Option) (*Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := CheckRoots(srcRoot, dstRoot); err != nil {
		if errors.Is(err, apperr.ErrRootMissing) {
			logger.Warn("one of the specified directories does not exist",
				slog.String("source", srcRoot),
				slog.String("dest", dstRoot),
				slog.String("error", err.Error()))
			return &Report{RootsMissing: true}, nil
		}
		return nil, err
	}

	src, err := storage.NewFS(srcRoot)
	if err != nil {
		return nil, err
	}
	dst, err := storage.NewFS(dstRoot)
	if err != nil {
		return nil, err
	}

	logger.Info("starting conversion", slog.String("source", srcRoot), slog.String("dest", dstRoot))
	opts = append([]Option{WithLogger(logger)}, opts...)
	return New(src, dst, opts...).ConvertTree(ctx)
}
