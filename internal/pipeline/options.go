package pipeline

import (
	"log/slog"

	"github.com/starford/vimwiki2neorg/internal/manifest"
)

// Event kinds passed to an EventCallback.
const (
	EventConverted = "converted"
	EventRemoved   = "removed"
)

// EventCallback is called after a file was written or its output removed.
type EventCallback func(kind, source, dest string)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for progress messages.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithManifest records every conversion in m.
func WithManifest(m manifest.Store) Option {
	return func(p *Pipeline) {
		p.manifest = m
	}
}

// WithWorkers sets how many files are converted at once. Values below 2 keep
// the run sequential.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = 1
		}
		p.workers = n
	}
}

// WithContinueOnError makes ConvertTree log failing files and carry on
// instead of halting the run.
func WithContinueOnError(v bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = v
	}
}

// WithIncremental skips sources whose checksum matches the manifest and whose
// output still exists. It has no effect without a manifest.
func WithIncremental(v bool) Option {
	return func(p *Pipeline) {
		p.incremental = v
	}
}

// WithEventCallback registers cb for conversion and removal events.
func WithEventCallback(cb EventCallback) Option {
	return func(p *Pipeline) {
		p.onEvent = cb
	}
}
