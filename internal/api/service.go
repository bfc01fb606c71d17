package api

import (
	"context"
	"sync/atomic"

	"github.com/starford/vimwiki2neorg/internal/apperr"
	"github.com/starford/vimwiki2neorg/internal/manifest"
	"github.com/starford/vimwiki2neorg/internal/models"
	"github.com/starford/vimwiki2neorg/internal/pipeline"
)

// Service coordinates the pipeline and the manifest for the API layer.
type Service struct {
	pipeline *pipeline.Pipeline
	manifest manifest.Store
	onRun    func(*pipeline.Report)
	running  atomic.Bool
}

// NewService creates a new API service. m may be nil when no manifest is
// configured; onRun, if non-nil, is called after every finished run.
func NewService(p *pipeline.Pipeline, m manifest.Store, onRun func(*pipeline.Report)) *Service {
	return &Service{pipeline: p, manifest: m, onRun: onRun}
}

// Rewrite converts VimWiki text with the pipeline's rules.
func (s *Service) Rewrite(content string) string {
	return s.pipeline.Rewriter().Rewrite(content)
}

// Rules describes the rewrite rules in application order.
func (s *Service) Rules() []RuleInfo {
	rules := s.pipeline.Rewriter().Rules()
	out := make([]RuleInfo, len(rules))
	for i, r := range rules {
		out[i] = RuleInfo{
			Name:     r.Name,
			Pattern:  r.Pattern.String(),
			Template: r.Template,
		}
	}
	return out
}

// Run converts the whole source tree. Only one run may be active at a time;
// a second caller gets apperr.ErrRunInProgress. The report is handed to the
// run callback and returned even when the run fails part way.
func (s *Service) Run(ctx context.Context) (*pipeline.Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, apperr.ErrRunInProgress
	}
	defer s.running.Store(false)

	report, err := s.pipeline.ConvertTree(ctx)
	if report != nil && s.onRun != nil {
		s.onRun(report)
	}
	return report, err
}

// Conversions lists the manifest's conversion records.
func (s *Service) Conversions() ([]models.Conversion, error) {
	if s.manifest == nil {
		return nil, apperr.ErrNoManifest
	}
	return s.manifest.ListConversions()
}

// Backlinks lists the source files that link to target.
func (s *Service) Backlinks(target string) ([]string, error) {
	if s.manifest == nil {
		return nil, apperr.ErrNoManifest
	}
	return s.manifest.Backlinks(target)
}
