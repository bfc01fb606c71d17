package api

import (
	"github.com/starford/vimwiki2neorg/internal/models"
	"github.com/starford/vimwiki2neorg/internal/pipeline"
)

// RewriteRequest is the request body for rewriting a VimWiki document.
type RewriteRequest struct {
	Content string `json:"content" example:"= Title =\n[[Other Page]]"`
}

// RewriteResponse carries the Neorg text.
type RewriteResponse struct {
	Content string `json:"content" example:"* Title\n[Other_Page.norg]{Other Page}" validate:"required"`
}

// NormalizeResponse is the file name a wikilink target maps to.
type NormalizeResponse struct {
	Target string `json:"target" example:"My Page.wiki" validate:"required"`
	File   string `json:"file" example:"My_Page.norg" validate:"required"`
}

// RuleInfo describes one rewrite rule. Template is empty for rules that
// compute their replacement.
type RuleInfo struct {
	Name     string `json:"name" example:"header-1" validate:"required"`
	Pattern  string `json:"pattern" example:"(?m)^=[\\s\\p{Zs}]*(.*?)[\\s\\p{Zs}]*=" validate:"required"`
	Template string `json:"template,omitempty" example:"* ${1}"`
}

// RulesResponse wraps the rule list.
type RulesResponse struct {
	Rules []RuleInfo `json:"rules" validate:"required"`
}

// ConversionListResponse wraps the manifest's conversion records.
type ConversionListResponse struct {
	Conversions []models.Conversion `json:"conversions" validate:"required"`
	Total       int                 `json:"total" example:"42" validate:"required"`
}

// BacklinksResponse lists the source files linking to a target.
type BacklinksResponse struct {
	Target  string   `json:"target" example:"Home" validate:"required"`
	Sources []string `json:"sources" validate:"required"`
}

// RunFailedResponse carries the error of a failed run along with the report
// of what it converted before stopping.
type RunFailedResponse struct {
	Error  string           `json:"error" validate:"required"`
	Report *pipeline.Report `json:"report,omitempty"`
}
