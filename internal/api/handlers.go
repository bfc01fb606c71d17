package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/vimwiki2neorg/internal/apperr"
	"github.com/starford/vimwiki2neorg/internal/rewrite"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Rewrite handles POST /api/rewrite.
//
//	@Summary		Convert a VimWiki document to Neorg
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RewriteRequest	true	"VimWiki text"
//	@Success		200		{object}	RewriteResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rewrite [post]
func (h *Handler) Rewrite(w http.ResponseWriter, r *http.Request) {
	var req RewriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, RewriteResponse{Content: h.svc.Rewrite(req.Content)})
}

// Normalize handles GET /api/normalize.
//
//	@Summary		Map a wikilink target to its Neorg file name
//	@Tags			convert
//	@Produce		json
//	@Param			target	query		string	true	"Link target"
//	@Success		200		{object}	NormalizeResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/normalize [get]
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("target") {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'target' is required"))
		return
	}
	target := q.Get("target")
	writeJSON(w, http.StatusOK, NormalizeResponse{Target: target, File: rewrite.Normalize(target)})
}

// Rules handles GET /api/rules.
//
//	@Summary		List the rewrite rules in application order
//	@Tags			convert
//	@Produce		json
//	@Success		200	{object}	RulesResponse
//	@Security		BearerAuth
//	@Router			/rules [get]
func (h *Handler) Rules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RulesResponse{Rules: h.svc.Rules()})
}

// StartRun handles POST /api/runs.
//
//	@Summary		Convert the configured source tree
//	@Tags			runs
//	@Produce		json
//	@Success		200	{object}	pipeline.Report
//	@Failure		409	{object}	errResponse
//	@Failure		500	{object}	RunFailedResponse
//	@Security		BearerAuth
//	@Router			/runs [post]
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	// A client that disconnects does not cancel the run.
	report, err := h.svc.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, apperr.ErrRunInProgress) {
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		} else {
			slog.Error("conversion run failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, RunFailedResponse{Error: err.Error(), Report: report})
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListConversions handles GET /api/conversions.
//
//	@Summary		List converted files recorded in the manifest
//	@Tags			manifest
//	@Produce		json
//	@Success		200	{object}	ConversionListResponse
//	@Failure		501	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/conversions [get]
func (h *Handler) ListConversions(w http.ResponseWriter, _ *http.Request) {
	items, err := h.svc.Conversions()
	if err != nil {
		writeManifestError(w, "list conversions failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ConversionListResponse{Conversions: items, Total: len(items)})
}

// Backlinks handles GET /api/backlinks.
//
//	@Summary		List source files linking to a target
//	@Tags			manifest
//	@Produce		json
//	@Param			target	query		string	true	"Link target, raw or normalized"
//	@Success		200		{object}	BacklinksResponse
//	@Failure		400		{object}	errResponse
//	@Failure		501		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'target' is required"))
		return
	}
	sources, err := h.svc.Backlinks(target)
	if err != nil {
		writeManifestError(w, "backlinks failed", err)
		return
	}
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Target: target, Sources: sources})
}

func writeManifestError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, apperr.ErrNoManifest) {
		writeJSON(w, http.StatusNotImplemented, errorBody(err.Error()))
		return
	}
	slog.Error(msg, slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
