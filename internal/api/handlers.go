package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/cardbind/internal/apperr"
	"github.com/starford/cardbind/internal/cardfile"
	"github.com/starford/cardbind/internal/cardservice"
	"github.com/starford/cardbind/internal/index"
	"github.com/starford/cardbind/internal/jsonvalue"
)

// Handler holds API route handlers.
type Handler struct {
	svc *cardservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *cardservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListBundles handles GET /bundles.
//
//	@Summary		List indexed card bundles
//	@Tags			bundles
//	@Produce		json
//	@Success		200	{object}	BundleListResponse
//	@Security		BearerAuth
//	@Router			/bundles [get]
func (h *Handler) ListBundles(w http.ResponseWriter, r *http.Request) {
	bundles, err := h.svc.ListBundles(r.Context())
	if err != nil {
		writeError(w, "list bundles", err)
		return
	}
	writeJSON(w, http.StatusOK, BundleListResponse{Bundles: bundles})
}

// SyncBundles handles POST /bundles/sync.
//
//	@Summary		Rescan the bundles root
//	@Tags			bundles
//	@Produce		json
//	@Success		200	{object}	SyncResponse
//	@Security		BearerAuth
//	@Router			/bundles/sync [post]
func (h *Handler) SyncBundles(w http.ResponseWriter, r *http.Request) {
	changes, err := h.svc.SyncBundles(r.Context())
	if err != nil {
		writeError(w, "sync bundles", err)
		return
	}
	if changes == nil {
		changes = []index.Change{}
	}
	writeJSON(w, http.StatusOK, SyncResponse{Changes: changes})
}

// BundleContract handles GET /bundles/{name}/contract.
//
//	@Summary		Describe the data keys, actions and components of a bundle
//	@Tags			bundles
//	@Produce		json
//	@Param			name	path		string	true	"Bundle name"
//	@Success		200		{object}	ContractResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/bundles/{name}/contract [get]
func (h *Handler) BundleContract(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Contract(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "bundle contract", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Schema handles GET /schema.
//
//	@Summary		JSON Schema of the card format
//	@Tags			bundles
//	@Produce		json
//	@Success		200
//	@Router			/schema [get]
func (h *Handler) Schema(w http.ResponseWriter, _ *http.Request) {
	raw, err := cardfile.JSONSchema()
	if err != nil {
		writeError(w, "schema", err)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// OpenSession handles POST /sessions.
//
//	@Summary		Open a render session for a bundle
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	true	"Session settings"
//	@Success		201		{object}	RenderResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "open session", err)
		return
	}
	open := cardservice.OpenRequest{
		Bundle:    req.Bundle,
		Locale:    req.Locale,
		ColorMode: req.ColorMode,
		Width:     req.Width,
		Height:    req.Height,
		Density:   req.Density,
	}
	if len(req.Data) > 0 {
		data, err := jsonvalue.Parse(req.Data)
		if err != nil || !data.IsObject() {
			writeError(w, "open session", fmt.Errorf("data must be an object: %w", apperr.ErrInvalidInput))
			return
		}
		open.Data = data
	}
	res, err := h.svc.Open(r.Context(), open)
	if err != nil {
		writeError(w, "open session", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListSessions handles GET /sessions.
//
//	@Summary		List render sessions
//	@Tags			sessions
//	@Produce		json
//	@Param			bundle	query		string	false	"Filter by bundle"
//	@Success		200		{object}	SessionListResponse
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.Sessions(r.Context(), r.URL.Query().Get("bundle"))
	if err != nil {
		writeError(w, "list sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: sessions})
}

// GetSession handles GET /sessions/{id}.
//
//	@Summary		Get the live state of a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	models.Session
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateData handles PUT /sessions/{id}/data. The body is the data patch.
//
//	@Summary		Patch the card data and re-render
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string	true	"Session id"
//	@Success		200		{object}	RenderResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/data [put]
func (h *Handler) UpdateData(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, "update data", fmt.Errorf("read body: %w: %w", apperr.ErrInvalidInput, err))
		return
	}
	patch, err := jsonvalue.Parse(raw)
	if err != nil {
		writeError(w, "update data", fmt.Errorf("invalid json: %w", apperr.ErrInvalidInput))
		return
	}
	res, err := h.svc.UpdateData(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, "update data", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Resize handles PUT /sessions/{id}/surface.
//
//	@Summary		Change the surface size and re-render
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		SurfaceRequest	true	"New size"
//	@Success		200		{object}	RenderResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/surface [put]
func (h *Handler) Resize(w http.ResponseWriter, r *http.Request) {
	var req SurfaceRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "resize", err)
		return
	}
	res, err := h.svc.Resize(r.Context(), chi.URLParam(r, "id"), req.Width, req.Height)
	if err != nil {
		writeError(w, "resize", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SetColorMode handles PUT /sessions/{id}/color-mode.
//
//	@Summary		Switch light/dark and re-render
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session id"
//	@Param			body	body		ColorModeRequest	true	"Mode"
//	@Success		200		{object}	RenderResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/color-mode [put]
func (h *Handler) SetColorMode(w http.ResponseWriter, r *http.Request) {
	var req ColorModeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "color mode", err)
		return
	}
	res, err := h.svc.SetColorMode(r.Context(), chi.URLParam(r, "id"), req.Mode)
	if err != nil {
		writeError(w, "color mode", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Evaluate handles POST /sessions/{id}/evaluate.
//
//	@Summary		Resolve a binding expression against the session data
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		EvaluateRequest	true	"Expression"
//	@Success		200		{object}	EvaluateResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/evaluate [post]
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "evaluate", err)
		return
	}
	v, err := h.svc.Evaluate(r.Context(), chi.URLParam(r, "id"), req.Expression)
	if err != nil {
		writeError(w, "evaluate", err)
		return
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{Expression: req.Expression, Value: v})
}

// CloseSession handles DELETE /sessions/{id}.
//
//	@Summary		Close a render session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MatchMedia handles POST /media/match.
//
//	@Summary		Evaluate a media condition
//	@Tags			media
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MatchMediaRequest	true	"Condition and surface"
//	@Success		200		{object}	MatchMediaResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/media/match [post]
func (h *Handler) MatchMedia(w http.ResponseWriter, r *http.Request) {
	var req MatchMediaRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "match media", err)
		return
	}
	res, err := h.svc.MatchMedia(r.Context(), cardservice.MatchRequest{
		Condition:   req.Condition,
		Session:     req.Session,
		Width:       req.Width,
		Height:      req.Height,
		ColorMode:   req.ColorMode,
		Density:     req.Density,
		DeviceType:  req.DeviceType,
		DeviceBrand: req.DeviceBrand,
		RoundScreen: req.RoundScreen,
	})
	if err != nil {
		writeError(w, "match media", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
