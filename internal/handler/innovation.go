package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/service"
)

// InnovationHandler serves the public showcase and the admin CRUD routes.
type InnovationHandler struct {
	svc    *service.InnovationService
	access Authenticator
	logger *slog.Logger
}

func NewInnovationHandler(svc *service.InnovationService, access Authenticator, logger *slog.Logger) *InnovationHandler {
	return &InnovationHandler{svc: svc, access: access, logger: logger}
}

type innovationRequest struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Status      model.InnovationStatus `json:"status"`
	Tags        []string               `json:"tags"`
	Link        string                 `json:"link"`
}

func (req innovationRequest) input() service.InnovationInput {
	return service.InnovationInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Tags:        req.Tags,
		Link:        req.Link,
	}
}

// HandleList returns every innovation, newest first. Public.
//
// HTTP: GET /api/innovations
func (h *InnovationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	innovations, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, innovations)
}

// HandleGet returns one innovation. Public.
//
// HTTP: GET /api/innovations/{id}
func (h *InnovationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	innovation, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, innovation)
}

// HandleCreate creates an innovation. Admin only.
//
// HTTP: POST /api/admin/innovations
// REQUEST BODY: {"title": "...", "description": "...", "status": "pending", "tags": ["a"], "link": "https://..."}
func (h *InnovationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req innovationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rejectBody(w, r, h.access.RequirePrivileged, err)
		return
	}

	innovation, err := h.svc.Create(r.Context(), bearerToken(r), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, innovation)
}

// HandleUpdate replaces an innovation's fields. Admin only.
//
// HTTP: PUT /api/admin/innovations/{id}
func (h *InnovationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req innovationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rejectBody(w, r, h.access.RequirePrivileged, err)
		return
	}

	innovation, err := h.svc.Update(r.Context(), bearerToken(r), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, innovation)
}

// HandleDelete removes an innovation. Admin only.
//
// HTTP: DELETE /api/admin/innovations/{id}
func (h *InnovationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), bearerToken(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
