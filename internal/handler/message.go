package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/service"
)

// MessageHandler serves user feedback and the admin inbox.
type MessageHandler struct {
	svc    *service.MessageService
	access Authenticator
	logger *slog.Logger
}

func NewMessageHandler(svc *service.MessageService, access Authenticator, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{svc: svc, access: access, logger: logger}
}

type messageRequest struct {
	Type         model.MessageType `json:"type"`
	InnovationID string            `json:"innovationId"`
	Content      string            `json:"content"`
}

// HandleCreate stores a message from the signed-in user.
//
// HTTP: POST /api/messages
// REQUEST BODY: {"type": "general"|"innovation", "innovationId": "...", "content": "..."}
func (h *MessageHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rejectBody(w, r, h.access.Authenticate, err)
		return
	}

	m, err := h.svc.Create(r.Context(), bearerToken(r), service.MessageInput{
		Type:         req.Type,
		InnovationID: req.InnovationID,
		Content:      req.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleListMine returns the caller's messages.
//
// HTTP: GET /api/messages?includeArchived=true
func (h *MessageHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("includeArchived"))

	messages, err := h.svc.ListMine(r.Context(), bearerToken(r), includeArchived)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// HandleToggleArchive flips the archived flag of the caller's own message.
//
// HTTP: POST /api/messages/{id}/archive
func (h *MessageHandler) HandleToggleArchive(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.ToggleArchived(r.Context(), bearerToken(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleListAll is the admin inbox.
//
// HTTP: GET /api/admin/messages?filter=all|general|innovation|unread
func (h *MessageHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	filter := model.MessageFilter(r.URL.Query().Get("filter"))

	messages, err := h.svc.ListAll(r.Context(), bearerToken(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type readRequest struct {
	Read *bool `json:"read"`
}

// HandleSetRead sets a message's read flag. An empty body marks it read.
//
// HTTP: PUT /api/admin/messages/{id}/read
// REQUEST BODY: {"read": true|false}
func (h *MessageHandler) HandleSetRead(w http.ResponseWriter, r *http.Request) {
	var req readRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		rejectBody(w, r, h.access.RequirePrivileged, err)
		return
	}
	read := true
	if req.Read != nil {
		read = *req.Read
	}

	m, err := h.svc.SetRead(r.Context(), bearerToken(r), chi.URLParam(r, "id"), read)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
