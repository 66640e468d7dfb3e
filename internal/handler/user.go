package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/service"
)

// UserHandler serves account administration and the admin check.
type UserHandler struct {
	svc    *service.UserService
	access Authenticator
	logger *slog.Logger
}

func NewUserHandler(svc *service.UserService, access Authenticator, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, access: access, logger: logger}
}

type usersResponse struct {
	Users []model.AccountWithRole `json:"users"`
}

// HandleList lists every account with its admin flag.
//
// HTTP: GET /api/admin/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: users})
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleCreate creates an unverified email/password account.
//
// HTTP: POST /api/admin/users
// REQUEST BODY: {"email": "...", "password": "..."}
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rejectBody(w, r, h.access.RequirePrivileged, err)
		return
	}

	account, err := h.svc.Create(r.Context(), bearerToken(r), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// HandleDelete deletes an account that is neither the caller nor an admin.
//
// HTTP: DELETE /api/admin/users/{userId}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), bearerToken(r), chi.URLParam(r, "userId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkAdminResponse struct {
	IsAdmin bool   `json:"isAdmin"`
	Error   string `json:"error,omitempty"`
}

// HandleCheckAdmin tells the UI whether to show admin controls. A missing
// or invalid token answers 401 with isAdmin=false.
//
// HTTP: GET /api/admin/check
func (h *UserHandler) HandleCheckAdmin(w http.ResponseWriter, r *http.Request) {
	isAdmin, err := h.svc.CheckAdmin(r.Context(), bearerToken(r))
	if err != nil {
		status, errorType, _ := errorStatus(err)
		if !errors.Is(err, apperror.ErrUnauthorized) {
			h.logger.Error("admin check failed", slog.String("error", err.Error()))
		}
		writeJSON(w, status, checkAdminResponse{IsAdmin: false, Error: errorType})
		return
	}
	writeJSON(w, http.StatusOK, checkAdminResponse{IsAdmin: isAdmin})
}
