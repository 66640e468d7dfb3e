package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/whynot-innovations/portal/internal/auth"
	"github.com/whynot-innovations/portal/internal/metrics"
	"github.com/whynot-innovations/portal/internal/model"
)

// SignInProvider exchanges an email and password for an ID token. Only the
// local identity backend implements it; with the hosted provider the
// browser signs in directly against the provider.
type SignInProvider interface {
	SignIn(ctx context.Context, email, password string) (string, *model.Account, error)
}

// SessionHandler creates and clears the session cookie, and runs local
// sign-in.
//
// The session endpoint stores whatever token it is given. It does not
// verify it: the cookie only opens the route gate, and every API call
// verifies its own bearer token.
type SessionHandler struct {
	secure  bool
	signer  SignInProvider // nil unless the local provider is active
	metrics metrics.Recorder
	logger  *slog.Logger
}

func NewSessionHandler(secure bool, signer SignInProvider, rec metrics.Recorder, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{secure: secure, signer: signer, metrics: rec, logger: logger}
}

// CanSignIn reports whether HandleLogin should be routed.
func (h *SessionHandler) CanSignIn() bool {
	return h.signer != nil
}

type sessionRequest struct {
	IDToken string `json:"idToken"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// HandleCreate sets the session cookie.
//
// HTTP: POST /api/auth/session
// REQUEST BODY: {"idToken": "<token>"}
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := auth.SetSession(w, req.IDToken, h.secure); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// HandleDelete clears the session cookie. It always succeeds.
//
// HTTP: DELETE /api/auth/session
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w, h.secure)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	IDToken string `json:"idToken"`
	UID     string `json:"uid"`
	Email   string `json:"email"`
}

// HandleLogin signs in with the local provider and returns an ID token. The
// client then posts it to /api/auth/session and sends it as a bearer token.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email": "...", "password": "..."}
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "password sign-in is not available",
		})
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, account, err := h.signer.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordSignIn(false)
		writeError(w, err)
		return
	}
	h.metrics.RecordSignIn(true)

	h.logger.Info("user signed in", slog.String("uid", account.UID))
	writeJSON(w, http.StatusOK, loginResponse{
		IDToken: token,
		UID:     account.UID,
		Email:   account.Email,
	})
}
