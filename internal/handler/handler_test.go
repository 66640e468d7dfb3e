package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/whynot-innovations/portal/internal/auth"
	"github.com/whynot-innovations/portal/internal/identity"
	"github.com/whynot-innovations/portal/internal/metrics"
	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/repository/sqlite"
	"github.com/whynot-innovations/portal/internal/service"
)

// testStack is the API wired end to end over an in-memory database and the
// local identity provider.
type testStack struct {
	router     http.Handler
	db         *sqlite.DB
	local      *identity.LocalProvider
	tokens     *auth.TokenService
	adminUID   string
	adminToken string
	userUID    string
	userToken  string
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	ctx := context.Background()
	logger := testLogger()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", "whynot-portal", time.Hour)
	require.NoError(t, err)
	local := identity.NewLocalProvider(db, auth.NewPasswordServiceWithCost(bcrypt.MinCost), tokens, logger)

	admin, err := local.CreateAccount(ctx, "admin@example.com", "secret-admin")
	require.NoError(t, err)
	user, err := local.CreateAccount(ctx, "user@example.com", "secret-user")
	require.NoError(t, err)
	require.NoError(t, db.GrantAdmin(ctx, &model.Admin{UserID: admin.UID, Email: admin.Email, CreatedAt: time.Now().UTC()}))

	adminToken, err := tokens.Generate(admin.UID, admin.Email)
	require.NoError(t, err)
	userToken, err := tokens.Generate(user.UID, user.Email)
	require.NoError(t, err)

	rec := metrics.Nop{}
	resolver := service.NewResolver(db, rec, logger)
	guard := service.NewGuard(local, resolver, rec, logger)

	innovations := NewInnovationHandler(service.NewInnovationService(db, guard, logger), guard, logger)
	messages := NewMessageHandler(service.NewMessageService(db, db, guard, logger), guard, logger)
	users := NewUserHandler(service.NewUserService(local, guard, resolver, logger), guard, logger)
	sessions := NewSessionHandler(false, local, rec, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/session", sessions.HandleCreate)
		r.Delete("/auth/session", sessions.HandleDelete)
		r.Post("/auth/login", sessions.HandleLogin)

		r.Get("/innovations", innovations.HandleList)
		r.Get("/innovations/{id}", innovations.HandleGet)
		r.Get("/messages", messages.HandleListMine)
		r.Post("/messages", messages.HandleCreate)
		r.Post("/messages/{id}/archive", messages.HandleToggleArchive)

		r.Get("/admin/check", users.HandleCheckAdmin)
		r.Get("/admin/users", users.HandleList)
		r.Post("/admin/users", users.HandleCreate)
		r.Delete("/admin/users/{userId}", users.HandleDelete)
		r.Post("/admin/innovations", innovations.HandleCreate)
		r.Put("/admin/innovations/{id}", innovations.HandleUpdate)
		r.Delete("/admin/innovations/{id}", innovations.HandleDelete)
		r.Get("/admin/messages", messages.HandleListAll)
		r.Put("/admin/messages/{id}/read", messages.HandleSetRead)
	})

	return &testStack{
		router:     r,
		db:         db,
		local:      local,
		tokens:     tokens,
		adminUID:   admin.UID,
		adminToken: adminToken,
		userUID:    user.UID,
		userToken:  userToken,
	}
}

// do sends a request with an optional JSON body and bearer token.
func (s *testStack) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return serve(t, s.router, method, path, token, body)
}

func serve(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}
