package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/credential"
)

const testProject = "whynot-test"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAuthClient stands in for the SDK client.
type fakeAuthClient struct {
	token     *auth.Token
	verifyErr error

	created   int
	createErr error

	deleted   []string
	deleteErr error

	pages   [][]*auth.ExportedUserRecord
	listErr error
}

func (f *fakeAuthClient) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.token, nil
}

func (f *fakeAuthClient) CreateUser(_ context.Context, _ *auth.UserToCreate) (*auth.UserRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	return &auth.UserRecord{
		UserInfo:     &auth.UserInfo{UID: "new-uid", Email: "new@example.com"},
		UserMetadata: &auth.UserMetadata{CreationTimestamp: 1700000000000},
	}, nil
}

func (f *fakeAuthClient) DeleteUser(_ context.Context, uid string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, uid)
	return nil
}

func (f *fakeAuthClient) Users(context.Context) accountIterator {
	var all []*auth.ExportedUserRecord
	for _, p := range f.pages {
		all = append(all, p...)
	}
	return &sliceIterator{records: all, err: f.listErr}
}

type sliceIterator struct {
	records []*auth.ExportedUserRecord
	err     error
}

func (s *sliceIterator) Next() (*auth.ExportedUserRecord, error) {
	if len(s.records) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, iterator.Done
	}
	r := s.records[0]
	s.records = s.records[1:]
	return r, nil
}

func exported(uid, email string, meta *auth.UserMetadata) *auth.ExportedUserRecord {
	return &auth.ExportedUserRecord{UserRecord: &auth.UserRecord{
		UserInfo:     &auth.UserInfo{UID: uid, Email: email},
		UserMetadata: meta,
	}}
}

// =========================================================================
// TOKEN VERIFICATION
// =========================================================================

func TestGoogleProvider_VerifyValidToken(t *testing.T) {
	fake := &fakeAuthClient{token: &auth.Token{
		UID:    "firebase-uid-1",
		Claims: map[string]interface{}{"email": "grace@example.com"},
	}}
	p := newGoogleProvider(fake, discardLogger())

	id, err := p.Verify(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", id.UID)
	assert.Equal(t, "grace@example.com", id.Email)
}

func TestGoogleProvider_VerifyWithoutEmailClaim(t *testing.T) {
	fake := &fakeAuthClient{token: &auth.Token{UID: "uid-2", Claims: map[string]interface{}{}}}
	p := newGoogleProvider(fake, discardLogger())

	id, err := p.Verify(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "uid-2", id.UID)
	assert.Empty(t, id.Email)
}

func TestGoogleProvider_VerifyBackendFailure(t *testing.T) {
	fake := &fakeAuthClient{verifyErr: errors.New("failed to fetch public key certificates")}
	p := newGoogleProvider(fake, discardLogger())

	_, err := p.Verify(context.Background(), "id-token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

// =========================================================================
// ACCOUNT MANAGEMENT
// =========================================================================

func TestGoogleProvider_CreateAccount(t *testing.T) {
	fake := &fakeAuthClient{}
	p := newGoogleProvider(fake, discardLogger())

	a, err := p.CreateAccount(context.Background(), "new@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.created)
	assert.Equal(t, "new-uid", a.UID)
	assert.Equal(t, "new@example.com", a.Email)
	assert.False(t, a.EmailVerified)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), a.CreatedAt)
}

func TestGoogleProvider_DeleteAccount(t *testing.T) {
	fake := &fakeAuthClient{}
	p := newGoogleProvider(fake, discardLogger())

	require.NoError(t, p.DeleteAccount(context.Background(), "uid-1"))
	assert.Equal(t, []string{"uid-1"}, fake.deleted)
}

func TestGoogleProvider_ListAccountsDrainsIterator(t *testing.T) {
	fake := &fakeAuthClient{pages: [][]*auth.ExportedUserRecord{
		{exported("a", "a@example.com", &auth.UserMetadata{CreationTimestamp: 1700000000000})},
		{exported("b", "b@example.com", &auth.UserMetadata{LastLogInTimestamp: 1700000100000})},
	}}
	fake.pages[1][0].EmailVerified = true
	p := newGoogleProvider(fake, discardLogger())

	accounts, err := p.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, "a", accounts[0].UID)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), accounts[0].CreatedAt)
	assert.Nil(t, accounts[0].LastSignInAt)

	assert.Equal(t, "b", accounts[1].UID)
	assert.True(t, accounts[1].EmailVerified)
	require.NotNil(t, accounts[1].LastSignInAt)
	assert.Equal(t, time.UnixMilli(1700000100000).UTC(), *accounts[1].LastSignInAt)
}

func TestGoogleProvider_ListAccountsEmpty(t *testing.T) {
	p := newGoogleProvider(&fakeAuthClient{}, discardLogger())

	accounts, err := p.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, accounts)
	assert.Empty(t, accounts)
}

func TestGoogleProvider_UnknownErrorIsBackendFailure(t *testing.T) {
	fake := &fakeAuthClient{
		deleteErr: errors.New("connection reset"),
		listErr:   errors.New("connection reset"),
	}
	p := newGoogleProvider(fake, discardLogger())

	err := p.DeleteAccount(context.Background(), "uid-1")
	require.Error(t, err)
	var appErr *apperror.AppError
	assert.NotErrorAs(t, err, &appErr)

	_, err = p.ListAccounts(context.Background())
	require.Error(t, err)
	assert.NotErrorAs(t, err, &appErr)
}

// =========================================================================
// SDK AGAINST THE AUTH EMULATOR
// =========================================================================

// newEmulatedProvider points a real SDK client at handler through the auth
// emulator variable. The emulator mode skips signature checks, so tokens are
// unsigned.
func newEmulatedProvider(t *testing.T, handler http.HandlerFunc) *GoogleProvider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("FIREBASE_AUTH_EMULATOR_HOST", strings.TrimPrefix(srv.URL, "http://"))

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: testProject}, option.WithoutAuthentication())
	require.NoError(t, err)
	client, err := app.Auth(ctx)
	require.NoError(t, err)

	return newGoogleProvider(sdkClient{client}, discardLogger())
}

func providerError(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"` + message + `"}}`))
	}
}

func unsignedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return s
}

func TestGoogleProvider_EmulatorRejectsTokens(t *testing.T) {
	p := newEmulatedProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call to %s", r.URL.Path)
	})

	now := time.Now()
	claims := func(key string, value any) jwt.MapClaims {
		c := jwt.MapClaims{
			"iss": "https://securetoken.google.com/" + testProject,
			"aud": testProject,
			"sub": "uid-1",
			"iat": now.Add(-time.Minute).Unix(),
			"exp": now.Add(time.Hour).Unix(),
		}
		c[key] = value
		return c
	}

	tests := []struct {
		name  string
		token string
	}{
		{"malformed", "not-a-jwt"},
		{"wrong audience", unsignedToken(t, claims("aud", "another-project"))},
		{"wrong issuer", unsignedToken(t, claims("iss", "https://securetoken.google.com/another-project"))},
		{"expired", unsignedToken(t, claims("exp", now.Add(-time.Hour).Unix()))},
		{"empty subject", unsignedToken(t, claims("sub", ""))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestGoogleProvider_EmulatorErrorMapping(t *testing.T) {
	t.Run("taken email is a conflict", func(t *testing.T) {
		p := newEmulatedProvider(t, providerError("EMAIL_EXISTS"))
		_, err := p.CreateAccount(context.Background(), "taken@example.com", "secret1")
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("unknown uid is not found", func(t *testing.T) {
		p := newEmulatedProvider(t, providerError("USER_NOT_FOUND"))
		err := p.DeleteAccount(context.Background(), "uid-1")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("server error is a backend failure", func(t *testing.T) {
		p := newEmulatedProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"code":500,"message":"INTERNAL"}}`))
		})
		err := p.DeleteAccount(context.Background(), "uid-1")
		require.Error(t, err)
		var appErr *apperror.AppError
		assert.NotErrorAs(t, err, &appErr)
	})
}

func TestNewGoogleProviderFromCredential_Rejects(t *testing.T) {
	_, err := NewGoogleProviderFromCredential(context.Background(), &credential.ServiceAccount{JSON: []byte(`{}`)}, nil)
	assert.ErrorIs(t, err, apperror.ErrConfiguration)

	_, err = NewGoogleProviderFromCredential(context.Background(), &credential.ServiceAccount{
		ProjectID: testProject,
		JSON:      []byte(`{"type":`),
	}, nil)
	assert.ErrorIs(t, err, apperror.ErrConfiguration)
}
