package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whynot-innovations/portal/internal/apperror"
)

func newTestUserService(t *testing.T) (*UserService, *testDeps) {
	t.Helper()
	d := newTestDeps(t)
	return NewUserService(d.directory, d.guard, d.resolver, testLogger()), d
}

// =========================================================================
// CREATE
// =========================================================================

func TestUserCreate_SixCharacterPassword(t *testing.T) {
	svc, d := newTestUserService(t)

	a, err := svc.Create(context.Background(), adminToken, "x@y.com", "abcdef")
	require.NoError(t, err)
	assert.Equal(t, "x@y.com", a.Email)
	assert.False(t, a.EmailVerified)
	assert.Contains(t, d.directory.accounts, a.UID)
}

func TestUserCreate_FiveCharacterPasswordRejected(t *testing.T) {
	svc, d := newTestUserService(t)
	before := len(d.directory.accounts)

	_, err := svc.Create(context.Background(), adminToken, "x@y.com", "abcde")
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.EqualError(t, err, "password must be at least 6 characters")
	assert.Len(t, d.directory.accounts, before, "no account created")
}

func TestUserCreate_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		email    string
		password string
		want     error
	}{
		{"no token", "", "a@b.co", "secret1", apperror.ErrUnauthorized},
		{"not privileged", userToken, "a@b.co", "secret1", apperror.ErrForbidden},
		{"missing email", adminToken, "  ", "secret1", apperror.ErrValidation},
		{"bad email", adminToken, "not-an-email", "secret1", apperror.ErrValidation},
		{"email with space", adminToken, "a b@c.de", "secret1", apperror.ErrValidation},
		{"duplicate email", adminToken, "user-1@example.com", "secret1", apperror.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestUserService(t)

			_, err := svc.Create(context.Background(), tt.token, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// =========================================================================
// DELETE
// =========================================================================

func TestUserDelete_SelfAlwaysRefused(t *testing.T) {
	for _, tc := range []struct {
		name  string
		token string
		uid   string
	}{
		{"privileged caller", adminToken, "admin-1"},
		{"unprivileged caller", userToken, "user-1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc, d := newTestUserService(t)

			err := svc.Delete(context.Background(), tc.token, tc.uid)
			require.ErrorIs(t, err, apperror.ErrForbidden)
			assert.EqualError(t, err, "cannot delete self")
			assert.Empty(t, d.directory.deleted)
		})
	}
}

func TestUserDelete_AdminTargetRefused(t *testing.T) {
	svc, d := newTestUserService(t)

	err := svc.Delete(context.Background(), adminToken, "admin-2")
	require.ErrorIs(t, err, apperror.ErrForbidden)
	assert.EqualError(t, err, "cannot delete admin")
	assert.Empty(t, d.directory.deleted)
}

func TestUserDelete_NonPrivilegedCallerRefused(t *testing.T) {
	svc, d := newTestUserService(t)

	err := svc.Delete(context.Background(), userToken, "user-2")
	require.ErrorIs(t, err, apperror.ErrForbidden)
	assert.EqualError(t, err, "admin access required")
	assert.Empty(t, d.directory.deleted)
}

func TestUserDelete_Success(t *testing.T) {
	svc, d := newTestUserService(t)

	require.NoError(t, svc.Delete(context.Background(), adminToken, "user-2"))
	assert.Equal(t, []string{"user-2"}, d.directory.deleted)

	err := svc.Delete(context.Background(), adminToken, "user-2")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserDelete_UnknownPrivilegeRefusesTargetCheck(t *testing.T) {
	svc, d := newTestUserService(t)
	// Caller privilege fails closed too, so the error is forbidden either way;
	// what matters is that nothing is deleted.
	d.privileges.err = errors.New("backend unavailable")

	err := svc.Delete(context.Background(), adminToken, "admin-2")
	require.Error(t, err)
	assert.Empty(t, d.directory.deleted)
}

// =========================================================================
// LIST / CHECK
// =========================================================================

func TestUserList_AnnotatesAdmins(t *testing.T) {
	svc, _ := newTestUserService(t)

	list, err := svc.List(context.Background(), adminToken)
	require.NoError(t, err)
	require.Len(t, list, 4)

	roles := map[string]bool{}
	for _, a := range list {
		roles[a.UID] = a.IsAdmin
	}
	assert.Equal(t, map[string]bool{
		"admin-1": true,
		"admin-2": true,
		"user-1":  false,
		"user-2":  false,
	}, roles)

	_, err = svc.List(context.Background(), userToken)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestUserCheckAdmin(t *testing.T) {
	svc, d := newTestUserService(t)
	ctx := context.Background()

	ok, err := svc.CheckAdmin(ctx, adminToken)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckAdmin(ctx, userToken)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CheckAdmin(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	d.privileges.err = errors.New("backend unavailable")
	ok, err = svc.CheckAdmin(ctx, adminToken)
	require.NoError(t, err)
	assert.False(t, ok, "lookup failure reads as not privileged")
}
