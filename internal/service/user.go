package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/identity"
	"github.com/whynot-innovations/portal/internal/model"
)

const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserService is the admin view of provider accounts. The provider owns the
// accounts; this service only creates, lists and deletes them.
type UserService struct {
	directory identity.Directory
	guard     *Guard
	resolver  *Resolver
	logger    *slog.Logger
}

func NewUserService(directory identity.Directory, guard *Guard, resolver *Resolver, logger *slog.Logger) *UserService {
	return &UserService{
		directory: directory,
		guard:     guard,
		resolver:  resolver,
		logger:    logger,
	}
}

// List returns every account annotated with whether it holds privilege.
func (s *UserService) List(ctx context.Context, token string) ([]model.AccountWithRole, error) {
	if _, err := s.guard.RequirePrivileged(ctx, token); err != nil {
		return nil, err
	}

	accounts, err := s.directory.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	holders, err := s.resolver.Holders(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.AccountWithRole, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, model.AccountWithRole{Account: a, IsAdmin: holders[a.UID]})
	}
	return out, nil
}

// Create makes an unverified email/password account.
func (s *UserService) Create(ctx context.Context, token, email, password string) (*model.Account, error) {
	caller, err := s.guard.RequirePrivileged(ctx, token)
	if err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperror.ValidationFailed("email", "invalid email format")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password", "password must be at least 6 characters")
	}

	account, err := s.directory.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		slog.String("uid", account.UID),
		slog.String("by", caller.UID),
	)
	return account, nil
}

// Delete removes an account.
//
// GUARD ORDER:
//   - the caller may never delete themselves, privileged or not
//   - the caller must be privileged
//   - privileged accounts cannot be deleted here at all; revoke first
//
// The last check uses the strict lookup: if the privilege store cannot
// answer, the deletion is refused rather than risk removing an admin.
func (s *UserService) Delete(ctx context.Context, token, targetUID string) error {
	caller, err := s.guard.verify(ctx, token)
	if err != nil {
		return err
	}
	if targetUID == "" {
		return apperror.ValidationFailed("userId", "user ID is required")
	}

	if targetUID == caller.UID {
		return apperror.Forbidden("cannot delete self")
	}
	if err := s.guard.Authorize(ctx, caller); err != nil {
		return err
	}

	targetIsAdmin, err := s.resolver.Lookup(ctx, targetUID)
	if err != nil {
		return err
	}
	if targetIsAdmin {
		return apperror.Forbidden("cannot delete admin")
	}

	if err := s.directory.DeleteAccount(ctx, targetUID); err != nil {
		return err
	}

	s.logger.Info("user deleted",
		slog.String("uid", targetUID),
		slog.String("by", caller.UID),
	)
	return nil
}

// CheckAdmin tells the UI whether to show admin controls. The answer is
// advisory; every admin operation checks again on its own.
func (s *UserService) CheckAdmin(ctx context.Context, token string) (bool, error) {
	caller, err := s.guard.Authenticate(ctx, token)
	if err != nil {
		return false, err
	}
	return s.resolver.IsPrivileged(ctx, caller.UID), nil
}
