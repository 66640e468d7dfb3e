package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/auth"
	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/repository"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

// LocalProvider is the portal's own account backend. Accounts live in the
// accounts table with bcrypt hashes and ID tokens are HS256 JWTs carrying
// the account UID as subject.
type LocalProvider struct {
	accounts  repository.AccountRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
	now       func() time.Time
}

var _ Provider = (*LocalProvider)(nil)

func NewLocalProvider(
	accounts repository.AccountRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *LocalProvider {
	return &LocalProvider{
		accounts:  accounts,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
		now:       time.Now,
	}
}

// Verify checks the signature, issuer and expiry of a local ID token. The
// account is not looked up, matching the hosted provider where a deleted
// account's token stays valid until it expires.
func (p *LocalProvider) Verify(_ context.Context, token string) (*Identity, error) {
	claims, err := p.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &Identity{UID: claims.Subject, Email: claims.Email}, nil
}

func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (*model.Account, error) {
	if len(password) > maxPasswordBytes {
		return nil, apperror.ValidationFailed("password", "password must be at most 72 bytes")
	}
	hash, err := p.passwords.Hash(password)
	if err != nil {
		return nil, err
	}

	a := &model.Account{
		Email:         email,
		EmailVerified: false,
		CreatedAt:     p.now().UTC(),
	}
	if err := p.accounts.CreateAccount(ctx, a, hash); err != nil {
		return nil, err
	}

	p.logger.Info("account created", "uid", a.UID)
	return a, nil
}

func (p *LocalProvider) DeleteAccount(ctx context.Context, uid string) error {
	return p.accounts.DeleteAccount(ctx, uid)
}

func (p *LocalProvider) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return p.accounts.ListAccounts(ctx)
}

// SignIn checks an email and password and issues an ID token. Every
// credential failure returns the same unauthorized error so the response
// does not reveal which emails exist.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (string, *model.Account, error) {
	invalid := apperror.Unauthorized("invalid email or password")

	a, hash, err := p.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", nil, invalid
		}
		return "", nil, err
	}

	if err := p.passwords.Verify(hash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return "", nil, invalid
		}
		return "", nil, err
	}
	if a.Disabled {
		return "", nil, apperror.Unauthorized("account is disabled")
	}

	token, err := p.tokens.Generate(a.UID, a.Email)
	if err != nil {
		return "", nil, err
	}

	now := p.now().UTC()
	if err := p.accounts.RecordSignIn(ctx, a.UID, now); err != nil {
		// The token is already valid; a missed timestamp is not worth failing the sign-in.
		p.logger.Warn("recording sign-in failed", "uid", a.UID, "error", err)
	} else {
		a.LastSignInAt = &now
	}

	return token, a, nil
}
