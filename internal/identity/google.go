package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/credential"
	"github.com/whynot-innovations/portal/internal/model"
)

// adminScopes are requested for the service-account credential.
var adminScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/identitytoolkit",
	"https://www.googleapis.com/auth/userinfo.email",
}

// accountIterator yields exported user records until iterator.Done.
type accountIterator interface {
	Next() (*auth.ExportedUserRecord, error)
}

// authClient is the part of *auth.Client the provider uses.
type authClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
	Users(ctx context.Context) accountIterator
}

// sdkClient adapts *auth.Client to authClient.
type sdkClient struct {
	*auth.Client
}

func (c sdkClient) Users(ctx context.Context) accountIterator {
	return c.Client.Users(ctx, "")
}

// GoogleProvider verifies secure-token ID tokens issued by the hosted provider
// and manages its accounts through the Admin SDK.
type GoogleProvider struct {
	client authClient
	logger *slog.Logger
	now    func() time.Time
}

var _ Provider = (*GoogleProvider)(nil)

func newGoogleProvider(client authClient, logger *slog.Logger) *GoogleProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleProvider{client: client, logger: logger, now: time.Now}
}

// NewGoogleProviderFromCredential builds the provider from a parsed service
// account. ctx scopes the credential's token source and should outlive the
// provider.
func NewGoogleProviderFromCredential(ctx context.Context, sa *credential.ServiceAccount, logger *slog.Logger) (*GoogleProvider, error) {
	if sa.ProjectID == "" {
		return nil, apperror.Configuration("project_id", nil)
	}

	creds, err := google.CredentialsFromJSON(ctx, sa.JSON, adminScopes...)
	if err != nil {
		return nil, apperror.Configuration(credential.EnvVar, err)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: sa.ProjectID}, option.WithCredentials(creds))
	if err != nil {
		return nil, apperror.Configuration(credential.EnvVar, err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity: creating auth client: %w", err)
	}

	return newGoogleProvider(sdkClient{client}, logger), nil
}

// Verify checks signature, audience, issuer, expiry and subject of a
// secure-token ID token. Certificates are fetched and cached by the SDK.
func (p *GoogleProvider) Verify(ctx context.Context, token string) (*Identity, error) {
	tok, err := p.client.VerifyIDToken(ctx, token)
	if err != nil {
		if auth.IsIDTokenInvalid(err) || auth.IsIDTokenExpired(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return nil, fmt.Errorf("identity: verifying token: %w", err)
	}

	email, _ := tok.Claims["email"].(string)
	return &Identity{UID: tok.UID, Email: email}, nil
}

// =========================================================================
// ACCOUNT MANAGEMENT
// =========================================================================

func (p *GoogleProvider) CreateAccount(ctx context.Context, email, password string) (*model.Account, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		EmailVerified(false).
		Disabled(false)

	u, err := p.client.CreateUser(ctx, params)
	if err != nil {
		return nil, p.accountError("create", err)
	}

	p.logger.Info("account created at provider", "uid", u.UID)
	a := toAccount(u)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = p.now().UTC()
	}
	return &a, nil
}

func (p *GoogleProvider) DeleteAccount(ctx context.Context, uid string) error {
	if err := p.client.DeleteUser(ctx, uid); err != nil {
		return p.accountError("delete", err)
	}
	return nil
}

// ListAccounts drains the SDK iterator, which pages on its own.
func (p *GoogleProvider) ListAccounts(ctx context.Context) ([]model.Account, error) {
	accounts := []model.Account{}

	it := p.client.Users(ctx)
	for {
		u, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return accounts, nil
		}
		if err != nil {
			return nil, p.accountError("list", err)
		}
		accounts = append(accounts, toAccount(u.UserRecord))
	}
}

// accountError maps SDK errors to apperror kinds. Anything unrecognised is a
// backend failure.
func (p *GoogleProvider) accountError(op string, err error) error {
	switch {
	case auth.IsEmailAlreadyExists(err):
		return apperror.Conflict("account", "email already exists")
	case auth.IsUserNotFound(err):
		return &apperror.AppError{Err: apperror.ErrNotFound, Message: "account not found"}
	}

	p.logger.Error("identity provider call failed", "op", op, "error", err)
	return fmt.Errorf("identity: %s account: %w", op, err)
}

func toAccount(u *auth.UserRecord) model.Account {
	if u == nil {
		return model.Account{}
	}

	a := model.Account{
		EmailVerified: u.EmailVerified,
		Disabled:      u.Disabled,
	}
	if u.UserInfo != nil {
		a.UID = u.UID
		a.Email = u.Email
	}
	if m := u.UserMetadata; m != nil {
		if m.CreationTimestamp > 0 {
			a.CreatedAt = time.UnixMilli(m.CreationTimestamp).UTC()
		}
		if m.LastLogInTimestamp > 0 {
			t := time.UnixMilli(m.LastLogInTimestamp).UTC()
			a.LastSignInAt = &t
		}
	}
	return a
}
