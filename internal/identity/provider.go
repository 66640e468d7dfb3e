// Package identity verifies ID tokens and manages accounts at the identity
// provider.
//
// Two backends implement Provider:
//
//   - LocalProvider keeps accounts in the portal's own database and signs
//     HS256 ID tokens. Used for development, tests and single-box installs.
//   - GoogleProvider verifies secure-token ID tokens issued by the hosted
//     provider and manages accounts through the Admin SDK with a
//     service-account credential.
//
// Callers normally hold a *Lazy, which builds the real provider on first use.
package identity

import (
	"context"
	"errors"

	"github.com/whynot-innovations/portal/internal/model"
)

// ErrInvalidToken is wrapped by Verify when the token itself is rejected:
// malformed, badly signed, expired, or issued for another project. Any other
// Verify error means the provider could not be asked.
var ErrInvalidToken = errors.New("identity: invalid token")

// Identity is what a verified ID token proves about the caller.
type Identity struct {
	UID   string
	Email string
}

// Verifier checks ID tokens.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Directory manages accounts at the provider.
type Directory interface {
	// CreateAccount creates an account with emailVerified=false. A taken
	// email yields apperror.ErrConflict.
	CreateAccount(ctx context.Context, email, password string) (*model.Account, error)
	// DeleteAccount yields apperror.ErrNotFound for an unknown uid.
	DeleteAccount(ctx context.Context, uid string) error
	ListAccounts(ctx context.Context) ([]model.Account, error)
}

// Provider is a full identity backend.
type Provider interface {
	Verifier
	Directory
}
