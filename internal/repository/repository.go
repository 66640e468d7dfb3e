// Package repository declares the storage interfaces the services depend
// on. The sqlite subpackage implements all of them; service tests use
// in-memory fakes.
//
// Each method touches one record (or one query) and relies on the store's
// per-row atomicity. Nothing here takes application-level locks.
package repository

import (
	"context"
	"time"

	"github.com/whynot-innovations/portal/internal/model"
)

// InnovationRepository stores Innovation records.
type InnovationRepository interface {
	CreateInnovation(ctx context.Context, in *model.Innovation) error
	GetInnovation(ctx context.Context, id string) (*model.Innovation, error)
	// ListInnovations returns every innovation, newest first.
	ListInnovations(ctx context.Context) ([]model.Innovation, error)
	UpdateInnovation(ctx context.Context, in *model.Innovation) error
	DeleteInnovation(ctx context.Context, id string) error
}

// MessageQuery selects messages for a listing. Zero values mean "no
// constraint".
type MessageQuery struct {
	CreatedBy       string
	Type            model.MessageType
	UnreadOnly      bool
	IncludeArchived bool
}

// MessageRepository stores Message records. There is deliberately no delete.
type MessageRepository interface {
	CreateMessage(ctx context.Context, m *model.Message) error
	GetMessage(ctx context.Context, id string) (*model.Message, error)
	// ListMessages returns matching messages, newest first.
	ListMessages(ctx context.Context, q MessageQuery) ([]model.Message, error)
	SetMessageRead(ctx context.Context, id string, read bool) error
	SetMessageArchived(ctx context.Context, id string, archived bool) error
}

// PrivilegeRepository answers "is this UID an admin?". Grant and Revoke
// exist for out-of-band provisioning only; no HTTP route calls them.
type PrivilegeRepository interface {
	AdminExists(ctx context.Context, uid string) (bool, error)
	GrantAdmin(ctx context.Context, a *model.Admin) error
	RevokeAdmin(ctx context.Context, uid string) error
	ListAdmins(ctx context.Context) ([]model.Admin, error)
}

// AccountRepository is the storage behind the local identity provider.
type AccountRepository interface {
	// CreateAccount inserts the account and fills in UID and CreatedAt.
	// A duplicate email yields apperror.ErrConflict.
	CreateAccount(ctx context.Context, a *model.Account, passwordHash string) error
	// GetAccountByEmail returns the account and its password hash.
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, string, error)
	DeleteAccount(ctx context.Context, uid string) error
	ListAccounts(ctx context.Context) ([]model.Account, error)
	RecordSignIn(ctx context.Context, uid string, at time.Time) error
}
