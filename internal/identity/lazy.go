package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/model"
)

// Lazy defers building a Provider until the first call that needs it.
//
// The constructor runs at most once per Lazy. Concurrent first callers block
// on the same run and all observe its result. A failed run is remembered:
// every later call returns the same configuration error without retrying,
// so a bad credential is reported consistently until the process restarts.
type Lazy struct {
	get func() (Provider, error)
}

var _ Provider = (*Lazy)(nil)

// NewLazy wraps init. item names the setting init depends on; it is used in
// the configuration error when init fails with a plain error.
func NewLazy(item string, init func() (Provider, error)) *Lazy {
	return &Lazy{
		get: sync.OnceValues(func() (Provider, error) {
			p, err := init()
			if err != nil {
				if errors.Is(err, apperror.ErrConfiguration) {
					return nil, err
				}
				return nil, apperror.Configuration(item, err)
			}
			if p == nil {
				return nil, apperror.Configuration(item, nil)
			}
			return p, nil
		}),
	}
}

// Provider returns the initialised provider or the cached init error.
func (l *Lazy) Provider() (Provider, error) {
	return l.get()
}

func (l *Lazy) Verify(ctx context.Context, token string) (*Identity, error) {
	p, err := l.get()
	if err != nil {
		return nil, err
	}
	return p.Verify(ctx, token)
}

func (l *Lazy) CreateAccount(ctx context.Context, email, password string) (*model.Account, error) {
	p, err := l.get()
	if err != nil {
		return nil, err
	}
	return p.CreateAccount(ctx, email, password)
}

func (l *Lazy) DeleteAccount(ctx context.Context, uid string) error {
	p, err := l.get()
	if err != nil {
		return err
	}
	return p.DeleteAccount(ctx, uid)
}

func (l *Lazy) ListAccounts(ctx context.Context) ([]model.Account, error) {
	p, err := l.get()
	if err != nil {
		return nil, err
	}
	return p.ListAccounts(ctx)
}
