// Package service contains the business rules of the portal.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → verifies callers, validates, enforces rules
//	Repository (data layer)  → reads/writes records
//
// Every mutating operation takes the caller's raw ID token and runs the same
// sequence before touching a record:
//
//  1. verify the token with the identity provider (401 on failure)
//  2. resolve privilege for the verified UID (403 if missing)
//  3. check the target exists (404)
//  4. apply domain guards (for example "cannot delete self")
//  5. perform exactly one write, with server-side timestamps
//
// Guard implements steps 1 and 2 so no service can skip them. A UID from a
// session cookie or request body is never trusted on its own.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/identity"
	"github.com/whynot-innovations/portal/internal/metrics"
	"github.com/whynot-innovations/portal/internal/repository"
)

// Resolver answers whether an identity holds the administrator privilege.
// The answer is a direct existence lookup in the privilege store, never
// derived from token contents or email.
type Resolver struct {
	privileges repository.PrivilegeRepository
	metrics    metrics.Recorder
	logger     *slog.Logger
}

func NewResolver(privileges repository.PrivilegeRepository, rec metrics.Recorder, logger *slog.Logger) *Resolver {
	return &Resolver{privileges: privileges, metrics: rec, logger: logger}
}

// IsPrivileged reports whether uid has a privilege record. Lookup failures
// count as "not privileged"; they are logged at error level and counted so
// an outage can be told apart from a non-admin.
func (r *Resolver) IsPrivileged(ctx context.Context, uid string) bool {
	ok, err := r.Lookup(ctx, uid)
	if err != nil {
		r.metrics.RecordPrivilegeLookupError()
		r.logger.Error("privilege lookup failed; treating as not privileged",
			slog.String("uid", uid),
			slog.Any("error", err),
		)
		return false
	}
	return ok
}

// Lookup is IsPrivileged with the error surfaced. Guards that must refuse
// when the answer is unknown use this instead.
func (r *Resolver) Lookup(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, nil
	}
	ok, err := r.privileges.AdminExists(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("service/access: looking up privilege for %s: %w", uid, err)
	}
	return ok, nil
}

// Holders returns the set of privileged UIDs, for annotating listings.
func (r *Resolver) Holders(ctx context.Context) (map[string]bool, error) {
	admins, err := r.privileges.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/access: listing privilege holders: %w", err)
	}
	holders := make(map[string]bool, len(admins))
	for _, a := range admins {
		holders[a.UserID] = true
	}
	return holders, nil
}

// Guard verifies callers and enforces privilege for mutating operations.
type Guard struct {
	verifier identity.Verifier
	resolver *Resolver
	metrics  metrics.Recorder
	logger   *slog.Logger
}

func NewGuard(verifier identity.Verifier, resolver *Resolver, rec metrics.Recorder, logger *slog.Logger) *Guard {
	return &Guard{verifier: verifier, resolver: resolver, metrics: rec, logger: logger}
}

// Authenticate verifies token and returns the identity it proves.
func (g *Guard) Authenticate(ctx context.Context, token string) (*identity.Identity, error) {
	id, err := g.verify(ctx, token)
	if err != nil {
		return nil, err
	}
	g.metrics.RecordAuthzDecision(metrics.DecisionAllowed)
	return id, nil
}

// RequirePrivileged verifies token and then requires a privilege record for
// the verified UID.
func (g *Guard) RequirePrivileged(ctx context.Context, token string) (*identity.Identity, error) {
	id, err := g.verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := g.Authorize(ctx, id); err != nil {
		return nil, err
	}
	return id, nil
}

// Authorize requires a privilege record for an already verified identity.
func (g *Guard) Authorize(ctx context.Context, id *identity.Identity) error {
	if !g.resolver.IsPrivileged(ctx, id.UID) {
		g.metrics.RecordAuthzDecision(metrics.DecisionForbidden)
		return apperror.Forbidden("admin access required")
	}
	g.metrics.RecordAuthzDecision(metrics.DecisionAllowed)
	return nil
}

// verify maps provider errors onto the error taxonomy: a missing or rejected
// token is unauthorized, an unusable provider configuration passes through
// as a configuration error, and anything else is a backend failure.
func (g *Guard) verify(ctx context.Context, token string) (*identity.Identity, error) {
	if token == "" {
		g.metrics.RecordAuthzDecision(metrics.DecisionUnauthenticated)
		return nil, apperror.Unauthorized("ID token required")
	}

	id, err := g.verifier.Verify(ctx, token)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, apperror.ErrConfiguration):
		g.metrics.RecordAuthzDecision(metrics.DecisionUnavailable)
		g.logger.Error("identity provider is not configured", slog.Any("error", err))
		return nil, err
	case errors.Is(err, identity.ErrInvalidToken):
		g.metrics.RecordAuthzDecision(metrics.DecisionUnauthenticated)
		g.logger.Debug("ID token rejected", slog.Any("error", err))
		return nil, apperror.Unauthorized("invalid or expired ID token")
	default:
		g.metrics.RecordAuthzDecision(metrics.DecisionUnavailable)
		return nil, fmt.Errorf("service/access: verifying ID token: %w", err)
	}
}
