package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/repository"
)

var _ repository.PrivilegeRepository = (*DB)(nil)

// AdminExists reports whether a privilege record is keyed by uid. Only the
// presence of the row matters; its fields are never inspected.
func (db *DB) AdminExists(ctx context.Context, uid string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM admins WHERE user_id = ?)`, uid,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: looking up admin %s: %w", uid, err)
	}
	return exists, nil
}

// GrantAdmin upserts the privilege record. Granting twice keeps the
// original created_at.
func (db *DB) GrantAdmin(ctx context.Context, a *model.Admin) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO admins (user_id, email, created_at, created_by)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET email = excluded.email`,
		a.UserID,
		a.Email,
		a.CreatedAt,
		a.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("sqlite: granting admin %s: %w", a.UserID, err)
	}
	return nil
}

func (db *DB) RevokeAdmin(ctx context.Context, uid string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, uid)
	if err != nil {
		return fmt.Errorf("sqlite: revoking admin %s: %w", uid, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("admin", uid)
	}
	return nil
}

func (db *DB) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, email, created_at, created_by FROM admins ORDER BY created_at, user_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing admins: %w", err)
	}
	defer rows.Close()

	admins := []model.Admin{}
	for rows.Next() {
		var a model.Admin
		if err := rows.Scan(&a.UserID, &a.Email, &a.CreatedAt, &a.CreatedBy); err != nil {
			return nil, fmt.Errorf("sqlite: scanning admin row: %w", err)
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating admin rows: %w", err)
	}

	return admins, nil
}
