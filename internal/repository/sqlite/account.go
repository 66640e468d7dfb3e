package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/repository"
)

var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `uid, email, email_verified, disabled, created_at, last_sign_in_at`

// CreateAccount stores a new account. Emails are compared case-insensitively,
// so they are lowercased before insert.
func (db *DB) CreateAccount(ctx context.Context, a *model.Account, passwordHash string) error {
	a.UID = xid.New().String()
	a.Email = strings.ToLower(a.Email)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (uid, email, password_hash, email_verified, disabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.UID,
		a.Email,
		passwordHash,
		a.EmailVerified,
		a.Disabled,
		a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("account", "email already exists")
		}
		return fmt.Errorf("sqlite: creating account: %w", err)
	}

	return nil
}

func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, string, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+`, password_hash FROM accounts WHERE email = ?`,
		strings.ToLower(email))

	var hash string
	a, err := scanAccount(row, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", apperror.NotFound("account", email)
		}
		return nil, "", fmt.Errorf("sqlite: getting account by email: %w", err)
	}

	return a, hash, nil
}

func (db *DB) DeleteAccount(ctx context.Context, uid string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM accounts WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("sqlite: deleting account %s: %w", uid, err)
	}
	return expectOneRow(result, "account", uid)
}

func (db *DB) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at, uid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning account row: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating account rows: %w", err)
	}

	return accounts, nil
}

func (db *DB) RecordSignIn(ctx context.Context, uid string, at time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET last_sign_in_at = ? WHERE uid = ?`, at, uid)
	if err != nil {
		return fmt.Errorf("sqlite: recording sign-in for %s: %w", uid, err)
	}
	return expectOneRow(result, "account", uid)
}

// scanAccount reads the accountColumns in order, followed by any extra
// destinations the query selected after them.
func scanAccount(s scanner, extra ...any) (*model.Account, error) {
	var (
		a          model.Account
		lastSignIn sql.NullTime
	)
	dest := append([]any{
		&a.UID,
		&a.Email,
		&a.EmailVerified,
		&a.Disabled,
		&a.CreatedAt,
		&lastSignIn,
	}, extra...)

	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if lastSignIn.Valid {
		t := lastSignIn.Time
		a.LastSignInAt = &t
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// Without extended result codes only the primary code is reported.
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}
