package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/repository"
)

var _ repository.InnovationRepository = (*DB)(nil)

const innovationColumns = `id, title, description, status, tags, link, created_by, created_at, updated_at`

// CreateInnovation inserts a new innovation and sets its ID. Zero
// timestamps are filled with the current time.
func (db *DB) CreateInnovation(ctx context.Context, in *model.Innovation) error {
	in.ID = xid.New().String()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = in.CreatedAt
	}

	tags, err := encodeTags(in.Tags)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO innovations (`+innovationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID,
		in.Title,
		in.Description,
		string(in.Status),
		tags,
		in.Link,
		in.CreatedBy,
		in.CreatedAt,
		in.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating innovation: %w", err)
	}

	return nil
}

// GetInnovation returns apperror.ErrNotFound if no row has the ID.
func (db *DB) GetInnovation(ctx context.Context, id string) (*model.Innovation, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+innovationColumns+` FROM innovations WHERE id = ?`, id)

	in, err := scanInnovation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("innovation", id)
		}
		return nil, fmt.Errorf("sqlite: getting innovation %s: %w", id, err)
	}

	return in, nil
}

func (db *DB) ListInnovations(ctx context.Context) ([]model.Innovation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+innovationColumns+` FROM innovations ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing innovations: %w", err)
	}
	defer rows.Close()

	innovations := []model.Innovation{}
	for rows.Next() {
		in, err := scanInnovation(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning innovation row: %w", err)
		}
		innovations = append(innovations, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating innovation rows: %w", err)
	}

	return innovations, nil
}

// UpdateInnovation overwrites the mutable fields. created_by and created_at
// are never touched.
func (db *DB) UpdateInnovation(ctx context.Context, in *model.Innovation) error {
	tags, err := encodeTags(in.Tags)
	if err != nil {
		return err
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE innovations
		 SET title = ?, description = ?, status = ?, tags = ?, link = ?, updated_at = ?
		 WHERE id = ?`,
		in.Title,
		in.Description,
		string(in.Status),
		tags,
		in.Link,
		in.UpdatedAt,
		in.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating innovation %s: %w", in.ID, err)
	}

	return expectOneRow(result, "innovation", in.ID)
}

func (db *DB) DeleteInnovation(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM innovations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting innovation %s: %w", id, err)
	}

	return expectOneRow(result, "innovation", id)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInnovation(s scanner) (*model.Innovation, error) {
	var (
		in     model.Innovation
		status string
		tags   string
	)
	err := s.Scan(
		&in.ID,
		&in.Title,
		&in.Description,
		&status,
		&tags,
		&in.Link,
		&in.CreatedBy,
		&in.CreatedAt,
		&in.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	in.Status = model.InnovationStatus(status)
	if err := json.Unmarshal([]byte(tags), &in.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of innovation %s: %w", in.ID, err)
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}

	return &in, nil
}

// encodeTags stores the list as a JSON array, keeping its order. A nil
// slice is stored as "[]".
func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	return string(b), nil
}

// expectOneRow turns "no rows affected" into apperror.ErrNotFound.
func expectOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
