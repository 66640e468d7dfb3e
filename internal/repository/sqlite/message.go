package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/repository"
)

var _ repository.MessageRepository = (*DB)(nil)

const messageColumns = `id, type, innovation_id, innovation_title, content,
	created_by, created_by_email, created_at, read, archived`

func (db *DB) CreateMessage(ctx context.Context, m *model.Message) error {
	m.ID = xid.New().String()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		string(m.Type),
		m.InnovationID,
		m.InnovationTitle,
		m.Content,
		m.CreatedBy,
		m.CreatedByEmail,
		m.CreatedAt,
		m.Read,
		m.Archived,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating message: %w", err)
	}

	return nil
}

func (db *DB) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)

	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("message", id)
		}
		return nil, fmt.Errorf("sqlite: getting message %s: %w", id, err)
	}

	return m, nil
}

// ListMessages builds the WHERE clause from the non-zero fields of q.
// Archived messages are excluded unless q.IncludeArchived is set.
func (db *DB) ListMessages(ctx context.Context, q repository.MessageQuery) ([]model.Message, error) {
	var (
		where []string
		args  []any
	)
	if q.CreatedBy != "" {
		where = append(where, "created_by = ?")
		args = append(args, q.CreatedBy)
	}
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(q.Type))
	}
	if q.UnreadOnly {
		where = append(where, "read = 0")
	}
	if !q.IncludeArchived {
		where = append(where, "archived = 0")
	}

	query := `SELECT ` + messageColumns + ` FROM messages`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing messages: %w", err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning message row: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating message rows: %w", err)
	}

	return messages, nil
}

func (db *DB) SetMessageRead(ctx context.Context, id string, read bool) error {
	result, err := db.conn.ExecContext(ctx, `UPDATE messages SET read = ? WHERE id = ?`, read, id)
	if err != nil {
		return fmt.Errorf("sqlite: updating read flag of message %s: %w", id, err)
	}
	return expectOneRow(result, "message", id)
}

func (db *DB) SetMessageArchived(ctx context.Context, id string, archived bool) error {
	result, err := db.conn.ExecContext(ctx, `UPDATE messages SET archived = ? WHERE id = ?`, archived, id)
	if err != nil {
		return fmt.Errorf("sqlite: updating archived flag of message %s: %w", id, err)
	}
	return expectOneRow(result, "message", id)
}

func scanMessage(s scanner) (*model.Message, error) {
	var (
		m   model.Message
		typ string
	)
	err := s.Scan(
		&m.ID,
		&typ,
		&m.InnovationID,
		&m.InnovationTitle,
		&m.Content,
		&m.CreatedBy,
		&m.CreatedByEmail,
		&m.CreatedAt,
		&m.Read,
		&m.Archived,
	)
	if err != nil {
		return nil, err
	}
	m.Type = model.MessageType(typ)
	return &m, nil
}
