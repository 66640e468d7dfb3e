// Package sqlite implements the repository interfaces on SQLite.
//
// SQLite stands in for the hosted document store: one table per
// collection, one row per document, JSON text for list-valued fields.
// modernc.org/sqlite is a pure Go driver, so no C toolchain is needed.
//
// Use ":memory:" as the path for tests.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pressly/goose/v3"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and applies pending migrations.
//
// The pool is limited to one connection: SQLite serialises writers anyway,
// and an in-memory database exists per connection, so tests would otherwise
// see empty databases on the second connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// migrate applies the embedded goose migrations. goose records what has run
// in its own version table, so this is safe on every start.
func (db *DB) migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db.conn, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// gooseLogger sends goose's progress lines to the default slog logger so
// they share the process's log format.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	slog.Default().Info(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

func (gooseLogger) Fatalf(format string, v ...any) {
	slog.Default().Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
	os.Exit(1)
}
