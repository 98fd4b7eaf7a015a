package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/user/snapbot/internal/entity"
	"github.com/user/snapbot/internal/repository"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "snapbot.db"

// SessionRepoImpl keeps the session state in a local SQLite database.
type SessionRepoImpl struct {
	db     *sql.DB
	dbPath string
}

var _ repository.SessionStore = (*SessionRepoImpl)(nil)

// Open opens or creates the database inside dir.
func Open(ctx context.Context, dir string) (*SessionRepoImpl, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dbPath := filepath.Join(dir, DBFileName)

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &SessionRepoImpl{db: db, dbPath: dbPath}
	if err := repo.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return repo, nil
}

func (r *SessionRepoImpl) createTables(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS session_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		image_host_key TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS processed_urls (
		position INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`)
	return err
}

// Path returns the database file location.
func (r *SessionRepoImpl) Path() string {
	return r.dbPath
}

func (r *SessionRepoImpl) Load(ctx context.Context) (*entity.SessionState, error) {
	state := entity.NewSessionState()

	err := r.db.QueryRowContext(ctx,
		`SELECT image_host_key, username FROM session_state WHERE id = 1`,
	).Scan(&state.ImageHostKey, &state.Username)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read session row: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT url FROM processed_urls ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to read processed urls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		state.MarkProcessed(u)
	}
	return state, rows.Err()
}

func (r *SessionRepoImpl) Save(ctx context.Context, state *entity.SessionState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO session_state (id, image_host_key, username) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   image_host_key = excluded.image_host_key, username = excluded.username, updated_at = CURRENT_TIMESTAMP`,
		state.ImageHostKey, state.Username,
	)
	if err != nil {
		return fmt.Errorf("failed to save session row: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO processed_urls (url) VALUES (?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range state.Processed {
		if _, err := stmt.ExecContext(ctx, u); err != nil {
			return fmt.Errorf("failed to save processed url %s: %w", u, err)
		}
	}

	return tx.Commit()
}

func (r *SessionRepoImpl) Close() error {
	return r.db.Close()
}
