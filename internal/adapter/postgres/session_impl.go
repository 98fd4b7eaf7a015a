package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/snapbot/internal/entity"
	"github.com/user/snapbot/internal/repository"
)

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

const schema = `
	CREATE TABLE IF NOT EXISTS session_state (
		id             INTEGER PRIMARY KEY CHECK (id = 1),
		image_host_key TEXT NOT NULL DEFAULT '',
		username       TEXT NOT NULL DEFAULT '',
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS processed_urls (
		url          TEXT PRIMARY KEY,
		position     BIGINT NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
`

// SessionRepoImpl provides a concrete implementation for the SessionStore interface using PostgreSQL.
type SessionRepoImpl struct {
	db DB
}

var _ repository.SessionStore = (*SessionRepoImpl)(nil)

// NewSessionRepo creates a new instance of SessionRepoImpl.
func NewSessionRepo(db DB) *SessionRepoImpl {
	return &SessionRepoImpl{db: db}
}

// Open connects to connString and makes sure the schema exists.
func Open(ctx context.Context, connString string) (*SessionRepoImpl, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	repo := NewSessionRepo(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// Migrate creates the tables if they do not exist.
func (r *SessionRepoImpl) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *SessionRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Load reads the credential row and the processed URLs in insertion order.
func (r *SessionRepoImpl) Load(ctx context.Context) (*entity.SessionState, error) {
	state := entity.NewSessionState()

	err := r.db.QueryRow(ctx,
		`SELECT image_host_key, username FROM session_state WHERE id = 1`,
	).Scan(&state.ImageHostKey, &state.Username)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read session row: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT url FROM processed_urls ORDER BY position ASC`)
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

// Save upserts the credential row and inserts any processed URLs not yet
// stored, within a single transaction.
func (r *SessionRepoImpl) Save(ctx context.Context, state *entity.SessionState) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO session_state (id, image_host_key, username)
		 VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET
		   image_host_key = EXCLUDED.image_host_key, username = EXCLUDED.username, updated_at = NOW()`,
		state.ImageHostKey, state.Username,
	)
	if err != nil {
		return fmt.Errorf("failed to save session row: %w", err)
	}

	if len(state.Processed) > 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO processed_urls (url, position)
			 SELECT u, ord FROM unnest($1::text[]) WITH ORDINALITY AS t(u, ord)
			 ON CONFLICT (url) DO NOTHING`,
			state.Processed,
		)
		if err != nil {
			return fmt.Errorf("failed to save processed urls: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *SessionRepoImpl) Close() error {
	r.db.Close()
	return nil
}
