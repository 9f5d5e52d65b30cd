package statestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver
	siemfeed "github.com/tphakala/go-siemfeed"
)

const defaultPostgresTable = "siemfeed_state"

// Postgres persists state documents in a single table, one row per key.
// Several collector hosts can share it as long as each profile is owned by
// exactly one of them.
type Postgres struct {
	db    *sql.DB
	table string
}

// OpenPostgres opens a database handle for NewPostgres using the pgx
// driver. The handle is lazy; the first query dials.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	return db, nil
}

// NewPostgres returns a store over db. An empty table selects the default.
func NewPostgres(db *sql.DB, table string) *Postgres {
	if table == "" {
		table = defaultPostgresTable
	}
	return &Postgres{db: db, table: table}
}

// EnsureSchema creates the state table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		state_key TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensuring state schema: %w", err)
	}
	return nil
}

// Get reads the document stored under key. A key that has never been set
// reports ok=false.
func (s *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := fmt.Sprintf("SELECT document FROM %s WHERE state_key = $1", s.table)

	var document []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading state %q: %w", key, err)
	}
	return document, true, nil
}

// Set upserts the document under key.
func (s *Postgres) Set(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`INSERT INTO %s (state_key, document, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (state_key) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`, s.table)

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("writing state %q: %w", key, err)
	}
	return nil
}

var _ siemfeed.StateStore = (*Postgres)(nil)
