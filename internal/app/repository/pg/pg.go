package pg

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/repository"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT        NOT NULL,
	engine        TEXT        NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	result_count  INTEGER     NOT NULL DEFAULT 0,
	word_count    INTEGER     NOT NULL DEFAULT 0,
	text          TEXT        NOT NULL DEFAULT '',
	output_path   TEXT        NOT NULL DEFAULT '',
	output_url    TEXT        NOT NULL DEFAULT '',
	has_error     BOOLEAN     NOT NULL DEFAULT FALSE,
	error_message TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_name ON runs (name);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at);
`

// PostgresDB stores run history for the HTTP server deployment.
type PostgresDB struct {
	*repository.CommonDB
}

// New wraps an open connection without touching the schema.
func New(db *sql.DB) *PostgresDB {
	return &PostgresDB{CommonDB: repository.NewCommonDB(db, "postgres")}
}

// Open connects to connectionString, checks the connection and applies the
// schema.
func Open(ctx context.Context, connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, apperrors.Kind(apperrors.ErrDatabaseConnection, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.Kind(apperrors.ErrDatabaseConnection, err)
	}

	pdb := New(db)
	if err := pdb.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return pdb, nil
}

func (p *PostgresDB) EnsureSchema(ctx context.Context) error {
	if _, err := p.DB().ExecContext(ctx, createTableSQL); err != nil {
		return apperrors.Kind(apperrors.ErrDatabaseConnection, fmt.Errorf("create table: %w", err))
	}
	return nil
}
