package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/repository"
	"transcribe4all/internal/app/util/files"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT     NOT NULL,
	engine        TEXT     NOT NULL DEFAULT '',
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME NOT NULL,
	result_count  INTEGER  NOT NULL DEFAULT 0,
	word_count    INTEGER  NOT NULL DEFAULT 0,
	text          TEXT     NOT NULL DEFAULT '',
	output_path   TEXT     NOT NULL DEFAULT '',
	output_url    TEXT     NOT NULL DEFAULT '',
	has_error     BOOLEAN  NOT NULL DEFAULT 0,
	error_message TEXT     NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_name ON runs (name);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at);
`

// SQLiteDB is the default run history store.
type SQLiteDB struct {
	*repository.CommonDB
}

// DefaultPath is data/runs.db under the project root.
func DefaultPath() string {
	return filepath.Join(files.GetDataDir(), "runs.db")
}

// Open opens (creating if needed) the database file at dbPath and applies
// the schema.
func Open(ctx context.Context, dbPath string) (*SQLiteDB, error) {
	if err := files.EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, apperrors.Kind(apperrors.ErrDatabaseConnection, err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?cache=shared&mode=rwc&_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, apperrors.Kind(apperrors.ErrDatabaseConnection, err)
	}
	// A single connection serializes writers from concurrent task runs.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, apperrors.Kind(apperrors.ErrDatabaseConnection, fmt.Errorf("create table: %w", err))
	}

	return &SQLiteDB{CommonDB: repository.NewCommonDB(db, "sqlite3")}, nil
}
