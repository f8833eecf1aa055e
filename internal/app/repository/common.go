package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/model"
)

const runColumns = `id, name, engine, started_at, finished_at, result_count, word_count,
	text, output_path, output_url, has_error, error_message`

// CommonDB implements RunDAO over database/sql for both dialects.
type CommonDB struct {
	db           *sql.DB
	driverName   string
	placeholders PlaceholderFunc
}

// PlaceholderFunc generates parameter placeholders for different SQL dialects
type PlaceholderFunc func(n int) string

// NewCommonDB creates a new CommonDB instance
func NewCommonDB(db *sql.DB, driverName string) *CommonDB {
	var placeholders PlaceholderFunc

	switch driverName {
	case "postgres":
		placeholders = func(n int) string { return fmt.Sprintf("$%d", n) }
	default:
		placeholders = func(n int) string { return "?" }
	}

	return &CommonDB{
		db:           db,
		driverName:   driverName,
		placeholders: placeholders,
	}
}

func (c *CommonDB) params(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = c.placeholders(i + 1)
	}
	return strings.Join(ps, ", ")
}

// Record inserts a run. Both sqlite (3.35+) and postgres support RETURNING.
func (c *CommonDB) Record(ctx context.Context, run *model.Run) (int64, error) {
	query := fmt.Sprintf(
		`INSERT INTO runs (
			name, engine, started_at, finished_at, result_count, word_count,
			text, output_path, output_url, has_error, error_message
		) VALUES (%s) RETURNING id`,
		c.params(11),
	)

	var id int64
	err := c.db.QueryRowContext(ctx, query,
		run.Name, run.Engine, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.ResultCount, run.WordCount,
		run.Text, run.OutputPath, run.OutputURL, run.HasError, run.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, apperrors.Kind(apperrors.ErrInsertFailed, err)
	}

	run.ID = id
	return id, nil
}

func (c *CommonDB) List(ctx context.Context, limit int) ([]model.Run, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM runs ORDER BY started_at DESC, id DESC LIMIT %s`,
		runColumns, c.placeholders(1),
	)
	return c.query(ctx, query, limit)
}

func (c *CommonDB) ListByName(ctx context.Context, name string, limit int) ([]model.Run, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM runs WHERE name = %s ORDER BY started_at DESC, id DESC LIMIT %s`,
		runColumns, c.placeholders(1), c.placeholders(2),
	)
	return c.query(ctx, query, name, limit)
}

func (c *CommonDB) ListAfter(ctx context.Context, afterID int64, limit int) ([]model.Run, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM runs WHERE id > %s ORDER BY id LIMIT %s`,
		runColumns, c.placeholders(1), c.placeholders(2),
	)
	return c.query(ctx, query, afterID, limit)
}

func (c *CommonDB) query(ctx context.Context, query string, args ...interface{}) ([]model.Run, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Kind(apperrors.ErrQueryFailed, err)
	}
	defer rows.Close()

	runs := make([]model.Run, 0)
	for rows.Next() {
		var r model.Run
		err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Engine,
			&r.StartedAt,
			&r.FinishedAt,
			&r.ResultCount,
			&r.WordCount,
			&r.Text,
			&r.OutputPath,
			&r.OutputURL,
			&r.HasError,
			&r.ErrorMessage,
		)
		if err != nil {
			return nil, apperrors.Kind(apperrors.ErrScanFailed, err)
		}
		runs = append(runs, r)
	}

	if err = rows.Err(); err != nil {
		return nil, apperrors.Kind(apperrors.ErrQueryFailed, err)
	}

	return runs, nil
}

// Close closes the database connection
func (c *CommonDB) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// DB returns the underlying database connection
func (c *CommonDB) DB() *sql.DB {
	return c.db
}

var _ RunDAO = (*CommonDB)(nil)
