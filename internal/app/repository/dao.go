package repository

import (
	"context"

	"transcribe4all/internal/app/model"
)

// RunDAO stores the history of transcription runs.
type RunDAO interface {
	Close() error

	// Record inserts run and returns its id.
	Record(ctx context.Context, run *model.Run) (int64, error)

	// List returns the most recent runs first.
	List(ctx context.Context, limit int) ([]model.Run, error)

	ListByName(ctx context.Context, name string, limit int) ([]model.Run, error)

	// ListAfter returns runs with id > afterID in id order.
	ListAfter(ctx context.Context, afterID int64, limit int) ([]model.Run, error)
}
