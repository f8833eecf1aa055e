// Package migrate copies run history between stores, typically from the
// local sqlite file into the postgres database the server uses.
package migrate

import (
	"context"

	"go.uber.org/zap"

	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/repository"
)

const DefaultBatchSize = 1000

// Copy reads src in id order starting after lastID and records every run in
// dst. It returns the number of runs copied and the last source id seen, so
// an interrupted copy can resume.
func Copy(ctx context.Context, src, dst repository.RunDAO, lastID int64, batchSize int, logger *zap.Logger) (int, int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	copied := 0
	for {
		if err := ctx.Err(); err != nil {
			return copied, lastID, err
		}

		runs, err := src.ListAfter(ctx, lastID, batchSize)
		if err != nil {
			return copied, lastID, apperrors.Wrap(err, "read source batch")
		}
		if len(runs) == 0 {
			return copied, lastID, nil
		}

		for i := range runs {
			sourceID := runs[i].ID
			if _, err := dst.Record(ctx, &runs[i]); err != nil {
				return copied, lastID, apperrors.Wrapf(err, "copy run %d", sourceID)
			}
			lastID = sourceID
			copied++
		}
		logger.Info("copied batch", zap.Int("runs", len(runs)), zap.Int64("last_id", lastID))
	}
}
