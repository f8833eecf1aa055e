// Package batch transcribes every input in a directory.
package batch

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"

	"transcribe4all/internal/app/model"
	"transcribe4all/internal/app/progress"
	"transcribe4all/internal/app/service"
	"transcribe4all/internal/app/util/files"
)

// Transcriber runs one transcription, typically *service.Service.
type Transcriber interface {
	Transcribe(ctx context.Context, req service.Request) (*model.Run, error)
}

type Options struct {
	Engine string
	// Parallel bounds concurrent runs; values below 1 mean 1.
	Parallel int
	// Limit caps how many inputs are run; 0 means all.
	Limit int
	// SkipDone skips inputs whose report already exists.
	SkipDone bool
}

// Summary counts outcomes. Errors is keyed by input base name.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Errors    map[string]error
}

type Batch struct {
	svc      Transcriber
	progress *progress.Manager
	logger   *zap.Logger
}

func New(svc Transcriber, pm *progress.Manager, logger *zap.Logger) *Batch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batch{svc: svc, progress: pm, logger: logger}
}

// Do runs every .wav under dir, oldest first. Failed runs are counted, not
// returned; the error is only for an unreadable dir or a cancelled ctx.
func (b *Batch) Do(ctx context.Context, dir string, opts Options) (*Summary, error) {
	names, err := files.ListInputs(dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Errors: make(map[string]error)}
	todo := b.filterUnprocessed(names, opts, summary)
	summary.Total = len(todo)
	if len(todo) == 0 {
		return summary, nil
	}

	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}

	bar := b.progress.CreateBar(len(todo), "Transcribing")
	defer b.progress.Wait()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, parallel)
	)
	for _, name := range todo {
		var stopped bool
		if ctx.Err() == nil {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				stopped = true
			}
		}
		if stopped || ctx.Err() != nil {
			wg.Wait()
			b.abortBar(bar, len(todo))
			return summary, ctx.Err()
		}

		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer bar.Increment()

			_, err := b.svc.Transcribe(ctx, service.Request{Name: name, Engine: opts.Engine})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				summary.Errors[name] = err
				b.logger.Warn("transcription failed", zap.String("name", name), zap.Error(err))
				return
			}
			summary.Succeeded++
			b.logger.Info("transcription finished", zap.String("name", name))
		}(name)
	}
	wg.Wait()
	return summary, nil
}

func (b *Batch) filterUnprocessed(names []string, opts Options, summary *Summary) []string {
	todo := make([]string, 0, len(names))
	for _, name := range names {
		if opts.Limit > 0 && len(todo) >= opts.Limit {
			break
		}
		if opts.SkipDone {
			if _, err := os.Stat(files.OutputPath(name)); err == nil {
				b.logger.Info("report exists, skipping", zap.String("name", name))
				summary.Skipped++
				continue
			}
		}
		todo = append(todo, name)
	}
	return todo
}

// abortBar fills the remainder so that progress.Wait does not block on a
// bar that will never complete.
func (b *Batch) abortBar(bar *progress.Bar, total int) {
	for i := bar.Current(); i < int64(total); i++ {
		bar.Increment()
	}
}
