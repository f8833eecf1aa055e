// Package tasks runs transcriptions in the background and keeps their status
// around for a while so that clients can poll for it.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is the status of a task.
type Status int

const (
	InProgress Status = iota
	Success
	Failure
	NotFound
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "not_found"
	}
}

// Description is the human readable form returned by the API.
func (s Status) Description() string {
	switch s {
	case InProgress:
		return "The task is in progress."
	case Success:
		return "The task completed successfully."
	case Failure:
		return "The task failed."
	default:
		return "Error: task not found."
	}
}

// Task is the unit of work. ctx is cancelled when the executor closes. The
// returned value is kept in Info.Result, also on failure.
type Task func(ctx context.Context, id string) (interface{}, error)

// FailureHandler is notified, on its own goroutine, when a task fails or
// panics.
type FailureHandler func(id string, err error)

// Info is a snapshot of a task.
type Info struct {
	ID       string
	Status   Status
	Started  time.Time
	Finished time.Time
	Error    string
	Result   interface{}
}

// Executor runs queued tasks concurrently. Info for a task is forgotten
// after the expiration.
type Executor struct {
	mu         sync.RWMutex
	tasks      map[string]Info
	expiration time.Duration
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

const DefaultExpiration = 24 * time.Hour

// NewExecutor returns an Executor ready to execute.
func NewExecutor(logger *zap.Logger, expiration time.Duration) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		tasks:      make(map[string]Info),
		expiration: expiration,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		now:        time.Now,
	}
}

// QueueTask starts task in the background and returns its id. A panic in
// task is recovered and reported as a failure; panics in goroutines the task
// starts itself are not.
func (ex *Executor) QueueTask(task Task, onFailure FailureHandler) string {
	id := uuid.New().String()

	ex.mu.Lock()
	ex.tasks[id] = Info{ID: id, Status: InProgress, Started: ex.now()}
	ex.mu.Unlock()

	ex.logger.Info("task started", zap.String("task", id))
	ex.wg.Add(1)
	go ex.completeTask(id, task, onFailure)
	return id
}

// GetTaskStatus gets the current status of a task.
func (ex *Executor) GetTaskStatus(id string) Status {
	if info, ok := ex.Get(id); ok {
		return info.Status
	}
	return NotFound
}

func (ex *Executor) Get(id string) (Info, bool) {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	info, ok := ex.tasks[id]
	return info, ok
}

func (ex *Executor) completeTask(id string, task Task, onFailure FailureHandler) {
	defer ex.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("task panicked: %v", r)
			ex.logger.Error("task failed", zap.String("task", id), zap.Any("panic", r))
			ex.finish(id, nil, err)
			ex.notify(onFailure, id, err)
		}
	}()

	result, err := task(ex.ctx, id)
	if err != nil {
		ex.logger.Error("task failed", zap.String("task", id), zap.Error(err))
		ex.finish(id, result, err)
		ex.notify(onFailure, id, err)
		return
	}

	ex.logger.Info("task succeeded", zap.String("task", id))
	ex.finish(id, result, nil)
}

func (ex *Executor) notify(onFailure FailureHandler, id string, err error) {
	if onFailure != nil {
		go onFailure(id, err)
	}
}

func (ex *Executor) finish(id string, result interface{}, err error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	info, ok := ex.tasks[id]
	if !ok {
		return
	}
	info.Finished = ex.now()
	info.Result = result
	info.Status = Success
	if err != nil {
		info.Status = Failure
		info.Error = err.Error()
	}
	ex.tasks[id] = info
}

// Sweep forgets tasks started more than the expiration ago and returns how
// many were removed.
func (ex *Executor) Sweep() int {
	now := ex.now()

	ex.mu.Lock()
	defer ex.mu.Unlock()

	removed := 0
	for id, info := range ex.tasks {
		if now.Sub(info.Started) > ex.expiration {
			delete(ex.tasks, id)
			removed++
			ex.logger.Debug("expired from task map", zap.String("task", id))
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done or the executor
// closes.
func (ex *Executor) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ex.ctx.Done():
				return
			case <-ticker.C:
				ex.Sweep()
			}
		}
	}()
}

// Wait blocks until every queued task has returned.
func (ex *Executor) Wait() {
	ex.wg.Wait()
}

// Close cancels running tasks and waits for them.
func (ex *Executor) Close() {
	ex.cancel()
	ex.wg.Wait()
}
