package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"transcribe4all/internal/api/errors"
	"transcribe4all/internal/api/middleware"
	"transcribe4all/internal/api/v1/dto"
	"transcribe4all/internal/app/model"
	"transcribe4all/internal/app/recognizer"
	"transcribe4all/internal/app/service"
	"transcribe4all/internal/app/tasks"
	"transcribe4all/internal/app/util/files"
)

// Transcriber is the part of service.Service the handlers use.
type Transcriber interface {
	Transcribe(ctx context.Context, req service.Request) (*model.Run, error)
	History(ctx context.Context, name string, limit int) ([]model.Run, error)
}

// TaskQueue is the part of tasks.Executor the handlers use.
type TaskQueue interface {
	QueueTask(task tasks.Task, onFailure tasks.FailureHandler) string
	Get(id string) (tasks.Info, bool)
}

// TranscriptionHandler handles transcription-related API endpoints
type TranscriptionHandler struct {
	service Transcriber
	queue   TaskQueue
	logger  *zap.Logger
}

// NewTranscriptionHandler creates a new transcription handler
func NewTranscriptionHandler(service Transcriber, queue TaskQueue, logger *zap.Logger) *TranscriptionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptionHandler{
		service: service,
		queue:   queue,
		logger:  logger,
	}
}

// Create handles POST /api/v1/transcriptions.
// The run is queued and its task id returned with 202 Accepted.
func (h *TranscriptionHandler) Create(c *gin.Context) {
	var req dto.CreateTranscriptionRequest
	if err := middleware.ValidateRequest(c, &req); err != nil {
		middleware.HandleError(c, err)
		return
	}

	request := service.Request{Name: req.Name, Engine: req.Engine, Source: req.Source}
	id := h.queue.QueueTask(func(ctx context.Context, _ string) (interface{}, error) {
		run, err := h.service.Transcribe(ctx, request)
		if run == nil {
			return nil, err
		}
		return run, err
	}, func(id string, err error) {
		h.logger.Warn("queued transcription failed",
			zap.String("task", id),
			zap.String("name", request.Name),
			zap.Error(err),
		)
	})

	c.Header("Location", c.FullPath()+"/"+id)
	c.JSON(http.StatusAccepted, dto.TaskCreatedResponse{ID: id})
}

// Get handles GET /api/v1/transcriptions/:id
func (h *TranscriptionHandler) Get(c *gin.Context) {
	info, ok := h.queue.Get(c.Param("id"))
	if !ok {
		middleware.HandleError(c, errors.NewNotFoundError("Task"))
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskResponse(info))
}

// Report handles GET /api/v1/transcriptions/:id/report.
// Only a successful task has a report to serve.
func (h *TranscriptionHandler) Report(c *gin.Context) {
	info, ok := h.queue.Get(c.Param("id"))
	if !ok {
		middleware.HandleError(c, errors.NewNotFoundError("Task"))
		return
	}

	run, _ := info.Result.(*model.Run)
	if info.Status != tasks.Success || run == nil || run.OutputPath == "" {
		middleware.HandleError(c, errors.NewNotFoundError("Report"))
		return
	}

	content, err := files.ReadOutputFile(run.OutputPath)
	if err != nil {
		h.logger.Warn("report unreadable", zap.String("path", run.OutputPath), zap.Error(err))
		middleware.HandleError(c, errors.NewNotFoundError("Report"))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(content+"\n"))
}

// ListRuns handles GET /api/v1/runs
func (h *TranscriptionHandler) ListRuns(c *gin.Context) {
	var query dto.ListRunsQuery
	if err := middleware.ValidateQuery(c, &query); err != nil {
		middleware.HandleError(c, err)
		return
	}

	runs, err := h.service.History(c.Request.Context(), query.Name, query.Limit)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListRunsResponse(runs))
}

// Engines handles GET /api/v1/engines
func (h *TranscriptionHandler) Engines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"engines": recognizer.Engines()})
}
