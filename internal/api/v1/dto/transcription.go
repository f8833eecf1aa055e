package dto

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	"transcribe4all/internal/api/errors"
	"transcribe4all/internal/app/audio"
	"transcribe4all/internal/app/model"
	"transcribe4all/internal/app/recognizer"
	"transcribe4all/internal/app/tasks"
)

// CreateTranscriptionRequest represents the request to create a transcription
type CreateTranscriptionRequest struct {
	// Name is the input base name, relative to the server's working directory.
	Name   string `json:"name" binding:"required"`
	Engine string `json:"engine,omitempty"`
	// Source is an optional audio file, or http(s) URL, converted to
	// Name.wav before the run.
	Source string `json:"source,omitempty"`
}

// Validate performs domain-specific validation
func (r *CreateTranscriptionRequest) Validate() error {
	validationErrors := make(map[string]string)

	if msg := checkRelative(r.Name); msg != "" {
		validationErrors["name"] = msg
	}
	if r.Source != "" && !audio.IsURL(r.Source) {
		if msg := checkRelative(r.Source); msg != "" {
			validationErrors["source"] = msg
		}
	}
	if r.Engine != "" && !lo.Contains(recognizer.Engines(), r.Engine) {
		validationErrors["engine"] = "unknown engine"
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Invalid transcription request", validationErrors)
	}
	return nil
}

func checkRelative(p string) string {
	switch {
	case strings.TrimSpace(p) == "":
		return "is required"
	case filepath.IsAbs(p):
		return "must be a relative path"
	case lo.Contains(strings.Split(filepath.ToSlash(p), "/"), ".."):
		return "must not leave the working directory"
	}
	return ""
}

// TaskCreatedResponse is returned when a transcription is queued.
type TaskCreatedResponse struct {
	ID string `json:"id"`
}

// TaskResponse describes a queued transcription.
type TaskResponse struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	Description string       `json:"description"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
	Error       string       `json:"error,omitempty"`
	Run         *RunResponse `json:"run,omitempty"`
}

// RunResponse represents a recorded run in API responses
type RunResponse struct {
	ID          int64     `json:"id,omitempty"`
	Name        string    `json:"name"`
	Engine      string    `json:"engine"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationMs  int64     `json:"duration_ms"`
	ResultCount int       `json:"result_count"`
	WordCount   int       `json:"word_count"`
	Text        string    `json:"text,omitempty"`
	OutputPath  string    `json:"output_path,omitempty"`
	OutputURL   string    `json:"output_url,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// ListRunsQuery represents query parameters for listing runs
type ListRunsQuery struct {
	Name  string `form:"name"`
	Limit int    `form:"limit,default=50" binding:"min=1,max=500"`
}

// ListRunsResponse is the run history, newest first.
type ListRunsResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// ToRunResponse converts a model to response DTO
func ToRunResponse(r *model.Run) RunResponse {
	return RunResponse{
		ID:          r.ID,
		Name:        r.Name,
		Engine:      r.Engine,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		DurationMs:  r.Duration().Milliseconds(),
		ResultCount: r.ResultCount,
		WordCount:   r.WordCount,
		Text:        r.Text,
		OutputPath:  r.OutputPath,
		OutputURL:   r.OutputURL,
		Error:       r.ErrorMessage,
	}
}

// ToListRunsResponse converts recorded runs.
func ToListRunsResponse(runs []model.Run) ListRunsResponse {
	out := lo.Map(runs, func(r model.Run, _ int) RunResponse {
		return ToRunResponse(&r)
	})
	return ListRunsResponse{Runs: out, Count: len(out)}
}

// ToTaskResponse converts an executor snapshot. The run is attached when the
// task produced one, including failed runs.
func ToTaskResponse(info tasks.Info) TaskResponse {
	resp := TaskResponse{
		ID:          info.ID,
		Status:      info.Status.String(),
		Description: info.Status.Description(),
		Error:       info.Error,
	}
	if !info.Started.IsZero() {
		started := info.Started
		resp.StartedAt = &started
	}
	if !info.Finished.IsZero() {
		finished := info.Finished
		resp.FinishedAt = &finished
	}
	if run, ok := info.Result.(*model.Run); ok && run != nil {
		r := ToRunResponse(run)
		resp.Run = &r
	}
	return resp
}
