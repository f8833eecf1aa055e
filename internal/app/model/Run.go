package model

import "time"

// Run is one recorded transcription attempt.
type Run struct {
	ID           int64
	Name         string
	Engine       string
	StartedAt    time.Time
	FinishedAt   time.Time
	ResultCount  int
	WordCount    int
	Text         string
	OutputPath   string
	OutputURL    string
	HasError     bool
	ErrorMessage string
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
