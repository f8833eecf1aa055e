// Package recognizertest provides a scripted recognizer for tests.
package recognizertest

import (
	"context"
	"io"
	"sync"

	"transcribe4all/internal/app/recognizer"
)

// Fake replays Results in order after Start. It drains the audio reader on
// Start so tests can assert the stream was consumed.
type Fake struct {
	Results  []recognizer.SpeechResult
	StartErr error
	// ResultErr is returned instead of the result at index ErrAt.
	ResultErr error
	ErrAt     int

	mu        sync.Mutex
	next      int
	Started   bool
	Stopped   int
	AudioRead []byte
}

// Start implements recognizer.Recognizer.
func (f *Fake) Start(ctx context.Context, audio io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return f.StartErr
	}
	data, err := io.ReadAll(audio)
	if err != nil {
		return err
	}
	f.AudioRead = data
	f.Started = true
	return nil
}

// Result implements recognizer.Recognizer.
func (f *Fake) Result(ctx context.Context) (*recognizer.SpeechResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ResultErr != nil && f.next == f.ErrAt {
		return nil, f.ResultErr
	}
	if f.next >= len(f.Results) {
		return nil, nil
	}
	r := f.Results[f.next]
	f.next++
	return &r, nil
}

// Stop implements recognizer.Recognizer.
func (f *Fake) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Stopped++
	return nil
}
