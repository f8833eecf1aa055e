// Package recognizer defines the boundary to external speech recognition
// engines. An engine is configured once, started over an audio stream and
// then drained result by result until it reports end of stream.
package recognizer

import (
	"context"
	"io"
)

// Configuration names the model resources an engine loads. Engines that do
// not use a resource ignore it.
type Configuration struct {
	AcousticModelPath string `yaml:"acoustic_model" json:"acoustic_model"`
	DictionaryPath    string `yaml:"dictionary" json:"dictionary"`
	LanguageModelPath string `yaml:"language_model" json:"language_model"`

	// SampleRate of the input audio in Hz. Zero lets the engine decide.
	SampleRate int `yaml:"sample_rate,omitempty" json:"sample_rate,omitempty"`

	// Settings carries engine specific options (binary path, API key, model).
	Settings map[string]string `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// Setting returns the engine specific option key, or fallback when unset.
func (c Configuration) Setting(key, fallback string) string {
	if v, ok := c.Settings[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Recognizer is a streaming speech recognition engine.
//
// Start must be called exactly once before Result. Result blocks until the
// next utterance is available and returns (nil, nil) once the stream is
// exhausted. Stop releases everything the engine holds and is safe to call
// more than once, including after a failed Start.
type Recognizer interface {
	Start(ctx context.Context, audio io.Reader) error
	Result(ctx context.Context) (*SpeechResult, error)
	Stop() error
}

// SpeechResult is the recognizer output for one utterance.
type SpeechResult struct {
	Hypothesis string
	Words      []WordResult
}
