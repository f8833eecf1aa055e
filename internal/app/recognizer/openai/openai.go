// Package openai recognizes speech with the OpenAI transcription API. The
// API is not streaming: Start uploads the whole stream and Result replays
// the returned segments one by one.
package openai

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/recognizer"
)

func init() {
	recognizer.Register("openai", func(cfg recognizer.Configuration, logger *zap.Logger) (recognizer.Recognizer, error) {
		return NewRecognizer(cfg, logger)
	})
}

// Recognizer implements recognizer.Recognizer over the transcription API.
type Recognizer struct {
	client   *openai.Client
	model    string
	language string
	prompt   string
	fileName string
	logger   *zap.Logger

	started  bool
	segments []recognizer.SpeechResult
	next     int
}

// NewRecognizer reads api_key, base_url, model, language and prompt from the
// engine settings. The API key falls back to OPENAI_API_KEY.
func NewRecognizer(cfg recognizer.Configuration, logger *zap.Logger) (*Recognizer, error) {
	apiKey := cfg.Setting("api_key", os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, apperrors.ErrMissingAPIKey
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := cfg.Setting("base_url", ""); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Recognizer{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Setting("model", openai.Whisper1),
		language: cfg.Setting("language", ""),
		prompt:   cfg.Setting("prompt", ""),
		fileName: cfg.Setting("file_name", "audio.wav"),
		logger:   logger,
	}, nil
}

// Start uploads the audio and waits for the transcription.
func (r *Recognizer) Start(ctx context.Context, input io.Reader) error {
	if r.started {
		return fmt.Errorf("recognition already started")
	}
	r.started = true

	fileName := r.fileName
	if f, ok := input.(interface{ Name() string }); ok {
		fileName = filepath.Base(f.Name())
	}

	resp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.model,
		FilePath: fileName,
		Reader:   input,
		Prompt:   r.prompt,
		Language: r.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
			openai.TranscriptionTimestampGranularitySegment,
		},
	})
	if err != nil {
		return apperrors.Kind(apperrors.ErrRecognition, err)
	}

	r.segments = toResults(resp)
	r.logger.Debug("transcription received",
		zap.String("language", resp.Language),
		zap.Float64("duration_sec", resp.Duration),
		zap.Int("segments", len(r.segments)))
	return nil
}

// Result returns the next segment.
func (r *Recognizer) Result(ctx context.Context) (*recognizer.SpeechResult, error) {
	if !r.started {
		return nil, fmt.Errorf("recognition not started")
	}
	if r.next >= len(r.segments) {
		return nil, nil
	}
	res := r.segments[r.next]
	r.next++
	return &res, nil
}

// Stop drops any segments not yet consumed.
func (r *Recognizer) Stop() error {
	r.segments = nil
	return nil
}

// toResults attaches each word to the segment containing its midpoint. The
// segment's mean token probability stands in for word confidence.
func toResults(resp openai.AudioResponse) []recognizer.SpeechResult {
	if len(resp.Segments) == 0 {
		if resp.Text == "" {
			return nil
		}
		res := recognizer.SpeechResult{Hypothesis: resp.Text}
		for _, w := range resp.Words {
			res.Words = append(res.Words, recognizer.WordResult{
				Word:       w.Word,
				Confidence: 1,
				Start:      recognizer.Seconds(w.Start),
				End:        recognizer.Seconds(w.End),
			})
		}
		return []recognizer.SpeechResult{res}
	}

	results := make([]recognizer.SpeechResult, len(resp.Segments))
	for i, seg := range resp.Segments {
		results[i].Hypothesis = strings.TrimSpace(seg.Text)
	}

	for _, w := range resp.Words {
		mid := (w.Start + w.End) / 2
		idx := len(resp.Segments) - 1
		for i, seg := range resp.Segments {
			if mid < seg.End {
				idx = i
				break
			}
		}
		results[idx].Words = append(results[idx].Words, recognizer.WordResult{
			Word:       w.Word,
			Confidence: math.Exp(resp.Segments[idx].AvgLogprob),
			Start:      recognizer.Seconds(w.Start),
			End:        recognizer.Seconds(w.End),
		})
	}
	return results
}
