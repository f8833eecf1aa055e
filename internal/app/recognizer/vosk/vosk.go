//go:build vosk

package vosk

import (
	"context"
	"fmt"
	"io"
	"os"

	voskapi "github.com/alphacep/vosk-api/go"
	"go.uber.org/zap"

	"transcribe4all/internal/app/audio"
	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/recognizer"
)

func init() {
	recognizer.Register("vosk", func(cfg recognizer.Configuration, logger *zap.Logger) (recognizer.Recognizer, error) {
		return NewRecognizer(cfg, logger)
	})
}

// Recognizer implements recognizer.Recognizer with an in-process Vosk model.
type Recognizer struct {
	cfg    recognizer.Configuration
	logger *zap.Logger

	model *voskapi.VoskModel
	rec   *voskapi.VoskRecognizer
	feed  *feeder
}

// NewRecognizer loads the model directory named by the acoustic model path.
func NewRecognizer(cfg recognizer.Configuration, logger *zap.Logger) (*Recognizer, error) {
	if cfg.AcousticModelPath == "" {
		return nil, apperrors.RequiredField("acoustic model")
	}
	if _, err := os.Stat(cfg.AcousticModelPath); err != nil {
		return nil, fmt.Errorf("acoustic model: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LanguageModelPath != "" {
		logger.Debug("vosk models embed their language model, ignoring path",
			zap.String("language_model", cfg.LanguageModelPath))
	}

	voskapi.SetLogLevel(-1)
	model, err := voskapi.NewModel(cfg.AcousticModelPath)
	if err != nil {
		return nil, fmt.Errorf("load vosk model: %w", err)
	}

	return &Recognizer{
		cfg:    cfg,
		logger: logger,
		model:  model,
	}, nil
}

// Start creates a recognizer at the stream's sample rate.
func (r *Recognizer) Start(ctx context.Context, input io.Reader) error {
	if r.rec != nil {
		return fmt.Errorf("recognition already started")
	}

	format, err := audio.ReadWAVHeader(input)
	if err != nil {
		return apperrors.Kind(apperrors.ErrInputUnreadable, err)
	}
	sampleRate := float64(format.SampleRate)
	if r.cfg.SampleRate > 0 {
		sampleRate = float64(r.cfg.SampleRate)
	}

	var rec *voskapi.VoskRecognizer
	if r.cfg.DictionaryPath != "" {
		grammar, gerr := loadGrammar(r.cfg.DictionaryPath)
		if gerr != nil {
			return apperrors.Kind(apperrors.ErrRecognizerInit, gerr)
		}
		rec, err = voskapi.NewRecognizerGrm(r.model, sampleRate, grammar)
	} else {
		rec, err = voskapi.NewRecognizer(r.model, sampleRate)
	}
	if err != nil {
		return apperrors.Kind(apperrors.ErrRecognizerInit, err)
	}
	rec.SetWords(1)

	r.rec = rec
	r.feed = newFeeder(rec, input)
	return nil
}

// Result feeds audio until Vosk closes an utterance.
func (r *Recognizer) Result(ctx context.Context) (*recognizer.SpeechResult, error) {
	if r.feed == nil {
		return nil, fmt.Errorf("recognition not started")
	}
	return r.feed.next(ctx)
}

// Stop frees the recognizer and the model.
func (r *Recognizer) Stop() error {
	r.feed = nil
	if r.rec != nil {
		r.rec.Free()
		r.rec = nil
	}
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}
