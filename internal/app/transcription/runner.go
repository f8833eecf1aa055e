// Package transcription turns N.wav into the N-json.txt report.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/model"
	"transcribe4all/internal/app/progress"
	"transcribe4all/internal/app/recognizer"
	"transcribe4all/internal/app/util/files"
)

const (
	textSeparator = " "
	wordSeparator = ", "
)

// Config names one run: the input base name and the recognizer to build.
type Config struct {
	Name       string
	Engine     string
	Recognizer recognizer.Configuration
}

// Factory builds a recognizer. recognizer.New is the production factory.
type Factory func(engine string, cfg recognizer.Configuration, logger *zap.Logger) (recognizer.Recognizer, error)

// Result describes a finished run.
type Result struct {
	Transcription model.Transcription
	OutputPath    string
	Results       int
	Words         int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Runner executes runs one at a time per call; a Runner may be shared
// between goroutines since it holds no per-run state.
type Runner struct {
	factory     Factory
	logger      *zap.Logger
	diagnostics io.Writer
	progress    *progress.Manager
}

type Option func(*Runner)

// WithFactory replaces the engine registry lookup.
func WithFactory(f Factory) Option {
	return func(r *Runner) { r.factory = f }
}

// WithDiagnostics sets where hypotheses and word lists are echoed. nil
// silences them.
func WithDiagnostics(w io.Writer) Option {
	return func(r *Runner) {
		if w == nil {
			w = io.Discard
		}
		r.diagnostics = w
	}
}

func WithProgress(m *progress.Manager) Option {
	return func(r *Runner) { r.progress = m }
}

func NewRunner(logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		factory:     recognizer.New,
		logger:      logger,
		diagnostics: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run recognizes files.InputPath(cfg.Name) and writes the report to
// files.OutputPath(cfg.Name). A missing input fails the run before the
// output file is touched.
func (r *Runner) Run(ctx context.Context, cfg Config) (res *Result, err error) {
	logger := r.logger.With(zap.String("name", cfg.Name), zap.String("engine", cfg.Engine))
	startedAt := time.Now()

	rec, err := r.factory(cfg.Engine, cfg.Recognizer, logger)
	if err != nil {
		return nil, classify(apperrors.ErrRecognizerInit, err)
	}
	defer func() {
		if stopErr := rec.Stop(); stopErr != nil {
			logger.Warn("failed to stop recognizer", zap.Error(stopErr))
			err = stderrors.Join(err, stopErr)
		}
	}()

	inputPath := files.InputPath(cfg.Name)
	input, size, err := openInput(inputPath)
	if err != nil {
		return nil, err
	}
	defer input.Close()

	stream := r.progress.TrackReader(input, size, cfg.Name)
	defer stream.Close()

	logger.Info("starting recognition", zap.String("input", inputPath), zap.Int64("bytes", size))
	if err := rec.Start(ctx, stream); err != nil {
		return nil, classify(apperrors.ErrRecognition, err)
	}

	var (
		text     strings.Builder
		metaData strings.Builder
		results  int
		words    int
	)
	for {
		sr, err := rec.Result(ctx)
		if err != nil {
			return nil, classify(apperrors.ErrRecognition, err)
		}
		if sr == nil {
			break
		}
		results++
		words += len(sr.Words)

		r.printResult(sr)
		text.WriteString(sr.Hypothesis)
		text.WriteString(textSeparator)
		for _, w := range sr.Words {
			metaData.WriteString(w.String())
			metaData.WriteString(wordSeparator)
		}
	}

	transcription := model.Transcription{
		TextTranscription: text.String(),
		MetaData:          metaData.String(),
	}
	data, err := Encode(transcription)
	if err != nil {
		return nil, apperrors.Kind(apperrors.ErrOutputWrite, err)
	}

	outputPath := files.OutputPath(cfg.Name)
	if err := writeOutput(outputPath, data); err != nil {
		return nil, err
	}

	finishedAt := time.Now()
	logger.Info("transcription written",
		zap.String("output", outputPath),
		zap.Int("results", results),
		zap.Int("words", words),
		zap.Duration("elapsed", finishedAt.Sub(startedAt)))

	return &Result{
		Transcription: transcription,
		OutputPath:    outputPath,
		Results:       results,
		Words:         words,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
	}, nil
}

func (r *Runner) printResult(sr *recognizer.SpeechResult) {
	fmt.Fprintf(r.diagnostics, "Hypothesis: %s\n", sr.Hypothesis)
	fmt.Fprintln(r.diagnostics, "List of recognized words and their times:")
	for _, w := range sr.Words {
		fmt.Fprintln(r.diagnostics, w.String())
	}
}

// Encode renders the report as two-space indented JSON followed by a
// newline. '&', '<' and '>' are written verbatim.
func Encode(t model.Transcription) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func openInput(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, apperrors.Kind(apperrors.ErrInputNotFound, err)
		}
		return nil, 0, apperrors.Kind(apperrors.ErrInputUnreadable, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, apperrors.Kind(apperrors.ErrInputUnreadable, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, apperrors.Kind(apperrors.ErrInputUnreadable, fmt.Errorf("%s is a directory", path))
	}
	return f, info.Size(), nil
}

func writeOutput(path string, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Kind(apperrors.ErrOutputWrite, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = apperrors.Kind(apperrors.ErrOutputWrite, closeErr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return apperrors.Kind(apperrors.ErrOutputWrite, err)
	}
	return nil
}

// taxonomy lists the kinds a recognizer may already have attached.
var taxonomy = []error{
	apperrors.ErrInputNotFound,
	apperrors.ErrInputUnreadable,
	apperrors.ErrRecognizerInit,
	apperrors.ErrRecognition,
	apperrors.ErrOutputWrite,
}

// classify keeps an error that already carries a run error kind and files
// anything else under fallback.
func classify(fallback *apperrors.Error, err error) error {
	for _, kind := range taxonomy {
		if stderrors.Is(err, kind) {
			return err
		}
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.Kind(fallback, err)
}
