// Package service runs transcriptions on behalf of the CLI and the HTTP API
// and takes care of everything around a run: audio preparation, metrics,
// history and report upload.
package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"transcribe4all/internal/app/audio"
	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/metrics"
	"transcribe4all/internal/app/model"
	"transcribe4all/internal/app/repository"
	"transcribe4all/internal/app/storage"
	"transcribe4all/internal/app/transcription"
	"transcribe4all/internal/app/util/files"
	"transcribe4all/internal/config"
)

// Request names one transcription.
type Request struct {
	// Name is the input base name; audio is read from Name.wav.
	Name string
	// Engine overrides the configured engine when set.
	Engine string
	// Source, when set, is converted to 16 kHz mono Name.wav first. It may
	// be a local path or an http(s) URL.
	Source string
}

// Service is safe for concurrent use as long as its collaborators are.
type Service struct {
	cfg      *config.Config
	runner   *transcription.Runner
	history  repository.RunDAO
	uploader storage.Uploader
	metrics  *metrics.Metrics
	logger   *zap.Logger

	running nameLocks
}

// New builds a Service. history, uploader and m may be nil to disable the
// corresponding feature.
func New(cfg *config.Config, runner *transcription.Runner, history repository.RunDAO,
	uploader storage.Uploader, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:      cfg,
		runner:   runner,
		history:  history,
		uploader: uploader,
		metrics:  m,
		logger:   logger,
	}
}

// Transcribe runs one transcription. The returned Run describes the attempt
// even when err is non-nil. History and upload failures are logged and do not
// fail the run. Runs on the same name wait for each other.
func (s *Service) Transcribe(ctx context.Context, req Request) (*model.Run, error) {
	name := req.Name
	if name == "" {
		name = s.cfg.Name
	}
	engine := req.Engine
	if engine == "" {
		engine = s.cfg.Engine
	}
	logger := s.logger.With(zap.String("name", name), zap.String("engine", engine))

	unlock, err := s.running.lock(ctx, filepath.Clean(name))
	if err != nil {
		now := time.Now()
		return &model.Run{Name: name, Engine: engine, StartedAt: now, FinishedAt: now,
			HasError: true, ErrorMessage: err.Error()}, err
	}
	defer unlock()

	if s.metrics != nil {
		defer s.metrics.RunStarted()()
	}

	run := &model.Run{Name: name, Engine: engine, StartedAt: time.Now()}

	var res *transcription.Result
	if req.Source != "" {
		err = s.prepareInput(ctx, req.Source, name)
	}
	if err == nil {
		res, err = s.runner.Run(ctx, transcription.Config{
			Name:       name,
			Engine:     engine,
			Recognizer: s.cfg.RecognizerConfig(engine),
		})
	}
	run.FinishedAt = time.Now()

	if res != nil {
		run.StartedAt = res.StartedAt
		run.FinishedAt = res.FinishedAt
		run.ResultCount = res.Results
		run.WordCount = res.Words
		run.Text = res.Transcription.TextTranscription
		run.OutputPath = res.OutputPath
	}
	if err != nil {
		run.HasError = true
		run.ErrorMessage = err.Error()
		logger.Error("transcription failed", zap.Error(err))
	}

	if err == nil && s.uploader != nil {
		uploaded, uploadErr := s.uploader.UploadFile(ctx, run.OutputPath)
		if uploadErr != nil {
			logger.Warn("report upload failed", zap.Error(uploadErr))
		} else {
			run.OutputURL = uploaded.URL
			logger.Info("report uploaded", zap.String("url", uploaded.URL))
		}
	}

	if s.history != nil {
		// The caller's context may already be cancelled; the attempt is
		// still worth recording.
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if _, recordErr := s.history.Record(recordCtx, run); recordErr != nil {
			logger.Warn("failed to record run", zap.Error(recordErr))
		}
		cancel()
	}

	if s.metrics != nil {
		s.metrics.RecordRun(engine, run.Duration(), run.WordCount, ErrorKind(err))
		if err == nil {
			s.recordAudio(ctx, logger, engine, files.InputPath(name))
		}
	}
	return run, err
}

func (s *Service) recordAudio(ctx context.Context, logger *zap.Logger, engine, input string) {
	seconds, err := audio.GetAudioDuration(ctx, input)
	if err != nil {
		logger.Debug("failed to probe input duration", zap.Error(err))
		return
	}
	s.metrics.RecordAudio(engine, seconds)
}

// prepareInput converts source, a local file or an http(s) URL, into the
// run's input WAV.
func (s *Service) prepareInput(ctx context.Context, source, name string) error {
	target := files.InputPath(name)
	if audio.IsURL(source) {
		downloaded, err := audio.Download(ctx, nil, source, filepath.Dir(target))
		if err != nil {
			return apperrors.Kind(apperrors.ErrInputUnreadable, err)
		}
		defer os.Remove(downloaded)
		source = downloaded
	}

	// Already 16 kHz mono PCM: no need for ffmpeg. A failed probe falls
	// through to conversion, which reports the real problem.
	if ok, err := audio.Is16kHzWavFile(ctx, source); err == nil && ok {
		if sameFile(source, target) {
			return nil
		}
		if err := copyFile(source, target); err != nil {
			return apperrors.Kind(apperrors.ErrInputUnreadable, err)
		}
		return nil
	}

	if err := audio.ConvertTo16kHzMonoWav(ctx, source, target); err != nil {
		return apperrors.Kind(apperrors.ErrInputUnreadable, err)
	}
	return nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}

// History lists recorded runs, newest first, optionally for one name.
func (s *Service) History(ctx context.Context, name string, limit int) ([]model.Run, error) {
	if s.history == nil {
		return []model.Run{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	if name != "" {
		return s.history.ListByName(ctx, name, limit)
	}
	return s.history.List(ctx, limit)
}

// ErrorKind maps a run error to a short metrics label; "" means success.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, apperrors.ErrInputNotFound):
		return "input_not_found"
	case stderrors.Is(err, apperrors.ErrInputUnreadable):
		return "input_unreadable"
	case stderrors.Is(err, apperrors.ErrRecognizerInit):
		return "recognizer_init"
	case stderrors.Is(err, apperrors.ErrRecognition):
		return "recognition"
	case stderrors.Is(err, apperrors.ErrOutputWrite):
		return "output_write"
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
