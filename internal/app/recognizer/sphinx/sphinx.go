// Package sphinx drives the CMU Sphinx pocketsphinx_continuous decoder as an
// external process. Audio is piped to its stdin and word timings are read
// back from stdout as the decoder finishes each utterance.
package sphinx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"transcribe4all/internal/app/audio"
	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/recognizer"
)

// DefaultBinary is looked up on PATH when no "binary" setting is given.
const DefaultBinary = "pocketsphinx_continuous"

// waitDelay bounds how long Stop waits for the decoder's output pipes after
// the process has been killed.
const waitDelay = 2 * time.Second

func init() {
	recognizer.Register("sphinx", func(cfg recognizer.Configuration, logger *zap.Logger) (recognizer.Recognizer, error) {
		return NewRecognizer(cfg, logger)
	})
}

// Recognizer implements recognizer.Recognizer on top of pocketsphinx.
type Recognizer struct {
	binaryPath string
	cfg        recognizer.Configuration
	logger     *zap.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	stderr  bytes.Buffer
	parser  *outputParser
	waited  bool
	waitErr error
	stopped bool
}

// NewRecognizer validates the model resources and resolves the decoder binary.
func NewRecognizer(cfg recognizer.Configuration, logger *zap.Logger) (*Recognizer, error) {
	binary := cfg.Setting("binary", DefaultBinary)
	binaryPath, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("decoder binary %s: %w", binary, err)
	}

	required := map[string]string{
		"acoustic model": cfg.AcousticModelPath,
		"dictionary":     cfg.DictionaryPath,
		"language model": cfg.LanguageModelPath,
	}
	for name, path := range required {
		if path == "" {
			return nil, apperrors.RequiredField(name)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recognizer{
		binaryPath: binaryPath,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

func (r *Recognizer) args(sampleRate int) []string {
	args := []string{
		"-hmm", r.cfg.AcousticModelPath,
		"-dict", r.cfg.DictionaryPath,
		"-lm", r.cfg.LanguageModelPath,
		"-infile", "/dev/stdin",
		"-time", "yes",
		"-logfn", "/dev/null",
	}
	if sampleRate > 0 {
		args = append(args, "-samprate", strconv.Itoa(sampleRate))
	}
	if extra := r.cfg.Setting("extra_args", ""); extra != "" {
		args = append(args, strings.Fields(extra)...)
	}
	return args
}

// Start strips the WAV header from audio and launches the decoder on the
// remaining PCM samples.
func (r *Recognizer) Start(ctx context.Context, input io.Reader) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return fmt.Errorf("recognition already started")
	}

	format, err := audio.ReadWAVHeader(input)
	if err != nil {
		return apperrors.Kind(apperrors.ErrInputUnreadable, err)
	}
	if format.AudioFormat != 1 || format.BitsPerSample != 16 || format.Channels != 1 {
		r.logger.Warn("decoder expects 16-bit mono PCM",
			zap.Uint16("audio_format", format.AudioFormat),
			zap.Uint16("channels", format.Channels),
			zap.Uint16("bits_per_sample", format.BitsPerSample))
	}

	sampleRate := r.cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = int(format.SampleRate)
	}

	ctx, cancel := context.WithCancel(ctx)
	args := r.args(sampleRate)
	cmd := exec.CommandContext(ctx, r.binaryPath, args...)
	cmd.Stdin = input
	cmd.Stderr = &r.stderr
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return apperrors.Kind(apperrors.ErrRecognizerInit, err)
	}

	r.logger.Debug("starting decoder",
		zap.String("binary", r.binaryPath),
		zap.Strings("args", args))

	if err := cmd.Start(); err != nil {
		cancel()
		return apperrors.Kind(apperrors.ErrRecognizerInit, err)
	}

	r.cmd = cmd
	r.cancel = cancel
	r.parser = newOutputParser(stdout)
	return nil
}

// Result returns the next decoded utterance. Once stdout is exhausted the
// decoder exit status is checked before end of stream is reported.
func (r *Recognizer) Result(ctx context.Context) (*recognizer.SpeechResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.parser == nil {
		return nil, fmt.Errorf("recognition not started")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := r.parser.next()
	if err != nil {
		return nil, apperrors.Kind(apperrors.ErrRecognition, err)
	}
	if result != nil {
		return result, nil
	}

	if err := r.wait(); err != nil {
		return nil, apperrors.Kind(apperrors.ErrRecognition,
			fmt.Errorf("%s: %w, stderr: %s", r.binaryPath, err, strings.TrimSpace(r.stderr.String())))
	}
	return nil, nil
}

func (r *Recognizer) wait() error {
	if !r.waited {
		r.waitErr = r.cmd.Wait()
		r.waited = true
	}
	return r.waitErr
}

// Stop terminates the decoder if it is still running and reaps it. A decoder
// failure after normal completion has already been reported by Result.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || r.cmd == nil {
		r.stopped = true
		return nil
	}
	r.stopped = true

	r.cancel()
	if !r.waited {
		// Killed on purpose; the exit status carries no information.
		_ = r.wait()
		r.logger.Debug("decoder stopped before end of stream")
	}
	return nil
}
