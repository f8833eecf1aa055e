package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"transcribe4all/internal/app/audio"
	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/metrics"
	"transcribe4all/internal/app/model"
	"transcribe4all/internal/app/recognizer"
	"transcribe4all/internal/app/recognizer/recognizertest"
	"transcribe4all/internal/app/repository/sqlite"
	"transcribe4all/internal/app/storage"
	"transcribe4all/internal/app/transcription"
	"transcribe4all/internal/config"
)

// MockRunDAO is a testify mock of repository.RunDAO.
type MockRunDAO struct {
	mock.Mock
}

func (m *MockRunDAO) Close() error {
	return m.Called().Error(0)
}

func (m *MockRunDAO) Record(ctx context.Context, run *model.Run) (int64, error) {
	args := m.Called(ctx, run)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRunDAO) List(ctx context.Context, limit int) ([]model.Run, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *MockRunDAO) ListByName(ctx context.Context, name string, limit int) ([]model.Run, error) {
	args := m.Called(ctx, name, limit)
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *MockRunDAO) ListAfter(ctx context.Context, afterID int64, limit int) ([]model.Run, error) {
	args := m.Called(ctx, afterID, limit)
	return args.Get(0).([]model.Run), args.Error(1)
}

func helloRunner(t *testing.T) (*transcription.Runner, *[]recognizer.Configuration) {
	t.Helper()

	var seen []recognizer.Configuration
	factory := func(engine string, cfg recognizer.Configuration, logger *zap.Logger) (recognizer.Recognizer, error) {
		seen = append(seen, cfg)
		return &recognizertest.Fake{Results: []recognizer.SpeechResult{{
			Hypothesis: "hello world",
			Words: []recognizer.WordResult{
				{Word: "hello", Confidence: 1},
				{Word: "world", Confidence: 1},
			},
		}}}, nil
	}
	runner := transcription.NewRunner(zap.NewNop(),
		transcription.WithFactory(factory),
		transcription.WithDiagnostics(nil))
	return runner, &seen
}

// withTool points binary at a shell script for the duration of the test.
func withTool(t *testing.T, binary *string, script string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))

	original := *binary
	*binary = path
	t.Cleanup(func() { *binary = original })
}

func newInput(t *testing.T) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "clip")
	require.NoError(t, os.WriteFile(name+".wav", []byte("RIFF"), 0644))
	return name
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Engines = map[string]map[string]string{"sphinx": {"binary": "/opt/ps"}}
	return cfg
}

func TestTranscribe_Success(t *testing.T) {
	ctx := context.Background()
	history, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer history.Close()

	runner, seen := helloRunner(t)
	uploader := storage.NewMockStorage()
	m := metrics.New()
	svc := New(testConfig(), runner, history, uploader, m, zap.NewNop())
	name := newInput(t)

	run, err := svc.Transcribe(ctx, Request{Name: name})
	require.NoError(t, err)

	assert.Equal(t, "sphinx", run.Engine)
	assert.Equal(t, "hello world ", run.Text)
	assert.Equal(t, 2, run.WordCount)
	assert.Equal(t, name+"-json.txt", run.OutputPath)
	assert.NotEmpty(t, run.OutputURL)
	assert.NotZero(t, run.ID)
	assert.Equal(t, []string{name + "-json.txt"}, uploader.Uploaded)
	require.Len(t, *seen, 1)
	assert.Equal(t, "/opt/ps", (*seen)[0].Setting("binary", ""))

	runs, err := svc.History(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.OutputURL, runs[0].OutputURL)
	assert.Equal(t, 1.0, runsTotal(t, m, "sphinx", "success"))
}

// runsTotal reads t4a_runs_total for the label pair.
func runsTotal(t *testing.T, m *metrics.Metrics, engine, status string) float64 {
	t.Helper()
	return counterValue(t, m, "t4a_runs_total", map[string]string{"engine": engine, "status": status})
}

// counterValue reads the counter named name whose labels match want.
func counterValue(t *testing.T, m *metrics.Metrics, name string, want map[string]string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestTranscribe_MissingInputIsRecorded(t *testing.T) {
	runner, _ := helloRunner(t)
	history := new(MockRunDAO)
	history.On("Record", mock.Anything, mock.MatchedBy(func(r *model.Run) bool {
		return r.HasError && r.Name == "absent"
	})).Return(int64(7), nil)
	uploader := storage.NewMockStorage()
	m := metrics.New()
	svc := New(testConfig(), runner, history, uploader, m, nil)

	run, err := svc.Transcribe(context.Background(), Request{Name: "absent", Engine: "vosk"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrInputNotFound))
	assert.True(t, run.HasError)
	assert.Equal(t, "vosk", run.Engine)
	assert.Contains(t, run.ErrorMessage, "input audio not found")
	assert.Empty(t, uploader.Uploaded)
	assert.Equal(t, 1.0, runsTotal(t, m, "vosk", "failure"))
	history.AssertExpectations(t)
}

func TestTranscribe_HistoryAndUploadFailuresDoNotFailRun(t *testing.T) {
	runner, _ := helloRunner(t)
	history := new(MockRunDAO)
	history.On("Record", mock.Anything, mock.Anything).Return(int64(0), apperrors.ErrInsertFailed)
	uploader := storage.NewMockStorage()
	uploader.Err = fmt.Errorf("bucket offline")
	svc := New(testConfig(), runner, history, uploader, nil, zap.NewNop())

	run, err := svc.Transcribe(context.Background(), Request{Name: newInput(t)})
	require.NoError(t, err)
	assert.False(t, run.HasError)
	assert.Empty(t, run.OutputURL)
	history.AssertNumberOfCalls(t, "Record", 1)
}

func TestTranscribe_ConvertsSource(t *testing.T) {
	dir := t.TempDir()
	withTool(t, &audio.FFprobeBinary, "#!/bin/sh\nexit 1\n")
	withTool(t, &audio.FFmpegBinary, "#!/bin/sh\nfor last; do :; done\nprintf RIFF > \"$last\"\n")

	source := filepath.Join(dir, "talk.mp3")
	require.NoError(t, os.WriteFile(source, []byte("ID3"), 0644))
	name := filepath.Join(dir, "talk")

	runner, _ := helloRunner(t)
	svc := New(testConfig(), runner, nil, nil, nil, nil)

	run, err := svc.Transcribe(context.Background(), Request{Name: name, Source: source})
	require.NoError(t, err)
	assert.FileExists(t, name+".wav")
	assert.FileExists(t, run.OutputPath)
}

func TestTranscribe_DownloadsURLSource(t *testing.T) {
	dir := t.TempDir()
	withTool(t, &audio.FFprobeBinary, "#!/bin/sh\nexit 1\n")
	withTool(t, &audio.FFmpegBinary, "#!/bin/sh\nfor last; do :; done\nprintf RIFF > \"$last\"\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/talk.mp3" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ID3"))
	}))
	defer srv.Close()

	runner, _ := helloRunner(t)
	svc := New(testConfig(), runner, nil, nil, nil, nil)

	name := filepath.Join(dir, "talk")
	run, err := svc.Transcribe(context.Background(), Request{Name: name, Source: srv.URL + "/talk.mp3"})
	require.NoError(t, err)
	assert.FileExists(t, run.OutputPath)

	matches, err := filepath.Glob(filepath.Join(dir, "download-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "downloaded source is removed")

	_, err = svc.Transcribe(context.Background(), Request{Name: filepath.Join(dir, "gone"), Source: srv.URL + "/gone.mp3"})
	assert.ErrorIs(t, err, apperrors.ErrInputUnreadable)
}

const probe16kMono = `{"streams":[{"codec_type":"audio","codec_name":"pcm_s16le","sample_rate":"16000","channels":1}]}`

func TestTranscribe_16kHzSourceSkipsConversion(t *testing.T) {
	withTool(t, &audio.FFprobeBinary, "#!/bin/sh\ncat <<'JSON'\n"+probe16kMono+"\nJSON\n")
	withTool(t, &audio.FFmpegBinary, "#!/bin/sh\necho 'ffmpeg must not run' >&2\nexit 1\n")

	dir := t.TempDir()
	source := filepath.Join(dir, "recorded.wav")
	require.NoError(t, os.WriteFile(source, []byte("RIFF-16k"), 0644))

	runner, _ := helloRunner(t)
	svc := New(testConfig(), runner, nil, nil, nil, nil)

	name := filepath.Join(dir, "talk")
	_, err := svc.Transcribe(context.Background(), Request{Name: name, Source: source})
	require.NoError(t, err)
	data, err := os.ReadFile(name + ".wav")
	require.NoError(t, err)
	assert.Equal(t, "RIFF-16k", string(data))

	// Source and target are the same file.
	_, err = svc.Transcribe(context.Background(), Request{Name: name, Source: name + ".wav"})
	require.NoError(t, err)
	data, err = os.ReadFile(name + ".wav")
	require.NoError(t, err)
	assert.Equal(t, "RIFF-16k", string(data))
}

func TestTranscribe_RecordsAudioSeconds(t *testing.T) {
	withTool(t, &audio.FFprobeBinary, "#!/bin/sh\necho 12.6\n")

	runner, _ := helloRunner(t)
	m := metrics.New()
	svc := New(testConfig(), runner, nil, nil, m, nil)

	_, err := svc.Transcribe(context.Background(), Request{Name: newInput(t)})
	require.NoError(t, err)
	assert.Equal(t, 13.0, counterValue(t, m, "t4a_audio_seconds_total", map[string]string{"engine": "sphinx"}))
}

// gatedRecognizer blocks in Result until release is closed and tracks how
// many instances run at once.
type gatedRecognizer struct {
	started chan<- struct{}
	release <-chan struct{}
	active  *int32
	peak    *int32
	done    bool
}

func (g *gatedRecognizer) Start(ctx context.Context, input io.Reader) error {
	n := atomic.AddInt32(g.active, 1)
	for {
		p := atomic.LoadInt32(g.peak)
		if n <= p || atomic.CompareAndSwapInt32(g.peak, p, n) {
			break
		}
	}
	g.started <- struct{}{}
	return nil
}

func (g *gatedRecognizer) Result(ctx context.Context) (*recognizer.SpeechResult, error) {
	if g.done {
		return nil, nil
	}
	g.done = true
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &recognizer.SpeechResult{Hypothesis: "hi"}, nil
}

func (g *gatedRecognizer) Stop() error {
	atomic.AddInt32(g.active, -1)
	return nil
}

func TestTranscribe_SameNameRunsAreSerialized(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var active, peak int32
	factory := func(engine string, cfg recognizer.Configuration, logger *zap.Logger) (recognizer.Recognizer, error) {
		return &gatedRecognizer{started: started, release: release, active: &active, peak: &peak}, nil
	}
	runner := transcription.NewRunner(zap.NewNop(),
		transcription.WithFactory(factory),
		transcription.WithDiagnostics(nil))
	svc := New(testConfig(), runner, nil, nil, nil, nil)
	name := newInput(t)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := svc.Transcribe(context.Background(), Request{Name: name})
			errs <- err
		}()
	}

	<-started
	select {
	case <-started:
		t.Fatal("second run started while the first held the name")
	case <-time.After(100 * time.Millisecond):
	}

	// A caller that gives up while waiting gets its context error.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := svc.Transcribe(ctx, Request{Name: name})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, run.HasError)

	close(release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestTranscribe_UnsupportedSource(t *testing.T) {
	runner, _ := helloRunner(t)
	svc := New(testConfig(), runner, nil, nil, nil, nil)

	_, err := svc.Transcribe(context.Background(), Request{Name: filepath.Join(t.TempDir(), "x"), Source: "notes.txt"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrInputUnreadable))
}

func TestTranscribe_DefaultsFromConfig(t *testing.T) {
	runner, _ := helloRunner(t)
	cfg := testConfig()
	cfg.Name = newInput(t)
	cfg.Engine = "openai"
	svc := New(cfg, runner, nil, nil, nil, nil)

	run, err := svc.Transcribe(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, run.Name)
	assert.Equal(t, "openai", run.Engine)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	svc := New(testConfig(), nil, nil, nil, nil, nil)
	runs, err := svc.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	history := new(MockRunDAO)
	history.On("List", ctx, 50).Return([]model.Run{{ID: 1}}, nil)
	history.On("ListByName", ctx, "clip", 5).Return([]model.Run{{ID: 2, Name: "clip"}}, nil)
	svc = New(testConfig(), nil, history, nil, nil, nil)

	runs, err = svc.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), runs[0].ID)

	runs, err = svc.History(ctx, "clip", 5)
	require.NoError(t, err)
	assert.Equal(t, "clip", runs[0].Name)
	history.AssertExpectations(t)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{apperrors.Kind(apperrors.ErrInputNotFound, os.ErrNotExist), "input_not_found"},
		{apperrors.Kind(apperrors.ErrInputUnreadable, os.ErrPermission), "input_unreadable"},
		{apperrors.Kind(apperrors.ErrRecognizerInit, stderrors.New("x")), "recognizer_init"},
		{apperrors.Kind(apperrors.ErrRecognition, stderrors.New("x")), "recognition"},
		{apperrors.Kind(apperrors.ErrOutputWrite, stderrors.New("x")), "output_write"},
		{fmt.Errorf("run: %w", context.Canceled), "cancelled"},
		{stderrors.New("x"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}
