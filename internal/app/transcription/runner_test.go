package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/model"
	"transcribe4all/internal/app/progress"
	"transcribe4all/internal/app/recognizer"
	"transcribe4all/internal/app/recognizer/recognizertest"
)

func fakeFactory(fake *recognizertest.Fake) Factory {
	return func(engine string, cfg recognizer.Configuration, logger *zap.Logger) (recognizer.Recognizer, error) {
		return fake, nil
	}
}

// writeInput creates <dir>/<base>.wav and returns the base name.
func writeInput(t *testing.T, base string, audio []byte) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), base)
	require.NoError(t, os.WriteFile(name+".wav", audio, 0644))
	return name
}

func helloWorld() []recognizer.SpeechResult {
	return []recognizer.SpeechResult{{
		Hypothesis: "hello world",
		Words: []recognizer.WordResult{
			{Word: "hello", Confidence: 0.998, Start: 110 * time.Millisecond, End: 520 * time.Millisecond},
			{Word: "world", Confidence: 0.997, Start: 520 * time.Millisecond, End: 900 * time.Millisecond},
		},
	}}
}

func runWith(t *testing.T, fake *recognizertest.Fake, name string, opts ...Option) (*Result, error) {
	t.Helper()

	opts = append([]Option{WithFactory(fakeFactory(fake)), WithDiagnostics(io.Discard)}, opts...)
	return NewRunner(zap.NewNop(), opts...).Run(context.Background(), Config{Name: name, Engine: "fake"})
}

func TestRun_SilenceProducesEmptyFields(t *testing.T) {
	name := writeInput(t, "silence", []byte("RIFF"))
	fake := &recognizertest.Fake{}

	res, err := runWith(t, fake, name)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Results)

	data, err := os.ReadFile(name + "-json.txt")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"textTranscription\": \"\",\n  \"metaData\": \"\"\n}\n", string(data))
}

func TestRun_SingleHypothesis(t *testing.T) {
	name := writeInput(t, "hello", []byte("RIFF-hello"))
	fake := &recognizertest.Fake{Results: helloWorld()}

	res, err := runWith(t, fake, name)
	require.NoError(t, err)

	assert.Equal(t, "hello world ", res.Transcription.TextTranscription)
	assert.Equal(t, "{hello, 0.998, [110:520]}, {world, 0.997, [520:900]}, ", res.Transcription.MetaData)
	assert.Equal(t, 1, res.Results)
	assert.Equal(t, 2, res.Words)
	assert.Equal(t, name+"-json.txt", res.OutputPath)
	assert.Equal(t, []byte("RIFF-hello"), fake.AudioRead)

	var got map[string]string
	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "hello world ", got["textTranscription"])
	assert.Equal(t, res.Transcription.MetaData, got["metaData"])
}

func TestRun_MultipleResultsKeepTrailingSeparators(t *testing.T) {
	name := writeInput(t, "multi", []byte("RIFF"))
	fake := &recognizertest.Fake{Results: []recognizer.SpeechResult{
		{Hypothesis: "one", Words: []recognizer.WordResult{{Word: "one", Confidence: 1}}},
		{Hypothesis: "two"},
		{Hypothesis: "three", Words: []recognizer.WordResult{{Word: "three", Confidence: 0.5, Start: time.Second, End: 2 * time.Second}}},
	}}

	res, err := runWith(t, fake, name)
	require.NoError(t, err)
	assert.Equal(t, "one two three ", res.Transcription.TextTranscription)
	assert.Equal(t, "{one, 1.000, [0:0]}, {three, 0.500, [1000:2000]}, ", res.Transcription.MetaData)
}

func TestRun_Idempotent(t *testing.T) {
	name := writeInput(t, "again", []byte("RIFF"))

	_, err := runWith(t, &recognizertest.Fake{Results: helloWorld()}, name)
	require.NoError(t, err)
	first, err := os.ReadFile(name + "-json.txt")
	require.NoError(t, err)

	_, err = runWith(t, &recognizertest.Fake{Results: helloWorld()}, name)
	require.NoError(t, err)
	second, err := os.ReadFile(name + "-json.txt")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_OverwritesPreviousOutput(t *testing.T) {
	name := writeInput(t, "overwrite", []byte("RIFF"))
	stale := bytes.Repeat([]byte("stale "), 200)
	require.NoError(t, os.WriteFile(name+"-json.txt", stale, 0644))

	_, err := runWith(t, &recognizertest.Fake{}, name)
	require.NoError(t, err)

	data, err := os.ReadFile(name + "-json.txt")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestRun_MissingInputLeavesOutputUntouched(t *testing.T) {
	dir := t.TempDir()

	t.Run("no output created", func(t *testing.T) {
		fake := &recognizertest.Fake{Results: helloWorld()}
		name := filepath.Join(dir, "absent")

		_, err := runWith(t, fake, name)
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, apperrors.ErrInputNotFound))
		assert.False(t, fake.Started)
		assert.Equal(t, 1, fake.Stopped)

		_, statErr := os.Stat(name + "-json.txt")
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("existing output preserved", func(t *testing.T) {
		name := filepath.Join(dir, "previous")
		require.NoError(t, os.WriteFile(name+"-json.txt", []byte("previous"), 0644))

		_, err := runWith(t, &recognizertest.Fake{}, name)
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, apperrors.ErrInputNotFound))

		data, err := os.ReadFile(name + "-json.txt")
		require.NoError(t, err)
		assert.Equal(t, "previous", string(data))
	})
}

func TestRun_InputIsDirectory(t *testing.T) {
	name := filepath.Join(t.TempDir(), "folder")
	require.NoError(t, os.Mkdir(name+".wav", 0755))

	_, err := runWith(t, &recognizertest.Fake{}, name)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrInputUnreadable))
}

func TestRun_OutputIsExactlyTwoFields(t *testing.T) {
	name := writeInput(t, "fields", []byte("RIFF"))

	_, err := runWith(t, &recognizertest.Fake{Results: helloWorld()}, name)
	require.NoError(t, err)

	data, err := os.ReadFile(name + "-json.txt")
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Len(t, fields, 2)
	assert.IsType(t, "", fields["textTranscription"])
	assert.IsType(t, "", fields["metaData"])
}

func TestRun_NoHTMLEscaping(t *testing.T) {
	name := writeInput(t, "markup", []byte("RIFF"))
	fake := &recognizertest.Fake{Results: []recognizer.SpeechResult{{
		Hypothesis: "rock & roll <live> tonight",
		Words:      []recognizer.WordResult{{Word: "<unk>", Confidence: 0.1}},
	}}}

	_, err := runWith(t, fake, name)
	require.NoError(t, err)

	data, err := os.ReadFile(name + "-json.txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), "rock & roll <live> tonight ")
	assert.Contains(t, string(data), "{<unk>, 0.100, [0:0]}, ")
	assert.NotContains(t, string(data), `\u0026`)
	assert.NotContains(t, string(data), `\u003c`)
	assert.NotContains(t, string(data), `&amp;`)
}

func TestRun_RecognizerInitFailure(t *testing.T) {
	name := writeInput(t, "init", []byte("RIFF"))
	factory := func(engine string, cfg recognizer.Configuration, logger *zap.Logger) (recognizer.Recognizer, error) {
		return nil, stderrors.New("model directory missing")
	}

	_, err := NewRunner(zap.NewNop(), WithFactory(factory)).Run(context.Background(), Config{Name: name})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrRecognizerInit))
	assert.Contains(t, err.Error(), "model directory missing")

	_, statErr := os.Stat(name + "-json.txt")
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_UnknownEngineFromRegistry(t *testing.T) {
	name := writeInput(t, "registry", []byte("RIFF"))

	_, err := NewRunner(zap.NewNop()).Run(context.Background(), Config{Name: name, Engine: "no-such-engine"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrRecognizerInit))
	assert.True(t, stderrors.Is(err, apperrors.ErrEngineNotFound))
}

func TestRun_RecognitionFailures(t *testing.T) {
	tests := []struct {
		name string
		fake *recognizertest.Fake
		kind *apperrors.Error
	}{
		{
			name: "start fails",
			fake: &recognizertest.Fake{StartErr: stderrors.New("decoder crashed")},
			kind: apperrors.ErrRecognition,
		},
		{
			name: "start reports unreadable audio",
			fake: &recognizertest.Fake{StartErr: apperrors.Kind(apperrors.ErrInputUnreadable, stderrors.New("not a RIFF file"))},
			kind: apperrors.ErrInputUnreadable,
		},
		{
			name: "result fails midway",
			fake: &recognizertest.Fake{Results: helloWorld(), ResultErr: stderrors.New("pipe closed"), ErrAt: 1},
			kind: apperrors.ErrRecognition,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := writeInput(t, "failing", []byte("RIFF"))

			_, err := runWith(t, tt.fake, name)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.kind))
			assert.Equal(t, 1, tt.fake.Stopped)

			_, statErr := os.Stat(name + "-json.txt")
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestRun_OutputWriteFailure(t *testing.T) {
	name := writeInput(t, "blocked", []byte("RIFF"))
	require.NoError(t, os.Mkdir(name+"-json.txt", 0755))
	fake := &recognizertest.Fake{Results: helloWorld()}

	_, err := runWith(t, fake, name)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrOutputWrite))
	assert.Equal(t, 1, fake.Stopped)
}

func TestRun_StopsRecognizerOnSuccess(t *testing.T) {
	name := writeInput(t, "stop", []byte("RIFF"))
	fake := &recognizertest.Fake{Results: helloWorld()}

	_, err := runWith(t, fake, name)
	require.NoError(t, err)
	assert.True(t, fake.Started)
	assert.Equal(t, 1, fake.Stopped)
}

func TestRun_DiagnosticsEchoResults(t *testing.T) {
	name := writeInput(t, "echo", []byte("RIFF"))
	var out bytes.Buffer

	_, err := runWith(t, &recognizertest.Fake{Results: helloWorld()}, name, WithDiagnostics(&out))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "hello world")
	assert.Contains(t, out.String(), "{hello, 0.998, [110:520]}")
	assert.Contains(t, out.String(), "{world, 0.997, [520:900]}")
}

func TestRun_WithProgress(t *testing.T) {
	audio := bytes.Repeat([]byte{0x01, 0x02}, 4096)
	name := writeInput(t, "progress", audio)
	fake := &recognizertest.Fake{Results: helloWorld()}
	pm := progress.NewManager(progress.Config{Enabled: true, Writer: io.Discard})

	_, err := runWith(t, fake, name, WithProgress(pm))
	require.NoError(t, err)
	pm.Wait()
	assert.Equal(t, audio, fake.AudioRead)
}

func TestEncode(t *testing.T) {
	data, err := Encode(model.Transcription{
		TextTranscription: "a & b",
		MetaData:          "{x, 1.000, [0:10]}, ",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"{\n  \"textTranscription\": \"a & b\",\n  \"metaData\": \"{x, 1.000, [0:10]}, \"\n}\n",
		string(data))
}
