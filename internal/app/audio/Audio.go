package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"transcribe4all/internal/app/model"
)

// Binaries used for probing and conversion. Overridable for tests.
var (
	FFmpegBinary  = "ffmpeg"
	FFprobeBinary = "ffprobe"
)

var supportedInputs = []string{".mp3", ".m4a", ".wav", ".flac", ".ogg", ".mp4"}

// GetAudioDuration returns the duration of filePath in whole seconds.
func GetAudioDuration(ctx context.Context, filePath string) (int, error) {
	cmd := exec.CommandContext(ctx, FFprobeBinary, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", filePath)
	output, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	durationFloat, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, err
	}
	return int(math.Round(durationFloat)), nil
}

// Is16kHzWavFile reports whether filePath already is 16 kHz mono PCM, the
// format the sphinx acoustic models are trained on.
func Is16kHzWavFile(ctx context.Context, filePath string) (bool, error) {
	cmd := exec.CommandContext(ctx, FFprobeBinary, "-v", "quiet", "-print_format", "json", "-show_streams", filePath)
	output, err := cmd.Output()
	if err != nil {
		return false, err
	}

	var probeOutput model.FFProbeOutput
	if err := json.Unmarshal(output, &probeOutput); err != nil {
		return false, err
	}

	for _, stream := range probeOutput.Streams {
		if stream.CodecType == "audio" && stream.CodecName == "pcm_s16le" &&
			stream.SampleRate == 16000 && stream.Channels <= 1 {
			return true, nil
		}
	}
	return false, nil
}

// ConvertTo16kHzMonoWav converts inputFilePath into a 16 kHz mono WAV at
// outputWavPath, replacing any existing file there. Cancelling ctx kills
// ffmpeg.
func ConvertTo16kHzMonoWav(ctx context.Context, inputFilePath, outputWavPath string) error {
	ext := strings.ToLower(filepath.Ext(inputFilePath))
	if !isSupportedInput(ext) {
		return fmt.Errorf("unsupported audio format not in %v: %s", supportedInputs, ext)
	}

	// -ar 16000 sets frequency to 16khz, -ac 1 sets a single channel
	cmd := exec.CommandContext(ctx, FFmpegBinary, "-y", "-i", inputFilePath, "-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1", outputWavPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("FFmpeg error: %v, stderr: %s", err, stderr.String())
	}
	return nil
}

func isSupportedInput(ext string) bool {
	for _, s := range supportedInputs {
		if s == ext {
			return true
		}
	}
	return false
}
