package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WAVFormat is the fmt chunk of a RIFF/WAVE stream.
type WAVFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// ReadWAVHeader consumes the RIFF header of r up to the start of the data
// chunk and returns the format. r is left positioned at the first PCM byte,
// so the remaining stream can be handed to an engine expecting raw samples.
func ReadWAVHeader(r io.Reader) (WAVFormat, error) {
	var format WAVFormat

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return format, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return format, fmt.Errorf("not a RIFF/WAVE stream")
	}

	haveFormat := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return format, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return format, fmt.Errorf("fmt chunk too short: %d", size)
			}
			var body [16]byte
			if _, err := io.ReadFull(r, body[:]); err != nil {
				return format, fmt.Errorf("read fmt chunk: %w", err)
			}
			format.AudioFormat = binary.LittleEndian.Uint16(body[0:2])
			format.Channels = binary.LittleEndian.Uint16(body[2:4])
			format.SampleRate = binary.LittleEndian.Uint32(body[4:8])
			format.BitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			if err := skip(r, int64(size-16)+int64(size%2)); err != nil {
				return format, err
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return format, fmt.Errorf("data chunk before fmt chunk")
			}
			return format, nil
		default:
			// Chunks are word aligned.
			if err := skip(r, int64(size)+int64(size%2)); err != nil {
				return format, err
			}
		}
	}
}

func skip(r io.Reader, n int64) error {
	if n == 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("skip %d bytes: %w", n, err)
	}
	return nil
}
