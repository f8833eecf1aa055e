package vosk

import (
	"context"
	"errors"
	"io"

	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/recognizer"
)

const chunkSize = 4096

// decoder is the part of a Vosk recognizer the feed loop drives.
type decoder interface {
	AcceptWaveform(buffer []byte) int
	Result() string
	FinalResult() string
}

// feeder pushes PCM chunks into a decoder and yields closed utterances.
type feeder struct {
	dec       decoder
	input     io.Reader
	buf       []byte
	eof       bool
	finalized bool
}

func newFeeder(dec decoder, input io.Reader) *feeder {
	return &feeder{dec: dec, input: input, buf: make([]byte, chunkSize)}
}

// next returns the next utterance, or nil once the input is drained and the
// decoder flushed.
func (f *feeder) next(ctx context.Context) (*recognizer.SpeechResult, error) {
	for !f.eof {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := io.ReadFull(f.input, f.buf)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			f.eof = true
		} else if err != nil {
			return nil, apperrors.Kind(apperrors.ErrInputUnreadable, err)
		}

		if n > 0 && f.dec.AcceptWaveform(f.buf[:n]) != 0 {
			res, err := decodeResult(f.dec.Result())
			if err != nil {
				return nil, apperrors.Kind(apperrors.ErrRecognition, err)
			}
			if res != nil {
				return res, nil
			}
		}
	}

	// Audio after the last endpoint is only released by FinalResult, even
	// when the last chunk closed an utterance.
	if !f.finalized {
		f.finalized = true
		res, err := decodeResult(f.dec.FinalResult())
		if err != nil {
			return nil, apperrors.Kind(apperrors.ErrRecognition, err)
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, nil
}
