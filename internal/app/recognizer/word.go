package recognizer

import (
	"fmt"
	"time"
)

// WordResult is one recognized word with its position in the audio.
type WordResult struct {
	Word       string
	Confidence float64
	Start      time.Duration
	End        time.Duration
}

// String renders the word as {word, confidence, [startMs:endMs]}.
func (w WordResult) String() string {
	return fmt.Sprintf("{%s, %.3f, [%d:%d]}", w.Word, w.Confidence,
		w.Start.Milliseconds(), w.End.Milliseconds())
}

// Seconds converts a fractional second offset as printed by most engines.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
