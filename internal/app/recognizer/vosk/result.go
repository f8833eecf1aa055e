// Package vosk adapts the Kaldi based Vosk recognizer. The cgo engine is only
// compiled with the "vosk" build tag; result decoding and grammar loading are
// plain Go and always available.
package vosk

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"

	"transcribe4all/internal/app/recognizer"
)

// voskResult is the JSON document returned by Result and FinalResult when
// word output is enabled.
type voskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf  float64 `json:"conf"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Word  string  `json:"word"`
	} `json:"result"`
}

// decodeResult converts a Vosk JSON result. Empty utterances yield nil.
func decodeResult(data string) (*recognizer.SpeechResult, error) {
	var res voskResult
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return nil, fmt.Errorf("decode vosk result: %w", err)
	}
	if strings.TrimSpace(res.Text) == "" && len(res.Result) == 0 {
		return nil, nil
	}

	words := make([]recognizer.WordResult, 0, len(res.Result))
	for _, w := range res.Result {
		words = append(words, recognizer.WordResult{
			Word:       w.Word,
			Confidence: w.Conf,
			Start:      recognizer.Seconds(w.Start),
			End:        recognizer.Seconds(w.End),
		})
	}
	return &recognizer.SpeechResult{Hypothesis: res.Text, Words: words}, nil
}

// loadGrammar turns a pronunciation dictionary (one "word PHONES..." entry
// per line) into the JSON word list Vosk accepts as a grammar.
func loadGrammar(dictPath string) (string, error) {
	f, err := os.Open(dictPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], ";;") {
			continue
		}
		word := fields[0]
		if i := strings.IndexByte(word, '('); i > 0 {
			word = word[:i]
		}
		words = append(words, strings.ToLower(word))
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if len(words) == 0 {
		return "", fmt.Errorf("dictionary %s has no entries", dictPath)
	}

	grammar, err := json.Marshal(append(lo.Uniq(words), "[unk]"))
	if err != nil {
		return "", err
	}
	return string(grammar), nil
}
