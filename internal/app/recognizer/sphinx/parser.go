package sphinx

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"transcribe4all/internal/app/recognizer"
)

// wordLine matches the -time yes segment lines: "word start end posterior".
var wordLine = regexp.MustCompile(`^(\S+) (-?\d+(?:\.\d+)?) (-?\d+(?:\.\d+)?) (-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)$`)

// alternate pronunciation marker, e.g. "read(2)"
var altPron = regexp.MustCompile(`\(\d+\)$`)

// outputParser groups pocketsphinx_continuous stdout into utterances. Each
// utterance is a hypothesis line followed by its word lines; an utterance is
// only complete once the next hypothesis or end of output is seen.
type outputParser struct {
	scanner *bufio.Scanner
	pending *recognizer.SpeechResult
	done    bool
}

func newOutputParser(r io.Reader) *outputParser {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &outputParser{scanner: scanner}
}

// next returns the next complete utterance, or nil at end of output.
func (p *outputParser) next() (*recognizer.SpeechResult, error) {
	for !p.done {
		if !p.scanner.Scan() {
			p.done = true
			if err := p.scanner.Err(); err != nil {
				return nil, err
			}
			break
		}

		line := strings.TrimSpace(p.scanner.Text())
		if line == "" {
			continue
		}

		if m := wordLine.FindStringSubmatch(line); m != nil {
			if p.pending == nil {
				p.pending = &recognizer.SpeechResult{}
			}
			p.pending.Words = append(p.pending.Words, parseWord(m))
			continue
		}

		completed := p.pending
		p.pending = &recognizer.SpeechResult{Hypothesis: line}
		if completed != nil {
			return finish(completed), nil
		}
	}

	if p.pending != nil {
		completed := p.pending
		p.pending = nil
		return finish(completed), nil
	}
	return nil, nil
}

func parseWord(m []string) recognizer.WordResult {
	start, _ := strconv.ParseFloat(m[2], 64)
	end, _ := strconv.ParseFloat(m[3], 64)
	confidence, _ := strconv.ParseFloat(m[4], 64)
	return recognizer.WordResult{
		Word:       altPron.ReplaceAllString(m[1], ""),
		Confidence: confidence,
		Start:      recognizer.Seconds(start),
		End:        recognizer.Seconds(end),
	}
}

// finish drops filler tokens and fills a missing hypothesis from the words.
func finish(r *recognizer.SpeechResult) *recognizer.SpeechResult {
	r.Words = lo.Filter(r.Words, func(w recognizer.WordResult, _ int) bool {
		return !isFiller(w.Word)
	})
	if r.Hypothesis == "" {
		r.Hypothesis = strings.Join(lo.Map(r.Words, func(w recognizer.WordResult, _ int) string {
			return w.Word
		}), " ")
	}
	return r
}

func isFiller(word string) bool {
	switch word {
	case "<s>", "</s>", "<sil>", "(NULL)", "[NOISE]", "[SPEECH]":
		return true
	}
	return strings.HasPrefix(word, "++") && strings.HasSuffix(word, "++")
}
