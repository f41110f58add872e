package chunker

import (
	"fmt"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// tokenizer loads the bundled English punkt model on first use.
var tokenizer = sync.OnceValue(func() *sentences.DefaultSentenceTokenizer {
	t, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		panic(fmt.Sprintf("load english sentence model: %v", err))
	}
	return t
})

// SplitSentences breaks text into sentences with the English punkt
// tokenizer. Sentences are trimmed; empty ones are dropped.
func SplitSentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	for _, s := range tokenizer().Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}
