package lexical

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Tokenizer reduces Japanese text to content words for term matching.
// Morphological analysis over the IPA dictionary; only content parts of
// speech survive, everything grammatical is noise for retrieval.
type Tokenizer struct {
	t *tokenizer.Tokenizer
}

func NewTokenizer() (*Tokenizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("init kagome tokenizer: %w", err)
	}
	return &Tokenizer{t: t}, nil
}

var contentPOS = map[string]bool{
	"名詞":  true,
	"動詞":  true,
	"形容詞": true,
}

// High-frequency terms that carry no retrieval signal for this corpus.
var stopwords = map[string]bool{
	"する": true,
	"いる": true,
	"なる": true,
	"ある": true,
	"こと": true,
	"もの": true,
	"ため": true,
	"よう": true,
	"それ": true,
	"これ": true,
	"の":  true,
	"ん":  true,
}

// Terms returns the normalized content terms of text, in occurrence order.
// Verbs and adjectives are reduced to their base form so 聞いた and 聞く meet
// at the same term.
func (t *Tokenizer) Terms(text string) []string {
	tokens := t.t.Tokenize(text)
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		features := token.Features()
		if len(features) == 0 || !contentPOS[features[0]] {
			continue
		}

		term := token.Surface
		if base, ok := token.BaseForm(); ok && base != "*" && base != "" {
			term = base
		}
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || stopwords[term] || isNoise(term) {
			continue
		}
		out = append(out, term)
	}
	return out
}

// isNoise drops terms with no letter or digit content and lone hiragana,
// which the POS filter occasionally lets through as fragments.
func isNoise(term string) bool {
	runes := []rune(term)
	if len(runes) == 1 && unicode.In(runes[0], unicode.Hiragana) {
		return true
	}
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
