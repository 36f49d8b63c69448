package usecase

import "strings"

// sentence terminators the speech layer stumbles over when repeated
var terminators = []rune{'。', '．', '！', '？'}

// collapseTerminators squeezes any run of repeated sentence terminators into
// a single one. Idempotent: applying it twice equals applying it once.
func collapseTerminators(s string) string {
	if s == "" {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	var prev rune = -1
	for _, r := range s {
		if isTerminator(r) && r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func isTerminator(r rune) bool {
	for _, t := range terminators {
		if r == t {
			return true
		}
	}
	return false
}
