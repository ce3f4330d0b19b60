// Package titles treats two human-written work-item titles as the same item
// when they are equal modulo case, punctuation and accents. It is a safety
// net on top of the exclusion lists passed to the generators, not the
// primary de-dup mechanism.
package titles

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxNormalizedLen = 80

var stripAccents = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases a title, folds accents, strips everything but letters
// and digits, and truncates the result.
func Normalize(title string) string {
	folded, _, err := transform.String(stripAccents, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	out := b.String()
	if len(out) > maxNormalizedLen {
		out = out[:maxNormalizedLen]
	}
	return out
}

// Matcher answers "has this title been seen before?" after normalization.
type Matcher struct {
	seen map[string]struct{}
}

// NewMatcher builds a Matcher from previously seen titles.
func NewMatcher(titles []string) *Matcher {
	m := &Matcher{seen: make(map[string]struct{}, len(titles))}
	for _, t := range titles {
		if n := Normalize(t); n != "" {
			m.seen[n] = struct{}{}
		}
	}
	return m
}

// Seen reports whether title matches a previously seen one. A title that is
// empty after normalization never matches.
func (m *Matcher) Seen(title string) bool {
	n := Normalize(title)
	if n == "" {
		return false
	}
	_, ok := m.seen[n]
	return ok
}

// Add records a title so later duplicates within the same batch are caught.
func (m *Matcher) Add(title string) {
	if n := Normalize(title); n != "" {
		m.seen[n] = struct{}{}
	}
}
