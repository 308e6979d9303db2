// Package normalizer converts raw words into the canonical form stored in
// normalized document lines and used as query terms: lowercase, stem, then
// drop every character outside a-z.
package normalizer

import (
	"fmt"
	"strings"

	"github.com/kljensen/snowball/english"
)

// Stemmer names accepted by New.
const (
	StemmerPossessive = "possessive"
	StemmerSnowball   = "snowball"
)

// Normalizer applies one stemming strategy. The zero value uses Stem.
type Normalizer struct {
	stem func(string) string
}

// New returns a Normalizer for the named stemmer. "snowball" replaces the
// possessive rule with the English Snowball stemmer and therefore changes
// which words match each other.
func New(stemmer string) (*Normalizer, error) {
	switch stemmer {
	case "", StemmerPossessive:
		return &Normalizer{stem: Stem}, nil
	case StemmerSnowball:
		return &Normalizer{stem: snowballStem}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", stemmer)
	}
}

// Normalize lowercases, stems and strips word.
func (n *Normalizer) Normalize(word string) string {
	stem := Stem
	if n != nil && n.stem != nil {
		stem = n.stem
	}
	return keepLetters(stem(strings.ToLower(word)))
}

// Normalize uses the default possessive stemmer.
func Normalize(word string) string {
	return keepLetters(Stem(strings.ToLower(word)))
}

// Stem removes a trailing possessive "'s". No other suffix is touched.
func Stem(word string) string {
	return strings.TrimSuffix(word, "'s")
}

func snowballStem(word string) string {
	return english.Stem(Stem(word), false)
}

func keepLetters(word string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, word)
}
