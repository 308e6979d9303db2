// Package noise holds the noise-word set: words dropped from free-text
// queries before they are turned into search terms. Indexed content is never
// filtered.
package noise

import (
	"strings"
)

// RecordName is the key of the single noise-word record.
const RecordName = "noise-words"

// Set answers whole-word membership against the stored noise text.
type Set struct {
	words map[string]struct{}
}

// Prepare folds newlines to spaces and lowercases text, producing the form
// kept in the noise-word record.
func Prepare(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ToLower(strings.Join(strings.Split(text, "\n"), " "))
}

// Parse splits stored noise text into a Set.
func Parse(data string) *Set {
	fields := strings.Fields(data)
	s := &Set{words: make(map[string]struct{}, len(fields))}
	for _, w := range fields {
		s.words[w] = struct{}{}
	}
	return s
}

// Contains reports whether token, taken verbatim, is one of the noise words.
// Stored words are lowercase, so capitalised tokens never match.
func (s *Set) Contains(token string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[token]
	return ok
}

// Len returns the number of distinct noise words.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// Words splits text on whitespace, drops noise tokens and normalizes the
// rest. Order and duplicates are kept. The result is never nil.
func (s *Set) Words(text string, normalize func(string) string) []string {
	tokens := strings.Fields(text)
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if s.Contains(token) {
			continue
		}
		out = append(out, normalize(token))
	}
	return out
}
