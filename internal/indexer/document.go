package indexer

import (
	"regexp"
	"strings"
)

var lineBreaks = regexp.MustCompile(`\n+`)

// Document is the stored form of one named text.
type Document struct {
	Name         string `json:"name"`
	OriginalText string `json:"originalText"`
	// OriginalLines and NormalizedLines are parallel: NormalizedLines[i] is
	// OriginalLines[i] with every space-separated token normalized.
	OriginalLines   []string `json:"originalLines"`
	NormalizedLines []string `json:"normalizedLines"`
}

// NoiseRecord is the stored noise-word text.
type NoiseRecord struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// BuildDocument splits content into lines on runs of newlines and
// normalizes every token of every line. Noise words are kept.
func BuildDocument(name, content string, normalize func(string) string) Document {
	lines := lineBreaks.Split(content, -1)
	normalized := make([]string, len(lines))
	for i, line := range lines {
		tokens := strings.Split(line, " ")
		for j, token := range tokens {
			tokens[j] = normalize(token)
		}
		normalized[i] = strings.Join(tokens, " ")
	}
	return Document{
		Name:            name,
		OriginalText:    content,
		OriginalLines:   lines,
		NormalizedLines: normalized,
	}
}

// StripExtension drops everything from the first "." in name, so "foo.txt"
// and "foo" name the same document.
func StripExtension(name string) string {
	base, _, _ := strings.Cut(name, ".")
	return base
}
