// Package completer suggests whole words from stored documents that extend
// the last word of a partially typed query.
package completer

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/finder"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/patterns"
)

type Completer struct {
	docs     finder.DocumentSource
	patterns *patterns.Cache
	logger   *slog.Logger
}

func New(docs finder.DocumentSource, cache *patterns.Cache) *Completer {
	return &Completer{
		docs:     docs,
		patterns: cache,
		logger:   slog.Default().With("component", "completer"),
	}
}

// Prefix returns the last whitespace-delimited token of text. ok is false
// when text is empty or does not end in an ASCII letter.
func Prefix(text string) (prefix string, ok bool) {
	if text == "" {
		return "", false
	}
	last := text[len(text)-1]
	if !(last >= 'a' && last <= 'z' || last >= 'A' && last <= 'Z') {
		return "", false
	}
	fields := strings.Fields(text)
	return fields[len(fields)-1], true
}

// Complete returns the distinct words in any document's original text that
// start with the last token of text, matched case-sensitively and sorted in
// byte order. The result is empty, never nil, when nothing can be completed.
func (c *Completer) Complete(ctx context.Context, text string) ([]string, error) {
	prefix, ok := Prefix(text)
	if !ok {
		return []string{}, nil
	}
	re, err := c.patterns.Compile(patterns.Completion(prefix))
	if err != nil {
		return nil, err
	}
	docs, err := c.docs.Documents(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, doc := range docs {
		for _, word := range re.FindAllString(doc.OriginalText, -1) {
			seen[word] = struct{}{}
		}
	}
	words := make([]string, 0, len(seen))
	for word := range seen {
		words = append(words, word)
	}
	sort.Strings(words)
	c.logger.Debug("completion executed", "prefix", prefix, "candidates", len(words))
	return words, nil
}
