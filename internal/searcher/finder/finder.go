// Package finder scores stored documents against normalized query terms.
// Every call scans every document; there is no inverted index.
package finder

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/patterns"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
)

// DocumentSource lists every stored document.
type DocumentSource interface {
	Documents(ctx context.Context) ([]indexer.Document, error)
}

type Finder struct {
	docs     DocumentSource
	patterns *patterns.Cache
	logger   *slog.Logger
}

func New(docs DocumentSource, cache *patterns.Cache) *Finder {
	return &Finder{
		docs:     docs,
		patterns: cache,
		logger:   slog.Default().With("component", "finder"),
	}
}

// Find returns every document in which at least one of terms occurs as a
// whole word of a normalized line, ranked by ranker.Compare. Terms are used
// as given; callers filter noise words beforehand.
func (f *Finder) Find(ctx context.Context, terms []string) ([]ranker.Result, error) {
	results := make([]ranker.Result, 0)
	expr, ok := patterns.Terms(terms)
	if !ok {
		return results, nil
	}
	re, err := f.patterns.Compile(expr)
	if err != nil {
		return nil, err
	}
	docs, err := f.docs.Documents(ctx)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if result, ok := Score(doc, re); ok {
			results = append(results, result)
		}
	}
	ranker.Sort(results)
	f.logger.Debug("find executed",
		"terms", terms,
		"scanned", len(docs),
		"results", len(results),
	)
	return results, nil
}

// Score counts every match of re across the normalized lines of doc. The
// snippet is the original line holding the first match, newline-terminated;
// later lines add to the score only. ok is false when nothing matched.
func Score(doc indexer.Document, re *regexp.Regexp) (result ranker.Result, ok bool) {
	result.Name = doc.Name
	snippetTaken := false
	for i, line := range doc.NormalizedLines {
		n := len(re.FindAllStringIndex(line, -1))
		if n == 0 {
			continue
		}
		result.Score += n
		if !snippetTaken && i < len(doc.OriginalLines) {
			result.Snippet = doc.OriginalLines[i] + "\n"
			snippetTaken = true
		}
	}
	return result, result.Score > 0
}
