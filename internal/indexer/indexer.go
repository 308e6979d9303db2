// Package indexer turns raw text into stored documents and maintains the
// noise-word record. Both writes are idempotent upserts keyed by name.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/noise"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

type Indexer struct {
	store      store.Store
	normalizer *normalizer.Normalizer
	logger     *slog.Logger
}

func New(s store.Store, n *normalizer.Normalizer) *Indexer {
	return &Indexer{
		store:      s,
		normalizer: n,
		logger:     slog.Default().With("component", "indexer"),
	}
}

// Normalize applies the indexer's normalizer to a single word.
func (ix *Indexer) Normalize(word string) string {
	return ix.normalizer.Normalize(word)
}

// AddContent stores content under name, replacing any document already
// stored under that name.
func (ix *Indexer) AddContent(ctx context.Context, name, content string) (Document, error) {
	if name == "" {
		return Document{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "document name is required")
	}
	doc := BuildDocument(name, content, ix.Normalize)
	record, err := store.Encode(doc)
	if err != nil {
		return Document{}, err
	}
	if err := ix.upsert(ctx, store.DocumentsCollection, record); err != nil {
		return Document{}, err
	}
	ix.logger.Debug("document indexed",
		"name", name,
		"lines", len(doc.OriginalLines),
		"bytes", len(content),
	)
	return doc, nil
}

// AddNoiseWords replaces the noise-word set with the words in text.
func (ix *Indexer) AddNoiseWords(ctx context.Context, text string) (*noise.Set, error) {
	data := noise.Prepare(text)
	record, err := store.Encode(NoiseRecord{Name: noise.RecordName, Data: data})
	if err != nil {
		return nil, err
	}
	if err := ix.upsert(ctx, store.NoiseWordsCollection, record); err != nil {
		return nil, err
	}
	set := noise.Parse(data)
	ix.logger.Info("noise words replaced", "words", set.Len())
	return set, nil
}

// NoiseWords loads the current noise-word set. It fails with
// ErrPreconditionMissing until AddNoiseWords has been called.
func (ix *Indexer) NoiseWords(ctx context.Context) (*noise.Set, error) {
	records, err := ix.store.Find(ctx, store.NoiseWordsCollection, store.Filter{store.KeyField: noise.RecordName})
	if err != nil {
		return nil, apperrors.StoreFailure("find noise words", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no noise words have been added", apperrors.ErrPreconditionMissing)
	}
	var rec NoiseRecord
	if err := store.Decode(records[0], &rec); err != nil {
		return nil, err
	}
	return noise.Parse(rec.Data), nil
}

// Documents returns every stored document.
func (ix *Indexer) Documents(ctx context.Context) ([]Document, error) {
	records, err := ix.store.Find(ctx, store.DocumentsCollection, nil)
	if err != nil {
		return nil, apperrors.StoreFailure("find documents", err)
	}
	docs := make([]Document, 0, len(records))
	for _, r := range records {
		var doc Document
		if err := store.Decode(r, &doc); err != nil {
			return nil, fmt.Errorf("document %q: %w", r.Name(), err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Document looks up one document by exact name.
func (ix *Indexer) Document(ctx context.Context, name string) (Document, error) {
	records, err := ix.store.Find(ctx, store.DocumentsCollection, store.Filter{store.KeyField: name})
	if err != nil {
		return Document{}, apperrors.StoreFailure("find document", err)
	}
	if len(records) == 0 {
		return Document{}, apperrors.NotFound(name)
	}
	var doc Document
	if err := store.Decode(records[0], &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Reset removes every document and the noise-word record. The store is
// dropped as a whole, so analytics snapshots kept in it go too.
func (ix *Indexer) Reset(ctx context.Context) error {
	if err := ix.store.DropAll(ctx); err != nil {
		return apperrors.StoreFailure("drop all", err)
	}
	ix.logger.Warn("index reset")
	return nil
}

func (ix *Indexer) upsert(ctx context.Context, collection string, record store.Record) error {
	if err := store.Put(ctx, ix.store, collection, record); err != nil {
		return apperrors.StoreFailure("upsert "+collection, err)
	}
	return nil
}
