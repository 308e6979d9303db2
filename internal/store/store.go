// Package store is the document store boundary of the search engine. It
// models persistence as named collections of JSON-like records that are
// looked up by equality filters, and offers memory, PostgreSQL and SQLite
// backends behind one interface.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// Collection names used by the engine.
const (
	NoiseWordsCollection = "noiseWords"
	DocumentsCollection  = "textDocuments"
)

// KeyField is the record field every collection is keyed on.
const KeyField = "name"

// Record is a single stored document. Values must survive a JSON round trip.
type Record map[string]any

// Name returns the record's key, or "" when absent.
func (r Record) Name() string {
	name, _ := r[KeyField].(string)
	return name
}

// Filter selects records whose fields equal every given value.
type Filter map[string]string

// Matches reports whether r satisfies f.
func (f Filter) Matches(r Record) bool {
	for field, want := range f {
		got, ok := r[field].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Store is implemented by every backend. Errors returned by a backend are
// reported to callers as STORE_FAILURE.
type Store interface {
	// Find returns every record in collection matching filter, or an empty
	// slice.
	Find(ctx context.Context, collection string, filter Filter) ([]Record, error)
	// Insert appends a new record. Records must carry a name.
	Insert(ctx context.Context, collection string, record Record) error
	// Update overwrites the given fields of the first record matching filter.
	Update(ctx context.Context, collection string, filter Filter, fields Record) error
	// DropAll clears every collection, including ones owned by other
	// services sharing the store such as analytics snapshots.
	DropAll(ctx context.Context) error
	Close() error
}

// Upserter is implemented by backends that can insert-or-replace a record by
// name atomically. Callers fall back to Find followed by Insert or Update
// when a store does not implement it.
type Upserter interface {
	Upsert(ctx context.Context, collection string, record Record) error
}

// Put inserts record or fully replaces the one with the same name. Stores
// without an Upserter get a find followed by insert or update; two
// overlapping calls for one name may then both insert or interleave, and the
// last write wins.
func Put(ctx context.Context, s Store, collection string, record Record) error {
	if up, ok := s.(Upserter); ok {
		return up.Upsert(ctx, collection, record)
	}
	filter := Filter{KeyField: record.Name()}
	existing, err := s.Find(ctx, collection, filter)
	if err != nil {
		return fmt.Errorf("finding %s: %w", collection, err)
	}
	if len(existing) == 0 {
		return s.Insert(ctx, collection, record)
	}
	return s.Update(ctx, collection, filter, record)
}

// Open connects to the backend selected by cfg.Store.URL.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	scheme, rest, ok := strings.Cut(cfg.Store.URL, "://")
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "store url %q has no scheme", cfg.Store.URL)
	}
	switch scheme {
	case "memory":
		return NewMemory(), nil
	case "postgres", "postgresql":
		return OpenPostgres(ctx, cfg.Store.URL, cfg.Postgres, cfg.Store.OperationTimeout)
	case "pg":
		// discrete postgres.* settings instead of a URL
		return OpenPostgres(ctx, cfg.Postgres.DSN(), cfg.Postgres, cfg.Store.OperationTimeout)
	case "sqlite":
		return OpenSQLite(ctx, rest, cfg.SQLite, cfg.Store.OperationTimeout)
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unsupported store scheme %q", scheme)
	}
}

// Decode copies r into v through its JSON form.
func Decode(r Record, v any) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	return nil
}

// Encode converts v, a struct with json tags, into a Record.
func Encode(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return r, nil
}

func requireName(record Record) (string, error) {
	name := record.Name()
	if name == "" {
		return "", apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "record has no name")
	}
	return name, nil
}

var errClosed = errors.New("store is closed")
