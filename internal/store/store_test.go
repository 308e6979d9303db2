package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Store { return NewMemory() }},
		{"sqlite", func(t *testing.T) Store {
			s, err := OpenSQLite(context.Background(), ":memory:", config.SQLiteConfig{BusyTimeout: time.Second}, 5*time.Second)
			require.NoError(t, err)
			return s
		}},
		{"postgres", func(t *testing.T) Store {
			dsn := os.Getenv("TS_TEST_POSTGRES_URL")
			if dsn == "" {
				t.Skip("TS_TEST_POSTGRES_URL not set")
			}
			s, err := OpenPostgres(context.Background(), dsn, config.Default().Postgres, 5*time.Second)
			require.NoError(t, err)
			require.NoError(t, s.DropAll(context.Background()))
			return s
		}},
	}
}

func TestStoreContract(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			defer func() { _ = s.Close() }()

			got, err := s.Find(ctx, DocumentsCollection, Filter{"name": "a"})
			require.NoError(t, err)
			assert.Empty(t, got)

			require.NoError(t, s.Insert(ctx, DocumentsCollection, Record{
				"name":          "a",
				"originalText":  "cat sat",
				"originalLines": []any{"cat sat"},
			}))
			require.NoError(t, s.Insert(ctx, DocumentsCollection, Record{"name": "b", "originalText": "dog"}))
			require.NoError(t, s.Insert(ctx, NoiseWordsCollection, Record{"name": "noise-words", "data": "the"}))

			all, err := s.Find(ctx, DocumentsCollection, nil)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "a", all[0].Name())
			assert.Equal(t, "b", all[1].Name())

			one, err := s.Find(ctx, DocumentsCollection, Filter{"name": "a"})
			require.NoError(t, err)
			require.Len(t, one, 1)
			assert.Equal(t, "cat sat", one[0]["originalText"])
			assert.Equal(t, []any{"cat sat"}, one[0]["originalLines"])

			require.NoError(t, s.Update(ctx, DocumentsCollection, Filter{"name": "a"}, Record{"originalText": "cat ran"}))
			one, err = s.Find(ctx, DocumentsCollection, Filter{"name": "a"})
			require.NoError(t, err)
			require.Len(t, one, 1)
			assert.Equal(t, "cat ran", one[0]["originalText"])
			assert.Equal(t, []any{"cat sat"}, one[0]["originalLines"], "fields not named in the update are kept")

			// no match is not an error
			require.NoError(t, s.Update(ctx, DocumentsCollection, Filter{"name": "zzz"}, Record{"originalText": "x"}))

			require.NoError(t, s.DropAll(ctx))
			for _, c := range []string{DocumentsCollection, NoiseWordsCollection} {
				left, err := s.Find(ctx, c, nil)
				require.NoError(t, err)
				assert.Empty(t, left)
			}
		})
	}
}

func TestUpsertReplaces(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			defer func() { _ = s.Close() }()
			up, ok := s.(Upserter)
			if !ok {
				t.Skip("backend has no atomic upsert")
			}
			require.NoError(t, up.Upsert(ctx, NoiseWordsCollection, Record{"name": "noise-words", "data": "a the"}))
			require.NoError(t, up.Upsert(ctx, NoiseWordsCollection, Record{"name": "noise-words", "data": "of"}))

			got, err := s.Find(ctx, NoiseWordsCollection, Filter{"name": "noise-words"})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "of", got[0]["data"])
		})
	}
}

// plainStore hides any Upsert method of the wrapped backend.
type plainStore struct{ Store }

func TestPutReplaces(t *testing.T) {
	for _, b := range backends() {
		for _, wrap := range []struct {
			name string
			fn   func(Store) Store
		}{
			{"native", func(s Store) Store { return s }},
			{"fallback", func(s Store) Store { return plainStore{s} }},
		} {
			t.Run(b.name+"/"+wrap.name, func(t *testing.T) {
				ctx := context.Background()
				s := b.open(t)
				defer func() { _ = s.Close() }()
				put := wrap.fn(s)

				require.NoError(t, Put(ctx, put, NoiseWordsCollection, Record{"name": "noise-words", "data": "a the"}))
				require.NoError(t, Put(ctx, put, NoiseWordsCollection, Record{"name": "noise-words", "data": "of"}))

				got, err := s.Find(ctx, NoiseWordsCollection, Filter{"name": "noise-words"})
				require.NoError(t, err)
				require.Len(t, got, 1)
				assert.Equal(t, "of", got[0]["data"])
			})
		}
	}
}

func TestInsertRequiresName(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer func() { _ = s.Close() }()
			err := s.Insert(context.Background(), DocumentsCollection, Record{"originalText": "x"})
			assert.Error(t, err)
		})
	}
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())
	_, err := m.Find(context.Background(), DocumentsCollection, nil)
	assert.ErrorIs(t, err, errClosed)
}

func TestSQLiteRejectsUnsafeField(t *testing.T) {
	_, _, err := sqliteWhere(DocumentsCollection, Filter{"name') OR 1=1 --": "x"})
	assert.Error(t, err)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	require.NoError(t, s.Close())

	cfg.Store.URL = "sqlite://:memory:"
	s, err = Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	cfg.Store.URL = "mongodb://localhost"
	_, err = Open(ctx, cfg)
	assert.Error(t, err)

	cfg.Store.URL = "nothing"
	_, err = Open(ctx, cfg)
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	type doc struct {
		Name  string   `json:"name"`
		Lines []string `json:"lines"`
	}
	r, err := Encode(doc{Name: "a", Lines: []string{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, "a", r.Name())

	var back doc
	require.NoError(t, Decode(r, &back))
	assert.Equal(t, []string{"x", "y"}, back.Lines)
}
