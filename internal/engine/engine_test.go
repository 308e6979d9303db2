package engine

import (
	"context"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(store.NewMemory(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestAddContentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	e, err := New(s, Options{})
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.AddContent(ctx, "pets", "cat sat\ncat ran"))
	once, err := s.Find(ctx, store.DocumentsCollection, nil)
	require.NoError(t, err)
	require.NoError(t, e.AddContent(ctx, "pets", "cat sat\ncat ran"))
	twice, err := s.Find(ctx, store.DocumentsCollection, nil)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	require.NoError(t, e.AddNoiseWords(ctx, "the a"))
	require.NoError(t, e.AddNoiseWords(ctx, "the a"))
	noise, err := s.Find(ctx, store.NoiseWordsCollection, nil)
	require.NoError(t, err)
	assert.Len(t, noise, 1)
}

func TestFindScoreAndSnippet(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})
	require.NoError(t, e.AddContent(ctx, "pets", "cat sat\ncat ran"))

	got, err := e.Find(ctx, []string{"cat"})
	require.NoError(t, err)
	assert.Equal(t, []ranker.Result{{Name: "pets", Score: 2, Snippet: "cat sat\n"}}, got)
}

func TestFindRanking(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})
	require.NoError(t, e.AddContent(ctx, "b", "cat cat cat"))
	require.NoError(t, e.AddContent(ctx, "a", "cat\ncat\ncat"))
	require.NoError(t, e.AddContent(ctx, "c", "cat"))

	got, err := e.Find(ctx, []string{"cat"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)
	assert.Equal(t, "c", got[2].Name)
	assert.Equal(t, []int{3, 3, 1}, []int{got[0].Score, got[1].Score, got[2].Score})
}

func TestFindEmptyTerms(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})
	require.NoError(t, e.AddContent(ctx, "a", "cat"))

	got, err := e.Find(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDocContent(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})
	require.NoError(t, e.AddContent(ctx, "foo", "Hello\n\nWorld"))

	text, err := e.DocContent(ctx, "foo.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello\n\nWorld", text)

	_, err = e.DocContent(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.Kind(err))
	assert.Contains(t, err.Error(), "missing")

	_, err = e.DocContent(ctx, "missing.tar.gz")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), `"missing"`)
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})
	require.NoError(t, e.AddContent(ctx, "a", "Cat and cats"))
	require.NoError(t, e.AddContent(ctx, "b", "the cat, the cat"))

	got, err := e.Complete(ctx, "he said hi.")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)

	got, err = e.Complete(ctx, "my cat")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "cats"}, got)

	got, err = e.Complete(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cat"}, got)
}

func TestWords(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})

	_, err := e.Words(ctx, "the cat sat")
	assert.ErrorIs(t, err, apperrors.ErrPreconditionMissing)
	assert.Equal(t, apperrors.KindPreconditionMissing, apperrors.Kind(err))

	require.NoError(t, e.AddNoiseWords(ctx, "the\na an"))
	got, err := e.Words(ctx, "the cat sat")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "sat"}, got)

	got, err = e.Words(ctx, "The Dog's bone, the bone")
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "dog", "bone", "bone"}, got)

	got, err = e.Words(ctx, "the a an")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAddNoiseWordsReplaces(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})
	require.NoError(t, e.AddNoiseWords(ctx, "the"))
	require.NoError(t, e.AddNoiseWords(ctx, "cat"))

	got, err := e.Words(ctx, "the cat")
	require.NoError(t, err)
	assert.Equal(t, []string{"the"}, got)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})
	require.NoError(t, e.AddNoiseWords(ctx, "the on"))
	require.NoError(t, e.AddContent(ctx, "mat", "The cat sat on the mat"))
	require.NoError(t, e.AddContent(ctx, "dog", "The dog's bed"))

	got, err := e.Search(ctx, "the Cat's mat")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ranker.Result{Name: "mat", Score: 2, Snippet: "The cat sat on the mat\n"}, got[0])

	got, err = e.Search(ctx, "the")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})
	require.NoError(t, e.AddNoiseWords(ctx, "the"))
	require.NoError(t, e.AddContent(ctx, "a", "cat"))

	require.NoError(t, e.Reset(ctx))

	_, err := e.DocContent(ctx, "a")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = e.Words(ctx, "cat")
	assert.ErrorIs(t, err, apperrors.ErrPreconditionMissing)
}

func TestSnowballStemmer(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{Stemmer: normalizer.StemmerSnowball})
	require.NoError(t, e.AddNoiseWords(ctx, "the"))
	require.NoError(t, e.AddContent(ctx, "run", "running runs"))

	got, err := e.Search(ctx, "the runner running")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Score)
}

func TestNewRejectsUnknownStemmer(t *testing.T) {
	_, err := New(store.NewMemory(), Options{Stemmer: "porter2000"})
	assert.Error(t, err)
}

type brokenStore struct{ store.Store }

func (brokenStore) Find(context.Context, string, store.Filter) ([]store.Record, error) {
	return nil, errors.New("connection reset")
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	e, err := New(brokenStore{store.NewMemory()}, Options{Metrics: m})
	require.NoError(t, err)

	_, err = e.Find(ctx, []string{"cat"})
	assert.Equal(t, apperrors.KindStoreFailure, apperrors.Kind(err))
	_, err = e.DocContent(ctx, "a")
	assert.Equal(t, apperrors.KindStoreFailure, apperrors.Kind(err))
	_, err = e.Complete(ctx, "ca")
	assert.Equal(t, apperrors.KindStoreFailure, apperrors.Kind(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues("find")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("error")))
	assert.Error(t, e.Ping(ctx))
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	e := newEngine(t, Options{Metrics: m})

	require.NoError(t, e.AddNoiseWords(ctx, "the"))
	require.NoError(t, e.AddContent(ctx, "a", "cat"))
	_, err := e.Find(ctx, []string{"cat"})
	require.NoError(t, err)
	_, err = e.Find(ctx, []string{"dog"})
	require.NoError(t, err)
	_, err = e.Complete(ctx, "ca")
	require.NoError(t, err)
	_, err = e.Complete(ctx, "ca.")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NoiseWordUpdates))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocsIndexedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("suggested")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("skipped")))
}

type memoryBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return nil, redis.Nil
	}
	return v, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *memoryBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for k := range b.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

func TestQueryCacheInvalidatedOnWrite(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	qc := cache.New(&memoryBackend{data: map[string][]byte{}}, time.Minute)
	e := newEngine(t, Options{Cache: qc, Metrics: m})

	require.NoError(t, e.AddContent(ctx, "a", "cat"))
	got, err := e.Find(ctx, []string{"cat"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	_, err = e.Find(ctx, []string{"cat"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))

	require.NoError(t, e.AddContent(ctx, "b", "cat cat"))
	got, err = e.Find(ctx, []string{"cat"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name)

	words, err := e.Complete(ctx, "the ca")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat"}, words)
	words, err = e.Complete(ctx, "ca")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat"}, words)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal))

	require.NoError(t, e.Reset(ctx))
	got, err = e.Find(ctx, []string{"cat"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

type recordingTracker struct {
	mu     sync.Mutex
	events []any
}

func (r *recordingTracker) Track(_ string, event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestTracksAnalytics(t *testing.T) {
	ctx := context.Background()
	tracker := &recordingTracker{}
	e := newEngine(t, Options{Tracker: tracker})

	require.NoError(t, e.AddNoiseWords(ctx, "the"))
	require.NoError(t, e.AddContent(ctx, "a", "cat\nsat"))
	_, err := e.Search(ctx, "the cat")
	require.NoError(t, err)
	_, err = e.Complete(ctx, "ca")
	require.NoError(t, err)

	require.Len(t, tracker.events, 4)
	idx := tracker.events[1].(analytics.IndexEvent)
	assert.Equal(t, analytics.EventIndexDoc, idx.Type)
	assert.Equal(t, 2, idx.Lines)
	search := tracker.events[2].(analytics.SearchEvent)
	assert.Equal(t, "the cat", search.Query)
	assert.Equal(t, []string{"cat"}, search.Terms)
	assert.Equal(t, 1, search.TopScore)
	complete := tracker.events[3].(analytics.CompleteEvent)
	assert.Equal(t, "ca", complete.Prefix)
	assert.Equal(t, 1, complete.Suggestions)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Store.URL = "sqlite://:memory:"
	e, err := Open(ctx, cfg, Options{})
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.Ping(ctx))
	require.NoError(t, e.AddContent(ctx, "a", "cat"))
	text, err := e.DocContent(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "cat", text)

	cfg.Store.URL = "mongodb://localhost"
	_, err = Open(ctx, cfg, Options{})
	assert.ErrorIs(t, err, apperrors.ErrStoreFailure)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
