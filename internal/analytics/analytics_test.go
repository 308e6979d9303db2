package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 16, 100, time.Hour)
	c.Start(context.Background())

	c.Track("cat", SearchEvent{Type: EventSearch, Terms: []string{"cat"}})
	c.Track("doc", IndexEvent{Type: EventIndexDoc, Name: "doc"})
	c.Close()

	require.Len(t, pub.batches, 1)
	assert.Equal(t, "cat", pub.batches[0][0].Key)
	assert.Equal(t, "doc", pub.batches[0][1].Key)
}

func TestCollectorFlushesFullBatches(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 16, 2, time.Hour)
	c.Start(context.Background())

	for range 5 {
		c.Track("k", SearchEvent{Type: EventSearch})
	}
	c.Close()

	assert.Equal(t, 5, pub.count())
	assert.GreaterOrEqual(t, len(pub.batches), 3)
}

func TestCollectorFlushesOnCancel(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCollector(pub, 16, 100, time.Hour)
	c.Start(ctx)

	c.Track("k", SearchEvent{Type: EventSearch})
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-c.done

	assert.Equal(t, 1, pub.count())
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 1, 100, time.Hour)

	c.Track("a", SearchEvent{})
	c.Track("b", SearchEvent{})
	assert.Len(t, c.events, 1)
}

func TestCollectorTrackAfterClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 16, 100, time.Hour)
	c.Start(context.Background())
	c.Track("before", SearchEvent{Type: EventSearch})
	c.Close()

	assert.NotPanics(t, func() {
		c.Track("after", SearchEvent{Type: EventSearch})
		c.Close()
	})
	assert.Equal(t, 1, pub.count())
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	start := agg.startTime
	agg.now = func() time.Time { return start.Add(2 * time.Minute) }

	events := []any{
		SearchEvent{Type: EventSearch, Query: "cat", Results: 2, LatencyMs: 10},
		SearchEvent{Type: EventSearch, Query: "cat", Results: 2, LatencyMs: 20, CacheHit: true},
		SearchEvent{Type: EventSearch, Query: "unicorn", Results: 0, LatencyMs: 30},
		SearchEvent{Type: EventSearch, Terms: []string{"dog"}, Results: 1, LatencyMs: 40},
		CompleteEvent{Type: EventComplete, Prefix: "ca", Suggestions: 3},
		IndexEvent{Type: EventIndexDoc, Name: "a"},
		IndexEvent{Type: EventNoiseWords, Name: "noise-words"},
	}
	for _, e := range events {
		require.NoError(t, agg.Handle(context.Background(), nil, encode(t, e)))
	}

	stats := agg.Stats()
	assert.Equal(t, int64(4), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.TotalCompletions)
	assert.Equal(t, int64(1), stats.TotalDocIndexed)
	assert.Equal(t, int64(1), stats.NoiseWordUpdates)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(4), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, []QueryCount{{Query: "unicorn", Count: 1}}, stats.ZeroResultQueries)
	assert.Equal(t, QueryCount{Query: "cat", Count: 2}, stats.TopQueries[0])
	assert.Equal(t, []QueryCount{{Query: "ca", Count: 1}}, stats.TopPrefixes)
	assert.InDelta(t, 2.0, stats.QueriesPerMinute, 0.001)
	assert.InDelta(t, 20.0, stats.AvgLatencyMs, 0.001)
}

func TestAggregatorRejectsUnknownEvents(t *testing.T) {
	agg := NewAggregator()
	assert.Error(t, agg.Record([]byte(`{"type":"mystery"}`)))
	assert.Error(t, agg.Record([]byte(`not json`)))
	assert.NoError(t, agg.Handle(context.Background(), []byte("k"), []byte(`not json`)))
	assert.Zero(t, agg.Stats().TotalSearches)
}

func TestAggregatorRestore(t *testing.T) {
	agg := NewAggregator()
	agg.Restore(AggregatedStats{TotalSearches: 10, TotalDocIndexed: 3})
	require.NoError(t, agg.Record(encode(t, SearchEvent{Type: EventSearch, Query: "x", Results: 1})))

	stats := agg.Stats()
	assert.Equal(t, int64(11), stats.TotalSearches)
	assert.Equal(t, int64(3), stats.TotalDocIndexed)
}

func TestPercentile(t *testing.T) {
	sorted := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, int64(6), percentile(sorted, 50))
	assert.Equal(t, int64(10), percentile(sorted, 99))
	assert.Zero(t, percentile(nil, 50))
}

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	snaps := NewSnapshotStore(store.NewMemory())

	_, ok, err := snaps.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, snaps.Save(ctx, AggregatedStats{TotalSearches: 1}))
	require.NoError(t, snaps.Save(ctx, AggregatedStats{TotalSearches: 7, TopQueries: []QueryCount{{Query: "cat", Count: 7}}}))

	stats, ok, err := snaps.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), stats.TotalSearches)
	assert.Equal(t, []QueryCount{{Query: "cat", Count: 7}}, stats.TopQueries)
}

func TestSnapshotStoreSavesOnShutdown(t *testing.T) {
	snaps := NewSnapshotStore(store.NewMemory())
	agg := NewAggregator()
	require.NoError(t, agg.Record(encode(t, SearchEvent{Type: EventSearch, Query: "cat", Results: 1})))

	ctx, cancel := context.WithCancel(context.Background())
	done := snaps.StartPeriodicSave(ctx, agg, time.Hour)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("final snapshot not written")
	}
	stats, ok, err := snaps.Latest(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.TotalSearches)
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	require.NoError(t, agg.Record(encode(t, SearchEvent{Type: EventSearch, Query: "cat", Results: 1})))

	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.TotalSearches)
}

func TestHandlerStatsTop(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"a", "b", "b", "c"} {
		require.NoError(t, agg.Record(encode(t, SearchEvent{Type: EventSearch, Query: q, Results: 1})))
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []QueryCount{{Query: "b", Count: 2}}, body.TopQueries)

	for _, bad := range []string{"0", "101", "x"} {
		rec = httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}
