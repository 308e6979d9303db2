package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	TotalCompletions  int64        `json:"total_completions"`
	TotalDocIndexed   int64        `json:"total_docs_indexed"`
	NoiseWordUpdates  int64        `json:"noise_word_updates"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	TopPrefixes       []QueryCount `json:"top_prefixes"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

// Aggregator folds analytics events into running totals.
type Aggregator struct {
	mu                sync.RWMutex
	base              AggregatedStats
	searches          int64
	completions       int64
	indexed           int64
	noiseUpdates      int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	latencies         []int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	prefixCounts      map[string]int64
	startTime         time.Time
	now               func() time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		prefixCounts:      make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Restore seeds the counters from a saved snapshot. Totals continue from the
// snapshot; percentiles and top lists restart empty.
func (a *Aggregator) Restore(stats AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.base = stats
}

// Handle is a kafka.MessageHandler for the analytics topic. Undecodable
// messages are logged and skipped so that one bad event cannot stall the
// partition.
func (a *Aggregator) Handle(ctx context.Context, key, value []byte) error {
	if err := a.Record(value); err != nil {
		a.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
	}
	return nil
}

// Record decodes one JSON event and folds it in.
func (a *Aggregator) Record(value []byte) error {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("decoding event envelope: %w", err)
	}
	switch env.Type {
	case EventSearch:
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			return err
		}
		a.recordSearch(event)
	case EventComplete:
		event, err := kafka.DecodeJSON[CompleteEvent](value)
		if err != nil {
			return err
		}
		a.recordComplete(event)
	case EventIndexDoc, EventNoiseWords:
		a.recordIndex(env.Type)
	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
	return nil
}

func (a *Aggregator) recordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.searches++
	a.countCache(event.CacheHit)
	a.addLatency(event.LatencyMs)
	query := event.Query
	if query == "" {
		query = fmt.Sprint(event.Terms)
	}
	a.queryCounts[query]++
	if event.Results == 0 {
		a.zeroResults++
		a.zeroResultQueries[query]++
	}
}

func (a *Aggregator) recordComplete(event CompleteEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completions++
	a.countCache(event.CacheHit)
	a.addLatency(event.LatencyMs)
	if event.Prefix != "" {
		a.prefixCounts[event.Prefix]++
	}
}

func (a *Aggregator) recordIndex(t EventType) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t == EventNoiseWords {
		a.noiseUpdates++
		return
	}
	a.indexed++
}

func (a *Aggregator) countCache(hit bool) {
	if hit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
}

func (a *Aggregator) addLatency(ms int64) {
	if len(a.latencies) >= maxLatencySamples {
		a.latencies = a.latencies[1:]
	}
	a.latencies = append(a.latencies, ms)
}

// DefaultTopN is how many entries Stats reports per ranked list.
const DefaultTopN = 10

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(DefaultTopN)
}

// StatsTop is Stats with n entries per ranked list.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.base.TotalSearches + a.searches,
		TotalCompletions: a.base.TotalCompletions + a.completions,
		TotalDocIndexed:  a.base.TotalDocIndexed + a.indexed,
		NoiseWordUpdates: a.base.NoiseWordUpdates + a.noiseUpdates,
		CacheHits:        a.base.CacheHits + a.cacheHits,
		CacheMisses:      a.base.CacheMisses + a.cacheMisses,
		ZeroResultCount:  a.base.ZeroResultCount + a.zeroResults,
	}
	if len(a.latencies) > 0 {
		sorted := append([]int64(nil), a.latencies...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, n)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, n)
	stats.TopPrefixes = topN(a.prefixCounts, n)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(a.searches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then query, so ties are stable across calls.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
