// Package engine is the entry point to the search engine. An Engine owns one
// store handle and exposes every indexing and query operation on it; callers
// open it once and Close it on shutdown.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/completer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/finder"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/patterns"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/tracing"
)

// Tracker receives analytics events. *analytics.Collector implements it.
type Tracker interface {
	Track(key string, event any)
}

// Options configures an Engine. Cache, Metrics and Tracker are optional.
type Options struct {
	// Stemmer is normalizer.StemmerPossessive (default) or
	// normalizer.StemmerSnowball.
	Stemmer          string
	PatternCacheSize int
	Cache            *cache.QueryCache
	Metrics          *metrics.Metrics
	Tracker          Tracker
}

type Engine struct {
	store     store.Store
	indexer   *indexer.Indexer
	finder    *finder.Finder
	completer *completer.Completer
	cache     *cache.QueryCache
	metrics   *metrics.Metrics
	tracker   Tracker
	logger    *slog.Logger
}

// New builds an Engine over an open store. The Engine takes ownership of s.
func New(s store.Store, opts Options) (*Engine, error) {
	if opts.Stemmer == "" {
		opts.Stemmer = normalizer.StemmerPossessive
	}
	if opts.PatternCacheSize <= 0 {
		opts.PatternCacheSize = 256
	}
	norm, err := normalizer.New(opts.Stemmer)
	if err != nil {
		return nil, err
	}
	compiled, err := patterns.NewCache(opts.PatternCacheSize)
	if err != nil {
		return nil, err
	}
	ix := indexer.New(s, norm)
	return &Engine{
		store:     s,
		indexer:   ix,
		finder:    finder.New(ix, compiled),
		completer: completer.New(ix, compiled),
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		tracker:   opts.Tracker,
		logger:    slog.Default().With("component", "engine"),
	}, nil
}

// Open connects to the store named by cfg.Store.URL, retrying transient
// connection failures, and builds an Engine on it. Options left zero are
// taken from cfg.Search.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Engine, error) {
	if opts.Stemmer == "" {
		opts.Stemmer = cfg.Search.Stemmer
	}
	if opts.PatternCacheSize <= 0 {
		opts.PatternCacheSize = cfg.Search.PatternCacheSize
	}
	var s store.Store
	err := resilience.Retry(ctx, "store connect", resilience.RetryConfig{
		MaxAttempts:  cfg.Store.ConnectAttempts,
		InitialDelay: 500 * time.Millisecond,
	}, func() error {
		var err error
		s, err = store.Open(ctx, cfg)
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return resilience.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, apperrors.StoreFailure("open", err)
	}
	e, err := New(s, opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the store handle.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Ping checks that the store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if p, ok := e.store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return apperrors.StoreFailure("ping", err)
		}
		return nil
	}
	if _, err := e.store.Find(ctx, store.NoiseWordsCollection, store.Filter{store.KeyField: ""}); err != nil {
		return apperrors.StoreFailure("ping", err)
	}
	return nil
}

// AddNoiseWords replaces the noise-word set with the whitespace-separated
// words of text.
func (e *Engine) AddNoiseWords(ctx context.Context, text string) error {
	ctx, span := tracing.StartChild(ctx, "engine.add_noise_words")
	defer span.End()
	start := time.Now()

	set, err := e.indexer.AddNoiseWords(ctx, text)
	if err != nil {
		e.storeError("add_noise_words", err)
		return err
	}
	span.Set("words", set.Len())
	e.invalidate(ctx)
	if e.metrics != nil {
		e.metrics.NoiseWordUpdates.Inc()
	}
	e.track(ctx, "noise-words", analytics.IndexEvent{
		Type:      analytics.EventNoiseWords,
		Name:      "noise-words",
		SizeBytes: len(text),
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// Words splits text into normalized search terms, dropping noise words. It
// fails with ErrPreconditionMissing before any noise words have been added.
func (e *Engine) Words(ctx context.Context, text string) ([]string, error) {
	set, err := e.indexer.NoiseWords(ctx)
	if err != nil {
		e.storeError("words", err)
		return nil, err
	}
	return set.Words(text, e.indexer.Normalize), nil
}

// AddContent stores content under name, replacing any earlier version.
func (e *Engine) AddContent(ctx context.Context, name, content string) error {
	ctx, span := tracing.StartChild(ctx, "engine.add_content")
	defer span.End()
	start := time.Now()

	doc, err := e.indexer.AddContent(ctx, name, content)
	if err != nil {
		e.storeError("add_content", err)
		return err
	}
	span.Set("lines", len(doc.OriginalLines))
	e.invalidate(ctx)
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
	}
	e.track(ctx, name, analytics.IndexEvent{
		Type:      analytics.EventIndexDoc,
		Name:      name,
		Lines:     len(doc.OriginalLines),
		SizeBytes: len(content),
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// Find ranks every document containing at least one of terms. Terms are
// matched as given against normalized text; use Words or Search to turn free
// text into terms.
func (e *Engine) Find(ctx context.Context, terms []string) ([]ranker.Result, error) {
	return e.find(ctx, "", terms)
}

// Search is Find over the Words of text.
func (e *Engine) Search(ctx context.Context, text string) ([]ranker.Result, error) {
	terms, err := e.Words(ctx, text)
	if err != nil {
		return nil, err
	}
	return e.find(ctx, text, terms)
}

func (e *Engine) find(ctx context.Context, query string, terms []string) ([]ranker.Result, error) {
	ctx, span := tracing.StartChild(ctx, "engine.find")
	defer span.End()
	start := time.Now()

	compute := func() ([]ranker.Result, error) {
		return e.finder.Find(ctx, terms)
	}
	var (
		results []ranker.Result
		cached  bool
		err     error
	)
	if e.cache != nil {
		results, cached, err = e.cache.Find(ctx, terms, compute)
		e.countCache(cached)
	} else {
		results, err = compute()
	}
	elapsed := time.Since(start)
	if err != nil {
		e.storeError("find", err)
		if e.metrics != nil {
			e.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	span.Set("terms", len(terms))
	span.Set("results", len(results))
	span.Set("cached", cached)

	if e.metrics != nil {
		resultType := "hit"
		if len(results) == 0 {
			resultType = "zero_result"
		}
		e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
		e.metrics.SearchLatency.WithLabelValues("find").Observe(elapsed.Seconds())
		e.metrics.SearchResultsCount.Observe(float64(len(results)))
	}
	event := analytics.SearchEvent{
		Type:      analytics.EventSearch,
		Query:     query,
		Terms:     terms,
		Results:   len(results),
		LatencyMs: elapsed.Milliseconds(),
		CacheHit:  cached,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	}
	if len(results) > 0 {
		event.TopScore = results[0].Score
	}
	key := query
	if key == "" {
		key = fmt.Sprint(terms)
	}
	e.track(ctx, key, event)
	return results, nil
}

// Complete suggests words from stored documents that extend the last word of
// text.
func (e *Engine) Complete(ctx context.Context, text string) ([]string, error) {
	prefix, ok := completer.Prefix(text)
	if !ok {
		if e.metrics != nil {
			e.metrics.CompletionsTotal.WithLabelValues("skipped").Inc()
		}
		return []string{}, nil
	}
	ctx, span := tracing.StartChild(ctx, "engine.complete")
	defer span.End()
	start := time.Now()

	compute := func() ([]string, error) {
		return e.completer.Complete(ctx, text)
	}
	var (
		words  []string
		cached bool
		err    error
	)
	if e.cache != nil {
		// keyed by prefix: everything before it does not affect the result
		words, cached, err = e.cache.Complete(ctx, prefix, compute)
		e.countCache(cached)
	} else {
		words, err = compute()
	}
	elapsed := time.Since(start)
	if err != nil {
		e.storeError("complete", err)
		if e.metrics != nil {
			e.metrics.CompletionsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	span.Set("prefix", prefix)
	span.Set("suggestions", len(words))

	if e.metrics != nil {
		outcome := "suggested"
		if len(words) == 0 {
			outcome = "empty"
		}
		e.metrics.CompletionsTotal.WithLabelValues(outcome).Inc()
		e.metrics.SearchLatency.WithLabelValues("complete").Observe(elapsed.Seconds())
	}
	e.track(ctx, prefix, analytics.CompleteEvent{
		Type:        analytics.EventComplete,
		Prefix:      prefix,
		Suggestions: len(words),
		LatencyMs:   elapsed.Milliseconds(),
		CacheHit:    cached,
		Timestamp:   time.Now().UTC(),
		RequestID:   logger.RequestID(ctx),
	})
	return words, nil
}

// DocContent returns the original text of the document called name, ignoring
// anything from the first "." on. Unknown names fail with ErrNotFound.
func (e *Engine) DocContent(ctx context.Context, name string) (string, error) {
	doc, err := e.indexer.Document(ctx, indexer.StripExtension(name))
	if err != nil {
		e.storeError("doc_content", err)
		return "", err
	}
	return doc.OriginalText, nil
}

// Reset drops every document and the noise-word set.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.indexer.Reset(ctx); err != nil {
		e.storeError("reset", err)
		return err
	}
	e.invalidate(ctx)
	return nil
}

// invalidate drops cached query results after a write. A failure is logged
// only; the write itself already succeeded, and stale entries expire with
// the cache TTL.
func (e *Engine) invalidate(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx); err != nil {
		logger.FromContext(ctx).Warn("query cache invalidation failed", "error", err)
	}
}

func (e *Engine) storeError(op string, err error) {
	if e.metrics != nil && errors.Is(err, apperrors.ErrStoreFailure) {
		e.metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
	}
}

func (e *Engine) countCache(hit bool) {
	if e.metrics == nil {
		return
	}
	if hit {
		e.metrics.CacheHitsTotal.Inc()
	} else {
		e.metrics.CacheMissesTotal.Inc()
	}
}

func (e *Engine) track(ctx context.Context, key string, event any) {
	if e.tracker == nil {
		return
	}
	e.tracker.Track(key, event)
	e.logger.DebugContext(ctx, "analytics event tracked", "key", key, "request_id", logger.RequestID(ctx))
}
