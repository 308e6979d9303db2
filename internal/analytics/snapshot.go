package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/store"
)

// SnapshotCollection holds periodic copies of the aggregated stats.
const SnapshotCollection = "analyticsSnapshots"

const latestSnapshot = "latest"

type snapshotRecord struct {
	Name       string          `json:"name"`
	CapturedAt time.Time       `json:"capturedAt"`
	Stats      AggregatedStats `json:"stats"`
}

// SnapshotStore keeps the most recent stats snapshot in the document store,
// so totals survive a restart of the analytics service.
type SnapshotStore struct {
	store  store.Store
	logger *slog.Logger
}

func NewSnapshotStore(s store.Store) *SnapshotStore {
	return &SnapshotStore{
		store:  s,
		logger: slog.Default().With("component", "analytics-snapshots"),
	}
}

// Save replaces the stored snapshot with stats.
func (s *SnapshotStore) Save(ctx context.Context, stats AggregatedStats) error {
	record, err := store.Encode(snapshotRecord{
		Name:       latestSnapshot,
		CapturedAt: time.Now().UTC(),
		Stats:      stats,
	})
	if err != nil {
		return err
	}
	if err := store.Put(ctx, s.store, SnapshotCollection, record); err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved", "total_searches", stats.TotalSearches)
	return nil
}

// Latest returns the stored snapshot. ok is false when none has been saved.
func (s *SnapshotStore) Latest(ctx context.Context) (stats AggregatedStats, ok bool, err error) {
	records, err := s.store.Find(ctx, SnapshotCollection, store.Filter{store.KeyField: latestSnapshot})
	if err != nil {
		return AggregatedStats{}, false, fmt.Errorf("loading analytics snapshot: %w", err)
	}
	if len(records) == 0 {
		return AggregatedStats{}, false, nil
	}
	var rec snapshotRecord
	if err := store.Decode(records[0], &rec); err != nil {
		return AggregatedStats{}, false, err
	}
	return rec.Stats, true, nil
}

// StartPeriodicSave snapshots agg every interval and once more when ctx ends.
// The returned channel is closed after the final snapshot.
func (s *SnapshotStore) StartPeriodicSave(ctx context.Context, agg *Aggregator, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Save(ctx, agg.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.Save(shutdownCtx, agg.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				cancel()
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
	return done
}
