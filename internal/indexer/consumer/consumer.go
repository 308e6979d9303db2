// Package consumer reads ingest events from Kafka and stores each document
// through the engine.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

// ContentAdder stores a document. *engine.Engine implements it.
type ContentAdder interface {
	AddContent(ctx context.Context, name, content string) error
}

// Runner is the consume loop. *kafka.Consumer implements it.
type Runner interface {
	Start(ctx context.Context) error
}

// IndexConsumer drives the indexing pipeline from the ingest topic.
type IndexConsumer struct {
	runner Runner
	logger *slog.Logger
}

func New(runner Runner) *IndexConsumer {
	return &IndexConsumer{
		runner: runner,
		logger: slog.Default().With("component", "index-consumer"),
	}
}

// Start consumes until ctx is cancelled. It returns the first error the
// message handler could not recover from.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.runner.Start(ctx)
}

// HandleMessage returns a kafka.MessageHandler that stores every ingest
// event with adder. Events that can never succeed, because they do not decode,
// fail validation or are rejected by adder, are logged and acknowledged.
// Store failures are retried
// with backoff and then returned, which stops the consumer before the message
// is committed.
func HandleMessage(adder ContentAdder, limits config.IngestConfig, retry resilience.RetryConfig) kafka.MessageHandler {
	log := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			log.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		req := ingestion.IngestRequest{Name: event.Name, Content: event.Content}
		if err := validator.ValidateIngestRequest(&req, limits); err != nil {
			log.Error("dropping invalid ingest event", "name", event.Name, "error", err)
			return nil
		}
		if event.RequestID != "" {
			ctx = logger.WithRequestID(ctx, event.RequestID)
		}

		start := time.Now()
		err = resilience.Retry(ctx, "index "+event.Name, retry, func() error {
			err := adder.AddContent(ctx, event.Name, event.Content)
			if err != nil && !errors.Is(err, apperrors.ErrStoreFailure) {
				return resilience.Permanent(err)
			}
			return err
		})
		if errors.Is(err, apperrors.ErrStoreFailure) || (err != nil && ctx.Err() != nil) {
			return fmt.Errorf("indexing document %q: %w", event.Name, err)
		}
		if err != nil {
			logger.FromContext(ctx).Error("dropping unindexable ingest event", "name", event.Name, "error", err)
			return nil
		}
		logger.FromContext(ctx).Info("document indexed",
			"name", event.Name,
			"bytes", len(event.Content),
			"queue_delay_ms", start.Sub(event.IngestedAt).Milliseconds(),
		)
		return nil
	}
}
