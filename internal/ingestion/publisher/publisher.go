// Package publisher queues validated documents on the ingest topic.
package publisher

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

// EventPublisher writes one event. *kafka.Producer implements it.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Publisher struct {
	producer EventPublisher
	logger   *slog.Logger
}

func New(producer EventPublisher) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest publishes req as an IngestEvent keyed by document name, so every
// version of one document lands on the same partition and is indexed in
// submission order. req must already be validated.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	event := kafka.Event{
		Key: req.Name,
		Value: ingestion.IngestEvent{
			Name:       req.Name,
			Content:    req.Content,
			IngestedAt: time.Now().UTC(),
			RequestID:  logger.RequestID(ctx),
		},
	}
	if err := p.producer.Publish(ctx, event); err != nil {
		p.logger.Error("failed to queue document", "name", req.Name, "error", err)
		return nil, apperrors.Newf(apperrors.ErrInternal, http.StatusServiceUnavailable, "queueing document %q: %v", req.Name, err)
	}
	return &ingestion.IngestResponse{
		Name:      req.Name,
		Status:    ingestion.StatusQueued,
		SizeBytes: len(req.Content),
	}, nil
}
