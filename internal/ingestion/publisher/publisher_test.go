package publisher

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	events []kafka.Event
	err    error
}

func (f *fakeProducer) Publish(_ context.Context, event kafka.Event) error {
	f.events = append(f.events, event)
	return f.err
}

func TestIngestPublishesKeyedEvent(t *testing.T) {
	producer := &fakeProducer{}
	ctx := logger.WithRequestID(context.Background(), "req-7")

	resp, err := New(producer).Ingest(ctx, &ingestion.IngestRequest{Name: "a.txt", Content: "cat sat"})
	require.NoError(t, err)
	assert.Equal(t, &ingestion.IngestResponse{Name: "a.txt", Status: ingestion.StatusQueued, SizeBytes: 7}, resp)

	require.Len(t, producer.events, 1)
	assert.Equal(t, "a.txt", producer.events[0].Key)
	event := producer.events[0].Value.(ingestion.IngestEvent)
	assert.Equal(t, "cat sat", event.Content)
	assert.Equal(t, "req-7", event.RequestID)
	assert.False(t, event.IngestedAt.IsZero())
}

func TestIngestPublishFailure(t *testing.T) {
	producer := &fakeProducer{err: errors.New("no brokers")}

	_, err := New(producer).Ingest(context.Background(), &ingestion.IngestRequest{Name: "a"})
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatusCode(err))
	assert.Contains(t, err.Error(), "no brokers")
}
