// Package ingestion defines the request and event types of the asynchronous
// document ingestion path: documents accepted over HTTP are published to
// Kafka and indexed by the indexer service.
package ingestion

import "time"

// IngestRequest is the JSON body accepted by POST /api/v1/ingest.
type IngestRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// IngestResponse is returned once a document has been queued.
type IngestResponse struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	SizeBytes int    `json:"size_bytes"`
}

// StatusQueued means the document is on the ingest topic but may not be
// searchable yet.
const StatusQueued = "QUEUED"

// IngestEvent is the Kafka payload consumed by the indexer.
type IngestEvent struct {
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	IngestedAt time.Time `json:"ingested_at"`
	RequestID  string    `json:"request_id,omitempty"`
}
