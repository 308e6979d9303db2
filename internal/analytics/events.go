package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventComplete   EventType = "complete"
	EventIndexDoc   EventType = "index_document"
	EventNoiseWords EventType = "noise_words"
)

// SearchEvent describes one find or free-text search.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query,omitempty"`
	Terms     []string  `json:"terms"`
	Results   int       `json:"results"`
	TopScore  int       `json:"top_score"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// CompleteEvent describes one completion request.
type CompleteEvent struct {
	Type        EventType `json:"type"`
	Prefix      string    `json:"prefix"`
	Suggestions int       `json:"suggestions"`
	LatencyMs   int64     `json:"latency_ms"`
	CacheHit    bool      `json:"cache_hit"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
}

// IndexEvent describes a document or noise-word write.
type IndexEvent struct {
	Type      EventType `json:"type"`
	Name      string    `json:"name"`
	Lines     int       `json:"lines"`
	SizeBytes int       `json:"size_bytes"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// envelope is decoded first to pick the concrete event type.
type envelope struct {
	Type EventType `json:"type"`
}
