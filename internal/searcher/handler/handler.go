// Package handler exposes the engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

// Engine is the set of operations served. *engine.Engine implements it.
type Engine interface {
	AddNoiseWords(ctx context.Context, text string) error
	Words(ctx context.Context, text string) ([]string, error)
	AddContent(ctx context.Context, name, content string) error
	Find(ctx context.Context, terms []string) ([]ranker.Result, error)
	Search(ctx context.Context, text string) ([]ranker.Result, error)
	Complete(ctx context.Context, text string) ([]string, error)
	DocContent(ctx context.Context, name string) (string, error)
	Reset(ctx context.Context) error
}

type Handler struct {
	engine Engine
	cache  *cache.QueryCache
	limits config.IngestConfig
	logger *slog.Logger
}

// New builds a Handler. queryCache may be nil when caching is disabled.
func New(engine Engine, queryCache *cache.QueryCache, limits config.IngestConfig) *Handler {
	return &Handler{
		engine: engine,
		cache:  queryCache,
		limits: limits,
		logger: slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("PUT /api/v1/noise-words", h.PutNoiseWords)
	mux.HandleFunc("GET /api/v1/noise-words/words", h.Words)
	mux.HandleFunc("PUT /api/v1/documents/{name}", h.PutDocument)
	mux.HandleFunc("GET /api/v1/documents/{name}", h.GetDocument)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/search", h.Find)
	mux.HandleFunc("GET /api/v1/complete", h.Complete)
	mux.HandleFunc("POST /api/v1/reset", h.Reset)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// PutNoiseWords replaces the noise-word set with the request body.
func (h *Handler) PutNoiseWords(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	if err := h.engine.AddNoiseWords(r.Context(), body); err != nil {
		h.fail(w, r, "add noise words", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type wordsResponse struct {
	Query string   `json:"query"`
	Words []string `json:"words"`
}

// Words shows the search terms q turns into.
func (h *Handler) Words(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	words, err := h.engine.Words(r.Context(), q)
	if err != nil {
		h.fail(w, r, "words", err)
		return
	}
	h.writeJSON(w, http.StatusOK, wordsResponse{Query: q, Words: words})
}

type documentResponse struct {
	Name      string `json:"name"`
	SizeBytes int    `json:"size_bytes"`
}

// PutDocument stores the request body under the name in the path.
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	req := ingestion.IngestRequest{Name: name, Content: body}
	if err := validator.ValidateIngestRequest(&req, h.limits); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.engine.AddContent(r.Context(), name, body); err != nil {
		h.fail(w, r, "add content", err)
		return
	}
	logger.FromContext(r.Context()).Info("document stored", "name", name, "bytes", len(body))
	h.writeJSON(w, http.StatusOK, documentResponse{Name: name, SizeBytes: len(body)})
}

// GetDocument returns a document's original text as plain text.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	text, err := h.engine.DocContent(r.Context(), r.PathValue("name"))
	if err != nil {
		h.fail(w, r, "doc content", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, text); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

type searchResponse struct {
	Query   string          `json:"query,omitempty"`
	Terms   []string        `json:"terms,omitempty"`
	Results []ranker.Result `json:"results"`
}

// Search runs a free-text query from q.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	results, err := h.engine.Search(r.Context(), q)
	if err != nil {
		h.fail(w, r, "search", err)
		return
	}
	logger.FromContext(r.Context()).Info("search completed", "query", q, "results", len(results))
	h.writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: results})
}

type findRequest struct {
	Terms []string `json:"terms"`
}

// Find runs pre-normalized terms given as {"terms": [...]}.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	var req findRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	results, err := h.engine.Find(r.Context(), req.Terms)
	if err != nil {
		h.fail(w, r, "find", err)
		return
	}
	h.writeJSON(w, http.StatusOK, searchResponse{Terms: req.Terms, Results: results})
}

type completeResponse struct {
	Query       string   `json:"query"`
	Completions []string `json:"completions"`
}

// Complete suggests completions for the last word of q.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	words, err := h.engine.Complete(r.Context(), q)
	if err != nil {
		h.fail(w, r, "complete", err)
		return
	}
	h.writeJSON(w, http.StatusOK, completeResponse{Query: q, Completions: words})
}

// Reset drops every document and the noise-word set.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reset(r.Context()); err != nil {
		h.fail(w, r, "reset", err)
		return
	}
	logger.FromContext(r.Context()).Warn("index reset over http")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// readBody reads a plain-text body, bounded by the configured content limit.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	reader := io.Reader(r.Body)
	if h.limits.MaxContentLength > 0 {
		reader = http.MaxBytesReader(w, r.Body, int64(h.limits.MaxContentLength))
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return "", false
		}
		h.writeError(w, http.StatusBadRequest, "reading body failed")
		return "", false
	}
	return string(data), true
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// fail maps err onto a status code. Client errors carry the error text;
// server errors are logged and reported by kind only.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := apperrors.HTTPStatusCode(err)
	resp := errorResponse{Error: err.Error(), Kind: apperrors.Kind(err)}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error(op+" failed", "error", err, "status_code", status)
		resp.Error = op + " failed"
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
