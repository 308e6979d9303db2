// Package validator checks ingestion requests against the configured name
// and content limits and reports per-field failures.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// Unwrap lets callers map validation failures with apperrors.HTTPStatusCode.
func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateIngestRequest checks that the name is usable as a document key
// and that both fields fit within limits. Empty content is allowed; it
// stores a document with a single empty line.
func ValidateIngestRequest(req *ingestion.IngestRequest, limits config.IngestConfig) error {
	errs := make(map[string]string)

	switch name := req.Name; {
	case strings.TrimSpace(name) == "":
		errs["name"] = "name is required"
	case strings.ContainsAny(name, "/\n"):
		errs["name"] = "name must not contain '/' or newlines"
	case strings.HasPrefix(name, "."):
		// the lookup key is everything before the first '.', which would be empty
		errs["name"] = "name must not start with '.'"
	case limits.MaxNameLength > 0 && len(name) > limits.MaxNameLength:
		errs["name"] = fmt.Sprintf("name must be at most %d bytes", limits.MaxNameLength)
	}
	if limits.MaxContentLength > 0 && len(req.Content) > limits.MaxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", limits.MaxContentLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
