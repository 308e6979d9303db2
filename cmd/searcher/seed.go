package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type noiseWordAdder interface {
	AddNoiseWords(ctx context.Context, text string) error
}

// seedNoiseWords replaces the noise-word set with the contents of path.
// An empty path leaves the stored set untouched.
func seedNoiseWords(ctx context.Context, e noiseWordAdder, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading noise words file %s: %w", path, err)
	}
	if err := e.AddNoiseWords(ctx, string(data)); err != nil {
		return fmt.Errorf("seeding noise words: %w", err)
	}
	slog.Info("noise words seeded", "file", path, "words", len(strings.Fields(string(data))))
	return nil
}

// storeScheme keeps credentials in the store URL out of the logs.
func storeScheme(url string) string {
	scheme, _, _ := strings.Cut(url, "://")
	return scheme
}
