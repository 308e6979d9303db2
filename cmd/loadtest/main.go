// Command loadtest drives concurrent search and completion traffic against a
// running search service and prints per-operation latency percentiles.
//
// With -seed it first stores a small corpus and noise-word set so the queries
// have something to match.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 -duration 30s -seed
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

type Config struct {
	BaseURL       string
	Concurrency   int
	Duration      time.Duration
	CompleteRatio int
	Queries       []string
	Prefixes      []string
}

var seedNoise = "the a an of and to in on is it"

var seedDocs = map[string]string{
	"cats.txt":    "The cat sat on the mat\nCats chase mice\nA cat's whiskers twitch",
	"dogs.txt":    "The dog ran in the park\nDogs bark at cats\nA dog's nose is wet",
	"birds.txt":   "Birds sing at dawn\nThe bird sat on a branch\nBirds migrate south",
	"search.txt":  "Search engines match words\nA searcher ranks documents by score\nSearching is fast",
	"caching.txt": "Caches keep hot results\nA cached search skips the store\nCache invalidation is hard",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	completeRatio := flag.Int("complete-ratio", 30, "percentage of requests sent to /api/v1/complete")
	seed := flag.Bool("seed", false, "store sample documents and noise words before the run")
	flag.Parse()

	cfg := Config{
		BaseURL:       strings.TrimRight(*baseURL, "/"),
		Concurrency:   *concurrency,
		Duration:      *duration,
		CompleteRatio: max(0, min(*completeRatio, 100)),
		Queries:       []string{"cat", "the dog ran", "birds sat", "search score", "cache store", "whiskers", "unicorn"},
		Prefixes:      []string{"ca", "Ca", "se", "bi", "do", "wh", "zz"},
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if *seed {
		if err := seedCorpus(context.Background(), client, cfg.BaseURL); err != nil {
			fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("=== Search Load Test ===")
	fmt.Printf("Target:         %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency:    %d\n", cfg.Concurrency)
	fmt.Printf("Duration:       %s\n", cfg.Duration)
	fmt.Printf("Complete ratio: %d%%\n", cfg.CompleteRatio)
	fmt.Println()

	stats := runLoadTest(client, cfg)
	printReport(os.Stdout, stats, cfg.Duration)
	if stats.Total() == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func seedCorpus(ctx context.Context, client *http.Client, baseURL string) error {
	if err := put(ctx, client, baseURL+"/api/v1/noise-words", seedNoise); err != nil {
		return err
	}
	for name, content := range seedDocs {
		if err := put(ctx, client, baseURL+"/api/v1/documents/"+url.PathEscape(name), content); err != nil {
			return err
		}
	}
	fmt.Printf("Seeded %d documents\n\n", len(seedDocs))
	return nil
}

func put(ctx context.Context, client *http.Client, target, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("PUT %s: status %d", target, resp.StatusCode)
	}
	return nil
}

// requestFor picks the n-th request of a worker. Every hundred requests carry
// CompleteRatio completions.
func requestFor(cfg Config, n int) (op, target string) {
	if n%100 < cfg.CompleteRatio {
		prefix := cfg.Prefixes[n%len(cfg.Prefixes)]
		return "complete", fmt.Sprintf("%s/api/v1/complete?q=%s", cfg.BaseURL, url.QueryEscape(prefix))
	}
	query := cfg.Queries[n%len(cfg.Queries)]
	return "search", fmt.Sprintf("%s/api/v1/search?q=%s", cfg.BaseURL, url.QueryEscape(query))
}

func runLoadTest(client *http.Client, cfg Config) *Stats {
	stats := NewStats()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")
	for w := range cfg.Concurrency {
		wg.Go(func() {
			for n := w; ctx.Err() == nil; n++ {
				op, target := requestFor(cfg, n)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					stats.Record(op, 0, 0, err)
					return
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.Record(op, elapsed, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.Record(op, elapsed, resp.StatusCode, nil)
			}
		})
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}
