package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"time"
)

// Stats accumulates per-operation request outcomes from every worker.
type Stats struct {
	mu  sync.Mutex
	ops map[string]*opStats
}

type opStats struct {
	total       int64
	errors      int64
	latencies   []time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{ops: make(map[string]*opStats)}
}

// Record stores one request to op. A transport error has no status code.
func (s *Stats) Record(op string, duration time.Duration, statusCode int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ops[op]
	if !ok {
		o = &opStats{statusCodes: make(map[int]int64)}
		s.ops[op] = o
	}
	o.total++
	if err != nil {
		o.errors++
		return
	}
	if statusCode < 200 || statusCode >= 300 {
		o.errors++
	}
	o.latencies = append(o.latencies, duration)
	o.statusCodes[statusCode]++
}

// Total returns the number of requests recorded across operations.
func (s *Stats) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, o := range s.ops {
		n += o.total
	}
	return n
}

// Summary is the latency distribution of one operation.
type Summary struct {
	Op          string
	Total       int64
	Errors      int64
	Min, Max    time.Duration
	Avg, StdDev time.Duration
	P50, P90    time.Duration
	P95, P99    time.Duration
	StatusCodes map[int]int64
}

// Summaries returns one Summary per operation, ordered by name.
func (s *Stats) Summaries() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.ops))
	for name := range s.ops {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]Summary, 0, len(names))
	for _, name := range names {
		o := s.ops[name]
		sum := Summary{Op: name, Total: o.total, Errors: o.errors, StatusCodes: make(map[int]int64, len(o.statusCodes))}
		for code, n := range o.statusCodes {
			sum.StatusCodes[code] = n
		}
		latencies := slices.Clone(o.latencies)
		slices.Sort(latencies)
		if len(latencies) > 0 {
			var total time.Duration
			for _, l := range latencies {
				total += l
			}
			sum.Avg = total / time.Duration(len(latencies))
			var sq float64
			for _, l := range latencies {
				diff := float64(l - sum.Avg)
				sq += diff * diff
			}
			sum.StdDev = time.Duration(math.Sqrt(sq / float64(len(latencies))))
			sum.Min = latencies[0]
			sum.Max = latencies[len(latencies)-1]
			sum.P50 = percentile(latencies, 50)
			sum.P90 = percentile(latencies, 90)
			sum.P95 = percentile(latencies, 95)
			sum.P99 = percentile(latencies, 99)
		}
		out = append(out, sum)
	}
	return out
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

func printReport(w io.Writer, stats *Stats, duration time.Duration) {
	fmt.Fprintln(w, "=== Results ===")
	for _, s := range stats.Summaries() {
		fmt.Fprintf(w, "\n[%s]\n", s.Op)
		fmt.Fprintf(w, "Requests:     %d\n", s.Total)
		fmt.Fprintf(w, "Errors:       %d (%.2f%%)\n", s.Errors, float64(s.Errors)/float64(s.Total)*100)
		fmt.Fprintf(w, "Requests/sec: %.2f\n", float64(s.Total)/duration.Seconds())
		fmt.Fprintf(w, "Latency:      min %s  avg %s  max %s  stddev %s\n", s.Min, s.Avg, s.Max, s.StdDev)
		fmt.Fprintf(w, "Percentiles:  p50 %s  p90 %s  p95 %s  p99 %s\n", s.P50, s.P90, s.P95, s.P99)
		codes := make([]int, 0, len(s.StatusCodes))
		for code := range s.StatusCodes {
			codes = append(codes, code)
		}
		slices.Sort(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "  %d: %d\n", code, s.StatusCodes[code])
		}
	}
}
