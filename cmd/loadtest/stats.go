package main

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// strategyStats accumulates results for one rerank strategy.
type strategyStats struct {
	requests  int64
	failures  int64
	outcomes  map[string]int64
	statuses  map[int]int64
	latencies []time.Duration
}

// Stats is the load test tally, keyed by the rtype that was requested.
type Stats struct {
	mu         sync.Mutex
	strategies map[string]*strategyStats
}

func NewStats() *Stats {
	return &Stats{strategies: make(map[string]*strategyStats)}
}

// Record adds one request. A transport error is passed as err; outcome is the
// responseHeader.outcome value and is empty when the body was not decoded.
func (s *Stats) Record(strategy string, d time.Duration, status int, outcome string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.strategies[strategy]
	if !ok {
		st = &strategyStats{outcomes: make(map[string]int64), statuses: make(map[int]int64)}
		s.strategies[strategy] = st
	}
	st.requests++
	if err != nil || status < 200 || status >= 300 {
		st.failures++
	}
	if err != nil {
		return
	}
	st.statuses[status]++
	st.latencies = append(st.latencies, d)
	if outcome != "" {
		st.outcomes[outcome]++
	}
}

// Total returns the request count across strategies.
func (s *Stats) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, st := range s.strategies {
		n += st.requests
	}
	return n
}

// percentile returns the p-th percentile of sorted latencies using the
// nearest-rank method.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p/100*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

// Report writes a per-strategy summary to w.
func (s *Stats) Report(w io.Writer, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.strategies))
	for name := range s.strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	var total int64
	for _, name := range names {
		st := s.strategies[name]
		total += st.requests
		lat := append([]time.Duration(nil), st.latencies...)
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })

		fmt.Fprintf(w, "--- rtype=%s ---\n", name)
		fmt.Fprintf(w, "Requests:   %d (failed %d)\n", st.requests, st.failures)
		fmt.Fprintf(w, "Outcomes:  ")
		for _, o := range sortedKeys(st.outcomes) {
			fmt.Fprintf(w, " %s=%d", o, st.outcomes[o])
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Statuses:  ")
		codes := make([]int, 0, len(st.statuses))
		for c := range st.statuses {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		for _, c := range codes {
			fmt.Fprintf(w, " %d=%d", c, st.statuses[c])
		}
		fmt.Fprintln(w)
		if len(lat) > 0 {
			fmt.Fprintf(w, "Latency:    min=%s p50=%s p95=%s p99=%s max=%s\n",
				lat[0], percentile(lat, 50), percentile(lat, 95), percentile(lat, 99), lat[len(lat)-1])
		}
		fmt.Fprintln(w)
	}
	if elapsed > 0 {
		fmt.Fprintf(w, "Throughput: %.1f req/s over %s\n", float64(total)/elapsed.Seconds(), elapsed.Round(time.Millisecond))
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
