// Command loadtest drives GET /api/v1/rerank with a fixed number of workers
// and reports outcomes and latency per rerank strategy.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-rtypes rm3,ax,id] [-queries queries.txt]
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

var defaultQueries = []string{
	"solar panel efficiency",
	"wind turbine maintenance",
	"desert water harvesting",
	"battery storage cost",
	"grid frequency regulation",
	"offshore wind farm",
	"photovoltaic cell degradation",
	"hydrogen fuel cell",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Strategies  []string
	Queries     []string
	Rows        int
}

// target pairs a query with the strategy used to rerank it.
type target struct {
	query    string
	strategy string
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the rerank service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	rtypes := flag.String("rtypes", "rm3,ax,id", "comma separated rerank strategies to rotate through")
	queriesPath := flag.String("queries", "", "file with one query per line")
	rows := flag.Int("rows", 10, "rows requested per query")
	flag.Parse()

	queries := defaultQueries
	if *queriesPath != "" {
		loaded, err := readQueries(*queriesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
		queries = loaded
	}
	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Strategies:  splitList(*rtypes),
		Queries:     queries,
		Rows:        *rows,
	}
	if len(cfg.Queries) == 0 || len(cfg.Strategies) == 0 || cfg.Concurrency < 1 {
		fmt.Fprintln(os.Stderr, "need at least one query, one strategy and one worker")
		os.Exit(2)
	}

	fmt.Println("=== Rerank Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Strategies:  %s\n", strings.Join(cfg.Strategies, ","))
	fmt.Printf("Queries:     %d unique\n\n", len(cfg.Queries))

	start := time.Now()
	stats := run(context.Background(), cfg)
	stats.Report(os.Stdout, time.Since(start))
}

func run(parent context.Context, cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(parent, cfg.Duration)
	defer cancel()

	targets := make([]target, 0, len(cfg.Queries)*len(cfg.Strategies))
	for _, q := range cfg.Queries {
		for _, s := range cfg.Strategies {
			targets = append(targets, target{query: q, strategy: s})
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		next := w
		g.Go(func() error {
			for ctx.Err() == nil {
				t := targets[next%len(targets)]
				next++
				begin := time.Now()
				status, outcome, err := fire(ctx, client, cfg, t)
				if ctx.Err() != nil {
					return nil
				}
				stats.Record(t.strategy, time.Since(begin), status, outcome, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return stats
}

// fire issues one rerank request and returns the status code and the
// outcome reported in the response header.
func fire(ctx context.Context, client *http.Client, cfg Config, t target) (int, string, error) {
	params := url.Values{}
	params.Set("q", t.query)
	params.Set("rtype", t.strategy)
	params.Set("rows", fmt.Sprint(cfg.Rows))
	params.Set("fl", "id")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/api/v1/rerank?"+params.Encode(), nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, "", nil
	}
	return resp.StatusCode, decodeOutcome(resp.Body), nil
}

// decodeOutcome pulls responseHeader.outcome out of a rerank response.
func decodeOutcome(r io.Reader) string {
	var body struct {
		Header struct {
			Outcome string `json:"outcome"`
		} `json:"responseHeader"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return "undecodable"
	}
	return body.Header.Outcome
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" && !strings.HasPrefix(q, "#") {
			out = append(out, q)
		}
	}
	return out, sc.Err()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
