// Package tracing records in-process span trees for a request and logs them
// through slog when the trace is sampled. The context carries the current
// span so nested stages attach themselves as children.
package tracing

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
)

type contextKey struct{}

// Sampler decides which traces are logged. Rate is the sampled fraction in
// [0,1]; traces with the same id always get the same decision.
type Sampler struct {
	Enabled bool
	Rate    float64
}

var defaultSampler atomic.Value

func init() {
	defaultSampler.Store(Sampler{Enabled: true, Rate: 1})
}

// Configure installs the sampler described by cfg for all later root spans.
func Configure(cfg config.TracingConfig) {
	SetSampler(Sampler{Enabled: cfg.Enabled, Rate: cfg.SampleRate})
}

func SetSampler(s Sampler) {
	defaultSampler.Store(s)
}

func (s Sampler) sample(traceID string) bool {
	switch {
	case !s.Enabled || s.Rate <= 0:
		return false
	case s.Rate >= 1:
		return true
	case traceID == "":
		return rand.Float64() < s.Rate
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(traceID))
	return float64(h.Sum64()%10000)/10000 < s.Rate
}

// Span is one timed stage of a trace.
type Span struct {
	Name      string
	TraceID   string
	Sampled   bool
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any
	mu        sync.Mutex
}

func newSpan(name, traceID string, sampled bool) *Span {
	return &Span{
		Name:      name,
		TraceID:   traceID,
		Sampled:   sampled,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
}

// StartSpan begins a root span and stores it in the returned context.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	sampler := defaultSampler.Load().(Sampler)
	span := newSpan(name, traceID, sampler.sample(traceID))
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChildSpan begins a span under the one in ctx. Without a parent it
// starts an unsampled detached span.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	var child *Span
	if parent == nil {
		child = newSpan(name, "", false)
	} else {
		child = newSpan(name, parent.TraceID, parent.Sampled)
		parent.mu.Lock()
		parent.Children = append(parent.Children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, child), child
}

// End records the end time and duration.
func (s *Span) End() {
	s.mu.Lock()
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	s.mu.Unlock()
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// Attr returns the attribute stored under key.
func (s *Span) Attr(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.Attrs[key]
	return v, ok
}

// SpanFromContext returns the current span in ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// Log writes the span tree to slog, one record per span, if the trace is
// sampled. Spans still running are logged with their elapsed time.
func (s *Span) Log() {
	if !s.Sampled {
		return
	}
	s.logRecursive(0)
}

func (s *Span) logRecursive(depth int) {
	s.mu.Lock()
	duration := s.Duration
	if s.EndTime.IsZero() {
		duration = time.Since(s.StartTime)
	}
	keys := make([]string, 0, len(s.Attrs))
	for k := range s.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", duration.Milliseconds(),
		"depth", depth,
	}
	for _, k := range keys {
		attrs = append(attrs, k, s.Attrs[k])
	}
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()

	slog.Info("span", attrs...)
	for _, child := range children {
		child.logRecursive(depth + 1)
	}
}
