package cache

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/redis"
)

type response struct {
	Docs []string `json:"docs"`
}

func newTestCache(t *testing.T) (*ResponseCache, *miniredis.Miniredis, *metrics.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := pkgredis.NewClient(config.RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })
	m := metrics.New(nil)
	return New(client, time.Minute, m), mr, m
}

func TestGetOrComputeHitAndMiss(t *testing.T) {
	c, _, m := newTestCache(t)
	ctx := context.Background()
	key := Key(url.Values{"q": {"solar"}})
	calls := 0
	compute := func(context.Context) (any, bool, error) {
		calls++
		return response{Docs: []string{"d1", "d2"}}, true, nil
	}

	var first response
	hit, err := c.GetOrCompute(ctx, key, &first, compute)
	if err != nil || hit {
		t.Fatalf("expected miss, got hit=%v err=%v", hit, err)
	}
	var second response
	hit, err = c.GetOrCompute(ctx, key, &second, compute)
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if calls != 1 || len(second.Docs) != 2 || second.Docs[1] != "d2" {
		t.Errorf("expected one computation and cached docs, got calls=%d docs=%v", calls, second.Docs)
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit 1 miss, got %d/%d", hits, misses)
	}
	if testutil.ToFloat64(m.CacheHitsTotal) != 1 {
		t.Error("expected hit counter incremented")
	}
}

func TestGetOrComputeSkipsStore(t *testing.T) {
	c, mr, _ := newTestCache(t)
	key := Key(url.Values{"q": {"wind"}})
	var dst response
	_, err := c.GetOrCompute(context.Background(), key, &dst, func(context.Context) (any, bool, error) {
		return response{Docs: []string{"d3"}}, false, nil
	})
	if err != nil || len(dst.Docs) != 1 {
		t.Fatalf("expected computed value, got %v err=%v", dst, err)
	}
	if mr.Exists(key) {
		t.Error("expected degraded response not to be cached")
	}
}

func TestGetOrComputeError(t *testing.T) {
	c, _, _ := newTestCache(t)
	boom := errors.New("boom")
	var dst response
	_, err := c.GetOrCompute(context.Background(), "rerank:x", &dst, func(context.Context) (any, bool, error) {
		return nil, false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected compute error, got %v", err)
	}
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	c, _, _ := newTestCache(t)
	var calls atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var dst response
			c.GetOrCompute(context.Background(), "rerank:shared", &dst, func(context.Context) (any, bool, error) {
				calls.Add(1)
				<-release
				return response{Docs: []string{"d1"}}, true, nil
			})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if n := calls.Load(); n != 1 {
		t.Errorf("expected one shared computation, got %d", n)
	}
}

func TestGetOrComputeOutlivesCancelledCaller(t *testing.T) {
	c, _, _ := newTestCache(t)
	key := Key(url.Values{"q": {"tidal"}})
	started := make(chan struct{})
	release := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		var dst response
		_, err := c.GetOrCompute(ctx, key, &dst, func(ctx context.Context) (any, bool, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}
			return response{Docs: []string{"d7"}}, true, nil
		})
		errc <- err
	}()
	<-started
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to see context.Canceled, got %v", err)
	}

	close(release)
	var dst response
	_, err := c.GetOrCompute(context.Background(), key, &dst, func(context.Context) (any, bool, error) {
		t.Error("expected the in-flight or cached result to be reused")
		return nil, false, nil
	})
	if err != nil || len(dst.Docs) != 1 || dst.Docs[0] != "d7" {
		t.Errorf("expected d7 from the shared computation, got %v err=%v", dst, err)
	}
}

func TestInvalidate(t *testing.T) {
	c, mr, _ := newTestCache(t)
	ctx := context.Background()
	c.Set(ctx, Key(url.Values{"q": {"a"}}), response{})
	c.Set(ctx, Key(url.Values{"q": {"b"}}), response{})
	mr.Set("unrelated", "1")
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if len(mr.Keys()) != 1 {
		t.Errorf("expected only the unrelated key to remain, got %v", mr.Keys())
	}
}

func TestKeyNormalization(t *testing.T) {
	a := Key(url.Values{"q": {"Solar  Power"}, "fq": {"lang:en", "cat:x"}, "rtype": {"rm3"}})
	b := Key(url.Values{"rtype": {"rm3"}, "fq": {"cat:x", "lang:en"}, "q": {"solar power"}})
	if a != b {
		t.Error("expected equivalent requests to share a key")
	}
	if a == Key(url.Values{"q": {"solar power"}, "rtype": {"ax"}}) {
		t.Error("expected different strategies to differ")
	}
}
