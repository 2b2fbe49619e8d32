package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"whoiskit/types"
)

// newTestRedis 启动内存Redis并返回连接它的客户端
func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb, "limit:test", 3, 100*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d rejected within limit", i)
		}
	}

	if allowed, _ := limiter.Allow(ctx, "1.2.3.4"); allowed {
		t.Errorf("fourth request allowed, want rejected")
	}
	if allowed, _ := limiter.Allow(ctx, "5.6.7.8"); !allowed {
		t.Errorf("other key rejected")
	}
	if ttl := mr.TTL("limit:test:1.2.3.4"); ttl <= 0 {
		t.Errorf("window key has no expiry, ttl = %v", ttl)
	}

	// 窗口滑过后旧记录被移除
	time.Sleep(150 * time.Millisecond)
	if allowed, err := limiter.Allow(ctx, "1.2.3.4"); err != nil || !allowed {
		t.Errorf("after window: allowed = %v, err = %v", allowed, err)
	}
}

func TestRateLimiterRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb, "limit:test", 3, time.Minute)
	mr.Close()

	if _, err := limiter.Allow(context.Background(), "1.2.3.4"); err == nil {
		t.Errorf("expected error when redis is unavailable")
	}
}

func healthServices(t *testing.T, status map[string]interface{}) map[string]interface{} {
	t.Helper()
	services, ok := status["services"].(map[string]interface{})
	if !ok {
		t.Fatalf("services missing from %v", status)
	}
	return services
}

func serviceStatus(t *testing.T, services map[string]interface{}, name string) string {
	t.Helper()
	svc, ok := services[name].(map[string]interface{})
	if !ok {
		t.Fatalf("%s missing from %v", name, services)
	}
	status, _ := svc["status"].(string)
	return status
}

func TestRunHealthCheck(t *testing.T) {
	t.Run("redis disabled", func(t *testing.T) {
		lookup := NewLookupService(&MockQuerier{response: mockResponse}, nil, nil, LookupConfig{})
		hc := NewHealthChecker(nil, lookup, time.Hour)
		hc.RunHealthCheck()

		status := hc.GetHealthStatus()
		if status["status"] != "up" {
			t.Errorf("overall = %v, want up", status["status"])
		}
		services := healthServices(t, status)
		if got := serviceStatus(t, services, "redis"); got != "disabled" {
			t.Errorf("redis = %s, want disabled", got)
		}
		if got := serviceStatus(t, services, "whois"); got != "up" {
			t.Errorf("whois = %s, want up", got)
		}
	})

	t.Run("redis up then down", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		hc := NewHealthChecker(rdb, nil, time.Hour)

		hc.RunHealthCheck()
		if got := serviceStatus(t, healthServices(t, hc.GetHealthStatus()), "redis"); got != "up" {
			t.Errorf("redis = %s, want up", got)
		}

		mr.Close()
		hc.RunHealthCheck()
		status := hc.GetHealthStatus()
		if got := serviceStatus(t, healthServices(t, status), "redis"); got != "down" {
			t.Errorf("redis = %s, want down", got)
		}
		if status["status"] != "degraded" {
			t.Errorf("overall = %v, want degraded", status["status"])
		}
	})

	t.Run("open breaker degrades whois", func(t *testing.T) {
		querier := &MockQuerier{err: context.DeadlineExceeded}
		lookup := NewLookupService(querier, nil, nil, LookupConfig{DefaultServer: "whois.down.test:43"})
		for i := 0; i < breakerFailureThreshold; i++ {
			lookup.Lookup(context.Background(), "example.com", types.LookupOptions{})
		}

		hc := NewHealthChecker(nil, lookup, time.Hour)
		hc.RunHealthCheck()
		status := hc.GetHealthStatus()
		if got := serviceStatus(t, healthServices(t, status), "whois"); got != "degraded" {
			t.Errorf("whois = %s, want degraded", got)
		}
		if status["status"] != "degraded" {
			t.Errorf("overall = %v, want degraded", status["status"])
		}
	})
}

func TestLookupUsesRedisCache(t *testing.T) {
	mr, rdb := newTestRedis(t)
	querier := &MockQuerier{response: mockResponse}
	discoverer := &MockDiscoverer{server: "whois.verisign-grs.com:43"}
	svc := NewLookupService(querier, discoverer, rdb, LookupConfig{})

	first, err := svc.Lookup(context.Background(), "example.com", types.LookupOptions{})
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if first.Cached {
		t.Errorf("first lookup marked as cached")
	}

	second, err := svc.Lookup(context.Background(), "example.com", types.LookupOptions{})
	if err != nil {
		t.Fatalf("cached Lookup returned error: %v", err)
	}
	if !second.Cached || second.CachedAt == "" {
		t.Errorf("second lookup not served from cache: %+v", second)
	}
	if got := second.Record.Registrar.OrElse(""); got != "Mock Registrar" {
		t.Errorf("cached Registrar = %q", got)
	}
	if second.Raw != "" {
		t.Errorf("cached Raw should be omitted unless requested")
	}
	if got := len(querier.calls()); got != 1 {
		t.Errorf("querier called %d times, want 1", got)
	}

	// 不读缓存时复用已缓存的服务器，不再查询IANA
	if _, err := svc.Lookup(context.Background(), "other.com", types.LookupOptions{NoCache: true}); err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if discoverer.count != 1 {
		t.Errorf("discoverer called %d times, want 1", discoverer.count)
	}
	if !mr.Exists("whois:server:com") {
		t.Errorf("server mapping not cached, keys = %v", mr.Keys())
	}
}
