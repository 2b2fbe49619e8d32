package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"whoiskit/pkg/parser"
	"whoiskit/providers"
	"whoiskit/types"
)

const mockResponse = "Domain Name: EXAMPLE.COM\r\n" +
	"Registrar: Mock Registrar\r\n" +
	"Registry Expiry Date: 2030-08-13T04:00:00Z\r\n" +
	"Name Server: A.IANA-SERVERS.NET\r\n" +
	"Name Server: B.IANA-SERVERS.NET\r\n"

// MockQuerier 模拟WHOIS服务器用于测试
type MockQuerier struct {
	response string
	err      error
	delay    time.Duration

	mu      sync.Mutex
	queries []string // server|domain
}

func (m *MockQuerier) Query(ctx context.Context, server, domain string) (string, error) {
	m.mu.Lock()
	m.queries = append(m.queries, server+"|"+domain)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *MockQuerier) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// MockDiscoverer 模拟IANA服务器发现
type MockDiscoverer struct {
	server string
	err    error
	count  int
}

func (m *MockDiscoverer) DiscoverServer(ctx context.Context, domain string) (string, error) {
	m.count++
	return m.server, m.err
}

func TestLookupParsesResponse(t *testing.T) {
	querier := &MockQuerier{response: mockResponse}
	discoverer := &MockDiscoverer{server: "whois.verisign-grs.com:43"}
	svc := NewLookupService(querier, discoverer, nil, LookupConfig{})

	resp, err := svc.Lookup(context.Background(), "https://Example.COM/path", types.LookupOptions{})
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}

	if resp.Domain != "example.com" {
		t.Errorf("Domain = %q, want example.com", resp.Domain)
	}
	if resp.Server != "whois.verisign-grs.com:43" {
		t.Errorf("Server = %q", resp.Server)
	}
	if got := resp.Record.Registrar.OrElse(""); got != "Mock Registrar" {
		t.Errorf("Registrar = %q", got)
	}
	if got := resp.Record.NameServerList(); len(got) != 2 {
		t.Errorf("NameServers = %v, want 2 entries", got)
	}
	if resp.Raw != "" {
		t.Errorf("Raw should be omitted unless requested")
	}
	if resp.Cached {
		t.Errorf("fresh result marked as cached")
	}

	calls := querier.calls()
	if len(calls) != 1 || calls[0] != "whois.verisign-grs.com:43|example.com" {
		t.Errorf("unexpected queries: %v", calls)
	}
}

func TestLookupIncludeRaw(t *testing.T) {
	svc := NewLookupService(&MockQuerier{response: mockResponse}, nil, nil, LookupConfig{})

	resp, err := svc.Lookup(context.Background(), "example.com", types.LookupOptions{IncludeRaw: true})
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if resp.Raw != mockResponse {
		t.Errorf("Raw not returned as received")
	}
}

func TestLookupExplicitServerSkipsDiscovery(t *testing.T) {
	querier := &MockQuerier{response: mockResponse}
	discoverer := &MockDiscoverer{server: "whois.example.net:43"}
	svc := NewLookupService(querier, discoverer, nil, LookupConfig{})

	resp, err := svc.Lookup(context.Background(), "example.com", types.LookupOptions{Server: "WHOIS.Custom.test"})
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if resp.Server != "whois.custom.test:43" {
		t.Errorf("Server = %q", resp.Server)
	}
	if discoverer.count != 0 {
		t.Errorf("discovery should be skipped, called %d times", discoverer.count)
	}
}

func TestLookupDiscoveryFailureFallsBackToDefault(t *testing.T) {
	querier := &MockQuerier{response: mockResponse}
	discoverer := &MockDiscoverer{err: errors.New("iana unreachable")}
	svc := NewLookupService(querier, discoverer, nil, LookupConfig{DefaultServer: "whois.fallback.test:43"})

	resp, err := svc.Lookup(context.Background(), "example.com", types.LookupOptions{})
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if resp.Server != "whois.fallback.test:43" {
		t.Errorf("Server = %q, want fallback", resp.Server)
	}
}

func TestLookupNoAuthoritativeServer(t *testing.T) {
	querier := &MockQuerier{response: mockResponse}
	discoverer := &MockDiscoverer{err: fmt.Errorf("nosuchtld: %w", providers.ErrNoWhoisServer)}
	svc := NewLookupService(querier, discoverer, nil, LookupConfig{DefaultServer: "whois.fallback.test:43"})

	_, err := svc.Lookup(context.Background(), "example.nosuchtld", types.LookupOptions{})
	if !errors.Is(err, providers.ErrNoWhoisServer) {
		t.Fatalf("error = %v, want ErrNoWhoisServer", err)
	}
	if calls := querier.calls(); len(calls) != 0 {
		t.Errorf("unexpected queries: %v", calls)
	}
}

// 默认服务器就是IANA根服务器时不回退，否则会把顶级域名的记录当成域名记录返回
func TestLookupDiscoveryFailureNoFallbackToRoot(t *testing.T) {
	for _, defaultServer := range []string{"", "whois.iana.org", "WHOIS.IANA.ORG:43"} {
		querier := &MockQuerier{response: "domain: COM\r\n"}
		discoverer := &MockDiscoverer{err: errors.New("iana unreachable")}
		svc := NewLookupService(querier, discoverer, nil, LookupConfig{DefaultServer: defaultServer})

		if _, err := svc.Lookup(context.Background(), "example.com", types.LookupOptions{}); err == nil {
			t.Errorf("default %q: expected error", defaultServer)
		}
		if calls := querier.calls(); len(calls) != 0 {
			t.Errorf("default %q: unexpected queries: %v", defaultServer, calls)
		}
	}
}

func TestLookupRejectsMultiLineDomain(t *testing.T) {
	querier := &MockQuerier{response: mockResponse}
	svc := NewLookupService(querier, nil, nil, LookupConfig{})

	for _, domain := range []string{"a.com\r\nflushall", "a.com\nset pwned 1", "a .com", "a.com\x00"} {
		if _, err := svc.Lookup(context.Background(), domain, types.LookupOptions{}); !errors.Is(err, providers.ErrInvalidQuery) {
			t.Errorf("Lookup(%q) error = %v, want ErrInvalidQuery", domain, err)
		}
	}
	if calls := querier.calls(); len(calls) != 0 {
		t.Errorf("unexpected queries: %v", calls)
	}
}

func TestLookupExplicitServerPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		server  string
		wantErr bool
	}{
		{"default port", nil, "whois.gandi.net", false},
		{"explicit 43", nil, "whois.gandi.net:43", false},
		{"other port", nil, "127.0.0.1:6379", true},
		{"control characters", nil, "whois.test\r\n:43", true},
		{"in allowlist", []string{"whois.gandi.net", "whois.verisign-grs.com:43"}, "WHOIS.VERISIGN-GRS.COM", false},
		{"not in allowlist", []string{"whois.gandi.net"}, "internal.corp", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			querier := &MockQuerier{response: mockResponse}
			svc := NewLookupService(querier, nil, nil, LookupConfig{AllowedServers: tt.allowed})

			_, err := svc.Lookup(context.Background(), "example.com", types.LookupOptions{Server: tt.server})
			if tt.wantErr {
				if !errors.Is(err, ErrServerNotAllowed) {
					t.Errorf("error = %v, want ErrServerNotAllowed", err)
				}
				if calls := querier.calls(); len(calls) != 0 {
					t.Errorf("unexpected queries: %v", calls)
				}
				return
			}
			if err != nil {
				t.Errorf("Lookup returned error: %v", err)
			}
		})
	}
}

func TestLookupBreakerTableBounded(t *testing.T) {
	querier := &MockQuerier{response: mockResponse}
	svc := NewLookupService(querier, nil, nil, LookupConfig{})
	svc.maxBreakers = 4

	for i := 0; i < 20; i++ {
		server := fmt.Sprintf("whois%d.test", i)
		if _, err := svc.Lookup(context.Background(), "example.com", types.LookupOptions{Server: server, NoCache: true}); err != nil {
			t.Fatalf("Lookup via %s returned error: %v", server, err)
		}
		if got := len(svc.BreakerStatus()); got > 4 {
			t.Fatalf("tracked %d servers, want at most 4", got)
		}
	}

	// 带失败记录的服务器不会被清理，表满后新服务器不再登记
	failing := &MockQuerier{err: errors.New("connection refused")}
	svc = NewLookupService(failing, nil, nil, LookupConfig{})
	svc.maxBreakers = 2
	for i := 0; i < 5; i++ {
		svc.Lookup(context.Background(), "example.com", types.LookupOptions{Server: fmt.Sprintf("whois%d.test", i)})
	}
	status := svc.BreakerStatus()
	if len(status) != 2 {
		t.Fatalf("tracked %d servers, want 2", len(status))
	}
	for _, server := range []string{"whois0.test:43", "whois1.test:43"} {
		if status[server].FailureCount != 1 {
			t.Errorf("%s status = %+v", server, status[server])
		}
	}
}

func TestLookupEmptyDomain(t *testing.T) {
	svc := NewLookupService(&MockQuerier{response: mockResponse}, nil, nil, LookupConfig{})

	for _, domain := range []string{"", "   ", "https://"} {
		if _, err := svc.Lookup(context.Background(), domain, types.LookupOptions{}); !errors.Is(err, ErrDomainRequired) {
			t.Errorf("Lookup(%q) error = %v, want ErrDomainRequired", domain, err)
		}
	}
}

func TestLookupEmptyResponseIsParseError(t *testing.T) {
	svc := NewLookupService(&MockQuerier{response: "  \r\n"}, nil, nil, LookupConfig{})

	_, err := svc.Lookup(context.Background(), "example.com", types.LookupOptions{})
	if !errors.Is(err, parser.ErrEmptyInput) {
		t.Fatalf("error = %v, want parser.ErrEmptyInput", err)
	}
}

func TestLookupBreakerOpensAfterFailures(t *testing.T) {
	querier := &MockQuerier{err: errors.New("connection refused")}
	svc := NewLookupService(querier, nil, nil, LookupConfig{DefaultServer: "whois.down.test:43"})

	for i := 0; i < breakerFailureThreshold; i++ {
		if _, err := svc.Lookup(context.Background(), "example.com", types.LookupOptions{}); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}

	_, err := svc.Lookup(context.Background(), "example.com", types.LookupOptions{})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
	if got := len(querier.calls()); got != breakerFailureThreshold {
		t.Errorf("querier called %d times, want %d", got, breakerFailureThreshold)
	}

	status := svc.BreakerStatus()
	if status["whois.down.test:43"].State != "open" {
		t.Errorf("breaker status = %+v", status)
	}
}

func TestLookupCancelDoesNotTripBreaker(t *testing.T) {
	querier := &MockQuerier{response: mockResponse, delay: time.Second}
	svc := NewLookupService(querier, nil, nil, LookupConfig{DefaultServer: "whois.slow.test:43"})

	for i := 0; i < breakerFailureThreshold+1; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := svc.Lookup(ctx, "example.com", types.LookupOptions{})
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("attempt %d: error = %v, want deadline exceeded", i, err)
		}
	}

	if state := svc.BreakerStatus()["whois.slow.test:43"].State; state != "closed" {
		t.Errorf("breaker state = %s, want closed", state)
	}
}

func TestCacheDuration(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		record parser.Record
		want   time.Duration
	}{
		{"no expiry", parser.Record{}, DefaultCacheTTL},
		{"expires soon", parser.Record{RegistryExpirityDate: parser.Some(now.Add(5 * 24 * time.Hour))}, time.Hour},
		{"within month", parser.Record{RegistryExpirityDate: parser.Some(now.Add(20 * 24 * time.Hour))}, 6 * time.Hour},
		{"within quarter", parser.Record{RegistryExpirityDate: parser.Some(now.Add(60 * 24 * time.Hour))}, 12 * time.Hour},
		{"far future", parser.Record{RegistryExpirityDate: parser.Some(now.Add(400 * 24 * time.Hour))}, DefaultCacheTTL},
		{"already expired", parser.Record{RegistryExpirityDate: parser.Some(now.Add(-24 * time.Hour))}, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CacheDuration(tt.record, now); got != tt.want {
				t.Errorf("CacheDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestLookupConcurrency 并发查询同一服务器
func TestLookupConcurrency(t *testing.T) {
	querier := &MockQuerier{response: mockResponse, delay: time.Millisecond}
	svc := NewLookupService(querier, nil, nil, LookupConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Lookup(context.Background(), "example.com", types.LookupOptions{}); err != nil {
				t.Errorf("Lookup returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(querier.calls()); got != 20 {
		t.Errorf("querier called %d times, want 20", got)
	}
}
