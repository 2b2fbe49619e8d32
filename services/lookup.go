/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2026-01-14
 * @Description: WHOIS查询服务 - 服务器发现、TCP查询、解析与缓存
 */
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"whoiskit/pkg/logger"
	"whoiskit/pkg/parser"
	"whoiskit/providers"
	"whoiskit/types"
	"whoiskit/utils"
)

const (
	CachePrefix     = "whois"
	ServerCacheTTL  = 7 * 24 * time.Hour // 顶级域名 -> 服务器 映射缓存一周
	DefaultCacheTTL = 24 * time.Hour

	breakerFailureThreshold = 3
	breakerResetTimeout     = 60 * time.Second
	// maxTrackedServers 熔断器表的容量上限
	maxTrackedServers = 256
)

var (
	// ErrDomainRequired 域名为空
	ErrDomainRequired = errors.New("domain required")
	// ErrServerNotAllowed 指定的WHOIS服务器不在允许范围内
	ErrServerNotAllowed = errors.New("whois server not allowed")
)

// Querier 向WHOIS服务器发送一次查询并返回完整原始响应
type Querier interface {
	Query(ctx context.Context, server, domain string) (string, error)
}

// ServerDiscoverer 查找域名对应的权威WHOIS服务器
type ServerDiscoverer interface {
	DiscoverServer(ctx context.Context, domain string) (string, error)
}

// LookupConfig 查询服务配置
type LookupConfig struct {
	DefaultServer  string         // 发现失败时使用的服务器
	Parser         *parser.Parser // 为空时使用默认解析器
	AllowedServers []string       // 允许调用方指定的服务器主机，为空时只限制端口为43
}

// LookupService 查询并解析WHOIS记录
type LookupService struct {
	querier       Querier
	discoverer    ServerDiscoverer
	parser        *parser.Parser
	rdb           *redis.Client
	defaultServer string
	allowed       map[string]struct{}

	mu          sync.Mutex
	breakers    map[string]*CircuitBreaker
	maxBreakers int
}

// NewLookupService 创建查询服务，rdb和discoverer可以为nil
func NewLookupService(querier Querier, discoverer ServerDiscoverer, rdb *redis.Client, cfg LookupConfig) *LookupService {
	if cfg.Parser == nil {
		cfg.Parser = parser.New()
	}
	if cfg.DefaultServer == "" {
		cfg.DefaultServer = providers.IANAServer
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedServers))
	for _, server := range cfg.AllowedServers {
		if host := serverHost(server); host != "" {
			allowed[host] = struct{}{}
		}
	}
	return &LookupService{
		querier:       querier,
		discoverer:    discoverer,
		parser:        cfg.Parser,
		rdb:           rdb,
		defaultServer: providers.NormalizeServer(cfg.DefaultServer),
		allowed:       allowed,
		breakers:      make(map[string]*CircuitBreaker),
		maxBreakers:   maxTrackedServers,
	}
}

// Lookup 查询domain的WHOIS记录
func (s *LookupService) Lookup(ctx context.Context, domain string, opts types.LookupOptions) (*types.WhoisResponse, error) {
	log := logger.FromContext(ctx, "Lookup")

	domain = utils.SanitizeDomain(domain)
	if domain == "" {
		return nil, ErrDomainRequired
	}
	if err := providers.ValidateQuery(domain); err != nil {
		return nil, fmt.Errorf("domain %q: %w", domain, err)
	}

	serverPart := "auto"
	if opts.Server != "" {
		server, err := s.checkServer(opts.Server)
		if err != nil {
			return nil, err
		}
		opts.Server = server
		serverPart = server
	}
	cacheKey := utils.BuildCacheKey(CachePrefix, serverPart, domain)

	if !opts.NoCache {
		if cached, ok := s.checkCache(ctx, cacheKey); ok {
			log.Debugf("命中缓存: %s", domain)
			cached.Cached = true
			if !opts.IncludeRaw {
				cached.Raw = ""
			}
			return cached, nil
		}
	}

	server, err := s.resolveServer(ctx, domain, opts.Server)
	if err != nil {
		return nil, err
	}

	raw, err := s.query(ctx, server, domain)
	if err != nil {
		log.Warnf("查询 %s 失败: server=%s err=%v", domain, server, err)
		return nil, err
	}

	record, err := s.parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse response from %s: %w", server, err)
	}
	if record.IsEmpty() {
		log.Warnf("%s 的响应中没有识别到任何字段: %s", server, utils.TruncateString(raw, 200))
	}

	response := &types.WhoisResponse{
		Domain:    domain,
		Server:    server,
		Record:    record,
		Raw:       raw,
		QueriedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.cacheResponse(ctx, cacheKey, response)

	if !opts.IncludeRaw {
		response.Raw = ""
	}

	log.Infof("WHOIS查询完成 - 域名: %s, 服务器: %s, 原始长度: %d",
		domain, server, len(raw))
	return response, nil
}

// Parse 使用服务配置的解析器解析原始文本
func (s *LookupService) Parse(raw string) (parser.Record, error) {
	return s.parser.Parse(raw)
}

// resolveServer 优先使用指定服务器，其次是缓存或IANA发现的结果
func (s *LookupService) resolveServer(ctx context.Context, domain, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if s.discoverer == nil {
		return s.defaultServer, nil
	}

	tld := providers.TopLevelDomain(domain)
	key := utils.BuildCacheKey(CachePrefix, "server", tld)

	if s.rdb != nil {
		if server, err := s.rdb.Get(ctx, key).Result(); err == nil && server != "" {
			return server, nil
		}
	}

	server, err := s.discoverer.DiscoverServer(ctx, domain)
	if err != nil {
		// 找不到权威服务器或默认服务器就是IANA时不回退
		if ctx.Err() != nil || errors.Is(err, providers.ErrNoWhoisServer) || s.defaultIsRoot() {
			return "", err
		}
		logger.FromContext(ctx, "Lookup").Warnf("发现 %s 的WHOIS服务器失败，使用默认服务器 %s: %v",
			tld, s.defaultServer, err)
		return s.defaultServer, nil
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, server, ServerCacheTTL).Err(); err != nil {
			logger.FromContext(ctx, "Lookup").Warnf("缓存WHOIS服务器失败: %v", err)
		}
	}
	return server, nil
}

// checkServer 调用方指定的服务器只能使用43端口，配置了允许列表时主机必须在列表中
func (s *LookupService) checkServer(server string) (string, error) {
	addr := providers.NormalizeServer(server)
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" || providers.ValidateQuery(host) != nil {
		return "", fmt.Errorf("%q: %w", server, ErrServerNotAllowed)
	}
	if port != providers.DefaultPort {
		return "", fmt.Errorf("%q: port must be %s: %w", server, providers.DefaultPort, ErrServerNotAllowed)
	}
	if len(s.allowed) > 0 {
		if _, ok := s.allowed[strings.ToLower(host)]; !ok {
			return "", fmt.Errorf("%q: %w", server, ErrServerNotAllowed)
		}
	}
	return net.JoinHostPort(strings.ToLower(host), port), nil
}

func (s *LookupService) defaultIsRoot() bool {
	return serverHost(s.defaultServer) == serverHost(providers.IANAServer)
}

// serverHost 返回小写主机名，无法解析时返回空
func serverHost(server string) string {
	host, _, err := net.SplitHostPort(providers.NormalizeServer(server))
	if err != nil {
		return ""
	}
	return strings.ToLower(host)
}

// query 经过熔断器向服务器发起查询，调用方取消不计入失败次数
func (s *LookupService) query(ctx context.Context, server, domain string) (string, error) {
	breaker := s.breakerFor(server)
	if !breaker.AllowRequest() {
		return "", fmt.Errorf("whois server %s: %w", server, ErrCircuitOpen)
	}

	raw, err := s.querier.Query(ctx, server, domain)
	if err != nil && ctx.Err() != nil {
		return "", err
	}
	breaker.RecordResult(err == nil)
	return raw, err
}

func (s *LookupService) breakerFor(server string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.breakers[server]
	if ok {
		return cb
	}

	cb = NewCircuitBreaker(breakerFailureThreshold, breakerResetTimeout)
	cb.OnStateChange(func(from, to CircuitState) {
		logger.Module("Breaker").Infof("WHOIS服务器 %s 熔断器状态从 %v 变更为 %v", server, from, to)
	})

	if len(s.breakers) >= s.maxBreakers {
		s.pruneHealthyBreakers()
	}
	// 表满且都带有失败记录时，本次使用不登记的熔断器
	if len(s.breakers) >= s.maxBreakers {
		logger.Module("Breaker").Warnf("熔断器数量已达上限 %d，不再记录服务器 %s", s.maxBreakers, server)
		return cb
	}
	s.breakers[server] = cb
	return cb
}

// pruneHealthyBreakers 移除没有失败记录的熔断器，调用方需持有锁
func (s *LookupService) pruneHealthyBreakers() {
	for server, cb := range s.breakers {
		if status := cb.Status(); status.State == StateClosed.String() && status.FailureCount == 0 {
			delete(s.breakers, server)
		}
	}
}

// BreakerStatus 各WHOIS服务器的熔断器状态
func (s *LookupService) BreakerStatus() map[string]BreakerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]BreakerStatus, len(s.breakers))
	for server, cb := range s.breakers {
		result[server] = cb.Status()
	}
	return result
}

func (s *LookupService) checkCache(ctx context.Context, key string) (*types.WhoisResponse, bool) {
	if s.rdb == nil {
		return nil, false
	}
	data, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}

	var response types.WhoisResponse
	if err := json.Unmarshal([]byte(data), &response); err != nil {
		logger.FromContext(ctx, "Lookup").Warnf("解析缓存数据失败: %v", err)
		return nil, false
	}
	return &response, true
}

func (s *LookupService) cacheResponse(ctx context.Context, key string, response *types.WhoisResponse) {
	if s.rdb == nil {
		return
	}

	cached := *response
	cached.CachedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(cached)
	if err != nil {
		return
	}

	// 加随机抖动，避免同时过期
	ttl := CacheDuration(response.Record, time.Now())
	ttl += time.Duration(rand.Int63n(int64(ttl/10) + 1))
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.FromContext(ctx, "Lookup").Warnf("缓存数据失败: %v", err)
	}
}

// CacheDuration 根据域名到期时间计算缓存时间，临近到期的记录缓存更短
func CacheDuration(record parser.Record, now time.Time) time.Duration {
	expiry, ok := record.RegistryExpirityDate.Get()
	if !ok {
		return DefaultCacheTTL
	}

	daysUntilExpiry := expiry.Sub(now).Hours() / 24

	switch {
	case daysUntilExpiry <= 15:
		return 1 * time.Hour
	case daysUntilExpiry <= 30:
		return 6 * time.Hour
	case daysUntilExpiry <= 90:
		return 12 * time.Hour
	default:
		return DefaultCacheTTL
	}
}
