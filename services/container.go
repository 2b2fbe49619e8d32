/*
 * @Author: AsisYu
 * @Date: 2025-04-24
 * @Description: 服务容器，用于统一管理所有服务组件
 */
package services

import (
	"time"

	"github.com/go-redis/redis/v8"
	"whoiskit/pkg/logger"
	"whoiskit/pkg/parser"
	"whoiskit/providers"
)

// Config 服务容器配置
type Config struct {
	WorkerPoolSize      int
	QueryTimeout        time.Duration
	DefaultServer       string
	AllowedServers      []string
	LenientDates        bool
	HealthCheckInterval time.Duration
}

// ServiceContainer 服务容器，管理所有服务组件
type ServiceContainer struct {
	RedisClient   *redis.Client
	WorkerPool    *WorkerPool
	Client        *providers.WhoisClient
	Parser        *parser.Parser
	Lookup        *LookupService
	HealthChecker *HealthChecker
	Limiter       *RateLimiter

	config Config
}

// NewServiceContainer 创建新的服务容器，redisClient可以为nil
func NewServiceContainer(redisClient *redis.Client, cfg Config) *ServiceContainer {
	log := logger.Module("Container")
	container := &ServiceContainer{
		RedisClient: redisClient,
		config:      cfg,
	}

	log.Infof("初始化工作池，大小: %d", cfg.WorkerPoolSize)
	container.WorkerPool = NewWorkerPool(cfg.WorkerPoolSize)
	container.WorkerPool.Start()

	var parserOpts []parser.Option
	if cfg.LenientDates {
		parserOpts = append(parserOpts, parser.WithLenientDates())
	}
	container.Parser = parser.New(parserOpts...)

	container.Client = providers.NewWhoisClient(cfg.QueryTimeout)
	container.Lookup = NewLookupService(container.Client, container.Client, redisClient, LookupConfig{
		DefaultServer:  cfg.DefaultServer,
		Parser:         container.Parser,
		AllowedServers: cfg.AllowedServers,
	})

	return container
}

// InitializeHealthChecker 按配置的间隔初始化并启动健康检查器
func (sc *ServiceContainer) InitializeHealthChecker() {
	sc.HealthChecker = NewHealthChecker(sc.RedisClient, sc.Lookup, sc.config.HealthCheckInterval)
	sc.HealthChecker.Start()
}

// InitializeLimiter 初始化限流器，没有Redis时不创建
func (sc *ServiceContainer) InitializeLimiter(key string, rate int, period time.Duration) {
	if sc.RedisClient == nil {
		return
	}
	sc.Limiter = NewRateLimiter(sc.RedisClient, key, rate, period)
}

// Shutdown 关闭所有服务
func (sc *ServiceContainer) Shutdown() {
	log := logger.Module("Container")

	if sc.WorkerPool != nil {
		log.Info("关闭工作池...")
		sc.WorkerPool.Stop()
	}

	if sc.HealthChecker != nil {
		log.Info("关闭健康检查器...")
		sc.HealthChecker.Stop()
	}

	if sc.RedisClient != nil {
		log.Info("关闭 Redis 客户端...")
		if err := sc.RedisClient.Close(); err != nil {
			log.Warnf("关闭 Redis 客户端失败: %v", err)
		}
	}

	log.Info("所有服务已关闭")
}
