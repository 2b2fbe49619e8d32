package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whoiskit/middleware"
	"whoiskit/pkg/config"
	"whoiskit/pkg/logger"
	"whoiskit/routes"
	"whoiskit/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// newRedisClient 连接Redis，未配置或不可用时返回nil，服务退化为无缓存模式
func newRedisClient(cfg config.Config) *redis.Client {
	log := logger.Module("Main")
	if cfg.RedisAddr == "" {
		log.Info("未配置REDIS_ADDR，缓存和分布式限流已禁用")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           0,
		PoolSize:     100,              // 连接池大小
		MinIdleConns: 10,               // 最小空闲连接数
		DialTimeout:  5 * time.Second,  // 连接超时
		ReadTimeout:  3 * time.Second,  // 读取超时
		WriteTimeout: 3 * time.Second,  // 写入超时
		PoolTimeout:  4 * time.Second,  // 获取连接超时
		IdleTimeout:  5 * time.Minute,  // 空闲连接超时
		MaxConnAge:   30 * time.Minute, // 连接最大存活时间
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warnf("Redis不可用，缓存已禁用: %v", err)
		rdb.Close()
		return nil
	}

	log.Infof("Redis已连接: %s", cfg.RedisAddr)
	return rdb
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if err := logger.Init(logger.Options{Env: cfg.Env, LogFile: cfg.LogFile}); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.Module("Main")
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置错误: %v", err)
	}
	log.Infof("启动服务器，版本：%s，环境：%s", os.Getenv("APP_VERSION"), cfg.Env)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	rdb := newRedisClient(cfg)

	serviceContainer := services.NewServiceContainer(rdb, services.Config{
		WorkerPoolSize:      cfg.WorkerPoolSize,
		QueryTimeout:        cfg.WhoisTimeout,
		DefaultServer:       cfg.DefaultWhoisServer,
		AllowedServers:      cfg.AllowedServers,
		LenientDates:        cfg.LenientDates,
		HealthCheckInterval: cfg.HealthCheckInterval,
	})
	serviceContainer.InitializeHealthChecker()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.HTTPLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Security())
	r.Use(middleware.CORS(middleware.ParseOrigins(cfg.CORSOrigins)))

	// 注入服务组件到上下文
	r.Use(middleware.ServiceMiddleware(serviceContainer))

	routes.RegisterAPIRoutes(r, serviceContainer, routes.Options{
		AuthEnabled:        cfg.AuthEnabled,
		JWTSecret:          cfg.JWTSecret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		// 发现和查询各占一次超时，再留出排队时间
		QueryTimeout: 2*cfg.WhoisTimeout + 5*time.Second,
	})

	srv := &http.Server{
		Addr:           cfg.Addr(),
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// 优雅关闭
	done := make(chan struct{})
	go func() {
		defer close(done)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("正在关闭服务器...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("服务器被强制关闭: %v", err)
		}

		// 等进行中的请求结束后再关闭服务
		serviceContainer.Shutdown()
		log.Info("服务器已安全关闭")
	}()

	log.Infof("服务器启动在端口%s，环境：%s", cfg.Addr(), cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("服务器启动失败: %v", err)
	}
	<-done
}
