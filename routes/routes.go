/*
 * @Author: AsisYu
 * @Date: 2025-04-24
 * @Description: API路由注册
 */
package routes

import (
	"context"
	"time"

	"whoiskit/handlers"
	"whoiskit/middleware"
	"whoiskit/pkg/logger"
	"whoiskit/providers"
	"whoiskit/services"
	"whoiskit/utils"

	"github.com/gin-gonic/gin"
)

// Options 路由配置
type Options struct {
	AuthEnabled        bool
	JWTSecret          string
	RateLimitPerMinute int
	QueryTimeout       time.Duration // 单个查询请求的总超时，包含排队时间
}

// domainMiddleware 提取域名参数，只检查是否为空以及能否单行发送
func domainMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		domain := c.Param("domain")
		if domain == "" {
			domain = c.Query("domain")
		}

		domain = utils.SanitizeDomain(domain)
		if domain == "" {
			utils.ErrorResponse(c, 400, "MISSING_PARAMETER", "Domain parameter is required")
			c.Abort()
			return
		}
		// 换行会被WHOIS服务器当作下一条命令
		if err := providers.ValidateQuery(domain); err != nil {
			utils.ErrorResponse(c, 400, "INVALID_DOMAIN", "Domain must not contain whitespace or control characters")
			c.Abort()
			return
		}

		c.Set(handlers.DomainKey, domain)
		c.Next()
	}
}

// timeoutMiddleware 为查询设置带超时的上下文，请求结束后释放
func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Set(handlers.RequestContextKey, ctx)
		c.Next()
	}
}

// RegisterAPIRoutes 注册所有API路由
func RegisterAPIRoutes(r *gin.Engine, serviceContainer *services.ServiceContainer, opts Options) {
	log := logger.Module("Routes")

	if opts.RateLimitPerMinute <= 0 {
		opts.RateLimitPerMinute = 60
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 15 * time.Second
	}

	// 健康检查路由
	r.GET("/api/health", middleware.HealthCheckRateLimit(), handlers.HealthCheckHandler)

	apiv1 := r.Group("/api/v1")

	if opts.AuthEnabled {
		r.POST("/api/auth/token", middleware.GenerateToken(serviceContainer.RedisClient, opts.JWTSecret))
		apiv1.Use(middleware.AuthRequired(serviceContainer.RedisClient, opts.JWTSecret))
	} else {
		log.Warn("API认证已禁用，任何人都可以访问API")
	}

	// Redis可用时使用分布式限流，否则使用内存限流
	serviceContainer.InitializeLimiter("limit:api", opts.RateLimitPerMinute, time.Minute)
	rateLimitConfig := middleware.DefaultRateLimitConfig()
	rateLimitConfig.Key = "limit:api"
	rateLimitConfig.Rate = opts.RateLimitPerMinute
	rateLimitConfig.Limiter = serviceContainer.Limiter
	apiv1.Use(middleware.RateLimitWithConfig(rateLimitConfig))

	apiv1.Use(middleware.SizeLimit())

	whoisGroup := apiv1.Group("/whois")

	// 固定路径需先于 /:domain 注册
	whoisGroup.GET("/keys", handlers.KeysHandler)
	whoisGroup.GET("/servers", handlers.ServersHandler)
	whoisGroup.POST("/parse", handlers.ParseHandler)

	whoisGroup.GET("/:domain", domainMiddleware(), timeoutMiddleware(opts.QueryTimeout), handlers.WhoisHandler)
	whoisGroup.GET("", domainMiddleware(), timeoutMiddleware(opts.QueryTimeout), handlers.WhoisHandler)
}
