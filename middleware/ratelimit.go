/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-03-31 04:10:00
 * @Description: 限流中间件
 */
package middleware

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"whoiskit/pkg/logger"
	"whoiskit/services"
	"whoiskit/utils"
)

// IPRateLimiter 内存中的IP限流器
type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

// RateLimitConfig 限流器配置
type RateLimitConfig struct {
	Limiter    *services.RateLimiter // Redis滑动窗口限流器，为nil时使用内存限流
	Key        string                // 限流器键
	Rate       int                   // 周期内允许的请求数
	Period     time.Duration         // 限流周期
	Burst      int                   // 内存限流允许的突发请求数
	IPLookup   []string              // IP查找方法
	ExcludeIPs []string              // 排除的IP或CIDR
	Message    string                // 超限消息
}

// DefaultRateLimitConfig 默认限流器配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Key:      "limit:global",
		Rate:     60,
		Period:   time.Minute,
		Burst:    10,
		IPLookup: []string{"X-Forwarded-For", "X-Real-IP", "RemoteAddr"},
		Message:  "请求过于频繁，请稍后再试",
	}
}

// NewIPRateLimiter 创建一个新的IP限流器
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

// Allow 检查是否允许请求
func (i *IPRateLimiter) Allow(key string) bool {
	i.mu.Lock()
	limiter, exists := i.ips[key]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[key] = limiter
	}
	i.mu.Unlock()

	return limiter.Allow()
}

// getClientIP 获取客户端IP
func getClientIP(c *gin.Context, methods []string) string {
	for _, method := range methods {
		switch method {
		case "X-Forwarded-For":
			if forwardedIPs := c.GetHeader("X-Forwarded-For"); forwardedIPs != "" {
				ip, _, _ := strings.Cut(forwardedIPs, ",")
				return strings.TrimSpace(ip)
			}
		case "X-Real-IP":
			if ip := c.GetHeader("X-Real-IP"); ip != "" {
				return ip
			}
		case "RemoteAddr":
			if ip, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
				return ip
			}
		}
	}

	return c.ClientIP()
}

// isExcludedIP 检查IP是否在排除列表中
func isExcludedIP(ip string, excludeIPs []string) bool {
	parsedIP := net.ParseIP(ip)
	for _, excludeIP := range excludeIPs {
		if ip == excludeIP {
			return true
		}
		if strings.Contains(excludeIP, "/") && parsedIP != nil {
			if _, ipNet, err := net.ParseCIDR(excludeIP); err == nil && ipNet.Contains(parsedIP) {
				return true
			}
		}
	}
	return false
}

// RateLimitWithConfig 限流中间件，Redis出错时放行请求
func RateLimitWithConfig(config RateLimitConfig) gin.HandlerFunc {
	var ipLimiter *IPRateLimiter
	if config.Limiter == nil {
		ipLimiter = NewIPRateLimiter(rate.Limit(float64(config.Rate)/config.Period.Seconds()), config.Burst)
	}

	return func(c *gin.Context) {
		ip := getClientIP(c, config.IPLookup)
		if isExcludedIP(ip, config.ExcludeIPs) {
			c.Next()
			return
		}

		identifier := fmt.Sprintf("%s:%s", config.Key, ip)

		var allowed bool
		if config.Limiter != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			ok, err := config.Limiter.Allow(ctx, identifier)
			cancel()
			if err != nil {
				logger.WithRequest(c, "RateLimit").Warnf("Redis限流出错，允许请求: %v", err)
				ok = true
			}
			allowed = ok
		} else {
			allowed = ipLimiter.Allow(identifier)
		}

		if !allowed {
			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", config.Rate))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", fmt.Sprintf("%d", int(config.Period.Seconds())))
			utils.ErrorResponse(c, 429, "TOO_MANY_REQUESTS", config.Message)
			c.Abort()
			return
		}

		c.Next()
	}
}

// HealthCheckRateLimit 健康检查限流中间件
func HealthCheckRateLimit() gin.HandlerFunc {
	config := DefaultRateLimitConfig()
	config.Key = "limit:health"
	config.Rate = 300
	config.Message = "健康检查请求过于频繁"

	return RateLimitWithConfig(config)
}
