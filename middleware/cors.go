/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-04-28 10:18:00
 * @Description: 跨域请求配置
 */
package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DefaultAllowOrigins 未配置CORS_ORIGINS时允许的来源
var DefaultAllowOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

// ParseOrigins 解析逗号分隔的来源列表，忽略空项和缺少协议的项
func ParseOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "*" || strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://") {
			origins = append(origins, origin)
		}
	}
	return origins
}

// CORS 跨域请求中间件，origins包含"*"时允许所有来源
func CORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = DefaultAllowOrigins
	}

	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}

	for _, origin := range origins {
		if origin == "*" {
			config.AllowAllOrigins = true
			return cors.New(config)
		}
	}

	config.AllowOrigins = origins
	config.AllowCredentials = true
	return cors.New(config)
}
