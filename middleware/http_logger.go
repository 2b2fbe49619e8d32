/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-12-30
 * @Description: HTTP访问日志中间件 - 使用结构化日志
 */

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"whoiskit/pkg/logger"
)

// HTTPLogger 记录HTTP请求的结构化日志
func HTTPLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		log := logger.WithRequest(c, "HTTP")

		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"route", c.FullPath(),
			"status", statusCode,
			"latency_ms", latency.Milliseconds(),
			"bytes", c.Writer.Size(),
		}

		if query != "" {
			fields = append(fields, "query", query)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		message := "HTTP request completed"
		switch {
		case statusCode >= 500:
			log.Errorw(message, fields...)
		case statusCode >= 400:
			log.Warnw(message, fields...)
		default:
			log.Infow(message, fields...)
		}
	}
}
