/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-04-28 10:26:00
 * @Description: 请求大小限制中间件
 */
package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"whoiskit/utils"
)

// DefaultBodyLimit 与单次WHOIS响应读取上限一致
const DefaultBodyLimit int64 = 1 << 20

// SizeLimit 默认大小限制中间件
func SizeLimit() gin.HandlerFunc {
	return SizeLimitWithLimit(DefaultBodyLimit)
}

// SizeLimitWithLimit 限制请求体大小
// 声明了Content-Length的请求直接拒绝，其余请求在读取时由MaxBytesReader截断
func SizeLimitWithLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if c.Request.ContentLength > limit {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "REQUEST_ENTITY_TOO_LARGE",
				fmt.Sprintf("请求体过大，最大允许大小为 %d 字节", limit))
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
