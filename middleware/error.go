/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-03-31 04:10:00
 * @Description: 错误处理中间件
 */
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"whoiskit/pkg/logger"
	"whoiskit/utils"
)

// ErrorHandler handler通过c.Error上报但未写响应的错误统一返回500
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()
		logger.WithRequest(c, "Error").Errorf("请求处理失败: %v", err.Err)

		if c.Writer.Written() {
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "服务器内部错误")
	}
}
