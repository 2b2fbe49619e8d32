/*
 * @Author: AsisYu
 * @Date: 2025-04-24
 * @Description: 健康检查处理程序
 */
package handlers

import (
	"net/http"
	"time"

	"whoiskit/middleware"
	"whoiskit/pkg/logger"
	"whoiskit/utils"

	"github.com/gin-gonic/gin"
)

// healthStatusProvider 健康检查器需要实现的接口
type healthStatusProvider interface {
	GetHealthStatus() map[string]interface{}
}

// HealthCheckHandler 健康检查API处理程序
func HealthCheckHandler(c *gin.Context) {
	logger.WithRequest(c, "Health").Debugf("健康检查API调用, IP: %s", c.ClientIP())

	response := gin.H{
		"status":   "up",
		"version":  utils.APIVersion,
		"time":     time.Now().UTC().Format(time.RFC3339),
		"services": gin.H{},
	}

	if value, exists := c.Get(middleware.HealthCheckerKey); exists {
		if checker, ok := value.(healthStatusProvider); ok {
			status := checker.GetHealthStatus()
			if services, ok := status["services"]; ok {
				response["services"] = services
			}
			if overall, ok := status["status"].(string); ok {
				response["status"] = overall
			}
			if lastCheck, ok := status["timestamp"]; ok {
				response["lastCheck"] = lastCheck
			}
		}
	}

	c.JSON(http.StatusOK, response)
}
