/*
 * @Author: AsisYu
 * @Date: 2025-04-24
 * @Description: 服务注入中间件
 */
package middleware

import (
	"whoiskit/services"

	"github.com/gin-gonic/gin"
)

// 上下文中的服务键
const (
	LookupServiceKey = "lookupService"
	HealthCheckerKey = "healthChecker"
	WorkerPoolKey    = "workerPool"
	RedisKey         = "redis"
)

// ServiceMiddleware 在请求上下文中注入各种服务
func ServiceMiddleware(container *services.ServiceContainer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if container != nil {
			if container.Lookup != nil {
				c.Set(LookupServiceKey, container.Lookup)
			}

			if container.HealthChecker != nil {
				c.Set(HealthCheckerKey, container.HealthChecker)
			}

			if container.RedisClient != nil {
				c.Set(RedisKey, container.RedisClient)
			}

			if container.WorkerPool != nil {
				c.Set(WorkerPoolKey, container.WorkerPool)
			}
		}

		c.Next()
	}
}
