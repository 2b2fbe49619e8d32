/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-01-17 23:47:06
 * @Description: API安全响应头中间件
 */
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// SecurityConfig 安全响应头配置
type SecurityConfig struct {
	EnableHSTS            bool   // 是否启用HSTS
	FrameOptions          string // X-Frame-Options 设置
	ContentTypeOptions    string // X-Content-Type-Options 设置
	ReferrerPolicy        string // Referrer-Policy 设置
	HSTSMaxAge            int    // HSTS的最大有效期（秒）
	HSTSIncludeSubDomains bool   // HSTS是否包括子域名
}

// DefaultSecurityConfig 返回默认的安全配置，接口只返回JSON，不需要CSP
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		EnableHSTS:            false,
		FrameOptions:          "DENY",
		ContentTypeOptions:    "nosniff",
		ReferrerPolicy:        "no-referrer",
		HSTSMaxAge:            31536000, // 1年
		HSTSIncludeSubDomains: true,
	}
}

// Security 标准安全中间件
func Security() gin.HandlerFunc {
	return SecurityWithConfig(DefaultSecurityConfig())
}

// SecurityWithConfig 带配置的安全中间件
func SecurityWithConfig(config SecurityConfig) gin.HandlerFunc {
	var hstsValue string
	if config.EnableHSTS {
		hstsValue = "max-age=" + strconv.Itoa(config.HSTSMaxAge)
		if config.HSTSIncludeSubDomains {
			hstsValue += "; includeSubDomains"
		}
	}

	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", config.ContentTypeOptions)
		c.Header("X-Frame-Options", config.FrameOptions)
		c.Header("Referrer-Policy", config.ReferrerPolicy)
		c.Header("Cache-Control", "no-store")

		if hstsValue != "" {
			c.Header("Strict-Transport-Security", hstsValue)
		}

		c.Next()
	}
}
