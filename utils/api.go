/*
 * @Author: AsisYu
 * @Date: 2025-04-24
 * @Description: API响应工具
 */
package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIVersion 接口版本，写入响应元信息
const APIVersion = "v1"

// 统一响应结构
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// 错误信息结构
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// 元信息结构
type MetaInfo struct {
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"requestId,omitempty"`
	Cached     bool   `json:"cached,omitempty"`
	CachedAt   string `json:"cachedAt,omitempty"`
	Version    string `json:"version,omitempty"`
	Processing int64  `json:"processingTimeMs,omitempty"`
}

// fillMeta 补齐时间戳、请求ID和版本
func fillMeta(c *gin.Context, meta *MetaInfo) *MetaInfo {
	if meta == nil {
		meta = &MetaInfo{}
	}
	if meta.Timestamp == "" {
		meta.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if meta.RequestID == "" {
		meta.RequestID = c.GetString("request_id")
	}
	meta.Version = APIVersion
	return meta
}

// SuccessResponse 统一成功响应
func SuccessResponse(c *gin.Context, data interface{}, meta *MetaInfo) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    fillMeta(c, meta),
	})
}

// ErrorResponse 统一错误响应
func ErrorResponse(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error:   &APIError{
			Code:    errorCode,
			Message: message,
		},
		Meta: fillMeta(c, nil),
	})
}
