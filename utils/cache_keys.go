/*
 * @Author: AsisYu
 * @Date: 2025-04-24
 * @Description: Redis缓存键构造
 */
package utils

import (
	"strings"
)

const maxKeyPartLen = 80

// sanitizeKeyPart 统一处理键的每一段：去空白、小写、去掉端口和路径
func sanitizeKeyPart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	if strings.Contains(s, "/") || strings.Contains(s, ":") {
		s = SanitizeDomain(s)
	}
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > maxKeyPartLen {
		s = s[:maxKeyPartLen]
	}
	return s
}

// BuildCacheKey 用':'连接各段，每段先做标准化
func BuildCacheKey(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}
	sanitized := make([]string, 0, len(parts))
	for _, p := range parts {
		sanitized = append(sanitized, sanitizeKeyPart(p))
	}
	return strings.Join(sanitized, ":")
}
