/*
 * @Author: AsisYu
 * @Date: 2025-04-24
 * @Description: 域名工具函数
 */
package utils

import (
	"strings"
)

// SanitizeDomain 清理和标准化域名
// 只做格式整理，不校验域名是否合法，是否可查询由WHOIS服务器决定
func SanitizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)

	// 去除协议前缀
	domain = strings.TrimPrefix(strings.TrimPrefix(domain, "http://"), "https://")

	// 移除路径和端口
	if idx := strings.Index(domain, "/"); idx != -1 {
		domain = domain[:idx]
	}
	if idx := strings.Index(domain, ":"); idx != -1 {
		domain = domain[:idx]
	}

	// 去掉末尾的根标签
	domain = strings.TrimSuffix(domain, ".")

	// 转换为小写
	return strings.ToLower(domain)
}
