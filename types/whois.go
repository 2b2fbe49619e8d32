/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-01-18 22:34:01
 * @Description: WHOIS查询类型定义
 */
package types

import "whoiskit/pkg/parser"

// WhoisResponse 统一的WHOIS查询结果
type WhoisResponse struct {
	Domain    string        `json:"domain"`
	Server    string        `json:"server"`              // 实际查询的WHOIS服务器
	Record    parser.Record `json:"record"`              // 解析后的记录
	Raw       string        `json:"raw,omitempty"`       // 原始响应，仅在请求时返回
	Cached    bool          `json:"cached"`              // 是否来自缓存
	CachedAt  string        `json:"cachedAt,omitempty"`  // 数据缓存时间
	QueriedAt string        `json:"queriedAt,omitempty"` // 实际查询时间
}

// LookupOptions 单次查询选项
type LookupOptions struct {
	Server     string // 指定WHOIS服务器，为空时自动发现
	IncludeRaw bool   // 结果中附带原始响应
	NoCache    bool   // 跳过缓存读取
}
