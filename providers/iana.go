/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-01-19 10:15:00
 * @Description: 通过IANA查找顶级域名的权威WHOIS服务器
 */
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"
	"whoiskit/pkg/logger"
)

// IANAServer IANA根WHOIS服务器
const IANAServer = "whois.iana.org:43"

// ErrNoWhoisServer IANA响应中没有权威服务器
var ErrNoWhoisServer = errors.New("no authoritative whois server found")

// DiscoverServer 查询IANA获取domain所属顶级域名的权威WHOIS服务器
// 只做这一次显式查询；最终响应中的注册商referral不会被自动跟随
func (c *WhoisClient) DiscoverServer(ctx context.Context, domain string) (string, error) {
	tld := TopLevelDomain(domain)
	if tld == "" {
		return "", fmt.Errorf("无法提取顶级域名: %q: %w", domain, ErrNoWhoisServer)
	}

	log := logger.FromContext(ctx, "IANA")
	log.Debugf("查询IANA获取 %s 的WHOIS服务器", tld)

	raw, err := c.Query(ctx, c.ianaServer, tld)
	if err != nil {
		return "", fmt.Errorf("查询IANA失败: %w", err)
	}

	server := ExtractReferral(raw)
	if server == "" {
		return "", fmt.Errorf("%s: %w", tld, ErrNoWhoisServer)
	}

	// IANA返回的地址不带端口
	server = NormalizeServer(server)
	log.Debugf("从IANA响应中提取到WHOIS服务器: %s -> %s", tld, server)
	return server, nil
}

// TopLevelDomain 返回公共后缀的最后一段，如 example.co.uk -> uk
func TopLevelDomain(domain string) string {
	domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return ""
	}

	suffix, _ := publicsuffix.PublicSuffix(domain)
	if idx := strings.LastIndex(suffix, "."); idx != -1 {
		suffix = suffix[idx+1:]
	}
	return suffix
}

// ExtractReferral 从IANA响应中提取 whois: 或 refer: 行的服务器地址
func ExtractReferral(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "whois", "refer":
			if v := strings.TrimSpace(value); v != "" {
				return v
			}
		}
	}
	return ""
}
