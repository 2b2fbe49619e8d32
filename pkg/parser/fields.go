/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2026-01-12
 * @Description: 字段枚举与同义键表
 */

package parser

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Field 记录字段标识
type Field int

const (
	FieldUnknown Field = iota
	FieldDomainName
	FieldRegistryDomainID
	FieldRegistrarWhoisServer
	FieldRegistrarURL
	FieldUpdatedDate
	FieldCreationDate
	FieldRegistryExpiryDate
	FieldRegistrar
	FieldRegistrarIANAID
	FieldRegistrarAbuseEmail
	FieldRegistrarAbusePhone
	FieldDomainStatus
	FieldNameServers
	FieldDNSSEC
)

var fieldNames = map[Field]string{
	FieldUnknown:              "unknown",
	FieldDomainName:           "domain_name",
	FieldRegistryDomainID:     "registry_domain_id",
	FieldRegistrarWhoisServer: "registrar_whois_server",
	FieldRegistrarURL:         "registrar_url",
	FieldUpdatedDate:          "updated_date",
	FieldCreationDate:         "creation_date",
	FieldRegistryExpiryDate:   "registry_expirity_date",
	FieldRegistrar:            "registrar",
	FieldRegistrarIANAID:      "registrar_iana_id",
	FieldRegistrarAbuseEmail:  "registrar_abuse_email_contact",
	FieldRegistrarAbusePhone:  "registrar_abuse_phone_contact",
	FieldDomainStatus:         "domain_status",
	FieldNameServers:          "name_servers",
	FieldDNSSEC:               "dnssec",
}

// String 返回字段对应的JSON名称
func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fieldNames[FieldUnknown]
}

// IsDate 是否为日期字段
func (f Field) IsDate() bool {
	switch f {
	case FieldUpdatedDate, FieldCreationDate, FieldRegistryExpiryDate:
		return true
	}
	return false
}

// defaultSynonyms 规范化后的键名 -> 字段
// 各注册局输出格式不统一，新的写法直接加条目，不改解析逻辑
var defaultSynonyms = map[string]Field{
	// 域名
	"domain name": FieldDomainName,
	"domain":      FieldDomainName,

	"registry domain id": FieldRegistryDomainID,
	"domain id":          FieldRegistryDomainID,
	"roid":               FieldRegistryDomainID,

	"registrar whois server": FieldRegistrarWhoisServer,
	"whois server":           FieldRegistrarWhoisServer,
	"whois":                  FieldRegistrarWhoisServer,

	"registrar url":     FieldRegistrarURL,
	"referral url":      FieldRegistrarURL,
	"registrar website": FieldRegistrarURL,

	// 日期
	"updated date":  FieldUpdatedDate,
	"last updated":  FieldUpdatedDate,
	"last modified": FieldUpdatedDate,
	"last-update":   FieldUpdatedDate,
	"modified":      FieldUpdatedDate,
	"changed":       FieldUpdatedDate,

	"creation date":            FieldCreationDate,
	"created":                  FieldCreationDate,
	"created on":               FieldCreationDate,
	"created date":             FieldCreationDate,
	"registered":               FieldCreationDate,
	"registered on":            FieldCreationDate,
	"registration time":        FieldCreationDate,
	"domain registration date": FieldCreationDate,

	"registry expiry date":                   FieldRegistryExpiryDate,
	"registry expiration date":               FieldRegistryExpiryDate,
	"registrar registration expiration date": FieldRegistryExpiryDate,
	"expiry date":                            FieldRegistryExpiryDate,
	"expiration date":                        FieldRegistryExpiryDate,
	"expiration time":                        FieldRegistryExpiryDate,
	"domain expiration date":                 FieldRegistryExpiryDate,
	"expires":                                FieldRegistryExpiryDate,
	"expires on":                             FieldRegistryExpiryDate,
	"paid-till":                              FieldRegistryExpiryDate,

	// 注册商
	"registrar":            FieldRegistrar,
	"sponsoring registrar": FieldRegistrar,
	"registrar name":       FieldRegistrar,

	"registrar iana id":            FieldRegistrarIANAID,
	"sponsoring registrar iana id": FieldRegistrarIANAID,

	"registrar abuse contact email": FieldRegistrarAbuseEmail,
	"registrar abuse contact phone": FieldRegistrarAbusePhone,

	// 状态与DNS
	"domain status": FieldDomainStatus,
	"status":        FieldDomainStatus,

	"name server":  FieldNameServers,
	"name servers": FieldNameServers,
	"nameserver":   FieldNameServers,
	"nserver":      FieldNameServers,
	"host name":    FieldNameServers,

	"dnssec":        FieldDNSSEC,
	"dnssec status": FieldDNSSEC,
}

// normalizeKey 忽略大小写，空白折叠为单个空格
func normalizeKey(key string) string {
	return strings.Join(strings.Fields(strings.ToLower(key)), " ")
}

// KnownKeys 返回默认同义键表中的全部键名（已排序）
func KnownKeys() []string {
	keys := make([]string, 0, len(defaultSynonyms))
	for k := range defaultSynonyms {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
