/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2026-01-12
 * @Description: WHOIS解析结果结构
 */

package parser

import "time"

// Record 解析后的WHOIS记录
// 每个字段独立可选；解析完成后按值返回，不持有原始文本
type Record struct {
	DomainName                 Optional[string]    `json:"domain_name"`
	RegistryDomainID           Optional[string]    `json:"registry_domain_id"`
	RegistrarWhoisServer       Optional[string]    `json:"registrar_whois_server"`
	RegistrarURL               Optional[string]    `json:"registrar_url"`
	UpdatedDate                Optional[time.Time] `json:"updated_date"`
	CreationDate               Optional[time.Time] `json:"creation_date"`
	RegistryExpirityDate       Optional[time.Time] `json:"registry_expirity_date"`
	Registrar                  Optional[string]    `json:"registrar"`
	RegistrarIANAID            Optional[string]    `json:"registrar_iana_id"`
	RegistrarAbuseEmailContact Optional[string]    `json:"registrar_abuse_email_contact"`
	RegistrarAbusePhoneContact Optional[string]    `json:"registrar_abuse_phone_contact"`
	// DomainStatus 多行状态只保留最后一行
	DomainStatus Optional[string]   `json:"domain_status"`
	NameServers  Optional[[]string] `json:"name_servers"`
	DNSSEC       Optional[string]   `json:"dnssec"`
}

// NameServerList 返回名称服务器列表的副本，缺失时返回nil
func (r Record) NameServerList() []string {
	servers, ok := r.NameServers.Get()
	if !ok {
		return nil
	}
	out := make([]string, len(servers))
	copy(out, servers)
	return out
}

// IsEmpty 没有识别到任何字段
func (r Record) IsEmpty() bool {
	return !r.DomainName.IsPresent() &&
		!r.RegistryDomainID.IsPresent() &&
		!r.RegistrarWhoisServer.IsPresent() &&
		!r.RegistrarURL.IsPresent() &&
		!r.UpdatedDate.IsPresent() &&
		!r.CreationDate.IsPresent() &&
		!r.RegistryExpirityDate.IsPresent() &&
		!r.Registrar.IsPresent() &&
		!r.RegistrarIANAID.IsPresent() &&
		!r.RegistrarAbuseEmailContact.IsPresent() &&
		!r.RegistrarAbusePhoneContact.IsPresent() &&
		!r.DomainStatus.IsPresent() &&
		!r.NameServers.IsPresent() &&
		!r.DNSSEC.IsPresent()
}

func (r *Record) setText(field Field, value string) {
	v := Some(value)
	switch field {
	case FieldDomainName:
		r.DomainName = v
	case FieldRegistryDomainID:
		r.RegistryDomainID = v
	case FieldRegistrarWhoisServer:
		r.RegistrarWhoisServer = v
	case FieldRegistrarURL:
		r.RegistrarURL = v
	case FieldRegistrar:
		r.Registrar = v
	case FieldRegistrarIANAID:
		r.RegistrarIANAID = v
	case FieldRegistrarAbuseEmail:
		r.RegistrarAbuseEmailContact = v
	case FieldRegistrarAbusePhone:
		r.RegistrarAbusePhoneContact = v
	case FieldDomainStatus:
		r.DomainStatus = v
	case FieldDNSSEC:
		r.DNSSEC = v
	}
}

func (r *Record) setDate(field Field, t time.Time) {
	v := Some(t)
	switch field {
	case FieldUpdatedDate:
		r.UpdatedDate = v
	case FieldCreationDate:
		r.CreationDate = v
	case FieldRegistryExpiryDate:
		r.RegistryExpirityDate = v
	}
}
