/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2026-01-12
 * @Description: WHOIS原始文本解析器
 */

// Package parser 将WHOIS服务器返回的键值文本解析为结构化记录。
//
// 解析是容错的：无法识别的行、无法识别的键、无法解析的日期都会被跳过，
// 只有输入为空（或全为空白）时才返回 ErrEmptyInput。
package parser

import (
	"errors"
	"strings"
)

// ErrEmptyInput 原始文本为空或全为空白
var ErrEmptyInput = errors.New("parser: empty whois response")

// Parser WHOIS文本解析器，构造后只读，可并发使用
type Parser struct {
	synonyms map[string]Field
	layouts  []string
	lenient  bool
}

// Option 解析器配置项
type Option func(*Parser)

// WithDateLayouts 在默认日期格式之后追加格式
func WithDateLayouts(layouts ...string) Option {
	return func(p *Parser) {
		p.layouts = append(p.layouts, layouts...)
	}
}

// WithLenientDates 所有格式都失败后再尝试dateparse宽松解析
func WithLenientDates() Option {
	return func(p *Parser) {
		p.lenient = true
	}
}

// WithSynonyms 追加键名同义词，键名会先规范化
func WithSynonyms(synonyms map[string]Field) Option {
	return func(p *Parser) {
		for k, f := range synonyms {
			p.synonyms[normalizeKey(k)] = f
		}
	}
}

// New 创建解析器
func New(opts ...Option) *Parser {
	p := &Parser{
		synonyms: make(map[string]Field, len(defaultSynonyms)),
		layouts:  make([]string, len(defaultDateLayouts)),
	}
	for k, f := range defaultSynonyms {
		p.synonyms[k] = f
	}
	copy(p.layouts, defaultDateLayouts)

	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = New()

// Parse 使用默认解析器解析
func Parse(raw string) (Record, error) {
	return defaultParser.Parse(raw)
}

// Parse 解析WHOIS原始文本
func (p *Parser) Parse(raw string) (Record, error) {
	if strings.TrimSpace(raw) == "" {
		return Record{}, ErrEmptyInput
	}

	var record Record
	var nameServers []string

	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := splitLine(line)
		if !ok {
			continue
		}

		field, ok := p.synonyms[normalizeKey(key)]
		if !ok {
			continue
		}

		switch {
		case field == FieldNameServers:
			nameServers = append(nameServers, value)
		case field.IsDate():
			// 无法解析的日期视同该行不存在
			if t, ok := p.parseDate(value); ok {
				record.setDate(field, t)
			}
		default:
			record.setText(field, value)
		}
	}

	if len(nameServers) > 0 {
		record.NameServers = Some(nameServers)
	}

	return record, nil
}

// splitLine 按第一个冒号拆分键值，去除两侧空白和\r
func splitLine(line string) (string, string, bool) {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}

	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}
