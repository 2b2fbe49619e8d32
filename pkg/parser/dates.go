/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2026-01-12
 * @Description: 日期格式回退链
 */

package parser

import (
	"time"

	"github.com/araddon/dateparse"
)

// defaultDateLayouts 按顺序尝试，命中第一个即停止
// 不带时区的格式按UTC处理
var defaultDateLayouts = []string{
	time.RFC3339,          // 2023-06-20T12:13:22Z，解析时兼容小数秒
	"2006-01-02 15:04:05", // 2023-06-20 12:13:22
	"2006-01-02T15:04:05", // 2023-06-20T12:13:22
	"2006-01-02 15:04:05Z07:00",
}

// parseDate 依次尝试日期格式，全部失败返回false
func (p *Parser) parseDate(value string) (time.Time, bool) {
	for _, layout := range p.layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}

	if p.lenient {
		if t, err := dateparse.ParseIn(value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}
