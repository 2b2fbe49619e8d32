/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2026-01-12
 * @Description: 可选值类型 - 显式区分字段"存在"与"缺失"
 */

package parser

import (
	"bytes"
	"encoding/json"
)

// Optional 表示一个可能缺失的值
// 零值即为缺失，不使用空字符串或零时间作为占位
type Optional[T any] struct {
	value T
	ok    bool
}

// Some 构造一个存在的值
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// Get 返回值以及是否存在
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

func (o Optional[T]) IsPresent() bool {
	return o.ok
}

// OrElse 缺失时返回def
func (o Optional[T]) OrElse(def T) T {
	if !o.ok {
		return def
	}
	return o.value
}

// MarshalJSON 缺失时输出null
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON null还原为缺失，供缓存反序列化使用
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
