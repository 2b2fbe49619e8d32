/*
 * @Author: AsisYu
 * @Date: 2026-01-15
 * @Description: 原始WHOIS文本解析接口
 */
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"whoiskit/pkg/logger"
	"whoiskit/pkg/parser"
	"whoiskit/utils"

	"github.com/gin-gonic/gin"
)

// ParseRequest JSON形式的解析请求
type ParseRequest struct {
	Raw string `json:"raw"`
}

// ParseHandler 解析调用方提交的WHOIS原始文本
// 支持 application/json 的 {"raw": "..."} 或直接提交纯文本
func ParseHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "REQUEST_ENTITY_TOO_LARGE", "请求体过大")
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "无法读取请求体")
		return
	}

	raw := string(body)
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req ParseRequest
		if err := json.Unmarshal(body, &req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format: "+err.Error())
			return
		}
		raw = req.Raw
	}

	parse := parser.Parse
	if lookup, ok := lookupServiceFrom(c); ok {
		parse = lookup.Parse
	}

	record, err := parse(raw)
	if errors.Is(err, parser.ErrEmptyInput) {
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "EMPTY_INPUT", "WHOIS text is empty")
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	logger.WithRequest(c, "Parse").Debugf("解析完成: %d 字节, 识别字段: %v", len(body), !record.IsEmpty())
	utils.SuccessResponse(c, gin.H{
		"record":     record,
		"recognized": !record.IsEmpty(),
	}, nil)
}

// KeysHandler 列出解析器识别的全部键名
func KeysHandler(c *gin.Context) {
	keys := parser.KnownKeys()
	utils.SuccessResponse(c, gin.H{
		"keys":  keys,
		"count": len(keys),
	}, nil)
}
