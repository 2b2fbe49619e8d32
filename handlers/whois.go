/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-01-18 00:57:29
 * @Description: Whois查询处理程序
 */
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"whoiskit/middleware"
	"whoiskit/pkg/logger"
	"whoiskit/pkg/parser"
	"whoiskit/providers"
	"whoiskit/services"
	"whoiskit/types"
	"whoiskit/utils"

	"github.com/gin-gonic/gin"
)

// 上下文键，与路由中间件约定
const (
	DomainKey         = "domain"
	RequestContextKey = "requestContext"
)

type lookupResult struct {
	response *types.WhoisResponse
	err      error
}

// lookupServiceFrom 从上下文获取查询服务
func lookupServiceFrom(c *gin.Context) (*services.LookupService, bool) {
	value, exists := c.Get(middleware.LookupServiceKey)
	if !exists {
		return nil, false
	}
	svc, ok := value.(*services.LookupService)
	return svc, ok && svc != nil
}

// requestContextFrom 优先使用中间件设置的带超时上下文
func requestContextFrom(c *gin.Context) context.Context {
	if value, exists := c.Get(RequestContextKey); exists {
		if ctx, ok := value.(context.Context); ok {
			return ctx
		}
	}
	return c.Request.Context()
}

// WhoisHandler WHOIS查询处理程序
// GET /api/v1/whois/:domain?server=host[:43]&raw=true&nocache=true
func WhoisHandler(c *gin.Context) {
	log := logger.WithRequest(c, "WHOIS")

	lookup, ok := lookupServiceFrom(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Lookup service not available")
		return
	}

	domain := c.GetString(DomainKey)
	if domain == "" {
		domain = c.Param("domain")
	}

	opts := types.LookupOptions{
		IncludeRaw: c.Query("raw") == "true",
		NoCache:    c.Query("nocache") == "true",
	}
	if server := strings.TrimSpace(c.Query("server")); server != "" {
		opts.Server = providers.NormalizeServer(server)
	}

	ctx := requestContextFrom(c)
	startTime := time.Now()
	results := make(chan lookupResult, 1)

	task := func() {
		response, err := lookup.Lookup(ctx, domain, opts)
		results <- lookupResult{response: response, err: err}
	}

	if value, exists := c.Get(middleware.WorkerPoolKey); exists {
		pool, _ := value.(*services.WorkerPool)
		if pool == nil || !pool.SubmitWithContext(ctx, task) {
			log.Warnf("查询域名 %s 失败: 工作池忙碌", domain)
			utils.ErrorResponse(c, http.StatusServiceUnavailable, "SERVICE_BUSY", "Service is busy, please try again later")
			return
		}
	} else {
		go task()
	}

	select {
	case result := <-results:
		if result.err != nil {
			status, code, message := classifyLookupError(result.err)
			log.Warnf("查询域名 %s 失败: %v", domain, result.err)
			utils.ErrorResponse(c, status, code, message)
			return
		}

		response := result.response
		utils.SuccessResponse(c, response, &utils.MetaInfo{
			Cached:     response.Cached,
			CachedAt:   response.CachedAt,
			Processing: time.Since(startTime).Milliseconds(),
		})
	case <-ctx.Done():
		log.Warnf("查询域名 %s 超时", domain)
		utils.ErrorResponse(c, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out")
	}
}

// classifyLookupError 将查询错误映射为HTTP状态码和错误码
func classifyLookupError(err error) (int, string, string) {
	var queryErr *providers.QueryError

	switch {
	case errors.Is(err, services.ErrDomainRequired):
		return http.StatusBadRequest, "MISSING_PARAMETER", "Domain parameter is required"
	case errors.Is(err, providers.ErrInvalidQuery):
		return http.StatusBadRequest, "INVALID_DOMAIN", "Domain must not contain whitespace or control characters"
	case errors.Is(err, services.ErrServerNotAllowed):
		return http.StatusBadRequest, "INVALID_SERVER", err.Error()
	case errors.Is(err, providers.ErrNoWhoisServer):
		return http.StatusNotFound, "NO_WHOIS_SERVER", "Could not find a WHOIS server for this domain"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "WHOIS server did not respond in time"
	case errors.Is(err, context.Canceled):
		return 499, "CANCELED", "Request canceled"
	case errors.Is(err, services.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "SERVER_UNAVAILABLE", err.Error()
	case errors.Is(err, providers.ErrEmptyResponse), errors.Is(err, parser.ErrEmptyInput):
		return http.StatusBadGateway, "EMPTY_RESPONSE", "WHOIS server returned an empty response"
	case errors.As(err, &queryErr):
		return http.StatusBadGateway, "QUERY_FAILED", queryErr.Error()
	default:
		return http.StatusInternalServerError, "QUERY_ERROR", err.Error()
	}
}

// ServersHandler 已查询过的WHOIS服务器及其熔断器状态
func ServersHandler(c *gin.Context) {
	lookup, ok := lookupServiceFrom(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Lookup service not available")
		return
	}

	breakers := lookup.BreakerStatus()
	utils.SuccessResponse(c, gin.H{
		"servers": breakers,
		"count":   len(breakers),
	}, nil)
}
