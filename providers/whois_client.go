/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-01-19 10:15:00
 * @Description: WHOIS TCP客户端 - 基于端口43的传统WHOIS查询
 */
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
	"unicode"

	"whoiskit/pkg/logger"
)

const (
	// DefaultPort WHOIS标准端口
	DefaultPort = "43"
	// DefaultTimeout 单次查询的默认超时
	DefaultTimeout = 10 * time.Second
	// DefaultMaxResponseBytes 单次响应最多读取1MB，超出部分截断
	DefaultMaxResponseBytes int64 = 1 << 20
)

// ErrEmptyResponse 服务器关闭连接前没有返回任何数据
var ErrEmptyResponse = errors.New("whois server returned no data")

// ErrInvalidQuery 查询内容包含控制字符或空白，会被服务器当作多条命令
var ErrInvalidQuery = errors.New("whois query contains control or whitespace characters")

// QueryError 查询过程中的网络错误
type QueryError struct {
	Server string
	Domain string
	Op     string // dial / write / read
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("whois %s %s via %s: %v", e.Op, e.Domain, e.Server, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// WhoisClient 端口43查询客户端
// 每次查询都新建连接，不做连接复用和重试
type WhoisClient struct {
	timeout          time.Duration
	maxResponseBytes int64
	ianaServer       string
	dialer           *net.Dialer
}

// ClientOption 客户端配置项
type ClientOption func(*WhoisClient)

// WithMaxResponseBytes 设置响应读取上限
func WithMaxResponseBytes(n int64) ClientOption {
	return func(c *WhoisClient) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

// WithIANAServer 替换用于发现权威服务器的IANA地址
func WithIANAServer(server string) ClientOption {
	return func(c *WhoisClient) {
		if server != "" {
			c.ianaServer = server
		}
	}
}

// NewWhoisClient 创建客户端，timeout<=0时使用默认超时
func NewWhoisClient(timeout time.Duration, opts ...ClientOption) *WhoisClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &WhoisClient{
		timeout:          timeout,
		maxResponseBytes: DefaultMaxResponseBytes,
		ianaServer:       IANAServer,
		dialer:           &net.Dialer{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query 向server发送domain查询并读取完整响应
// server 可以是 host 或 host:port，未指定端口时使用43
func (c *WhoisClient) Query(ctx context.Context, server, domain string) (string, error) {
	addr := NormalizeServer(server)
	if err := ValidateQuery(domain); err != nil {
		return "", &QueryError{Server: addr, Domain: domain, Op: "validate", Err: err}
	}
	log := logger.FromContext(ctx, "WhoisClient")
	log.Debugf("查询WHOIS服务器: %s，域名: %s", addr, domain)

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", &QueryError{Server: addr, Domain: domain, Op: "dial", Err: err}
	}
	defer conn.Close()

	// 读写超时取客户端超时与ctx截止时间中较早者
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", &QueryError{Server: addr, Domain: domain, Op: "dial", Err: err}
	}

	// ctx取消时立即打断阻塞中的读写
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := io.WriteString(conn, domain+"\r\n"); err != nil {
		return "", &QueryError{Server: addr, Domain: domain, Op: "write", Err: contextErr(ctx, err)}
	}

	data, truncated, err := readResponse(conn, c.maxResponseBytes)
	if err != nil {
		return "", &QueryError{Server: addr, Domain: domain, Op: "read", Err: contextErr(ctx, err)}
	}
	if len(data) == 0 {
		return "", &QueryError{Server: addr, Domain: domain, Op: "read", Err: ErrEmptyResponse}
	}
	if truncated {
		log.Warnf("WHOIS响应超过 %d 字节，已截断: %s", c.maxResponseBytes, addr)
	}

	log.Debugf("WHOIS服务器响应长度: %d 字节", len(data))
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

// readResponse 读取直到对端关闭连接，多读一个字节用于判断是否超过上限
func readResponse(r io.Reader, max int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > max {
		return data[:max], true, nil
	}
	return data, false, nil
}

// ValidateQuery 检查查询内容能否作为单行WHOIS请求发送
func ValidateQuery(query string) error {
	if strings.IndexFunc(query, func(r rune) bool {
		return unicode.IsControl(r) || unicode.IsSpace(r)
	}) >= 0 {
		return ErrInvalidQuery
	}
	return nil
}

// NormalizeServer 补全默认端口
func NormalizeServer(server string) string {
	server = strings.TrimSpace(server)
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, DefaultPort)
}

// contextErr ctx已结束时优先返回ctx的错误，方便调用方用errors.Is判断超时
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	// 连接超时与ctx截止时间相同，ctx的计时器可能稍晚触发
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			return context.DeadlineExceeded
		}
	}
	return err
}
