package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind 上游错误分类
type ErrorKind int

const (
	KindConfig ErrorKind = iota + 1
	KindAuth
	KindEndpointNotFound
	KindTimeout
	KindTransport
	KindUpstreamHTTP
)

// 用于 errors.Is 判断的哨兵错误
var (
	ErrConfig           = errors.New("upstream config error")
	ErrAuth             = errors.New("upstream auth error")
	ErrEndpointNotFound = errors.New("upstream endpoint not found")
	ErrTimeout          = errors.New("upstream timeout")
	ErrTransport        = errors.New("upstream transport error")
	ErrUpstreamHTTP     = errors.New("upstream http error")
)

var kindSentinels = map[ErrorKind]error{
	KindConfig:           ErrConfig,
	KindAuth:             ErrAuth,
	KindEndpointNotFound: ErrEndpointNotFound,
	KindTimeout:          ErrTimeout,
	KindTransport:        ErrTransport,
	KindUpstreamHTTP:     ErrUpstreamHTTP,
}

// UpstreamError 上游调用失败
type UpstreamError struct {
	Kind   ErrorKind
	Status int    // HTTP 状态码（仅 HTTP 类错误）
	Body   string // 响应体摘要
	Err    error
}

// Error 返回面向用户的错误信息
func (e *UpstreamError) Error() string {
	switch e.Kind {
	case KindConfig:
		return "未配置API密钥"
	case KindAuth:
		return "API密钥无效或已过期(401)"
	case KindEndpointNotFound:
		return "API端点未找到(404)，请检查API URL是否正确"
	case KindTimeout:
		return fmt.Sprintf("API请求超时: %v", e.Err)
	case KindTransport:
		return fmt.Sprintf("API请求失败: %v", e.Err)
	default:
		if e.Body != "" {
			return fmt.Sprintf("API HTTP错误(%d): %s", e.Status, e.Body)
		}
		return fmt.Sprintf("API HTTP错误(%d)", e.Status)
	}
}

// Unwrap 返回底层错误
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is 按错误分类匹配哨兵错误
func (e *UpstreamError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func configError() error {
	return &UpstreamError{Kind: KindConfig}
}

// httpStatusError 根据状态码构造错误
func httpStatusError(status int, body []byte) error {
	excerpt := abbreviate(string(body), 512)
	switch status {
	case 401:
		return &UpstreamError{Kind: KindAuth, Status: status, Body: excerpt}
	case 404:
		return &UpstreamError{Kind: KindEndpointNotFound, Status: status, Body: excerpt}
	default:
		return &UpstreamError{Kind: KindUpstreamHTTP, Status: status, Body: excerpt}
	}
}

// classifyError 将网络层错误归类为超时或传输错误
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &UpstreamError{Kind: KindTimeout, Err: err}
	}
	return &UpstreamError{Kind: KindTransport, Err: err}
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return strings.ToValidUTF8(s[:n], "")
	}
	return strings.ToValidUTF8(s[:n-3], "") + "..."
}
