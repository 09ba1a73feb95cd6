package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"transgate/internal/ai"
	httputil "transgate/internal/pkg/http"
	"transgate/internal/service"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// SuccessResponse 成功响应类型别名
type SuccessResponse = httputil.SuccessResponse

// StatusResponse 状态类接口的响应
type StatusResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Model       string `json:"model,omitempty"`
	OfflineMode *bool  `json:"offline_mode,omitempty"`
}

// 错误码
const (
	CodeInvalidBody    = 40001
	CodeEmptyText      = 40002
	CodeInvalidConfig  = 40003
	CodeUpstream       = 50001
	CodeNotConfigured  = 50002
	CodeInternal       = 50003
	CodeBackendFailure = 50004
	CodeNotReady       = 50301
)

const (
	msgInvalidBody      = "未收到有效的JSON数据"
	msgAPIKeyMissing    = "API密钥未配置"
	msgAPIKeyRequired   = "API密钥不能为空"
	msgAPIKeyConfigured = "API密钥已配置"
	msgServiceRunning   = "服务正常运行"
	msgOfflineEnabled   = "离线模式已启用"
)

func abortWithError(c *gin.Context, status, code int, message string, detail ...string) {
	c.AbortWithStatusJSON(status, httputil.NewErrorResponse(code, message, detail...))
}

// translationError 翻译失败时的 HTTP 状态和错误码
// 参数错误返回 400，其余（包括未配置密钥）都是服务端错误
func translationError(err error) (int, int) {
	switch {
	case errors.Is(err, service.ErrEmptyText):
		return http.StatusBadRequest, CodeEmptyText
	case errors.Is(err, ai.ErrConfig):
		return http.StatusInternalServerError, CodeNotConfigured
	default:
		return http.StatusInternalServerError, CodeUpstream
	}
}

func boolPtr(b bool) *bool { return &b }
