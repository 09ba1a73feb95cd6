package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"transgate/internal/ai"
	"transgate/internal/config"
	"transgate/internal/model"
)

// Upstream 当前上游 Provider 及其运行时配置
type Upstream interface {
	Get() ai.Provider
	Config() *config.AIConfig
	Reconfigure(ctx context.Context, fn func(cfg *config.AIConfig)) (*config.AIConfig, error)
}

// Languages 支持的语言
var Languages = map[string]string{
	"zh": "中文",
	"en": "英语",
	"ja": "日语",
	"ko": "韩语",
	"fr": "法语",
	"de": "德语",
	"es": "西班牙语",
	"ru": "俄语",
	"ar": "阿拉伯语",
	"pt": "葡萄牙语",
	"it": "意大利语",
}

// MetaHandler 服务信息与上游配置处理器
type MetaHandler struct {
	upstream Upstream
}

// NewMetaHandler 创建服务信息处理器
func NewMetaHandler(upstream Upstream) *MetaHandler {
	return &MetaHandler{upstream: upstream}
}

// IndexResponse 首页响应
type IndexResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Model     string   `json:"model"`
	Endpoints []string `json:"endpoints"`
}

// ConfigRequest 上游配置请求
type ConfigRequest struct {
	APIKey   string `json:"api_key"`
	Model    string `json:"model,omitempty"`
	APIURL   string `json:"api_url,omitempty"`
	Provider string `json:"provider,omitempty"` // 为空时保持当前 provider
}

// Index 服务信息
// @Summary      服务信息
// @Tags         服务
// @Produce      json
// @Success      200  {object}  IndexResponse
// @Router       / [get]
func (h *MetaHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, IndexResponse{
		Status:  "ok",
		Message: "翻译API服务正在运行",
		Model:   h.upstream.Get().Model(),
		Endpoints: []string{
			"/api/translate - 翻译API",
			"/api/translate/stream - 流式翻译API",
			"/api/languages - 获取支持的语言",
			"/api/check - 检查API密钥",
			"/api/config - 配置API密钥",
			"/api/health - 健康检查",
		},
	})
}

// ListLanguages 支持的语言列表
// @Summary      支持的语言
// @Tags         服务
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/languages [get]
func (h *MetaHandler) ListLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, Languages)
}

// Check 检查上游密钥是否已配置
// @Summary      检查API密钥
// @Tags         服务
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      500  {object}  StatusResponse  "未配置密钥"
// @Router       /api/check [get]
func (h *MetaHandler) Check(c *gin.Context) {
	provider := h.upstream.Get()
	if provider.Mode() == model.ModeOffline {
		c.JSON(http.StatusOK, StatusResponse{
			Status:      "ok",
			Message:     msgOfflineEnabled,
			Model:       provider.Model(),
			OfflineMode: boolPtr(true),
		})
		return
	}

	if h.upstream.Config().APIKey == "" {
		c.JSON(http.StatusInternalServerError, StatusResponse{Status: "error", Message: msgAPIKeyMissing})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		Status:      "ok",
		Message:     msgAPIKeyConfigured,
		Model:       provider.Model(),
		OfflineMode: boolPtr(false),
	})
}

// Configure 运行时修改上游配置
// @Summary      配置API密钥和模型
// @Description  修改后新请求使用新配置，进行中的请求不受影响。provider 为 offline 时不需要密钥。
// @Tags         服务
// @Accept       json
// @Produce      json
// @Param        request  body      ConfigRequest  true  "上游配置"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      500      {object}  ErrorResponse  "配置保存失败"
// @Router       /api/config [post]
func (h *MetaHandler) Configure(c *gin.Context) {
	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, CodeInvalidBody, msgInvalidBody, err.Error())
		return
	}

	if req.Provider != "" && !config.ValidProvider(req.Provider) {
		abortWithError(c, http.StatusBadRequest, CodeInvalidConfig, "不支持的provider: "+req.Provider)
		return
	}
	offline := req.Provider == config.ProviderOffline
	if !offline && req.APIKey == "" {
		abortWithError(c, http.StatusBadRequest, CodeInvalidConfig, msgAPIKeyRequired)
		return
	}

	applied, err := h.upstream.Reconfigure(c.Request.Context(), func(cfg *config.AIConfig) {
		if req.Provider != "" {
			cfg.Provider = req.Provider
		}
		if req.APIKey != "" {
			cfg.APIKey = req.APIKey
		}
		if req.Model != "" {
			cfg.Model = req.Model
		}
		if req.APIURL != "" {
			cfg.BaseURL = req.APIURL
		}
	})
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, CodeInternal, "配置保存失败: "+err.Error())
		return
	}

	if offline {
		c.JSON(http.StatusOK, StatusResponse{Status: "ok", Message: msgOfflineEnabled, OfflineMode: boolPtr(true)})
		return
	}
	c.JSON(http.StatusOK, StatusResponse{
		Status:      "ok",
		Message:     "API配置已更新",
		Model:       applied.Model,
		OfflineMode: boolPtr(false),
	})
}

// Health 服务健康状态
// @Summary      健康检查
// @Tags         服务
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /api/health [get]
func (h *MetaHandler) Health(c *gin.Context) {
	provider := h.upstream.Get()
	c.JSON(http.StatusOK, StatusResponse{
		Status:      "ok",
		Message:     msgServiceRunning,
		Model:       provider.Model(),
		OfflineMode: boolPtr(provider.Mode() == model.ModeOffline),
	})
}
