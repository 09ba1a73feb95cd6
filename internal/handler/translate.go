package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"transgate/internal/model"
	"transgate/internal/service"
)

// TranslateHandler 翻译处理器
type TranslateHandler struct {
	svc *service.TranslateService
}

// NewTranslateHandler 创建翻译处理器
func NewTranslateHandler(svc *service.TranslateService) *TranslateHandler {
	return &TranslateHandler{svc: svc}
}

// Translate 非流式翻译
// @Summary      翻译文本
// @Description  调用上游大模型翻译文本，翻译记录尽力写入记录服务，stored 表示是否写入成功
// @Tags         翻译
// @Accept       json
// @Produce      json
// @Param        request  body      model.TranslationRequest  true  "翻译请求"
// @Success      200      {object}  model.TranslationResult
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      500      {object}  ErrorResponse  "上游调用失败或未配置密钥"
// @Router       /api/translate [post]
func (h *TranslateHandler) Translate(c *gin.Context) {
	var req model.TranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, CodeInvalidBody, msgInvalidBody, err.Error())
		return
	}

	result, err := h.svc.Translate(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		status, code := translationError(err)
		abortWithError(c, status, code, err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}

// TranslateStream 流式翻译 (SSE)
// @Summary      流式翻译文本
// @Description  以 text/event-stream 返回 start、update、end/error 事件，每行格式为 data: <json>
// @Tags         翻译
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body      model.TranslationRequest  true  "翻译请求"
// @Success      200      {object}  model.StreamEvent
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Router       /api/translate/stream [post]
func (h *TranslateHandler) TranslateStream(c *gin.Context) {
	var req model.TranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, CodeInvalidBody, msgInvalidBody, err.Error())
		return
	}

	// 参数错误在开始推流之前以普通 JSON 返回
	normalized, err := h.svc.Normalize(&req)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, CodeEmptyText, err.Error())
		return
	}

	events := h.svc.Relay(c.Request.Context(), normalized, c.ClientIP())

	// 设置 SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		if err := writeEvent(w, ev); err != nil {
			log.Warn().Err(err).Str("request_id", c.GetString("request_id")).Msg("failed to write stream event")
			return false
		}
		return !ev.IsTerminal()
	})
}

// writeEvent 写一条 data: <json> 事件
func writeEvent(w io.Writer, ev model.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
