package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"transgate/internal/service"
)

// StatsHandler 翻译统计处理器
type StatsHandler struct {
	svc *service.StatsService
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// Stats 翻译次数统计
// @Summary      翻译统计
// @Tags         翻译
// @Produce      json
// @Success      200  {object}  model.TranslationStats
// @Failure      500  {object}  ErrorResponse  "统计失败"
// @Router       /api/stats [get]
func (h *StatsHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, CodeBackendFailure, "获取统计失败", err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}
