package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"transgate/internal/model"
	httputil "transgate/internal/pkg/http"
	"transgate/internal/repository"
)

// RecordLister 查询最近的翻译记录
type RecordLister interface {
	ListRecent(ctx context.Context, limit int64) ([]*model.TranslationRecord, error)
}

// HistoryHandler 翻译历史处理器
type HistoryHandler struct {
	records RecordLister
}

// NewHistoryHandler 创建翻译历史处理器
func NewHistoryHandler(records RecordLister) *HistoryHandler {
	return &HistoryHandler{records: records}
}

// HistoryItem 历史记录（不包含客户端地址）
type HistoryItem struct {
	ID             string `json:"id"`
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	SourceLang     string `json:"sourceLang"`
	TargetLang     string `json:"targetLang"`
	Model          string `json:"model"`
	CreatedAt      string `json:"createdAt"`
}

func toHistoryItem(record *model.TranslationRecord) HistoryItem {
	return HistoryItem{
		ID:             record.ID.Hex(),
		OriginalText:   record.OriginalText,
		TranslatedText: record.TranslatedText,
		SourceLang:     record.SourceLang,
		TargetLang:     record.TargetLang,
		Model:          record.Model,
		CreatedAt:      record.CreatedAt.Format(time.RFC3339),
	}
}

// List 最近的翻译记录
// @Summary      翻译历史
// @Description  按创建时间倒序返回最近的翻译记录，仅在配置 MongoDB 时可用
// @Tags         翻译
// @Produce      json
// @Param        limit  query     int  false  "返回条数，默认 20，最大 100"
// @Success      200    {object}  SuccessResponse
// @Failure      400    {object}  ErrorResponse  "请求参数错误"
// @Failure      500    {object}  ErrorResponse  "查询失败"
// @Router       /api/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	limit := repository.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			abortWithError(c, http.StatusBadRequest, CodeInvalidBody, "limit 必须是正整数")
			return
		}
		limit = n
	}

	records, err := h.records.ListRecent(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, CodeBackendFailure, "查询翻译记录失败", err.Error())
		return
	}

	items := make([]HistoryItem, len(records))
	for i, record := range records {
		items[i] = toHistoryItem(record)
	}
	c.JSON(http.StatusOK, httputil.NewSuccessResponse("ok", items))
}
