package ai

import (
	"fmt"

	"transgate/internal/model"
)

// DefaultSystemPrompt 默认翻译助手人设
const DefaultSystemPrompt = "你是一个专业翻译助手，能够准确流畅地进行多语言翻译。"

// AutoLang 自动识别源语言
const AutoLang = "auto"

// BuildPrompt 构造用户提示词
func BuildPrompt(req *model.TranslationRequest) string {
	if req.SourceLang == "" || req.SourceLang == AutoLang {
		return fmt.Sprintf("将以下文本翻译成%s语言:\n\n%s", req.TargetLang, req.Text)
	}
	return fmt.Sprintf("将以下%s文本翻译成%s语言:\n\n%s", req.SourceLang, req.TargetLang, req.Text)
}

// BuildRequest 构造上游请求：固定的 system 人设 + 用户提示词
func BuildRequest(req *model.TranslationRequest, systemPrompt string) *Request {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Request{
		Messages: []model.ChatMessage{
			{Role: model.RoleSystem, Content: systemPrompt},
			{Role: model.RoleUser, Content: BuildPrompt(req)},
		},
		Translation: req,
	}
}
