package ai

import (
	"context"

	"transgate/internal/model"
)

// Request 发送给上游的翻译请求
type Request struct {
	Messages    []model.ChatMessage       // 发给大模型的消息序列
	Translation *model.TranslationRequest // 原始翻译请求（离线模式直接使用）
}

// Stream 上游流式响应，逐个产出内容片段
type Stream interface {
	// Next 前进到下一个片段；流结束或出错时返回 false
	Next() bool
	// Fragment 当前片段
	Fragment() string
	// Err 流结束后的错误，正常结束为 nil
	Err() error
	// Close 释放上游连接
	Close() error
}

// Provider 上游翻译能力
// 每种上游（OpenAI 兼容 HTTP、eino ChatModel、离线词典）各有一个实现，由配置选择
type Provider interface {
	Name() string
	Model() string
	// Mode 返回结果中的 mode 字段（api / offline）
	Mode() string
	// Chat 同步调用
	Chat(ctx context.Context, req *Request) (string, error)
	// ChatStream 流式调用；返回错误时不会产生任何片段
	ChatStream(ctx context.Context, req *Request) (Stream, error)
}
