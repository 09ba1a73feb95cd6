package component

import (
	"context"
	"fmt"

	arkext "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"transgate/internal/config"
)

const (
	defaultArkBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	defaultArkModel   = "doubao-seed-1-6-flash-250615"
)

// NewChatModel 创建 eino ChatModel
// 支持: eino-openai, azure, ark
func NewChatModel(ctx context.Context, cfg *config.AIConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case config.ProviderEinoOpenAI:
		return newOpenAIChatModel(ctx, cfg)
	case config.ProviderAzure:
		return newAzureChatModel(ctx, cfg)
	case config.ProviderArk:
		return newArkChatModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported eino provider: %s", cfg.Provider)
	}
}

// newOpenAIChatModel 创建 OpenAI 兼容 ChatModel
func newOpenAIChatModel(ctx context.Context, cfg *config.AIConfig) (model.ChatModel, error) {
	modelCfg := &openai.ChatModelConfig{
		Model:  cfg.Model,
		APIKey: cfg.APIKey,
	}

	// Base URL (用于代理或兼容 API，如 DeepSeek / ChatGLM)
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	temp, maxTokens, topP := modelOptions(cfg)
	modelCfg.Temperature = temp
	modelCfg.MaxTokens = maxTokens
	modelCfg.TopP = topP

	return openai.NewChatModel(ctx, modelCfg)
}

// newAzureChatModel 创建 Azure OpenAI ChatModel
func newAzureChatModel(ctx context.Context, cfg *config.AIConfig) (model.ChatModel, error) {
	modelCfg := &openai.ChatModelConfig{
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		ByAzure: true,
	}

	temp, maxTokens, _ := modelOptions(cfg)
	modelCfg.Temperature = temp
	modelCfg.MaxTokens = maxTokens

	return openai.NewChatModel(ctx, modelCfg)
}

// newArkChatModel 创建 Ark ChatModel
func newArkChatModel(ctx context.Context, cfg *config.AIConfig) (model.ChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultArkBaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultArkModel
	}

	modelCfg := &arkext.ChatModelConfig{
		Model:   modelName,
		APIKey:  cfg.APIKey,
		BaseURL: baseURL,
	}

	temp, maxTokens, topP := modelOptions(cfg)
	modelCfg.Temperature = temp
	modelCfg.MaxTokens = maxTokens
	modelCfg.TopP = topP

	return arkext.NewChatModel(ctx, modelCfg)
}

// modelOptions 将配置中的模型参数转换为 eino 需要的指针形式，未设置的保持 nil
func modelOptions(cfg *config.AIConfig) (temperature *float32, maxTokens *int, topP *float32) {
	if cfg.Options.Temperature > 0 {
		t := float32(cfg.Options.Temperature)
		temperature = &t
	}
	if cfg.Options.MaxTokens > 0 {
		m := cfg.Options.MaxTokens
		maxTokens = &m
	}
	if cfg.Options.TopP > 0 {
		p := float32(cfg.Options.TopP)
		topP = &p
	}
	return temperature, maxTokens, topP
}
