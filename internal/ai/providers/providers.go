// Package providers 根据配置创建上游 Provider，并支持运行时替换
package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"transgate/internal/ai"
	"transgate/internal/ai/component"
	"transgate/internal/ai/offline"
	"transgate/internal/config"
)

// New 根据配置创建 Provider
func New(ctx context.Context, cfg *config.AIConfig) (ai.Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return ai.NewClient(*cfg), nil
	case config.ProviderEinoOpenAI, config.ProviderAzure, config.ProviderArk:
		// 没有密钥时不创建 ChatModel，请求时返回 ConfigError
		if cfg.APIKey == "" {
			return ai.NewEinoProvider(cfg.Provider, cfg.Model, "", nil), nil
		}
		chatModel, err := component.NewChatModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return ai.NewEinoProvider(cfg.Provider, cfg.Model, cfg.APIKey, chatModel), nil
	case config.ProviderOffline:
		return offline.New(), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

// Holder 持有当前生效的 Provider
// 读取无锁；Reconfigure 串行执行，构建成功后才替换
type Holder struct {
	mu       sync.Mutex
	cfg      *config.AIHolder
	provider atomic.Pointer[providerBox]
}

type providerBox struct {
	provider ai.Provider
}

// NewHolder 按当前配置创建 Provider
func NewHolder(ctx context.Context, cfg *config.AIHolder) (*Holder, error) {
	p, err := New(ctx, cfg.Load())
	if err != nil {
		return nil, err
	}
	h := &Holder{cfg: cfg}
	h.provider.Store(&providerBox{provider: p})
	return h, nil
}

// Get 返回当前 Provider
func (h *Holder) Get() ai.Provider {
	return h.provider.Load().provider
}

// Config 返回当前上游配置快照
func (h *Holder) Config() *config.AIConfig {
	return h.cfg.Load()
}

// Reconfigure 修改上游配置并重建 Provider
// 构建失败时配置和 Provider 都保持不变
func (h *Holder) Reconfigure(ctx context.Context, fn func(cfg *config.AIConfig)) (*config.AIConfig, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := *h.cfg.Load()
	fn(&next)
	if !config.ValidProvider(next.Provider) {
		return nil, fmt.Errorf("unsupported AI provider: %s", next.Provider)
	}

	p, err := New(ctx, &next)
	if err != nil {
		return nil, err
	}

	applied := h.cfg.Update(func(cfg *config.AIConfig) { *cfg = next })
	h.provider.Store(&providerBox{provider: p})

	log.Info().
		Str("provider", applied.Provider).
		Str("model", applied.Model).
		Bool("api_key_configured", applied.APIKey != "").
		Msg("upstream reconfigured")

	return applied, nil
}
