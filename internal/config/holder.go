package config

import (
	"sync"
	"sync/atomic"
)

// AIHolder 运行时可替换的上游配置
// 读取无锁（原子快照），写入串行化；已开始的请求继续使用它拿到的快照
type AIHolder struct {
	mu      sync.Mutex
	current atomic.Pointer[AIConfig]
}

// NewAIHolder 创建配置持有者
func NewAIHolder(cfg AIConfig) *AIHolder {
	h := &AIHolder{}
	h.current.Store(&cfg)
	return h
}

// Load 获取当前配置快照（调用方不得修改）
func (h *AIHolder) Load() *AIConfig {
	return h.current.Load()
}

// Update 基于当前快照生成新配置并原子替换
func (h *AIHolder) Update(fn func(cfg *AIConfig)) *AIConfig {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := *h.current.Load()
	fn(&next)
	h.current.Store(&next)
	return &next
}
