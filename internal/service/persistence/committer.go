package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"transgate/internal/config"
	"transgate/internal/model"
)

// DefaultTimeout 单次写入主存储的超时
const DefaultTimeout = 5 * time.Second

// Committer 提交翻译记录
// Commit 只返回是否写入主存储成功，任何失败都在内部处理
type Committer struct {
	sink     Sink
	fallback *FallbackStore
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
}

// NewCommitter 创建 Committer
func NewCommitter(sink Sink, fallback *FallbackStore, cfg *config.PersistenceConfig) *Committer {
	c := &Committer{
		sink:     sink,
		fallback: fallback,
		timeout:  cfg.Timeout,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(sink.Name(), cfg.Breaker)
	}
	return c
}

func newBreaker(name string, cfg config.BreakerConfig) *gobreaker.CircuitBreaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "persistence-" + name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("persistence breaker state changed")
		},
	})
}

// Sink 返回主存储
func (c *Committer) Sink() Sink { return c.sink }

// Commit 写入主存储，失败时写入本地备份
// 返回 true 表示主存储已确认写入
func (c *Committer) Commit(ctx context.Context, record *model.TranslationRecord) (stored bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("panic while committing translation record")
			stored = false
		}
	}()

	if !valid(record) {
		log.Warn().Msg("skip translation record with empty translated text")
		return false
	}

	err := c.save(ctx, record)
	if err == nil {
		log.Debug().Str("sink", c.sink.Name()).Msg("translation record saved")
		return true
	}

	log.Warn().Err(err).Str("sink", c.sink.Name()).Msg("failed to save translation record, writing backup")
	c.Fallback(record)
	return false
}

// Fallback 只写本地备份，返回文件路径；失败时返回空串
func (c *Committer) Fallback(record *model.TranslationRecord) string {
	if !valid(record) {
		return ""
	}
	path, err := c.fallback.Write(record)
	if err != nil {
		log.Error().Err(err).Str("dir", c.fallback.Dir()).Msg("failed to write translation backup")
		return ""
	}
	log.Info().Str("path", path).Msg("translation record saved to local backup")
	return path
}

func (c *Committer) save(ctx context.Context, record *model.TranslationRecord) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.breaker == nil {
		return c.sink.Save(ctx, record)
	}
	// 熔断打开时直接返回 ErrOpenState，不访问主存储
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.sink.Save(ctx, record)
	})
	return err
}

func valid(record *model.TranslationRecord) bool {
	return record != nil && strings.TrimSpace(record.TranslatedText) != ""
}
