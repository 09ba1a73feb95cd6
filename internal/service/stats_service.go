package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"transgate/internal/model"
	"transgate/internal/pkg/cache"
)

// ErrStatsUnavailable 没有可用的统计来源
var ErrStatsUnavailable = errors.New("stats backend not configured")

// Counter 计数器（Redis）
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) error
	Int(ctx context.Context, key string) (int64, error)
}

// RecordCounter 按时间统计记录数（MongoDB）
type RecordCounter interface {
	Count(ctx context.Context, since time.Time) (int64, error)
}

// StatsService 翻译次数统计
// 优先使用 Redis 计数；未配置 Redis 时从 MongoDB 记录统计
type StatsService struct {
	counter Counter
	records RecordCounter
	now     func() time.Time
}

// NewStatsService 创建统计服务，两个来源都可以为 nil
func NewStatsService(counter Counter, records RecordCounter) *StatsService {
	return &StatsService{counter: counter, records: records, now: time.Now}
}

// Available 是否有可用的统计来源
func (s *StatsService) Available() bool {
	return s != nil && (s.counter != nil || s.records != nil)
}

// Record 记录一次完成的翻译，失败只记日志
func (s *StatsService) Record(ctx context.Context) {
	if s == nil || s.counter == nil {
		return
	}
	if err := s.counter.Incr(ctx, cache.StatsTotalKey, 0); err != nil {
		log.Warn().Err(err).Msg("failed to increase total translation counter")
		return
	}
	if err := s.counter.Incr(ctx, cache.StatsDailyKey(s.now()), cache.StatsDailyTTL); err != nil {
		log.Warn().Err(err).Msg("failed to increase daily translation counter")
	}
}

// Stats 返回总数和今日数量
func (s *StatsService) Stats(ctx context.Context) (*model.TranslationStats, error) {
	if !s.Available() {
		return nil, ErrStatsUnavailable
	}

	now := s.now()
	if s.counter != nil {
		total, err := s.counter.Int(ctx, cache.StatsTotalKey)
		if err != nil {
			return nil, err
		}
		today, err := s.counter.Int(ctx, cache.StatsDailyKey(now))
		if err != nil {
			return nil, err
		}
		return &model.TranslationStats{TotalTranslations: total, TodayTranslations: today}, nil
	}

	total, err := s.records.Count(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.records.Count(ctx, midnight)
	if err != nil {
		return nil, err
	}
	return &model.TranslationStats{TotalTranslations: total, TodayTranslations: today}, nil
}
