package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"transgate/internal/ai"
	"transgate/internal/config"
	"transgate/internal/model"
)

// ErrEmptyText 待翻译文本为空
var ErrEmptyText = errors.New("请提供要翻译的文本")

// ProviderSource 提供当前生效的上游 Provider
type ProviderSource interface {
	Get() ai.Provider
}

// RecordCommitter 同步提交翻译记录
type RecordCommitter interface {
	Commit(ctx context.Context, record *model.TranslationRecord) bool
}

// RecordSubmitter 异步提交翻译记录，不阻塞调用方
type RecordSubmitter interface {
	Submit(record *model.TranslationRecord) bool
}

// TranslateService 翻译服务
// 职责: 参数校验 -> 调用上游 -> 返回结果 -> 尽力而为地持久化
type TranslateService struct {
	providers  ProviderSource
	committer  RecordCommitter
	dispatcher RecordSubmitter
	stats      *StatsService
	cfg        config.TranslateConfig
}

// NewTranslateService 创建翻译服务，stats 可以为 nil
func NewTranslateService(
	providers ProviderSource,
	committer RecordCommitter,
	dispatcher RecordSubmitter,
	stats *StatsService,
	cfg config.TranslateConfig,
) *TranslateService {
	if cfg.DefaultSourceLang == "" {
		cfg.DefaultSourceLang = ai.AutoLang
	}
	if cfg.DefaultTargetLang == "" {
		cfg.DefaultTargetLang = "en"
	}
	return &TranslateService{
		providers:  providers,
		committer:  committer,
		dispatcher: dispatcher,
		stats:      stats,
		cfg:        cfg,
	}
}

// Normalize 校验请求并补齐默认语言，不修改入参
// 只拒绝空串，纯空白文本照常交给上游
func (s *TranslateService) Normalize(req *model.TranslationRequest) (*model.TranslationRequest, error) {
	if req == nil || req.Text == "" {
		return nil, ErrEmptyText
	}

	out := *req
	if out.SourceLang == "" {
		out.SourceLang = s.cfg.DefaultSourceLang
	}
	if out.TargetLang == "" {
		out.TargetLang = s.cfg.DefaultTargetLang
	}
	return &out, nil
}

// Translate 非流式翻译
// 持久化同步执行，但其结果只影响 stored 字段
func (s *TranslateService) Translate(ctx context.Context, req *model.TranslationRequest, clientIP string) (*model.TranslationResult, error) {
	req, err := s.Normalize(req)
	if err != nil {
		return nil, err
	}

	provider := s.providers.Get()
	logger := log.With().
		Str("provider", provider.Name()).
		Str("source_lang", req.SourceLang).
		Str("target_lang", req.TargetLang).
		Logger()

	translated, err := provider.Chat(ctx, ai.BuildRequest(req, s.cfg.SystemPrompt))
	if err != nil {
		logger.Error().Err(err).Msg("translation failed")
		return nil, err
	}

	result := &model.TranslationResult{
		OriginalText:   req.Text,
		TranslatedText: translated,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		Mode:           provider.Mode(),
	}

	// 客户端断开不影响持久化
	persistCtx := context.WithoutCancel(ctx)
	record := model.NewTranslationRecord(req, translated, clientIP, provider.Model())
	result.Stored = s.committer.Commit(persistCtx, record)
	s.stats.Record(persistCtx)

	logger.Info().
		Int("text_len", len(req.Text)).
		Bool("stored", result.Stored).
		Msg("translation completed")

	return result, nil
}

// Relay 流式翻译，返回的事件通道在终止事件之后关闭
// 事件序列: start, update*, (end|error)。ctx 取消后停止读取上游并关闭通道，不再发送终止事件。
// 上游读完后即产生记录，即使 end 因客户端断开未能发出；记录在通道关闭之后交给后台持久化。
func (s *TranslateService) Relay(ctx context.Context, req *model.TranslationRequest, clientIP string) <-chan model.StreamEvent {
	events := make(chan model.StreamEvent)
	provider := s.providers.Get()

	go func() {
		record, ok := s.relay(ctx, provider, req, clientIP, events)
		close(events)
		if !ok {
			return
		}
		s.dispatcher.Submit(record)
		s.stats.Record(context.WithoutCancel(ctx))
	}()

	return events
}

func (s *TranslateService) relay(
	ctx context.Context,
	provider ai.Provider,
	req *model.TranslationRequest,
	clientIP string,
	events chan<- model.StreamEvent,
) (*model.TranslationRecord, bool) {
	emit := func(ev model.StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	normalized, err := s.Normalize(req)
	if err != nil {
		if req == nil {
			req = &model.TranslationRequest{}
		}
		if emit(model.StartEvent(req.SourceLang, req.TargetLang)) {
			emit(model.ErrorEvent(err.Error()))
		}
		return nil, false
	}
	req = normalized

	logger := log.With().
		Str("provider", provider.Name()).
		Str("source_lang", req.SourceLang).
		Str("target_lang", req.TargetLang).
		Logger()

	if !emit(model.StartEvent(req.SourceLang, req.TargetLang)) {
		return nil, false
	}

	stream, err := provider.ChatStream(ctx, ai.BuildRequest(req, s.cfg.SystemPrompt))
	if err != nil {
		logger.Error().Err(err).Msg("failed to open upstream stream")
		emit(model.ErrorEvent(err.Error()))
		return nil, false
	}
	defer stream.Close()

	var (
		acc       strings.Builder
		fragments int
	)
	for stream.Next() {
		fragment := stream.Fragment()
		if fragment == "" {
			continue
		}
		acc.WriteString(fragment)
		fragments++
		if !emit(model.UpdateEvent(fragment, acc.String())) {
			logger.Info().Int("fragments", fragments).Msg("client disconnected, relay stopped")
			return nil, false
		}
	}

	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			logger.Info().Int("fragments", fragments).Msg("client disconnected, relay stopped")
			return nil, false
		}
		logger.Error().Err(err).Int("fragments", fragments).Msg("upstream stream failed")
		emit(model.ErrorEvent(err.Error()))
		return nil, false
	}

	// 上游已读完，final_text 已确定；之后客户端断开只影响 end 的投递，不影响持久化
	final := acc.String()
	record := model.NewTranslationRecord(req, final, clientIP, provider.Model())
	if !emit(model.EndEvent(final)) {
		logger.Info().Int("fragments", fragments).Msg("client disconnected before end, record kept")
		return record, true
	}

	logger.Info().Int("fragments", fragments).Int("text_len", len(req.Text)).Msg("stream translation completed")
	return record, true
}
