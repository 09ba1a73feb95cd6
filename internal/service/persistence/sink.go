// Package persistence 翻译记录的尽力而为持久化
//
// 记录先交给 Sink（HTTP 记录服务或 MongoDB），失败时写入本地备份目录。
// 这里的任何失败都只记录日志，不会影响翻译结果的返回。
package persistence

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"transgate/internal/config"
	"transgate/internal/model"
)

// maxErrorBody SinkError 中保留的响应体字节数
const maxErrorBody = 256

// ErrSinkDisabled none sink 的固定错误，记录直接进入本地备份
var ErrSinkDisabled = errors.New("persistence sink disabled")

// Sink 翻译记录的主存储
type Sink interface {
	Name() string
	Save(ctx context.Context, record *model.TranslationRecord) error
}

// SinkError 主存储写入失败
type SinkError struct {
	Sink   string
	Status int // HTTP 状态码，非 HTTP 失败时为 0
	Body   string
	Err    error
}

func (e *SinkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s sink returned status %d: %s", e.Sink, e.Status, e.Body)
	}
	return fmt.Sprintf("%s sink failed: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// HTTPSink 把记录 POST 到外部记录服务，只有 201 视为成功
type HTTPSink struct {
	url  string
	http *resty.Client
}

// NewHTTPSink 创建 HTTP Sink
func NewHTTPSink(url string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		url:  url,
		http: resty.New().SetTimeout(timeout),
	}
}

func (s *HTTPSink) Name() string { return config.SinkHTTP }

// Save 实现 Sink
func (s *HTTPSink) Save(ctx context.Context, record *model.TranslationRecord) error {
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(record).
		Post(s.url)
	if err != nil {
		return &SinkError{Sink: s.Name(), Err: err}
	}
	if resp.StatusCode() != http.StatusCreated {
		return &SinkError{Sink: s.Name(), Status: resp.StatusCode(), Body: truncate(resp.String(), maxErrorBody)}
	}
	return nil
}

// RecordCreator 写入翻译记录的仓库
type RecordCreator interface {
	Create(ctx context.Context, record *model.TranslationRecord) error
}

// MongoSink 直接写入 MongoDB
type MongoSink struct {
	repo RecordCreator
}

// NewMongoSink 创建 MongoDB Sink
func NewMongoSink(repo RecordCreator) *MongoSink {
	return &MongoSink{repo: repo}
}

func (s *MongoSink) Name() string { return config.SinkMongo }

// Save 实现 Sink
func (s *MongoSink) Save(ctx context.Context, record *model.TranslationRecord) error {
	if err := s.repo.Create(ctx, record); err != nil {
		return &SinkError{Sink: s.Name(), Err: err}
	}
	return nil
}

type noneSink struct{}

// NoneSink 不写主存储，所有记录进入本地备份
func NoneSink() Sink { return noneSink{} }

func (noneSink) Name() string { return config.SinkNone }

func (noneSink) Save(context.Context, *model.TranslationRecord) error {
	return &SinkError{Sink: config.SinkNone, Err: ErrSinkDisabled}
}

// truncate 按字节截断，不留下半个 UTF-8 字符
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
