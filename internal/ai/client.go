package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"transgate/internal/ai/sse"
	"transgate/internal/config"
	"transgate/internal/model"
)

// 上游默认参数
const (
	DefaultTimeout     = 300 * time.Second
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 8192

	chatCompletionsPath = "/chat/completions"
	errorBodyLimit      = 4096
)

// Client OpenAI 兼容的 chat-completion 客户端
// 职责: 发起一次上游请求，把传输层/HTTP 失败归类为 UpstreamError，不做重试
type Client struct {
	cfg  config.AIConfig
	http *resty.Client
}

// NewClient 创建上游客户端
func NewClient(cfg config.AIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if cfg.Options.Temperature <= 0 {
		cfg.Options.Temperature = DefaultTemperature
	}
	if cfg.Options.MaxTokens <= 0 {
		cfg.Options.MaxTokens = DefaultMaxTokens
	}

	return &Client{
		cfg:  cfg,
		http: resty.New().SetTimeout(timeout),
	}
}

// chatCompletionRequest 上游请求体
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []model.ChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	TopP        float64             `json:"top_p,omitempty"`
	Stream      bool                `json:"stream"`
}

// chatCompletionResponse 上游非流式响应体
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Name 实现 Provider
func (c *Client) Name() string { return config.ProviderOpenAI }

// Model 实现 Provider
func (c *Client) Model() string { return c.cfg.Model }

// Mode 实现 Provider
func (c *Client) Mode() string { return model.ModeAPI }

// Endpoint 返回完整的 chat-completions 地址
// base_url 已经是完整地址时原样使用
func (c *Client) Endpoint() string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if strings.HasSuffix(base, chatCompletionsPath) {
		return base
	}
	return base + chatCompletionsPath
}

// Chat 同步翻译，返回去除首尾空白的结果
func (c *Client) Chat(ctx context.Context, req *Request) (string, error) {
	resp, err := c.send(ctx, req.Messages, false)
	if err != nil {
		return "", err
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", &UpstreamError{
			Kind:   KindUpstreamHTTP,
			Status: resp.StatusCode(),
			Body:   abbreviate(resp.String(), 512),
			Err:    err,
		}
	}
	if len(out.Choices) == 0 {
		return "", &UpstreamError{
			Kind:   KindUpstreamHTTP,
			Status: resp.StatusCode(),
			Body:   "no choices returned",
		}
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// ChatStream 流式翻译
// 返回的 Stream 持有上游连接，调用方必须 Close
func (c *Client) ChatStream(ctx context.Context, req *Request) (Stream, error) {
	resp, err := c.send(ctx, req.Messages, true)
	if err != nil {
		return nil, err
	}

	body := resp.RawBody()
	return &httpStream{body: body, dec: sse.NewDecoder(body)}, nil
}

// send 发起一次上游 POST
func (c *Client) send(ctx context.Context, messages []model.ChatMessage, streaming bool) (*resty.Response, error) {
	if c.cfg.APIKey == "" {
		return nil, configError()
	}
	if len(messages) == 0 {
		return nil, errors.New("messages must not be empty")
	}

	body := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Options.Temperature,
		MaxTokens:   c.cfg.Options.MaxTokens,
		TopP:        c.cfg.Options.TopP,
		Stream:      streaming,
	}

	accept := "application/json"
	if streaming {
		accept = "text/event-stream"
	}

	log.Debug().
		Str("endpoint", c.Endpoint()).
		Str("model", c.cfg.Model).
		Bool("stream", streaming).
		Msg("calling upstream")

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", accept).
		SetBody(body).
		SetDoNotParseResponse(streaming).
		Post(c.Endpoint())
	if err != nil {
		return nil, classifyError(err)
	}

	if !resp.IsSuccess() {
		var errBody []byte
		if streaming {
			raw := resp.RawBody()
			errBody, _ = io.ReadAll(io.LimitReader(raw, errorBodyLimit))
			_ = raw.Close()
		} else {
			errBody = resp.Body()
		}
		log.Warn().
			Int("status", resp.StatusCode()).
			Str("body", abbreviate(string(errBody), 200)).
			Msg("upstream returned non-success status")
		return nil, httpStatusError(resp.StatusCode(), errBody)
	}

	return resp, nil
}

// httpStream 基于 SSE 解码器的上游流
type httpStream struct {
	body io.ReadCloser
	dec  *sse.Decoder
}

func (s *httpStream) Next() bool       { return s.dec.Next() }
func (s *httpStream) Fragment() string { return s.dec.Fragment() }

func (s *httpStream) Err() error {
	return classifyError(s.dec.Err())
}

func (s *httpStream) Close() error {
	return s.body.Close()
}
