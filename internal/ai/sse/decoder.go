// Package sse 解析上游 chat-completion 流式响应（server-sent events）
//
// 上游按 "data: <json>\n\n" 逐条推送增量内容，以 "data: [DONE]" 结束。
// Decoder 以扫描器的方式逐个产出内容片段，单条畸形数据只记录日志并跳过。
package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// DonePayload 流结束标记
const DonePayload = "[DONE]"

const (
	dataPrefix    = "data:"
	maxLineLength = 1024 * 1024
)

// DecodeError 单条 SSE 数据无法解析
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed sse payload %q: %v", truncate(e.Payload, 120), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// chunk OpenAI 兼容的流式响应片段
type chunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Decoder SSE 解码器，单次遍历，不可重启
type Decoder struct {
	scanner  *bufio.Scanner
	fragment string
	err      error
	done     bool
	skipped  int

	// OnMalformed 畸形数据回调，默认写 warn 日志
	OnMalformed func(err *DecodeError)
}

// NewDecoder 创建解码器
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	return &Decoder{
		scanner: scanner,
		OnMalformed: func(err *DecodeError) {
			log.Warn().Err(err.Err).Str("payload", truncate(err.Payload, 200)).Msg("skip malformed sse chunk")
		},
	}
}

// Next 前进到下一个内容片段；遇到 [DONE]、流关闭或读取错误时返回 false
func (d *Decoder) Next() bool {
	if d.done {
		return false
	}

	for d.scanner.Scan() {
		payload, ok := dataPayload(d.scanner.Text())
		if !ok {
			continue
		}
		if payload == DonePayload {
			d.done = true
			d.fragment = ""
			return false
		}

		content, err := decodeContent(payload)
		if err != nil {
			d.skipped++
			if d.OnMalformed != nil {
				d.OnMalformed(&DecodeError{Payload: payload, Err: err})
			}
			continue
		}
		// 只有角色或 finish_reason 的片段没有内容
		if content == "" {
			continue
		}

		d.fragment = content
		return true
	}

	d.done = true
	d.fragment = ""
	d.err = d.scanner.Err()
	return false
}

// Fragment 返回当前内容片段
func (d *Decoder) Fragment() string {
	return d.fragment
}

// Err 返回底层读取错误；正常结束（[DONE] 或 EOF）时为 nil
func (d *Decoder) Err() error {
	return d.err
}

// Skipped 返回被跳过的畸形数据条数
func (d *Decoder) Skipped() int {
	return d.skipped
}

// ReadAll 解码整个流，返回全部片段
func ReadAll(r io.Reader) ([]string, error) {
	dec := NewDecoder(r)
	var fragments []string
	for dec.Next() {
		fragments = append(fragments, dec.Fragment())
	}
	return fragments, dec.Err()
}

// dataPayload 提取 "data:" 行的负载；空行、注释、其他字段返回 false
func dataPayload(line string) (string, bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == "" {
		return "", false
	}
	return payload, true
}

func decodeContent(payload string) (string, error) {
	var c chunk
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return "", err
	}
	if len(c.Choices) == 0 || c.Choices[0].Delta.Content == nil {
		return "", nil
	}
	return *c.Choices[0].Delta.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "..."
}
