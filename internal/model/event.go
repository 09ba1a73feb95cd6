package model

import "encoding/json"

// EventType 流式事件类型
type EventType string

const (
	EventStart  EventType = "start"
	EventUpdate EventType = "update"
	EventEnd    EventType = "end"
	EventError  EventType = "error"
)

// StreamEvent 流式翻译事件
// 顺序固定：一个 start，零或多个 update，最后恰好一个 end 或 error
type StreamEvent struct {
	Type           EventType `json:"type"`
	SourceLang     string    `json:"source_lang,omitempty"`
	TargetLang     string    `json:"target_lang,omitempty"`
	Delta          string    `json:"delta,omitempty"`
	CumulativeText string    `json:"cumulative_text,omitempty"`
	FinalText      string    `json:"final_text,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// MarshalJSON 每种事件只输出自己的字段，且字段即使为空也保留
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventStart:
		return json.Marshal(struct {
			Type       EventType `json:"type"`
			SourceLang string    `json:"source_lang"`
			TargetLang string    `json:"target_lang"`
		}{e.Type, e.SourceLang, e.TargetLang})
	case EventUpdate:
		return json.Marshal(struct {
			Type           EventType `json:"type"`
			Delta          string    `json:"delta"`
			CumulativeText string    `json:"cumulative_text"`
		}{e.Type, e.Delta, e.CumulativeText})
	case EventEnd:
		return json.Marshal(struct {
			Type      EventType `json:"type"`
			FinalText string    `json:"final_text"`
		}{e.Type, e.FinalText})
	case EventError:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Message string    `json:"message"`
		}{e.Type, e.Message})
	}
	type plain StreamEvent
	return json.Marshal(plain(e))
}

// IsTerminal 是否为终止事件
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventEnd || e.Type == EventError
}

// StartEvent 创建 start 事件
func StartEvent(sourceLang, targetLang string) StreamEvent {
	return StreamEvent{Type: EventStart, SourceLang: sourceLang, TargetLang: targetLang}
}

// UpdateEvent 创建 update 事件
func UpdateEvent(delta, cumulative string) StreamEvent {
	return StreamEvent{Type: EventUpdate, Delta: delta, CumulativeText: cumulative}
}

// EndEvent 创建 end 事件
func EndEvent(finalText string) StreamEvent {
	return StreamEvent{Type: EventEnd, FinalText: finalText}
}

// ErrorEvent 创建 error 事件
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, Message: message}
}
