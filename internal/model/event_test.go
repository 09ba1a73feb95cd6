package model

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStreamEvent_MarshalJSON(t *testing.T) {
	Convey("事件序列化只包含所属字段", t, func() {
		cases := []struct {
			event StreamEvent
			want  string
		}{
			{StartEvent("zh", "en"), `{"type":"start","source_lang":"zh","target_lang":"en"}`},
			{UpdateEvent("lo", "Hello"), `{"type":"update","delta":"lo","cumulative_text":"Hello"}`},
			{EndEvent(""), `{"type":"end","final_text":""}`},
			{ErrorEvent("未配置API密钥"), `{"type":"error","message":"未配置API密钥"}`},
		}
		for _, c := range cases {
			data, err := json.Marshal(c.event)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, c.want)
		}

		Convey("终止事件", func() {
			So(EndEvent("x").IsTerminal(), ShouldBeTrue)
			So(ErrorEvent("x").IsTerminal(), ShouldBeTrue)
			So(UpdateEvent("x", "x").IsTerminal(), ShouldBeFalse)
		})
	})
}

func TestNewTranslationRecord(t *testing.T) {
	Convey("记录使用约定的驼峰字段", t, func() {
		req := &TranslationRequest{Text: "你好", SourceLang: "zh", TargetLang: "en"}
		record := NewTranslationRecord(req, "Hello", "127.0.0.1", "deepseek-chat")

		data, err := json.Marshal(record)
		So(err, ShouldBeNil)

		var m map[string]any
		So(json.Unmarshal(data, &m), ShouldBeNil)
		So(m, ShouldResemble, map[string]any{
			"originalText":   "你好",
			"translatedText": "Hello",
			"sourceLang":     "zh",
			"targetLang":     "en",
			"ipAddress":      "127.0.0.1",
			"model":          "deepseek-chat",
		})
		So(record.Collection(), ShouldEqual, "translation_records")
	})
}
