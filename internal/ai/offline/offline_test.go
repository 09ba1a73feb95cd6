package offline

import (
	"context"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"transgate/internal/ai"
	"transgate/internal/model"
)

func request(text, source, target string) *ai.Request {
	return ai.BuildRequest(&model.TranslationRequest{Text: text, SourceLang: source, TargetLang: target}, "")
}

func TestProvider_Chat(t *testing.T) {
	Convey("离线 Provider 使用词典翻译", t, func() {
		p := New()
		ctx := context.Background()

		So(p.Mode(), ShouldEqual, model.ModeOffline)
		So(p.Model(), ShouldEqual, ModelName)

		Convey("英译中替换常用词", func() {
			out, err := p.Chat(ctx, request("Hello World, Thank you", "en", "zh"))
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "你好 世界, 谢谢")
		})

		Convey("不支持的语言对返回带前缀的原文", func() {
			out, err := p.Chat(ctx, request("Bonjour", "fr", "en"))
			So(err, ShouldBeNil)
			So(out, ShouldEqual, UnsupportedPrefix+"Bonjour")
		})

		Convey("缺少原始请求时报错", func() {
			_, err := p.Chat(ctx, &ai.Request{})
			So(err, ShouldNotBeNil)
		})

		Convey("已取消的 context 直接返回", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := p.Chat(cctx, request("Hello", "en", "zh"))
			So(err, ShouldEqual, context.Canceled)
		})
	})
}

func TestProvider_ChatStream(t *testing.T) {
	Convey("离线流式结果拼接后与同步结果一致", t, func() {
		p := New()
		ctx := context.Background()
		req := request("Hello Software Language", "en", "zh")

		want, err := p.Chat(ctx, req)
		So(err, ShouldBeNil)

		stream, err := p.ChatStream(ctx, req)
		So(err, ShouldBeNil)
		defer stream.Close()

		var fragments []string
		for stream.Next() {
			fragments = append(fragments, stream.Fragment())
		}
		So(stream.Err(), ShouldBeNil)
		So(len(fragments), ShouldEqual, 3)
		So(strings.Join(fragments, ""), ShouldEqual, want)
	})
}
