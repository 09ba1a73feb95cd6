package ai

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	. "github.com/smartystreets/goconvey/convey"

	"transgate/internal/model"
)

// fakeChatModel 返回预设内容的 ChatModel
type fakeChatModel struct {
	chunks []string
	err    error
	input  []*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	content := ""
	for _, c := range m.chunks {
		content += c
	}
	return schema.AssistantMessage(" "+content+" ", nil), nil
}

func (m *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	msgs := make([]*schema.Message, 0, len(m.chunks))
	for _, c := range m.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func TestEinoProvider(t *testing.T) {
	Convey("EinoProvider 适配 eino ChatModel", t, func() {
		ctx := context.Background()
		chatModel := &fakeChatModel{chunks: []string{"Hel", "", "lo"}}
		p := NewEinoProvider("ark", "doubao", "key", chatModel)

		Convey("同步调用去掉首尾空白并映射角色", func() {
			out, err := p.Chat(ctx, testRequest())
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "Hello")
			So(len(chatModel.input), ShouldEqual, 2)
			So(chatModel.input[0].Role, ShouldEqual, schema.System)
			So(chatModel.input[1].Role, ShouldEqual, schema.User)
		})

		Convey("流式调用跳过空片段", func() {
			stream, err := p.ChatStream(ctx, testRequest())
			So(err, ShouldBeNil)
			defer stream.Close()

			var fragments []string
			for stream.Next() {
				fragments = append(fragments, stream.Fragment())
			}
			So(stream.Err(), ShouldBeNil)
			So(fragments, ShouldResemble, []string{"Hel", "lo"})
		})

		Convey("ChatModel 出错归类为 TransportError", func() {
			chatModel.err = errors.New("connection refused")
			_, err := p.Chat(ctx, testRequest())
			So(errors.Is(err, ErrTransport), ShouldBeTrue)
		})

		Convey("缺少密钥时不调用 ChatModel", func() {
			p := NewEinoProvider("ark", "doubao", "", chatModel)
			_, err := p.Chat(ctx, testRequest())
			So(errors.Is(err, ErrConfig), ShouldBeTrue)
			So(chatModel.input, ShouldBeNil)
			So(p.Mode(), ShouldEqual, model.ModeAPI)
		})
	})
}
