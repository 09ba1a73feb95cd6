package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"transgate/internal/config"
	"transgate/internal/model"
)

func testRequest() *Request {
	return BuildRequest(&model.TranslationRequest{Text: "你好", SourceLang: "zh", TargetLang: "en"}, "")
}

func testConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		Provider: config.ProviderOpenAI,
		APIKey:   "sk-test",
		BaseURL:  baseURL,
		Model:    "deepseek-chat",
		Timeout:  5 * time.Second,
		Options:  config.AIOptionsConfig{Temperature: 0.3, MaxTokens: 4096},
	}
}

func TestClient_Chat(t *testing.T) {
	Convey("Client.Chat 同步调用上游", t, func() {
		var (
			gotAuth string
			gotBody chatCompletionRequest
			gotPath string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"  Hello  "}}]}`)
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL + "/v1"))
		out, err := client.Chat(context.Background(), testRequest())

		So(err, ShouldBeNil)
		So(out, ShouldEqual, "Hello")
		So(gotAuth, ShouldEqual, "Bearer sk-test")
		So(gotPath, ShouldEqual, "/v1/chat/completions")
		So(gotBody.Model, ShouldEqual, "deepseek-chat")
		So(gotBody.Stream, ShouldBeFalse)
		So(gotBody.Temperature, ShouldEqual, 0.3)
		So(gotBody.MaxTokens, ShouldEqual, 4096)
		So(len(gotBody.Messages), ShouldEqual, 2)
		So(gotBody.Messages[0].Role, ShouldEqual, model.RoleSystem)
		So(gotBody.Messages[1].Content, ShouldContainSubstring, "你好")
	})

	Convey("完整的 chat/completions 地址原样使用", t, func() {
		client := NewClient(testConfig("https://open.bigmodel.cn/api/paas/v4/chat/completions"))
		So(client.Endpoint(), ShouldEqual, "https://open.bigmodel.cn/api/paas/v4/chat/completions")

		client = NewClient(testConfig("https://api.deepseek.com/v1/"))
		So(client.Endpoint(), ShouldEqual, "https://api.deepseek.com/v1/chat/completions")
	})

	Convey("未设置的参数使用默认值", t, func() {
		cfg := testConfig("http://localhost")
		cfg.Options = config.AIOptionsConfig{}
		client := NewClient(cfg)
		So(client.cfg.Options.Temperature, ShouldEqual, DefaultTemperature)
		So(client.cfg.Options.MaxTokens, ShouldEqual, DefaultMaxTokens)
	})
}

func TestClient_Errors(t *testing.T) {
	Convey("Client 将失败归类为 UpstreamError", t, func() {
		var calls int32
		status := http.StatusOK
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"boom"}}`)
		}))
		defer srv.Close()

		ctx := context.Background()

		Convey("缺少密钥时不发起请求", func() {
			cfg := testConfig(srv.URL)
			cfg.APIKey = ""
			client := NewClient(cfg)

			_, err := client.Chat(ctx, testRequest())
			So(errors.Is(err, ErrConfig), ShouldBeTrue)

			_, err = client.ChatStream(ctx, testRequest())
			So(errors.Is(err, ErrConfig), ShouldBeTrue)
			So(atomic.LoadInt32(&calls), ShouldEqual, int32(0))
		})

		Convey("401 -> AuthError", func() {
			status = http.StatusUnauthorized
			_, err := NewClient(testConfig(srv.URL)).Chat(ctx, testRequest())
			So(errors.Is(err, ErrAuth), ShouldBeTrue)
		})

		Convey("404 -> EndpointNotFoundError（流式同样适用）", func() {
			status = http.StatusNotFound
			_, err := NewClient(testConfig(srv.URL)).ChatStream(ctx, testRequest())
			So(errors.Is(err, ErrEndpointNotFound), ShouldBeTrue)
		})

		Convey("其他状态码 -> UpstreamHttpError 并保留响应摘要", func() {
			status = http.StatusBadGateway
			_, err := NewClient(testConfig(srv.URL)).Chat(ctx, testRequest())
			So(errors.Is(err, ErrUpstreamHTTP), ShouldBeTrue)

			var upstreamErr *UpstreamError
			So(errors.As(err, &upstreamErr), ShouldBeTrue)
			So(upstreamErr.Status, ShouldEqual, http.StatusBadGateway)
			So(upstreamErr.Body, ShouldContainSubstring, "boom")
		})

		Convey("200 但没有 choices", func() {
			_, err := NewClient(testConfig(srv.URL)).Chat(ctx, testRequest())
			So(errors.Is(err, ErrUpstreamHTTP), ShouldBeTrue)
		})
	})

	Convey("超时 -> TimeoutError", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()

		cfg := testConfig(srv.URL)
		cfg.Timeout = 100 * time.Millisecond
		_, err := NewClient(cfg).Chat(context.Background(), testRequest())
		So(errors.Is(err, ErrTimeout), ShouldBeTrue)
	})

	Convey("连接失败 -> TransportError", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewClient(testConfig(url)).Chat(context.Background(), testRequest())
		So(errors.Is(err, ErrTransport), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "API请求失败")
	})
}

func TestClient_ChatStream(t *testing.T) {
	Convey("Client.ChatStream 解析上游 SSE", t, func() {
		var gotBody chatCompletionRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			for _, part := range []string{"Hel", "lo"} {
				fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
				flusher.Flush()
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
		}))
		defer srv.Close()

		stream, err := NewClient(testConfig(srv.URL)).ChatStream(context.Background(), testRequest())
		So(err, ShouldBeNil)
		defer stream.Close()

		var fragments []string
		for stream.Next() {
			fragments = append(fragments, stream.Fragment())
		}
		So(stream.Err(), ShouldBeNil)
		So(fragments, ShouldResemble, []string{"Hel", "lo"})
		So(gotBody.Stream, ShouldBeTrue)
	})

	Convey("调用方取消 context 后停止读取", t, func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
			w.(http.Flusher).Flush()
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		stream, err := NewClient(testConfig(srv.URL)).ChatStream(ctx, testRequest())
		So(err, ShouldBeNil)
		defer stream.Close()

		So(stream.Next(), ShouldBeTrue)
		So(stream.Fragment(), ShouldEqual, "first")

		cancel()
		So(stream.Next(), ShouldBeFalse)
		So(stream.Err(), ShouldNotBeNil)
	})
}

func TestUpstreamError(t *testing.T) {
	Convey("UpstreamError 提供面向用户的信息", t, func() {
		So((&UpstreamError{Kind: KindConfig}).Error(), ShouldEqual, "未配置API密钥")
		So((&UpstreamError{Kind: KindAuth, Status: 401}).Error(), ShouldContainSubstring, "401")
		So((&UpstreamError{Kind: KindUpstreamHTTP, Status: 500}).Error(), ShouldEqual, "API HTTP错误(500)")

		Convey("超长响应体被截断", func() {
			err := httpStatusError(500, []byte(strings.Repeat("x", 2000)))
			var upstreamErr *UpstreamError
			So(errors.As(err, &upstreamErr), ShouldBeTrue)
			So(len(upstreamErr.Body), ShouldEqual, 512)
		})

		Convey("context 超时归类为 TimeoutError", func() {
			So(errors.Is(classifyError(context.DeadlineExceeded), ErrTimeout), ShouldBeTrue)
			So(errors.Is(classifyError(io.ErrUnexpectedEOF), ErrTransport), ShouldBeTrue)
			So(classifyError(nil), ShouldBeNil)
		})
	})
}
