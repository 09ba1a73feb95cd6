package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/sony/gobreaker"

	"transgate/internal/config"
	"transgate/internal/model"
)

func testRecord() *model.TranslationRecord {
	return &model.TranslationRecord{
		OriginalText:   "你好",
		TranslatedText: "Hello",
		SourceLang:     "zh",
		TargetLang:     "en",
		IPAddress:      "10.0.0.1",
		Model:          "deepseek-chat",
	}
}

func testConfig(breaker bool) *config.PersistenceConfig {
	return &config.PersistenceConfig{
		Timeout: time.Second,
		Breaker: config.BreakerConfig{Enabled: breaker, FailureThreshold: 2, OpenTimeout: time.Minute},
	}
}

// readBackups 读取备份目录中的全部记录，目录不存在时返回空
func readBackups(dir string) []map[string]string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []map[string]string
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var m map[string]string
		if json.Unmarshal(data, &m) == nil {
			out = append(out, m)
		}
	}
	return out
}

// sinkFunc 测试用 Sink
type sinkFunc func(ctx context.Context, record *model.TranslationRecord) error

func (f sinkFunc) Name() string { return "func" }
func (f sinkFunc) Save(ctx context.Context, record *model.TranslationRecord) error {
	return f(ctx, record)
}

func TestCommitter_HTTPSink(t *testing.T) {
	Convey("Committer 通过 HTTP Sink 提交记录", t, func() {
		var (
			calls  int32
			status = http.StatusCreated
			body   map[string]string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(status)
		}))
		defer srv.Close()

		dir := filepath.Join(t.TempDir(), "backups")
		committer := NewCommitter(NewHTTPSink(srv.URL, time.Second), NewFallbackStore(dir), testConfig(false))

		Convey("201 视为成功且不写备份", func() {
			So(committer.Commit(context.Background(), testRecord()), ShouldBeTrue)
			So(body["originalText"], ShouldEqual, "你好")
			So(body["translatedText"], ShouldEqual, "Hello")
			So(body["sourceLang"], ShouldEqual, "zh")
			So(body["targetLang"], ShouldEqual, "en")
			So(body["ipAddress"], ShouldEqual, "10.0.0.1")
			So(body["model"], ShouldEqual, "deepseek-chat")
			So(readBackups(dir), ShouldBeEmpty)
		})

		Convey("其他状态码写入备份文件", func() {
			for _, code := range []int{http.StatusOK, http.StatusInternalServerError} {
				status = code
				So(committer.Commit(context.Background(), testRecord()), ShouldBeFalse)
			}

			backups := readBackups(dir)
			So(len(backups), ShouldEqual, 2)
			So(backups[0], ShouldResemble, map[string]string{
				"originalText":   "你好",
				"translatedText": "Hello",
				"sourceLang":     "zh",
				"targetLang":     "en",
				"ipAddress":      "10.0.0.1",
				"model":          "deepseek-chat",
			})

			entries, _ := os.ReadDir(dir)
			pattern := regexp.MustCompile(`^translation_\d{8}_\d{6}_[0-9a-f]{8}\.json$`)
			for _, e := range entries {
				So(pattern.MatchString(e.Name()), ShouldBeTrue)
			}
		})

		Convey("空译文不写任何地方", func() {
			record := testRecord()
			record.TranslatedText = "  "
			So(committer.Commit(context.Background(), record), ShouldBeFalse)
			So(committer.Commit(context.Background(), nil), ShouldBeFalse)
			So(atomic.LoadInt32(&calls), ShouldEqual, int32(0))
			So(readBackups(dir), ShouldBeEmpty)
		})
	})

	Convey("Sink 不可达时写入备份", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		dir := t.TempDir()
		committer := NewCommitter(NewHTTPSink(url, time.Second), NewFallbackStore(dir), testConfig(false))
		So(committer.Commit(context.Background(), testRecord()), ShouldBeFalse)
		So(len(readBackups(dir)), ShouldEqual, 1)
	})

	Convey("Sink 超时时写入备份", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()

		dir := t.TempDir()
		cfg := testConfig(false)
		cfg.Timeout = 100 * time.Millisecond
		committer := NewCommitter(NewHTTPSink(srv.URL, time.Minute), NewFallbackStore(dir), cfg)

		start := time.Now()
		So(committer.Commit(context.Background(), testRecord()), ShouldBeFalse)
		So(time.Since(start), ShouldBeLessThan, time.Second)
		So(len(readBackups(dir)), ShouldEqual, 1)
	})
}

func TestCommitter_FallbackFailure(t *testing.T) {
	Convey("备份写入失败也不会报错或 panic", t, func() {
		// 备份目录的父路径是普通文件，MkdirAll 必然失败
		parent := filepath.Join(t.TempDir(), "file")
		So(os.WriteFile(parent, []byte("x"), 0644), ShouldBeNil)

		committer := NewCommitter(NoneSink(), NewFallbackStore(filepath.Join(parent, "backups")), testConfig(false))
		So(func() { committer.Commit(context.Background(), testRecord()) }, ShouldNotPanic)
		So(committer.Commit(context.Background(), testRecord()), ShouldBeFalse)
		So(committer.Fallback(testRecord()), ShouldBeEmpty)
	})

	Convey("Sink panic 被吸收", t, func() {
		sink := sinkFunc(func(context.Context, *model.TranslationRecord) error { panic("boom") })
		committer := NewCommitter(sink, NewFallbackStore(t.TempDir()), testConfig(false))
		So(committer.Commit(context.Background(), testRecord()), ShouldBeFalse)
	})
}

func TestCommitter_Breaker(t *testing.T) {
	Convey("连续失败后熔断，跳过主存储直接写备份", t, func() {
		var calls int32
		sink := sinkFunc(func(context.Context, *model.TranslationRecord) error {
			atomic.AddInt32(&calls, 1)
			return errors.New("down")
		})

		dir := t.TempDir()
		committer := NewCommitter(sink, NewFallbackStore(dir), testConfig(true))
		for i := 0; i < 4; i++ {
			So(committer.Commit(context.Background(), testRecord()), ShouldBeFalse)
		}

		So(atomic.LoadInt32(&calls), ShouldEqual, int32(2))
		So(committer.breaker.State(), ShouldEqual, gobreaker.StateOpen)
		So(len(readBackups(dir)), ShouldEqual, 4)
	})
}

type fakeRepo struct {
	err     error
	records []*model.TranslationRecord
}

func (r *fakeRepo) Create(_ context.Context, record *model.TranslationRecord) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

func TestSinks(t *testing.T) {
	Convey("MongoSink 委托给仓库", t, func() {
		repo := &fakeRepo{}
		sink := NewMongoSink(repo)
		So(sink.Save(context.Background(), testRecord()), ShouldBeNil)
		So(len(repo.records), ShouldEqual, 1)

		repo.err = errors.New("write conflict")
		err := sink.Save(context.Background(), testRecord())
		var sinkErr *SinkError
		So(errors.As(err, &sinkErr), ShouldBeTrue)
		So(sinkErr.Sink, ShouldEqual, config.SinkMongo)
	})

	Convey("NoneSink 总是失败", t, func() {
		err := NoneSink().Save(context.Background(), testRecord())
		So(errors.Is(err, ErrSinkDisabled), ShouldBeTrue)
	})

	Convey("HTTP Sink 非 201 时保留状态码", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad record"))
		}))
		defer srv.Close()

		err := NewHTTPSink(srv.URL, time.Second).Save(context.Background(), testRecord())
		var sinkErr *SinkError
		So(errors.As(err, &sinkErr), ShouldBeTrue)
		So(sinkErr.Status, ShouldEqual, http.StatusBadRequest)
		So(sinkErr.Error(), ShouldContainSubstring, "bad record")
	})

	Convey("HTTP Sink 截断错误响应体时不拆开多字节字符", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(strings.Repeat("错", 200)))
		}))
		defer srv.Close()

		err := NewHTTPSink(srv.URL, time.Second).Save(context.Background(), testRecord())
		var sinkErr *SinkError
		So(errors.As(err, &sinkErr), ShouldBeTrue)
		So(utf8.ValidString(sinkErr.Body), ShouldBeTrue)
		So(sinkErr.Body, ShouldEqual, strings.Repeat("错", 85))
	})
}

func TestDispatcher(t *testing.T) {
	Convey("Dispatcher 异步提交并在关闭时清空队列", t, func() {
		var (
			mu    sync.Mutex
			saved []*model.TranslationRecord
		)
		sink := sinkFunc(func(_ context.Context, record *model.TranslationRecord) error {
			mu.Lock()
			defer mu.Unlock()
			saved = append(saved, record)
			return nil
		})
		dir := t.TempDir()
		d := NewDispatcher(NewCommitter(sink, NewFallbackStore(dir), testConfig(false)), 3, 16)

		for i := 0; i < 10; i++ {
			So(d.Submit(testRecord()), ShouldBeTrue)
		}
		So(d.Close(context.Background()), ShouldBeNil)

		mu.Lock()
		So(len(saved), ShouldEqual, 10)
		mu.Unlock()
		So(readBackups(dir), ShouldBeEmpty)

		Convey("关闭后提交直接写备份", func() {
			So(d.Submit(testRecord()), ShouldBeFalse)
			So(len(readBackups(dir)), ShouldEqual, 1)
			So(d.Close(context.Background()), ShouldBeNil)
		})
	})

	Convey("队列已满时不阻塞，改写备份", t, func() {
		started := make(chan struct{}, 1)
		release := make(chan struct{})
		sink := sinkFunc(func(context.Context, *model.TranslationRecord) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return nil
		})
		dir := t.TempDir()
		cfg := testConfig(false)
		cfg.Timeout = 10 * time.Second
		d := NewDispatcher(NewCommitter(sink, NewFallbackStore(dir), cfg), 1, 1)

		So(d.Submit(testRecord()), ShouldBeTrue)
		<-started // worker 已取走第一条并阻塞
		So(d.Submit(testRecord()), ShouldBeTrue)
		So(d.Pending(), ShouldEqual, 1)
		So(d.Submit(testRecord()), ShouldBeFalse)
		So(len(readBackups(dir)), ShouldEqual, 1)

		Convey("超时的 Close 返回 context 错误", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			So(d.Close(ctx), ShouldEqual, context.DeadlineExceeded)
			close(release)
		})
	})
}
