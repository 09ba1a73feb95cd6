package persistence

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"transgate/internal/model"
)

// Dispatcher 有界队列加固定数量的 worker，异步提交翻译记录
type Dispatcher struct {
	committer *Committer
	queue     chan *model.TranslationRecord

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher 创建 Dispatcher 并启动 worker
func NewDispatcher(committer *Committer, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	d := &Dispatcher{
		committer: committer,
		queue:     make(chan *model.TranslationRecord, queueSize),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	// 与请求生命周期无关，客户端断开不会取消持久化
	for record := range d.queue {
		d.committer.Commit(context.Background(), record)
	}
}

// Submit 提交记录，不阻塞调用方
// 队列已满或已关闭时直接写本地备份并返回 false
func (d *Dispatcher) Submit(record *model.TranslationRecord) bool {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		log.Warn().Msg("persistence dispatcher closed, writing backup inline")
		d.committer.Fallback(record)
		return false
	}

	select {
	case d.queue <- record:
		d.mu.RUnlock()
		return true
	default:
		d.mu.RUnlock()
		log.Warn().Int("queue_size", cap(d.queue)).Msg("persistence queue full, writing backup inline")
		d.committer.Fallback(record)
		return false
	}
}

// Pending 返回排队中的记录数
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Close 停止接收新记录并等待队列清空
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("persistence dispatcher drained")
		return nil
	case <-ctx.Done():
		log.Warn().Int("pending", len(d.queue)).Msg("persistence dispatcher drain interrupted")
		return ctx.Err()
	}
}
