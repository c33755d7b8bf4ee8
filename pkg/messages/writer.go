package messages

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"guardcomms/pkg/config"
	"guardcomms/pkg/logger"
	"guardcomms/pkg/models"
	"guardcomms/pkg/store"
)

var (
	ErrQueueFull   = errors.New("messages: write queue full")
	ErrQueueClosed = errors.New("messages: write queue closed")
)

// Writer moves sent messages into the durable store. In sync mode Submit
// writes inline; in async mode it enqueues onto a bounded channel drained by
// a single worker, so messages reach the store in submission order. A full
// queue drops the write instead of blocking the sender.
type Writer struct {
	store    store.Store
	async    bool
	timeout  time.Duration
	onResult func(models.Message, error)

	ch        chan models.Message
	closed    int32
	enqWg     sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
	dropped   uint64
}

// NewWriter builds a writer and, in async mode, starts its worker. onResult
// is called once for every message that reached the store or failed to.
func NewWriter(s store.Store, cfg config.MessagesConfig, onResult func(models.Message, error)) *Writer {
	w := &Writer{
		store:    s,
		async:    cfg.WriteMode == config.WriteModeAsync,
		timeout:  cfg.WriteTimeout.Duration(),
		onResult: onResult,
		done:     make(chan struct{}),
	}
	if w.timeout <= 0 {
		w.timeout = 5 * time.Second
	}
	if !w.async {
		close(w.done)
		return w
	}
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = 1024
	}
	w.ch = make(chan models.Message, capacity)
	go w.run()
	return w
}

// Submit hands m to the durable store. The returned error only reports that
// the write was not attempted (queue full or closed) or, in sync mode, that
// it failed.
func (w *Writer) Submit(ctx context.Context, m models.Message) error {
	if !w.async {
		if atomic.LoadInt32(&w.closed) == 1 {
			return ErrQueueClosed
		}
		return w.write(context.WithoutCancel(ctx), m)
	}
	if atomic.LoadInt32(&w.closed) == 1 {
		return ErrQueueClosed
	}

	w.enqWg.Add(1)
	defer w.enqWg.Done()

	if atomic.LoadInt32(&w.closed) == 1 {
		return ErrQueueClosed
	}
	select {
	case w.ch <- m:
		queueDepth.Inc()
		return nil
	default:
		atomic.AddUint64(&w.dropped, 1)
		durableWrites.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for m := range w.ch {
		queueDepth.Dec()
		_ = w.write(context.Background(), m)
	}
}

func (w *Writer) write(ctx context.Context, m models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	_, err := w.store.AppendMessage(ctx, m)
	if err != nil {
		durableWrites.WithLabelValues("error").Inc()
		logger.Warn("durable_write_failed", "conversation", m.ConversationID, "message", m.ID, "error", err)
	} else {
		durableWrites.WithLabelValues("ok").Inc()
	}
	if w.onResult != nil {
		w.onResult(m, err)
	}
	return err
}

// Len is the number of queued writes.
func (w *Writer) Len() int { return len(w.ch) }

// Dropped is the number of writes lost to a full queue.
func (w *Writer) Dropped() uint64 { return atomic.LoadUint64(&w.dropped) }

// Close stops accepting writes and waits for queued ones to finish or for
// ctx to expire.
func (w *Writer) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&w.closed, 0, 1) {
		return nil
	}
	if w.async {
		w.closeOnce.Do(func() {
			w.enqWg.Wait()
			close(w.ch)
		})
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		logger.Warn("writer_drain_incomplete", "remaining", w.Len(), "error", ctx.Err())
		return ctx.Err()
	}
}
