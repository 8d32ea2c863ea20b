package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leeforge/shrink/logging"
	"github.com/leeforge/shrink/media/processor"
	"github.com/leeforge/shrink/media/session"
	"go.uber.org/zap"
)

const (
	defaultBuffer      = 8
	defaultStopTimeout = 30 * time.Second
)

// Previewer renders one preview. *session.Session implements it.
type Previewer interface {
	Preview(ctx context.Context, params processor.Parameters) (*session.PreviewResult, error)
}

// Outcome is delivered for the newest request only.
type Outcome struct {
	Seq    uint64
	Params processor.Parameters
	Result *session.PreviewResult
	Err    error
}

// Options configures a PreviewQueue.
type Options struct {
	// Buffer is the number of pending requests kept.
	Buffer int
	// StopTimeout bounds how long Stop waits for the worker.
	StopTimeout time.Duration
	// OnResult receives outcomes on the worker goroutine.
	OnResult func(Outcome)
	Logger   logging.Logger
}

type request struct {
	seq    uint64
	params processor.Parameters
}

// PreviewQueue runs previews on a single background worker. Every Submit
// supersedes the ones before it: requests that are no longer the newest
// are skipped, and results that come back stale are discarded.
type PreviewQueue struct {
	previewer Previewer
	jobs      chan request
	onResult  func(Outcome)
	timeout   time.Duration
	logger    logging.Logger

	mu      sync.Mutex // guards jobs sends and stopped
	stopped bool
	started atomic.Bool
	latest  atomic.Uint64

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPreviewQueue creates a queue feeding p.
func NewPreviewQueue(p Previewer, opts Options) *PreviewQueue {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &PreviewQueue{
		previewer: p,
		jobs:      make(chan request, opts.Buffer),
		onResult:  opts.OnResult,
		timeout:   opts.StopTimeout,
		logger:    logging.OrNop(opts.Logger).Named("preview_queue"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the worker. Calling it twice has no effect.
func (q *PreviewQueue) Start() {
	if q.started.Swap(true) {
		return
	}
	q.wg.Add(1)
	go q.worker()
}

func (q *PreviewQueue) worker() {
	defer q.wg.Done()

	for req := range q.jobs {
		if req.seq < q.latest.Load() {
			q.logger.Debug("preview superseded before start", zap.Uint64("seq", req.seq))
			continue
		}
		q.run(req)
	}
}

func (q *PreviewQueue) run(req request) {
	ctx := logging.ToContext(q.ctx, q.logger.With(zap.Uint64("seq", req.seq)))
	result, err := q.previewer.Preview(ctx, req.params)

	if req.seq < q.latest.Load() {
		q.logger.Debug("stale preview discarded", zap.Uint64("seq", req.seq))
		return
	}
	if q.onResult != nil {
		q.onResult(Outcome{Seq: req.seq, Params: req.params, Result: result, Err: err})
	}
}

// Submit queues a preview and returns its sequence number. When the
// buffer is full the oldest pending request is dropped. Submit returns 0
// once the queue has been stopped.
func (q *PreviewQueue) Submit(params processor.Parameters) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return 0
	}

	req := request{seq: q.latest.Add(1), params: params}
	for {
		select {
		case q.jobs <- req:
			return req.seq
		default:
		}
		select {
		case old := <-q.jobs:
			q.logger.Debug("preview queue full, dropping", zap.Uint64("seq", old.seq))
		default:
		}
	}
}

// Latest returns the sequence number of the newest request.
func (q *PreviewQueue) Latest() uint64 {
	return q.latest.Load()
}

// Pending returns the number of queued requests.
func (q *PreviewQueue) Pending() int {
	return len(q.jobs)
}

// Stop refuses new requests, lets the worker finish the newest pending
// one and waits for it, up to the configured timeout.
func (q *PreviewQueue) Stop() error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	defer q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(q.timeout):
		return fmt.Errorf("timeout waiting for preview to complete")
	}
}
