package keyqueue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/metrics"
)

// ErrStopped is returned for tasks submitted after StopAndWait
var ErrStopped = errors.New("key queue stopped")

// Task is a unit of work for one key
type Task func(ctx context.Context) error

// Queue runs tasks on a bounded worker pool. Tasks sharing a key run one at a
// time in submission order; tasks of different keys run concurrently.
//
//go:generate mockgen -source=keyqueue.go -destination=../mocks/keyqueue.go -package=mocks -mock_names=Queue=MockKeyQueue
type Queue interface {
	// Submit enqueues fn behind earlier tasks for key without waiting. Errors are logged.
	Submit(key string, fn Task)

	// Do enqueues fn behind earlier tasks for key and waits for its result
	Do(ctx context.Context, key string, fn Task) error

	// Pending returns the number of tasks queued or running
	Pending() int

	// StopAndWait rejects new tasks and waits for queued ones to finish
	StopAndWait()
}

type item struct {
	ctx  context.Context
	fn   Task
	done chan error // nil for fire-and-forget tasks
}

type queue struct {
	ctx  context.Context
	pool pond.Pool

	mu      sync.Mutex
	lanes   map[string][]*item
	pending int
	stopped bool
	// submitting tracks enqueues between the stopped check and pool.Submit
	submitting sync.WaitGroup
}

// New creates a Queue with the given worker count and pool queue size.
// ctx is passed to tasks submitted with Submit. Canceling it does not stop the
// pool; StopAndWait does.
func New(ctx context.Context, workers, queueSize int) Queue {
	if workers <= 0 {
		workers = 1
	}
	var opts []pond.Option
	if queueSize > 0 {
		opts = append(opts, pond.WithQueueSize(queueSize))
	}

	return &queue{
		ctx:   ctx,
		pool:  pond.NewPool(workers, opts...),
		lanes: make(map[string][]*item),
	}
}

func (q *queue) Submit(key string, fn Task) {
	if err := q.enqueue(key, &item{ctx: q.ctx, fn: fn}); err != nil {
		logger.WarnCtx(q.ctx, "Dropping task for stopped queue", zap.String("key", key))
	}
}

func (q *queue) Do(ctx context.Context, key string, fn Task) error {
	done := make(chan error, 1)
	if err := q.enqueue(key, &item{ctx: ctx, fn: fn, done: done}); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// the task still runs when its turn comes; it sees the canceled ctx
		return ctx.Err()
	}
}

func (q *queue) enqueue(key string, it *item) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrStopped
	}

	lane := q.lanes[key]
	q.lanes[key] = append(lane, it)
	q.pending++
	metrics.AssetQueueDepth.Set(float64(q.pending))
	q.submitting.Add(1)
	q.mu.Unlock()
	defer q.submitting.Done()

	if len(lane) == 0 {
		// no drain is running for this key. Submit may block on a full pool queue,
		// so it runs outside the lock the workers need.
		q.pool.Submit(func() { q.drain(key) })
	}
	return nil
}

// drain runs the lane of key until it is empty
func (q *queue) drain(key string) {
	for {
		q.mu.Lock()
		it := q.lanes[key][0]
		q.mu.Unlock()

		err := run(it, key)
		if it.done != nil {
			it.done <- err
		} else if err != nil {
			logger.ErrorCtx(it.ctx, fmt.Errorf("task for %s failed: %w", key, err), zap.String("key", key))
		}

		q.mu.Lock()
		lane := q.lanes[key][1:]
		q.pending--
		metrics.AssetQueueDepth.Set(float64(q.pending))
		if len(lane) == 0 {
			delete(q.lanes, key)
			q.mu.Unlock()
			return
		}
		q.lanes[key] = lane
		q.mu.Unlock()
	}
}

func run(it *item, key string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(it.ctx, fmt.Errorf("task for %s panicked: %v", key, r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return it.fn(it.ctx)
}

func (q *queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

func (q *queue) StopAndWait() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()

	q.submitting.Wait()
	q.pool.StopAndWait()
}
