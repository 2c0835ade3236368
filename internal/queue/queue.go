// Package queue serializes conversational turns per chat. Two rapid
// messages in the same chat would otherwise race to read-modify-write
// the same session record; the queue admits a chat's next turn only
// after the previous one has fully completed, while turns for
// different chats run fully concurrently.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Do after Close has been called.
var ErrClosed = errors.New("queue closed")

// Task is one unit of work bound to a chat.
type Task func(ctx context.Context) error

type task struct {
	ctx  context.Context
	run  Task
	done chan error
}

// Queue runs tasks strictly FIFO per chat id. Lanes are created lazily
// on the first task for a chat and removed once drained, so memory
// stays bounded for inactive chats. A failed task is reported only to
// its own caller and never blocks the tasks queued behind it.
type Queue struct {
	taskTimeout time.Duration

	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool
	wg     sync.WaitGroup
}

type lane struct {
	pending []*task
}

// Option configures a Queue.
type Option func(*Queue)

// WithTaskTimeout bounds each task's execution, so one stuck turn
// cannot starve its chat's lane forever. Zero means no limit.
func WithTaskTimeout(d time.Duration) Option {
	return func(q *Queue) { q.taskTimeout = d }
}

func New(opts ...Option) *Queue {
	q := &Queue{lanes: make(map[int64]*lane)}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Do enqueues fn for chatID and blocks until it has run, returning
// fn's error. Calls for the same chat execute in arrival order with no
// overlap; calls for different chats are unordered and concurrent.
func (q *Queue) Do(ctx context.Context, chatID int64, fn Task) error {
	t := &task{ctx: ctx, run: fn, done: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	ln, ok := q.lanes[chatID]
	if !ok {
		ln = &lane{}
		q.lanes[chatID] = ln
		q.wg.Add(1)
		// drain blocks on q.mu until this task is appended below.
		go q.drain(chatID)
	}
	ln.pending = append(ln.pending, t)
	q.mu.Unlock()

	return <-t.done
}

// drain runs a chat's lane until it is empty, then removes it.
func (q *Queue) drain(chatID int64) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		ln := q.lanes[chatID]
		if len(ln.pending) == 0 {
			delete(q.lanes, chatID)
			q.mu.Unlock()
			return
		}
		t := ln.pending[0]
		ln.pending = ln.pending[1:]
		q.mu.Unlock()

		t.done <- q.execute(t)
	}
}

func (q *Queue) execute(t *task) error {
	ctx := t.ctx
	if q.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.taskTimeout)
		defer cancel()
	}
	return t.run(ctx)
}

// Close rejects new tasks and waits for every queued task to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}

// active reports how many chat lanes currently exist; used by tests to
// verify drained lanes are garbage-collected.
func (q *Queue) active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes)
}
