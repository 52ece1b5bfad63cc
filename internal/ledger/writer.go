package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrWriterClosed is returned by Do after Close.
var ErrWriterClosed = errors.New("ledger writer closed")

// Fn is one read-modify-write cycle run by the Writer.
type Fn func(ctx context.Context) error

type job struct {
	ctx context.Context
	fn  Fn
	ch  chan error
}

// Writer runs mutations of one ledger one at a time on a dedicated goroutine.
// Fn must not call Do on the same Writer.
type Writer struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}
}

// NewWriter starts the writer loop.
func NewWriter() *Writer {
	w := &Writer{
		jobs: make(chan job, 64),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Do queues fn and waits for its result or for ctx to end.
// If ctx ends while fn is running, fn still completes; its result is discarded.
func (w *Writer) Do(ctx context.Context, fn Fn) error {
	ch := make(chan error, 1)

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWriterClosed
	}
	select {
	case w.jobs <- job{ctx: ctx, fn: fn, ch: ch}:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for queued jobs to finish.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()
	<-w.done
}

func (w *Writer) loop() {
	defer close(w.done)
	for j := range w.jobs {
		if err := j.ctx.Err(); err != nil {
			j.ch <- err
			continue
		}
		j.ch <- run(j)
	}
}

func run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ledger write panicked: %v", r)
		}
	}()
	return j.fn(j.ctx)
}
