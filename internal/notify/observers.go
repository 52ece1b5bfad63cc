// Package notify fans domain notifications out to in-process observers and the job queue.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Observers is a synchronous observer list. Notify calls every subscriber in
// subscription order on the caller's goroutine.
type Observers[T any] struct {
	name   string
	mu     sync.RWMutex
	nextID int
	subs   []subscriber[T]
	logger *zap.Logger
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// NewObservers creates an empty observer list; name labels log lines.
func NewObservers[T any](name string, logger *zap.Logger) *Observers[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observers[T]{name: name, logger: logger}
}

// Subscribe adds fn and returns a function that removes it.
func (o *Observers[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	o.subs = append(o.subs, subscriber[T]{id: id, fn: fn})
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

// Notify delivers v to every subscriber. A panicking subscriber is logged and skipped.
func (o *Observers[T]) Notify(v T) {
	o.mu.RLock()
	subs := make([]subscriber[T], len(o.subs))
	copy(subs, o.subs)
	o.mu.RUnlock()

	for _, s := range subs {
		o.call(s.fn, v)
	}
}

// Len returns the number of subscribers.
func (o *Observers[T]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs)
}

func (o *Observers[T]) call(fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("observer panicked", zap.String("notification", o.name), zap.Any("panic", r))
		}
	}()
	fn(v)
}
