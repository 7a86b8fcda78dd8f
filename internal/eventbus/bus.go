// Package eventbus carries task lifecycle signals from the engine to
// observers (metrics, history, debug logging).
package eventbus

import (
	"sync"
	"time"
)

const (
	TaskStarted   = "task.started"
	TaskRetry     = "task.retry"
	TaskFinished  = "task.finished"
	TaskExhausted = "task.exhausted"
	TaskCanceled  = "task.canceled"
)

// Event is a small, JSON-serializable signal.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// Handler observes an event. Handlers run on the publisher's goroutine, in
// subscription order, so they must return quickly and must not publish.
type Handler func(e Event)

type Bus interface {
	Publish(e Event)
	Subscribe(h Handler) (unsubscribe func())
}

// New returns a synchronous in-memory fanout bus.
func New() Bus {
	return &memBus{}
}

type subscriber struct {
	id uint64
	h  Handler
}

type memBus struct {
	mu   sync.RWMutex
	subs []subscriber
	seq  uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	subs := append([]subscriber(nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range subs {
		// A faulty observer must not break the poll loop.
		func() {
			defer func() { _ = recover() }()
			s.h(e)
		}()
	}
}

func (b *memBus) Subscribe(h Handler) func() {
	if h == nil {
		return func() {}
	}
	b.mu.Lock()
	b.seq++
	id := b.seq
	b.subs = append(b.subs, subscriber{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}
