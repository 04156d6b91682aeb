package fleet

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ukydev/ambulance-tracker/internal/models"
)

// Observer receives fleet snapshots. Observers run synchronously on the
// goroutine that changed the fleet and must treat the snapshot as read-only.
// They may read from the Service but must not call its mutating methods.
type Observer func(models.Snapshot)

type observerEntry struct {
	id     uint64
	fn     Observer
	active atomic.Bool
}

// Broadcaster is an ordered registry of observers.
type Broadcaster struct {
	mu        sync.Mutex
	nextID    uint64
	observers []*observerEntry
}

// NewBroadcaster creates an empty observer registry.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	b     *Broadcaster
	entry *observerEntry
	once  sync.Once
}

// Unsubscribe removes the observer. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.entry.active.Store(false)
		s.b.remove(s.entry.id)
	})
}

// Add registers fn after every existing observer.
func (b *Broadcaster) Add(fn Observer) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	e := &observerEntry{id: b.nextID, fn: fn}
	e.active.Store(true)
	b.observers = append(b.observers, e)
	return &Subscription{b: b, entry: e}
}

func (b *Broadcaster) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.observers {
		if e.id == id {
			b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered observers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

// Publish delivers snap to every observer in registration order.
func (b *Broadcaster) Publish(snap models.Snapshot) {
	b.mu.Lock()
	observers := make([]*observerEntry, len(b.observers))
	copy(observers, b.observers)
	b.mu.Unlock()

	for _, e := range observers {
		if e.active.Load() {
			e.fn(snap)
		}
	}
}

// chanObserver adapts an Observer to a buffered channel. When the consumer
// falls behind the oldest queued snapshot is dropped so the newest one is
// always delivered.
type chanObserver struct {
	mu     sync.Mutex
	ch     chan models.Snapshot
	closed bool
}

func (c *chanObserver) send(snap models.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- snap:
		return
	default:
	}
	select {
	case <-c.ch:
	default:
	}
	select {
	case c.ch <- snap:
	default:
	}
}

func (c *chanObserver) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

func subscribeChan(ctx context.Context, buffer int, add func(Observer) *Subscription) (<-chan models.Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	co := &chanObserver{ch: make(chan models.Snapshot, buffer)}
	sub := add(co.send)

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			sub.Unsubscribe()
			co.close()
			close(done)
		})
	}
	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-done:
			}
		}()
	}
	return co.ch, cancel
}
