// Package stream provides the live-read primitives the spending queries are
// built on: a change broadcaster, a reloading watcher and a switchable
// subscription.
package stream

import (
	"sync"
	"sync/atomic"
)

// Notifier delivers a signal every time the watched data may have changed.
type Notifier interface {
	Subscribe() (<-chan struct{}, func())
}

// Broadcaster fans a change signal out to every subscriber. Signals are
// coalesced: a slow subscriber sees at most one pending signal.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[int]chan struct{}
	nextID  int
	version atomic.Uint64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan struct{})}
}

// Subscribe registers a subscriber. The returned cancel func is idempotent
// and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan struct{}, 1)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Publish bumps the version and signals every subscriber without blocking.
func (b *Broadcaster) Publish() {
	b.version.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Version increases by one on every Publish.
func (b *Broadcaster) Version() uint64 {
	return b.version.Load()
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
