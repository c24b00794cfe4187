package stream

import (
	"context"
	"errors"
	"sync"

	"gopkg.in/tomb.v2"
)

var ErrClosed = errors.New("switcher closed")

// Keyed tags a value with the key of the subscription that produced it.
type Keyed[K comparable, T any] struct {
	Key   K
	Value T
}

// OpenFunc starts a subscription for key. The returned channel must be
// closed once ctx is done.
type OpenFunc[K comparable, T any] func(ctx context.Context, key K) <-chan T

// Switcher owns at most one active subscription at a time. Switch cancels
// the current subscription and waits for it to wind down before opening
// the next one, so after Switch returns no value from an older key can be
// delivered on Updates.
type Switcher[K comparable, T any] struct {
	parent context.Context
	open   OpenFunc[K, T]
	out    chan Keyed[K, T]

	mu     sync.Mutex
	active *tomb.Tomb
	key    K
	hasKey bool
	closed bool
}

func NewSwitcher[K comparable, T any](ctx context.Context, open OpenFunc[K, T]) *Switcher[K, T] {
	return &Switcher[K, T]{
		parent: ctx,
		open:   open,
		out:    make(chan Keyed[K, T]),
	}
}

// Updates is unbuffered and closed by Close.
func (s *Switcher[K, T]) Updates() <-chan Keyed[K, T] {
	return s.out
}

// Key returns the key of the active subscription.
func (s *Switcher[K, T]) Key() (K, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, s.hasKey
}

// Switch replaces the active subscription with one for key. Concurrent
// calls are serialized; the last one wins.
func (s *Switcher[K, T]) Switch(key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.stopLocked()

	t, ctx := tomb.WithContext(s.parent)
	src := s.open(ctx, key)
	t.Go(func() error {
		// Wait for the source to close so nothing keeps computing after
		// the subscription is replaced.
		defer func() {
			for range src {
			}
		}()
		for {
			select {
			case <-t.Dying():
				return nil
			case v, ok := <-src:
				if !ok {
					return nil
				}
				select {
				case s.out <- Keyed[K, T]{Key: key, Value: v}:
				case <-t.Dying():
					return nil
				}
			}
		}
	})

	s.active = t
	s.key = key
	s.hasKey = true
	return nil
}

// Close stops the active subscription and closes Updates.
func (s *Switcher[K, T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.stopLocked()
	s.closed = true
	close(s.out)
}

func (s *Switcher[K, T]) stopLocked() {
	if s.active == nil {
		return
	}
	s.active.Kill(nil)
	_ = s.active.Wait()
	s.active = nil
}
