package stream

import "context"

// Update is one emission of a live query: either a fresh value or the
// error the reload failed with.
type Update[T any] struct {
	Value T
	Err   error
}

// LoadFunc computes the current value of a query.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Watch returns a live view of load: it emits the current value right away
// and again after every change signal from n. The channel is closed once
// ctx is done. Each call starts an independent subscription, so a watcher
// can be restarted simply by calling Watch again.
func Watch[T any](ctx context.Context, n Notifier, load LoadFunc[T]) <-chan Update[T] {
	out := make(chan Update[T])

	go func() {
		defer close(out)

		// Subscribe before the first load so a write racing with it is
		// never missed.
		changes, cancel := n.Subscribe()
		defer cancel()

		for {
			v, err := load(ctx)
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- Update[T]{Value: v, Err: err}:
			case <-ctx.Done():
				return
			}

			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
			}
		}
	}()

	return out
}

// Map transforms every update of in. Errors pass through untouched.
func Map[T, U any](ctx context.Context, in <-chan Update[T], fn func(T) U) <-chan Update[U] {
	out := make(chan Update[U])
	go func() {
		defer close(out)
		for u := range in {
			var mapped Update[U]
			if u.Err != nil {
				mapped.Err = u.Err
			} else {
				mapped.Value = fn(u.Value)
			}
			select {
			case out <- mapped:
			case <-ctx.Done():
				// drain so the producer can observe ctx and exit
				for range in {
				}
				return
			}
		}
	}()
	return out
}
