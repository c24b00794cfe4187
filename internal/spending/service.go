// Package spending answers the aggregation queries: spending per time
// bucket for a dimension, totals, and live views of both.
package spending

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"receipts/internal/cache"
	"receipts/internal/core"
	"receipts/internal/stream"
)

// Store is the read side of the entity store.
type Store interface {
	SpendingRows(ctx context.Context, dim core.Dimension) ([]core.SpendingRow, error)
	TotalSpent(ctx context.Context, dim core.Dimension) (core.Money, error)
	TotalsBy(ctx context.Context, kind core.DimensionKind) ([]core.EntityTotal, error)
	PriceHistory(ctx context.Context, productID int64) ([]core.PricePoint, error)
	Version() uint64
}

// Report is everything a spending screen shows for one dimension and
// period. Average and Median are nil when there are no buckets.
type Report struct {
	Dimension core.Dimension
	Period    core.Period
	Buckets   []core.Bucket
	Total     core.Money
	Average   *core.Money
	Median    *core.Money
}

type Service struct {
	store   Store
	changes stream.Notifier
	loc     *time.Location

	rows   *cache.LRUCache[[]core.SpendingRow]
	totals *cache.LRUCache[core.Money]
	group  singleflight.Group
}

type Option func(*Service)

// WithLocation sets the zone week, month and year buckets align to.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithCache sizes the query caches.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		s.rows = cache.NewLRUCache[[]core.SpendingRow](size, ttl)
		s.totals = cache.NewLRUCache[core.Money](size, ttl)
	}
}

func New(store Store, changes stream.Notifier, opts ...Option) *Service {
	s := &Service{
		store:   store,
		changes: changes,
		loc:     time.Local,
	}
	WithCache(64, 5*time.Minute)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register hands the caches to a manager for periodic expiry.
func (s *Service) Register(m *cache.Manager) {
	m.Register(s.rows)
	m.Register(s.totals)
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func validate(dim core.Dimension, p core.Period) error {
	if !p.IsValid() {
		return fmt.Errorf("invalid period %d", int(p))
	}
	if dim.Kind != core.AllSpending && dim.ID <= 0 {
		return fmt.Errorf("invalid %s id %d", dim.Kind, dim.ID)
	}
	return nil
}

// cached returns the value under key, loading it once for all concurrent
// callers on a miss. The shared load is detached from the cancellation of
// the caller that started it; each caller stops waiting when its own ctx
// is done.
func cached[T any](ctx context.Context, s *Service, c *cache.LRUCache[T], key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	flight := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		v, err := load(flight)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (s *Service) spendingRows(ctx context.Context, dim core.Dimension) ([]core.SpendingRow, error) {
	key := fmt.Sprintf("rows|%s|%d", dim, s.store.Version())
	return cached(ctx, s, s.rows, key, func(ctx context.Context) ([]core.SpendingRow, error) {
		return s.store.SpendingRows(ctx, dim)
	})
}

// Buckets returns the spending of dim grouped by period, oldest first.
func (s *Service) Buckets(ctx context.Context, dim core.Dimension, p core.Period) ([]core.Bucket, error) {
	if err := validate(dim, p); err != nil {
		return nil, err
	}
	rows, err := s.spendingRows(ctx, dim)
	if err != nil {
		return nil, fmt.Errorf("load spending of %s: %w", dim, err)
	}
	return core.BucketRows(rows, p, s.loc), nil
}

// Total returns everything spent on dim.
func (s *Service) Total(ctx context.Context, dim core.Dimension) (core.Money, error) {
	if err := validate(dim, core.DefaultPeriod); err != nil {
		return core.Money{}, err
	}
	key := fmt.Sprintf("total|%s|%d", dim, s.store.Version())
	total, err := cached(ctx, s, s.totals, key, func(ctx context.Context) (core.Money, error) {
		return s.store.TotalSpent(ctx, dim)
	})
	if err != nil {
		return core.Money{}, fmt.Errorf("load total of %s: %w", dim, err)
	}
	return total, nil
}

// Report loads the buckets and the total concurrently.
func (s *Service) Report(ctx context.Context, dim core.Dimension, p core.Period) (Report, error) {
	r := Report{Dimension: dim, Period: p}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		r.Buckets, err = s.Buckets(gctx, dim, p)
		return err
	})
	g.Go(func() error {
		var err error
		r.Total, err = s.Total(gctx, dim)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	if avg, ok := core.Average(r.Buckets); ok {
		r.Average = &avg
	}
	if med, ok := core.Median(r.Buckets); ok {
		r.Median = &med
	}
	return r, nil
}

// WatchBuckets emits the buckets now and after every change to the store,
// until ctx is done.
func (s *Service) WatchBuckets(ctx context.Context, dim core.Dimension, p core.Period) <-chan stream.Update[[]core.Bucket] {
	return stream.Watch(ctx, s.changes, func(ctx context.Context) ([]core.Bucket, error) {
		return s.Buckets(ctx, dim, p)
	})
}

func (s *Service) WatchTotal(ctx context.Context, dim core.Dimension) <-chan stream.Update[core.Money] {
	return stream.Watch(ctx, s.changes, func(ctx context.Context) (core.Money, error) {
		return s.Total(ctx, dim)
	})
}

func (s *Service) WatchReport(ctx context.Context, dim core.Dimension, p core.Period) <-chan stream.Update[Report] {
	return stream.Watch(ctx, s.changes, func(ctx context.Context) (Report, error) {
		r, err := s.Report(ctx, dim, p)
		if err != nil && ctx.Err() == nil {
			slog.WarnContext(ctx, "Spending report failed", "dimension", dim.String(), "period", p.String(), "error", err)
		}
		return r, err
	})
}

// Totals returns the spending per entity of kind, largest first.
func (s *Service) Totals(ctx context.Context, kind core.DimensionKind) ([]core.EntityTotal, error) {
	return s.store.TotalsBy(ctx, kind)
}

func (s *Service) PriceHistory(ctx context.Context, productID int64) ([]core.PricePoint, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("invalid product id %d", productID)
	}
	return s.store.PriceHistory(ctx, productID)
}
