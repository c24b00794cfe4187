package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"receipts/internal/sheets"
	"receipts/internal/storage"
)

// Store keeps exported rows in memory. It backs local runs without Google
// credentials and the worker tests.
type Store struct {
	mu     sync.Mutex
	loc    *time.Location
	rows   map[int64][][]string
	writes int
}

var _ sheets.Sink = (*Store)(nil)

func New(loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{loc: loc, rows: make(map[int64][][]string)}
}

// WriteTransaction replaces the rows of t and returns a synthetic reference.
func (s *Store) WriteTransaction(_ context.Context, t storage.TransactionDetails) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[t.ID] = sheets.Rows(t, s.loc)
	s.writes++
	return fmt.Sprintf("mem:%d", s.writes), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *Store) ReplaceAll(_ context.Context, ts []storage.TransactionDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[int64][][]string, len(ts))
	for _, t := range ts {
		s.rows[t.ID] = sheets.Rows(t, s.loc)
	}
	s.writes++
	return nil
}

// Rows returns the header followed by every stored row, ordered by
// transaction id.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := [][]string{append([]string(nil), sheets.Header...)}
	for _, id := range ids {
		out = append(out, s.rows[id]...)
	}
	return out
}

// Transactions returns the ids currently exported.
func (s *Store) Transactions() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
