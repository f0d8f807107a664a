package memory

import (
	"context"
	"sync"
	"time"

	"moneydrain/internal/core"
	"moneydrain/internal/ledger"
)

// Store keeps transactions and categories in process memory. It has the same
// semantics as the SQL backends, including unique category names.
type Store struct {
	mu     sync.Mutex
	seed   []core.NewCategory
	now    func() time.Time
	ready  bool
	nextTx int64
	nextCt int64
	items  []core.Transaction
	cats   []core.Category
}

var _ ledger.Store = (*Store)(nil)

// New returns an uninitialized store that seeds the given categories on Init.
// A nil seed uses core.DefaultCategories.
func New(seed []core.NewCategory) *Store {
	if seed == nil {
		seed = core.DefaultCategories()
	}
	return &Store{seed: seed, now: time.Now}
}

// WithClock replaces the clock used to stamp transactions without a date.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	if len(s.cats) > 0 {
		return nil
	}
	for _, c := range s.seed {
		if s.hasName(c.Name) {
			continue
		}
		s.nextCt++
		s.cats = append(s.cats, c.Build(s.nextCt))
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) AddTransaction(_ context.Context, n core.NewTransaction) (int64, error) {
	n, err := n.Normalize()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0, core.ErrStorageUninitialized
	}
	s.nextTx++
	s.items = append(s.items, n.Build(s.nextTx, s.now()))
	return s.nextTx, nil
}

func (s *Store) ListTransactions(_ context.Context, limit, offset int) ([]core.Transaction, error) {
	limit, offset = ledger.Page(limit, offset)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, core.ErrStorageUninitialized
	}
	all := s.sorted()
	if offset >= len(all) {
		return []core.Transaction{}, nil
	}
	end := len(all)
	if limit < end-offset {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (s *Store) ListTransactionsByMonth(_ context.Context, year, month int) ([]core.Transaction, error) {
	m, err := core.NewMonth(year, month)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, core.ErrStorageUninitialized
	}
	out := []core.Transaction{}
	for _, t := range s.sorted() {
		if m.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return core.ErrStorageUninitialized
	}
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ClearTransactions(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0, core.ErrStorageUninitialized
	}
	n := int64(len(s.items))
	s.items = nil
	return n, nil
}

func (s *Store) Balance(_ context.Context) (core.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return core.Balance{}, core.ErrStorageUninitialized
	}
	return core.Summarize(s.items), nil
}

func (s *Store) MonthlyStats(_ context.Context, year, month int) (core.MonthlyStats, error) {
	m, err := core.NewMonth(year, month)
	if err != nil {
		return core.MonthlyStats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return core.MonthlyStats{}, core.ErrStorageUninitialized
	}
	return core.SummarizeMonth(m, s.items), nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, core.ErrStorageUninitialized
	}
	out := append([]core.Category{}, s.cats...)
	core.SortCategories(out)
	return out, nil
}

func (s *Store) AddCategory(_ context.Context, n core.NewCategory) (int64, error) {
	n, err := n.Normalize()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0, core.ErrStorageUninitialized
	}
	if s.hasName(n.Name) {
		return 0, core.ErrDuplicateCategory
	}
	s.nextCt++
	s.cats = append(s.cats, n.Build(s.nextCt))
	return s.nextCt, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return core.ErrStorageUninitialized
	}
	for i, c := range s.cats {
		if c.ID == id {
			s.cats = append(s.cats[:i], s.cats[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) hasName(name string) bool {
	for _, c := range s.cats {
		if c.Name == name {
			return true
		}
	}
	return false
}

// sorted returns a copy of the transactions, most recent first.
func (s *Store) sorted() []core.Transaction {
	out := append([]core.Transaction(nil), s.items...)
	core.SortTransactions(out)
	return out
}
