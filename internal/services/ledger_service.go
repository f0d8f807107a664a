package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"moneydrain/internal/amqp"
	"moneydrain/internal/cache"
	"moneydrain/internal/core"
	"moneydrain/internal/export"
	"moneydrain/internal/ledger"
	"moneydrain/internal/log"
)

const (
	// RecentLimit is how many transactions the dashboard shows.
	RecentLimit = 20

	categoryCacheKey = "all"
	categoryCacheTTL = 5 * time.Minute
)

// EventPublisher delivers ledger change notifications. *amqp.Client
// satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.Event) error
}

// Dashboard is the home screen: running balance, latest activity and the
// current month.
type Dashboard struct {
	Balance core.Balance       `json:"balance"`
	Recent  []core.Transaction `json:"recent"`
	Month   core.MonthlyStats  `json:"month"`
}

// LedgerService validates input, snapshots category presentation onto new
// transactions and publishes change events around a ledger.Store.
type LedgerService struct {
	store      ledger.Store
	publisher  EventPublisher
	categories *cache.LRUCache[[]core.Category]
	now        func() time.Time
}

// NewLedgerService wraps store. publisher may be nil, in which case no
// events are sent.
func NewLedgerService(store ledger.Store, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:      store,
		publisher:  publisher,
		categories: cache.NewLRUCache[[]core.Category](1, categoryCacheTTL),
		now:        time.Now,
	}
}

// WithClock replaces the clock used to stamp transactions without a date.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// CategoryCache exposes the category list cache for periodic expiry sweeps.
func (s *LedgerService) CategoryCache() cache.Cleaner {
	return s.categories
}

func (s *LedgerService) Init(ctx context.Context) error {
	if err := s.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	s.categories.Clear()
	return nil
}

// AddTransaction stores n and returns the stored transaction. When the
// category exists its icon and color fill in whatever the caller left
// empty, and its type must match n.Type.
func (s *LedgerService) AddTransaction(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	n, err := n.Normalize()
	if err != nil {
		return core.Transaction{}, err
	}

	cat, found, err := s.findCategory(ctx, n.Category)
	if err != nil {
		return core.Transaction{}, err
	}
	if found {
		if cat.Type != n.Type {
			return core.Transaction{}, &core.ValidationError{Field: "type", Err: core.ErrTypeMismatch}
		}
		if n.CategoryIcon == "" {
			n.CategoryIcon = cat.Icon
		}
		if n.CategoryColor == "" {
			n.CategoryColor = cat.Color
		}
	}
	if n.Date.IsZero() {
		n.Date = core.StampDate(s.now())
	}

	id, err := s.store.AddTransaction(ctx, n)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	tx := n.Build(id, n.Date)

	log.NewStructuredLogger(logger(ctx)).
		LogTransactionCreated(ctx, tx.ID, tx.Type.String(), tx.Amount.StringFixed(core.AmountPlaces), tx.Category)
	s.publish(ctx, amqp.TransactionCreatedEvent(tx))
	return tx, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, limit, offset int) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, limit, offset)
}

func (s *LedgerService) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	return s.store.ListTransactionsByMonth(ctx, year, month)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	logger(ctx).InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, id)
	s.publish(ctx, amqp.NewEvent(amqp.TransactionDeleted, id))
	return nil
}

// ClearTransactions deletes every transaction and keeps the categories.
func (s *LedgerService) ClearTransactions(ctx context.Context) (int64, error) {
	n, err := s.store.ClearTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}
	logger(ctx).WarnContext(ctx, "Transactions cleared", "count", n)
	s.publish(ctx, amqp.ClearedEvent(n))
	return n, nil
}

func (s *LedgerService) Balance(ctx context.Context) (core.Balance, error) {
	return s.store.Balance(ctx)
}

func (s *LedgerService) MonthlyStats(ctx context.Context, year, month int) (core.MonthlyStats, error) {
	return s.store.MonthlyStats(ctx, year, month)
}

// ListCategories returns the categories ordered by type then name. The
// list is cached until a category mutation or the TTL expires.
func (s *LedgerService) ListCategories(ctx context.Context) ([]core.Category, error) {
	if cats, ok := s.categories.Get(categoryCacheKey); ok {
		return append([]core.Category(nil), cats...), nil
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	s.categories.Set(categoryCacheKey, cats)
	return append([]core.Category(nil), cats...), nil
}

// CategoriesOfType filters ListCategories to one transaction type.
func (s *LedgerService) CategoriesOfType(ctx context.Context, t core.TransactionType) ([]core.Category, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := cats[:0]
	for _, c := range cats {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *LedgerService) AddCategory(ctx context.Context, n core.NewCategory) (core.Category, error) {
	n, err := n.Normalize()
	if err != nil {
		return core.Category{}, err
	}
	id, err := s.store.AddCategory(ctx, n)
	if err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}
	s.categories.Clear()

	c := n.Build(id)
	logger(ctx).InfoContext(ctx, "Category created", "id", c.ID, "name", c.Name, "type", c.Type)
	s.publish(ctx, amqp.CategoryCreatedEvent(c))
	return c, nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.categories.Clear()
	logger(ctx).InfoContext(ctx, "Category deleted", "id", id)
	s.publish(ctx, amqp.NewEvent(amqp.CategoryDeleted, id))
	return nil
}

// Dashboard loads the balance, the latest transactions and the current
// month's stats concurrently.
func (s *LedgerService) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	month := core.MonthOf(s.now())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.store.Balance(gctx)
		if err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		d.Balance = b
		return nil
	})
	g.Go(func() error {
		txs, err := s.store.ListTransactions(gctx, RecentLimit, 0)
		if err != nil {
			return fmt.Errorf("recent transactions: %w", err)
		}
		d.Recent = txs
		return nil
	})
	g.Go(func() error {
		stats, err := s.store.MonthlyStats(gctx, month.Year, month.Month)
		if err != nil {
			return fmt.Errorf("monthly stats: %w", err)
		}
		d.Month = stats
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}
	return d, nil
}

// ExportTransactions returns the transactions an export covers.
func (s *LedgerService) ExportTransactions(ctx context.Context) ([]core.Transaction, error) {
	return export.Latest(ctx, s.store)
}

func (s *LedgerService) findCategory(ctx context.Context, name string) (core.Category, bool, error) {
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return core.Category{}, false, err
	}
	for _, c := range cats {
		if c.Name == name {
			return c, true, nil
		}
	}
	return core.Category{}, false, nil
}

// logger is the request-scoped logger when ctx carries one.
func logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentLedger)
}

// publish never fails the caller: the change is already stored.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.Event) {
	if s.publisher == nil {
		logger(ctx).DebugContext(ctx, "Event publisher not configured, skipping event", "event_type", ev.Type)
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logger(ctx).ErrorContext(ctx, "Failed to publish event",
			"event_type", ev.Type,
			"event_id", ev.ID,
			"error", err)
	}
}
