package expense

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"expensetracker/models"
	"expensetracker/pkg/logging"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Store persists transactions. Get looks a record up regardless of owner so
// the service can tell a missing record from someone else's. Update and Delete
// are scoped to the owner and return ErrNotFound when nothing matched.
type Store interface {
	Find(ctx context.Context, userID uint, q Query) ([]models.Transaction, int64, error)
	Get(ctx context.Context, id uint) (*models.Transaction, error)
	Create(ctx context.Context, t *models.Transaction) error
	Update(ctx context.Context, t *models.Transaction) error
	Delete(ctx context.Context, userID, id uint) error

	Total(ctx context.Context, userID uint) (decimal.Decimal, error)
	CategoryTotals(ctx context.Context, userID uint) ([]CategoryTotal, error)
	Recent(ctx context.Context, userID uint, n int) ([]models.Transaction, error)
	MonthlyTotals(ctx context.Context, userID uint, since time.Time) ([]MonthTotal, error)
}

// Service implements the transaction operations on behalf of a user. Every
// method takes the acting user's id explicitly.
type Service struct {
	store     Store
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithPublisher sends lifecycle and audit events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(logging.FieldComponent, logging.ComponentExpense)
	return s
}

// List returns one page of the user's transactions matching q.
func (s *Service) List(ctx context.Context, userID uint, q Query) (*Page, error) {
	items, total, err := s.store.Find(ctx, userID, q)
	if err != nil {
		return nil, s.storeFailure(ctx, "find", err)
	}
	if items == nil {
		items = []models.Transaction{}
	}
	return &Page{Items: items, Pagination: NewPagination(q.Page, q.Limit, total)}, nil
}

// Export collects every transaction matching q, ignoring q's paging, up to maxRows.
func (s *Service) Export(ctx context.Context, userID uint, q Query, maxRows int) ([]models.Transaction, error) {
	q.Limit = MaxLimit
	out := []models.Transaction{}
	for q.Page = 1; len(out) < maxRows; q.Page++ {
		items, _, err := s.store.Find(ctx, userID, q)
		if err != nil {
			return nil, s.storeFailure(ctx, "export", err)
		}
		out = append(out, items...)
		if len(items) < q.Limit {
			break
		}
	}
	if len(out) > maxRows {
		out = out[:maxRows]
	}
	return out, nil
}

// Get returns the transaction if userID owns it.
func (s *Service) Get(ctx context.Context, userID, id uint) (*models.Transaction, error) {
	return s.owned(ctx, "get", userID, id)
}

// Create validates f and stores a new transaction owned by userID.
func (s *Service) Create(ctx context.Context, userID uint, f Fields) (*models.Transaction, error) {
	t, err := f.NewTransaction(userID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, s.storeFailure(ctx, "create", err)
	}
	s.log.InfoContext(ctx, "transaction created", logging.FieldUserID, userID, logging.FieldTransactionID, t.ID)
	s.publish(ctx, transactionEvent(EventCreated, t, s.now()))
	return t, nil
}

// Update replaces the supplied fields of the user's transaction. Fields left
// nil keep their stored values.
func (s *Service) Update(ctx context.Context, userID, id uint, f Fields) (*models.Transaction, error) {
	current, err := s.owned(ctx, "update", userID, id)
	if err != nil {
		return nil, err
	}
	t, err := f.Merge(*current)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, t); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.storeFailure(ctx, "update", err)
	}
	s.log.InfoContext(ctx, "transaction updated", logging.FieldUserID, userID, logging.FieldTransactionID, id)
	s.publish(ctx, transactionEvent(EventUpdated, t, s.now()))
	return t, nil
}

// Delete permanently removes the user's transaction.
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	t, err := s.owned(ctx, "delete", userID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return s.storeFailure(ctx, "delete", err)
	}
	s.log.InfoContext(ctx, "transaction deleted", logging.FieldUserID, userID, logging.FieldTransactionID, id)
	s.publish(ctx, transactionEvent(EventDeleted, t, s.now()))
	return nil
}

// Summary computes the dashboard for userID. The four statistics are read
// concurrently; the first failure cancels the others.
func (s *Service) Summary(ctx context.Context, userID uint) (*Summary, error) {
	sum := &Summary{}
	since := TrendStart(s.now())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.store.Total(gctx, userID)
		sum.Total = total
		return err
	})
	g.Go(func() error {
		cats, err := s.store.CategoryTotals(gctx, userID)
		sum.CategoryBreakdown = cats
		return err
	})
	g.Go(func() error {
		recent, err := s.store.Recent(gctx, userID, RecentLimit)
		sum.Recent = recent
		return err
	})
	g.Go(func() error {
		months, err := s.store.MonthlyTotals(gctx, userID, since)
		sum.MonthlyTrend = months
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.storeFailure(ctx, "summary", err)
	}

	sum.CategoryBreakdown = normalizeBreakdown(sum.CategoryBreakdown)
	sum.MonthlyTrend = normalizeTrend(sum.MonthlyTrend)
	if sum.Recent == nil {
		sum.Recent = []models.Transaction{}
	}
	return sum, nil
}

func (s *Service) owned(ctx context.Context, op string, userID, id uint) (*models.Transaction, error) {
	t, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.storeFailure(ctx, op, err)
	}
	if t.UserID != userID {
		s.log.WarnContext(ctx, "transaction access denied",
			logging.FieldOperation, op,
			logging.FieldUserID, userID,
			logging.FieldTransactionID, id)
		s.publish(ctx, Event{
			Type:          EventAccessDenied,
			UserID:        userID,
			TransactionID: id,
			OwnerID:       t.UserID,
			At:            s.now(),
		})
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *Service) storeFailure(ctx context.Context, op string, err error) error {
	level := slog.LevelError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		level = slog.LevelWarn
	}
	s.log.Log(ctx, level, "store operation failed", logging.FieldOperation, op, logging.FieldError, err)
	return &StoreError{Op: op, Err: err}
}

func (s *Service) publish(ctx context.Context, e Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.WarnContext(ctx, "event publish failed", "event", e.Type, logging.FieldError, err)
	}
}

// normalizeBreakdown drops empty categories and orders by total descending,
// then by category name.
func normalizeBreakdown(in []CategoryTotal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(in))
	for _, c := range in {
		if c.Count > 0 {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}

func normalizeTrend(in []MonthTotal) []MonthTotal {
	out := make([]MonthTotal, 0, len(in))
	for _, m := range in {
		if m.Count > 0 {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b MonthTotal) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.Month, b.Month)
	})
	return out
}
