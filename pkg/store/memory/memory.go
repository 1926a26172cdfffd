// Package memory keeps transactions, users and receipts in process memory.
// It backs DATA_BACKEND=memory and the handler tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"expensetracker/models"
	"expensetracker/pkg/account"
	"expensetracker/pkg/expense"

	"github.com/shopspring/decimal"
)

type Store struct {
	mu sync.RWMutex

	transactions map[uint]models.Transaction
	users        map[uint]models.User
	tokens       map[uint]models.RefreshToken
	receipts     map[uint]models.Receipt

	nextTx, nextUser, nextToken, nextReceipt uint
	now                                      func() time.Time
}

func New() *Store {
	return &Store{
		transactions: map[uint]models.Transaction{},
		users:        map[uint]models.User{},
		tokens:       map[uint]models.RefreshToken{},
		receipts:     map[uint]models.Receipt{},
		now:          time.Now,
	}
}

// Find implements expense.Store.
func (s *Store) Find(ctx context.Context, userID uint, q expense.Query) ([]models.Transaction, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	preds := q.Predicates(userID)
	s.mu.RLock()
	var matched []models.Transaction
	for _, t := range s.transactions {
		if expense.MatchAll(preds, t) {
			matched = append(matched, t)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, compareBy(q))
	total := int64(len(matched))
	off := q.Offset()
	if off < 0 || off >= len(matched) {
		return []models.Transaction{}, total, nil
	}
	end := min(off+q.Limit, len(matched))
	return slices.Clone(matched[off:end]), total, nil
}

func compareBy(q expense.Query) func(a, b models.Transaction) int {
	return func(a, b models.Transaction) int {
		switch {
		case q.Less(a, b):
			return -1
		case q.Less(b, a):
			return 1
		}
		return 0
	}
}

func (s *Store) Get(ctx context.Context, id uint) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, expense.ErrNotFound
	}
	return &t, nil
}

func (s *Store) Create(ctx context.Context, t *models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTx++
	now := s.now()
	t.ID = s.nextTx
	t.CreatedAt, t.UpdatedAt = now, now
	s.transactions[t.ID] = *t
	return nil
}

func (s *Store) Update(ctx context.Context, t *models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.transactions[t.ID]
	if !ok || cur.UserID != t.UserID {
		return expense.ErrNotFound
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = s.now()
	s.transactions[t.ID] = *t
	return nil
}

func (s *Store) Delete(ctx context.Context, userID, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.transactions[id]
	if !ok || cur.UserID != userID {
		return expense.ErrNotFound
	}
	delete(s.transactions, id)
	for rid, r := range s.receipts {
		if r.TransactionID != nil && *r.TransactionID == id {
			r.TransactionID = nil
			s.receipts[rid] = r
		}
	}
	return nil
}

func (s *Store) owned(userID uint) []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) Total(ctx context.Context, userID uint) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, t := range s.owned(userID) {
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (s *Store) CategoryTotals(ctx context.Context, userID uint) ([]expense.CategoryTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	byCat := map[models.Category]*expense.CategoryTotal{}
	for _, t := range s.owned(userID) {
		ct, ok := byCat[t.Category]
		if !ok {
			ct = &expense.CategoryTotal{Category: t.Category, Total: decimal.Zero}
			byCat[t.Category] = ct
		}
		ct.Total = ct.Total.Add(t.Amount)
		ct.Count++
	}
	out := make([]expense.CategoryTotal, 0, len(byCat))
	for _, ct := range byCat {
		out = append(out, *ct)
	}
	return out, nil
}

func (s *Store) Recent(ctx context.Context, userID uint, n int) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items := s.owned(userID)
	slices.SortFunc(items, compareBy(expense.DefaultQuery()))
	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}

func (s *Store) MonthlyTotals(ctx context.Context, userID uint, since time.Time) ([]expense.MonthTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type key struct{ y, m int }
	buckets := map[key]*expense.MonthTotal{}
	for _, t := range s.owned(userID) {
		if t.Date.Before(since) {
			continue
		}
		d := t.Date.UTC()
		k := key{d.Year(), int(d.Month())}
		mt, ok := buckets[k]
		if !ok {
			mt = &expense.MonthTotal{Year: k.y, Month: k.m, Total: decimal.Zero}
			buckets[k] = mt
		}
		mt.Total = mt.Total.Add(t.Amount)
		mt.Count++
	}
	out := make([]expense.MonthTotal, 0, len(buckets))
	for _, mt := range buckets {
		out = append(out, *mt)
	}
	return out, nil
}

var (
	_ expense.Store = (*Store)(nil)
	_ account.Store = (*Store)(nil)
)
