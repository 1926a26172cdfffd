package store

import (
	"context"
	"errors"
	"time"

	"expensetracker/models"
	"expensetracker/pkg/expense"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transactions implements expense.Store.
type Transactions struct {
	db *gorm.DB
}

func NewTransactions(db *gorm.DB) *Transactions {
	return &Transactions{db: db}
}

var _ expense.Store = (*Transactions)(nil)

func (s *Transactions) model(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Transaction{})
}

func filtered(preds []expense.Predicate) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		for _, p := range preds {
			tx = tx.Where(p.SQL, p.Args...)
		}
		return tx
	}
}

func (s *Transactions) Find(ctx context.Context, userID uint, q expense.Query) ([]models.Transaction, int64, error) {
	scope := filtered(q.Predicates(userID))

	var total int64
	if err := s.model(ctx).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := []models.Transaction{}
	if total == 0 {
		return items, 0, nil
	}
	err := s.model(ctx).Scopes(scope).
		Order(q.OrderBy()).
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&items).Error
	return items, total, err
}

func (s *Transactions) Get(ctx context.Context, id uint) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, expense.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Transactions) Create(ctx context.Context, t *models.Transaction) error {
	return s.db.WithContext(ctx).Create(t).Error
}

// Update writes the editable columns, scoped to the owner.
func (s *Transactions) Update(ctx context.Context, t *models.Transaction) error {
	now := time.Now().UTC()
	res := s.model(ctx).
		Where("id = ? AND user_id = ?", t.ID, t.UserID).
		Updates(map[string]any{
			"title":      t.Title,
			"amount":     t.Amount,
			"category":   string(t.Category),
			"date":       t.Date,
			"notes":      t.Notes,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return expense.ErrNotFound
	}
	t.UpdatedAt = now
	return nil
}

func (s *Transactions) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Transaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return expense.ErrNotFound
	}
	return nil
}

func (s *Transactions) Total(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := s.model(ctx).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ?", userID).
		Scan(&row).Error
	return row.Total, err
}

func (s *Transactions) CategoryTotals(ctx context.Context, userID uint) ([]expense.CategoryTotal, error) {
	var out []expense.CategoryTotal
	err := s.model(ctx).
		Select("category, SUM(amount) AS total, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("category").
		Order("total DESC, category ASC").
		Scan(&out).Error
	return out, err
}

func (s *Transactions) Recent(ctx context.Context, userID uint, n int) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.model(ctx).
		Where("user_id = ?", userID).
		Order(expense.DefaultQuery().OrderBy()).
		Limit(n).
		Find(&out).Error
	return out, err
}

// MonthlyTotals buckets by calendar month in UTC.
func (s *Transactions) MonthlyTotals(ctx context.Context, userID uint, since time.Time) ([]expense.MonthTotal, error) {
	var out []expense.MonthTotal
	err := s.model(ctx).
		Select(`CAST(EXTRACT(YEAR FROM date AT TIME ZONE 'UTC') AS INTEGER) AS year,
			CAST(EXTRACT(MONTH FROM date AT TIME ZONE 'UTC') AS INTEGER) AS month,
			SUM(amount) AS total, COUNT(*) AS count`).
		Where("user_id = ? AND date >= ?", userID, since).
		Group("year, month").
		Order("year ASC, month ASC").
		Scan(&out).Error
	return out, err
}
