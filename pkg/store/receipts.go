package store

import (
	"context"
	"errors"

	"expensetracker/models"

	"gorm.io/gorm"
)

// Receipts records files processed by the receipt inbox.
type Receipts struct {
	db *gorm.DB
}

func NewReceipts(db *gorm.DB) *Receipts {
	return &Receipts{db: db}
}

func (s *Receipts) FindReceipt(ctx context.Context, userID uint, fileName string) (*models.Receipt, bool, error) {
	var r models.Receipt
	err := s.db.WithContext(ctx).Where("user_id = ? AND file_name = ?", userID, fileName).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &r, true, nil
}

// SaveReceipt inserts r when it has no id yet, otherwise updates it. A racing
// insert for the same file is resolved by loading the existing row into r.
func (s *Receipts) SaveReceipt(ctx context.Context, r *models.Receipt) error {
	tx := s.db.WithContext(ctx)
	if r.ID != 0 {
		return tx.Save(r).Error
	}
	if err := tx.Create(r).Error; err != nil {
		if !isUniqueViolation(err) {
			return err
		}
		existing, found, ferr := s.FindReceipt(ctx, r.UserID, r.FileName)
		if ferr != nil {
			return ferr
		}
		if !found {
			return err
		}
		*r = *existing
	}
	return nil
}
