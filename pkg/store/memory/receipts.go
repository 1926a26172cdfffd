package memory

import (
	"context"

	"expensetracker/models"
)

// FindReceipt returns the receipt recorded for userID and fileName, if any.
func (s *Store) FindReceipt(ctx context.Context, userID uint, fileName string) (*models.Receipt, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.receipts {
		if r.UserID == userID && r.FileName == fileName {
			return &r, true, nil
		}
	}
	return nil, false, nil
}

// SaveReceipt inserts r when it has no id yet, otherwise replaces it.
func (s *Store) SaveReceipt(ctx context.Context, r *models.Receipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if r.ID == 0 {
		s.nextReceipt++
		r.ID = s.nextReceipt
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	s.receipts[r.ID] = *r
	return nil
}
