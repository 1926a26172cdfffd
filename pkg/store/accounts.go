package store

import (
	"context"
	"errors"

	"expensetracker/models"
	"expensetracker/pkg/account"

	"gorm.io/gorm"
)

// Accounts implements account.Store.
type Accounts struct {
	db *gorm.DB
}

func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

var _ account.Store = (*Accounts)(nil)

func (s *Accounts) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return account.ErrUserExists
		}
		return err
	}
	return nil
}

func (s *Accounts) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Accounts) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Accounts) CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	return s.db.WithContext(ctx).Create(rt).Error
}

func (s *Accounts) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := s.db.WithContext(ctx).Where("token_hash = ?", hash).First(&rt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrTokenNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// RevokeRefreshToken revokes a token that is still live. Only one of several
// concurrent callers can succeed; the rest get ErrTokenNotFound.
func (s *Accounts) RevokeRefreshToken(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return account.ErrTokenNotFound
	}
	return nil
}

func (s *Accounts) UpdatePassword(ctx context.Context, userID uint, hash []byte) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("hashed_password", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return account.ErrUserNotFound
	}
	return nil
}

func (s *Accounts) RevokeUserRefreshTokens(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}
