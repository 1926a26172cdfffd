package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single expense owned by exactly one user.
type Transaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	UserID    uint            `gorm:"not null;index:idx_transactions_user_date,priority:1" json:"userId"`
	Title     string          `gorm:"size:100;not null" json:"title"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Category  Category        `gorm:"size:32;not null;index" json:"category"`
	Date      time.Time       `gorm:"not null;index:idx_transactions_user_date,priority:2" json:"date"`
	Notes     string          `gorm:"size:500" json:"notes"`
}
