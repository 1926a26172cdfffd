package models

import (
	"time"
)

// User owns transactions and refresh tokens.
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	Username       string         `gorm:"size:255;not null;unique" json:"username"`
	HashedPassword []byte         `gorm:"not null" json:"-"`
	Transactions   []Transaction  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	RefreshTokens  []RefreshToken `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
