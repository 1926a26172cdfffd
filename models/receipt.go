package models

import "time"

// Receipt records an image picked up by the receipt inbox. Rows are kept on
// failure so the file is not retried on every scan.
type Receipt struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	UserID        uint         `gorm:"not null;uniqueIndex:idx_receipts_user_file" json:"userId"`
	FileName      string       `gorm:"size:255;not null;uniqueIndex:idx_receipts_user_file" json:"fileName"`
	ContentType   string       `gorm:"size:128" json:"contentType"`
	TransactionID *uint        `gorm:"index" json:"transactionId"`
	Transaction   *Transaction `gorm:"foreignKey:TransactionID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	Failed        bool         `gorm:"default:false;index" json:"failed"`
	FailedReason  string       `gorm:"size:255" json:"failedReason,omitempty"`
}
