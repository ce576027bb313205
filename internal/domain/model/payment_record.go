package model

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentProvider string

const (
	PaymentProviderVNPay  PaymentProvider = "VNPAY"
	PaymentProviderManual PaymentProvider = "MANUAL"
)

// PaymentRecord is one row per payment attempt. The gateway callback is the
// only writer after creation.
type PaymentRecord struct {
	ID            int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64             `gorm:"not null;index" json:"user_id"`
	OrderID       int64             `gorm:"not null;index" json:"order_id"`
	Amount        int64             `gorm:"not null" json:"amount"`
	Currency      string            `gorm:"type:varchar(8);not null;default:'vnd'" json:"currency"`
	Provider      PaymentProvider   `gorm:"type:varchar(20);not null" json:"provider"`
	Status        PaymentStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	TransactionID string            `gorm:"type:varchar(128)" json:"transaction_id"`
	Details       datatypes.JSONMap `json:"details,omitempty"`
	FailureReason string            `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (PaymentRecord) TableName() string { return "payment_records" }
