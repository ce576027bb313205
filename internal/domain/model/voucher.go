package model

import "time"

type VoucherType string

const (
	VoucherTypePercentage  VoucherType = "PERCENTAGE"
	VoucherTypeFixedAmount VoucherType = "FIXED_AMOUNT"
)

type VoucherStatus string

const (
	VoucherStatusActive   VoucherStatus = "ACTIVE"
	VoucherStatusInactive VoucherStatus = "INACTIVE"
	VoucherStatusExpired  VoucherStatus = "EXPIRED"
)

type Voucher struct {
	ID               int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Code             string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	Name             string        `gorm:"type:varchar(255);not null" json:"name"`
	Description      string        `gorm:"type:text" json:"description,omitempty"`
	Type             VoucherType   `gorm:"type:varchar(20);not null;default:'PERCENTAGE'" json:"type"`
	Value            int64         `gorm:"not null" json:"value"`
	MinOrderValue    int64         `gorm:"not null;default:0" json:"min_order_value"`
	MaxDiscountValue *int64        `json:"max_discount_value,omitempty"`
	UsageLimit       int64         `gorm:"not null;default:0" json:"usage_limit"`
	UsageCount       int64         `gorm:"not null;default:0" json:"usage_count"`
	StartDate        time.Time     `gorm:"not null" json:"start_date"`
	EndDate          time.Time     `gorm:"not null" json:"end_date"`
	IsActive         bool          `gorm:"not null;default:true" json:"is_active"`
	Status           VoucherStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	CreatedAt        time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// EffectiveStatus derives the display status from the window and the active
// flag. Called by the service whenever a voucher is written, instead of a
// storage-layer hook, so the computation stays testable.
func (v Voucher) EffectiveStatus(now time.Time) VoucherStatus {
	switch {
	case v.EndDate.Before(now):
		return VoucherStatusExpired
	case v.StartDate.After(now):
		return VoucherStatusInactive
	case v.IsActive:
		return VoucherStatusActive
	default:
		return VoucherStatusInactive
	}
}

// DiscountFor computes the discount this voucher yields on the given subtotal.
// Callers must have validated the voucher first; this is pure arithmetic.
func (v Voucher) DiscountFor(subtotal int64) int64 {
	var discount int64
	switch v.Type {
	case VoucherTypePercentage:
		discount = subtotal * v.Value / 100
		if v.MaxDiscountValue != nil && discount > *v.MaxDiscountValue {
			discount = *v.MaxDiscountValue
		}
	case VoucherTypeFixedAmount:
		discount = v.Value
		if discount > subtotal {
			discount = subtotal
		}
	}
	return discount
}
