package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// paymentTransitions is the closed set of allowed payment status moves.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted: {PaymentStatusRefunded},
}

func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type ShippingStatus string

const (
	ShippingStatusPending    ShippingStatus = "PENDING"
	ShippingStatusProcessing ShippingStatus = "PROCESSING"
	ShippingStatusShipped    ShippingStatus = "SHIPPED"
	ShippingStatusDelivered  ShippingStatus = "DELIVERED"
	ShippingStatusCanceled   ShippingStatus = "CANCELED"
)

var shippingTransitions = map[ShippingStatus][]ShippingStatus{
	ShippingStatusPending:    {ShippingStatusProcessing, ShippingStatusCanceled},
	ShippingStatusProcessing: {ShippingStatusShipped, ShippingStatusCanceled},
	ShippingStatusShipped:    {ShippingStatusDelivered},
}

func (s ShippingStatus) CanTransition(to ShippingStatus) bool {
	for _, next := range shippingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentMethodOnlinePayment  PaymentMethod = "ONLINE_PAYMENT"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCashOnDelivery || m == PaymentMethodOnlinePayment
}

type OrderKind string

const (
	OrderKindNormal   OrderKind = "NORMAL"
	OrderKindExchange OrderKind = "EXCHANGE"
)

// ShippingAddress is copied onto the order at creation time. Later edits to
// the user's saved addresses never change an existing order.
type ShippingAddress struct {
	FullName     string `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone        string `gorm:"type:varchar(32);not null" json:"phone"`
	AddressLine1 string `gorm:"type:varchar(255);not null" json:"address_line1"`
	AddressLine2 string `gorm:"type:varchar(255)" json:"address_line2,omitempty"`
	City         string `gorm:"type:varchar(128);not null" json:"city"`
	District     string `gorm:"type:varchar(128);not null" json:"district"`
	Ward         string `gorm:"type:varchar(128)" json:"ward,omitempty"`
	PostalCode   string `gorm:"type:varchar(16)" json:"postal_code,omitempty"`
}

type Order struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            int64           `gorm:"not null;index" json:"user_id"`
	OrderCode         string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_code"`
	TotalAmount       int64           `gorm:"not null" json:"total_amount"`
	DiscountAmount    int64           `gorm:"not null;default:0" json:"discount_amount"`
	VoucherID         *int64          `gorm:"index" json:"voucher_id,omitempty"`
	PaymentStatus     PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	ShippingStatus    ShippingStatus  `gorm:"type:varchar(20);not null;index" json:"shipping_status"`
	PaymentMethod     PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	OrderKind         OrderKind       `gorm:"type:varchar(20);not null;default:'NORMAL'" json:"order_kind"`
	ShippingAddress   ShippingAddress `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`
	HasReturnActivity bool            `gorm:"not null;default:false" json:"has_return_activity"`
	UserNote          string          `gorm:"type:varchar(500)" json:"user_note,omitempty"`
	TrackingNumber    string          `gorm:"type:varchar(64)" json:"tracking_number,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	ShippedAt         *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CancelledReason   string          `gorm:"type:varchar(500)" json:"cancelled_reason,omitempty"`
	CreatedAt         time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
