package model

import (
	"time"

	"gorm.io/datatypes"
)

type OrderItemStatus string

const (
	OrderItemStatusNormal            OrderItemStatus = "NORMAL"
	OrderItemStatusExchangeRequested OrderItemStatus = "EXCHANGE_REQUESTED"
	OrderItemStatusExchanged         OrderItemStatus = "EXCHANGED"
	OrderItemStatusReturned          OrderItemStatus = "RETURNED"
)

// OrderItem freezes the unit price at order time. Catalog price changes never
// touch existing orders.
type OrderItem struct {
	ID          int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64             `gorm:"not null;index" json:"order_id"`
	ProductID   int64             `gorm:"not null;index" json:"product_id"`
	VariantID   *int64            `gorm:"index" json:"variant_id,omitempty"`
	ProductName string            `gorm:"type:varchar(255);not null" json:"product_name"`
	UnitPrice   int64             `gorm:"not null" json:"unit_price"`
	Quantity    int64             `gorm:"not null" json:"quantity"`
	Attributes  datatypes.JSONMap `json:"attributes,omitempty"`
	ItemStatus  OrderItemStatus   `gorm:"type:varchar(20);not null;default:'NORMAL'" json:"item_status"`
	CreatedAt   time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
}

// MatchesReturnItem reports whether this line is the one a return/exchange
// request points at. Items without a variant match on product id alone.
func (it OrderItem) MatchesReturnItem(productID int64, variantID *int64) bool {
	if it.ProductID != productID {
		return false
	}
	if it.VariantID == nil && variantID == nil {
		return true
	}
	if it.VariantID == nil || variantID == nil {
		return false
	}
	return *it.VariantID == *variantID
}
