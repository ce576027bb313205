package model

import "time"

// StockReconciliation records a stock-ledger adjustment that failed after its
// order was already persisted. Order creation never rolls back on ledger
// failure, so these rows are the retry queue that keeps inventory honest.
type StockReconciliation struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64      `gorm:"not null;index" json:"order_id"`
	ProductID   int64      `gorm:"not null" json:"product_id"`
	VariantID   int64      `gorm:"not null" json:"variant_id"`
	Quantity    int64      `gorm:"not null" json:"quantity"`
	Reservation bool       `gorm:"not null" json:"reservation"`
	Reason      string     `gorm:"type:varchar(255);not null" json:"reason"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (StockReconciliation) TableName() string { return "stock_reconciliations" }
