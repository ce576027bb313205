package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type OrderListFilter struct {
	Page              int
	Limit             int
	PaymentStatus     string
	ShippingStatus    string
	HasReturnActivity *bool
}

type AdminOrderListFilter struct {
	Page           int
	Limit          int
	PaymentStatus  string
	ShippingStatus string
	UserID         *int64
	From           *time.Time
	To             *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	// FindByIDForUser scopes the lookup to the owner; other users' orders are
	// treated as absent.
	FindByIDForUser(ctx context.Context, orderID int64, userID int64) (model.Order, error)

	ListByUserID(ctx context.Context, userID int64, f OrderListFilter) ([]model.Order, int64, error)
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	Create(ctx context.Context, order model.Order) (int64, error)

	UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus, paidAt *time.Time) error

	// UpdateShippingStatus stamps shippedAt/deliveredAt when the new status
	// calls for it. An empty trackingNumber leaves the stored one alone.
	UpdateShippingStatus(ctx context.Context, orderID int64, status model.ShippingStatus, at time.Time, trackingNumber string) error

	// MarkCancelled is the cash-on-delivery cancellation write: shipping
	// status to CANCELED plus the cancellation stamp and reason.
	MarkCancelled(ctx context.Context, orderID int64, reason string, at time.Time) error

	// SetReturnActivity flags the order as touched by a return/exchange.
	SetReturnActivity(ctx context.Context, orderID int64) error
}
