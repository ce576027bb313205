package repository

import (
	"context"

	"app/internal/domain/model"
)

type PaymentRecordRepository interface {
	Create(ctx context.Context, rec model.PaymentRecord) (int64, error)

	// FindByOrderID returns the payment attempt tracked for the order.
	FindByOrderID(ctx context.Context, orderID int64) (model.PaymentRecord, error)

	Update(ctx context.Context, rec model.PaymentRecord) error
}
