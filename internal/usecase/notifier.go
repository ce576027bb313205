package usecase

import (
	"context"

	"app/internal/domain/model"
)

// Notifier receives lifecycle events after the state change is committed.
// Implementations must not block order flow; callers invoke these on a
// detached context and ignore the outcome.
type Notifier interface {
	OrderCreated(ctx context.Context, order model.Order)
	OrderPaid(ctx context.Context, order model.Order)
	ReturnRequestCreated(ctx context.Context, req model.ReturnRequest)
}
