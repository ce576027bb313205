package repository

import (
	"context"

	"app/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)

	// UpdateItemStatus addresses a line by its own id, not its position in
	// the order, so reordering can never mismark an item.
	UpdateItemStatus(ctx context.Context, itemID int64, status model.OrderItemStatus) error
}
