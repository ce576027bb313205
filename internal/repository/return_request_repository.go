package repository

import (
	"context"

	"app/internal/domain/model"
)

type ReturnRequestListFilter struct {
	Page   int
	Limit  int
	Status string
	Type   string
	// Search matches against order codes.
	Search string
}

type ReturnRequestRepository interface {
	Create(ctx context.Context, req model.ReturnRequest) (int64, error)
	FindByID(ctx context.Context, id int64) (model.ReturnRequest, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.ReturnRequest, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.ReturnRequest, error)
	ListAdmin(ctx context.Context, f ReturnRequestListFilter) ([]model.ReturnRequest, int64, error)
	Update(ctx context.Context, req model.ReturnRequest) error
}
