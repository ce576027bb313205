package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type VoucherListFilter struct {
	Page     int
	Limit    int
	Search   string
	Status   string
	IsActive *bool
}

type VoucherRepository interface {
	FindByID(ctx context.Context, id int64) (model.Voucher, error)
	FindByCode(ctx context.Context, code string) (model.Voucher, error)
	List(ctx context.Context, f VoucherListFilter) ([]model.Voucher, int64, error)
	ListActive(ctx context.Context, now time.Time) ([]model.Voucher, error)

	Create(ctx context.Context, v model.Voucher) (int64, error)
	Update(ctx context.Context, v model.Voucher) error
	Delete(ctx context.Context, id int64) error

	// IncrementUsage bumps the usage counter by one. Best effort after the
	// order is persisted; a crash in between under-counts, never double-counts.
	IncrementUsage(ctx context.Context, id int64) error
}
