package repository

import (
	"context"

	"app/internal/domain/model"

	"gorm.io/gorm"
)

type StockReconciliationGormRepository struct {
	db *gorm.DB
}

func NewStockReconciliationGormRepository(db *gorm.DB) *StockReconciliationGormRepository {
	return &StockReconciliationGormRepository{db: db}
}

func (r *StockReconciliationGormRepository) Create(ctx context.Context, rec model.StockReconciliation) error {
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *StockReconciliationGormRepository) ListUnresolved(ctx context.Context, limit int) ([]model.StockReconciliation, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var items []model.StockReconciliation
	err := r.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("id asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
