package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

func (r *ProductGormRepository) FindByIDWithVariants(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id = ?", id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// AdjustVariantStock is the only stock mutation in order flow. The quantity
// and sold-count move in one conditional UPDATE so concurrent orders cannot
// interleave between a read and a write.
func (r *ProductGormRepository) AdjustVariantStock(ctx context.Context, productID int64, variantID int64, qty int64, reservation bool) error {
	quantityDelta := -qty
	soldDelta := qty
	if !reservation {
		quantityDelta = qty
		soldDelta = -qty
	}

	res := r.db.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("id = ? AND product_id = ?", variantID, productID).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", quantityDelta),
			"sold_count": gorm.Expr("sold_count + ?", soldDelta),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}

	// Product-level aggregate moves with the variant sold count.
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Update("total_sold_count", gorm.Expr("total_sold_count + ?", soldDelta)).Error
}
