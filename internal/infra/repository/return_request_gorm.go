package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type ReturnRequestGormRepository struct {
	db *gorm.DB
}

func NewReturnRequestGormRepository(db *gorm.DB) *ReturnRequestGormRepository {
	return &ReturnRequestGormRepository{db: db}
}

func (r *ReturnRequestGormRepository) Create(ctx context.Context, req model.ReturnRequest) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&req).Error; err != nil {
		return 0, err
	}
	return req.ID, nil
}

func (r *ReturnRequestGormRepository) FindByID(ctx context.Context, id int64) (model.ReturnRequest, error) {
	var req model.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ReturnRequest{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ReturnRequest{}, err
	}
	return req, nil
}

func (r *ReturnRequestGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.ReturnRequest, error) {
	var items []model.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ReturnRequestGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.ReturnRequest, error) {
	var items []model.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("created_at desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ReturnRequestGormRepository) ListAdmin(ctx context.Context, f repo.ReturnRequestListFilter) ([]model.ReturnRequest, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}

	q := r.db.WithContext(ctx).Model(&model.ReturnRequest{})

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Search != "" {
		// Search is against the order code of the referenced order.
		q = q.Where("order_id IN (?)",
			r.db.Model(&model.Order{}).Select("id").Where("order_code ILIKE ?", "%"+f.Search+"%"))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.ReturnRequest{}, 0, err
	}

	var items []model.ReturnRequest
	offset := (f.Page - 1) * f.Limit
	if err := q.Preload("Items").Order("created_at desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.ReturnRequest{}, 0, err
	}
	return items, total, nil
}

func (r *ReturnRequestGormRepository) Update(ctx context.Context, req model.ReturnRequest) error {
	res := r.db.WithContext(ctx).Model(&model.ReturnRequest{}).
		Where("id = ?", req.ID).
		Updates(map[string]interface{}{
			"status":            req.Status,
			"admin_note":        req.AdminNote,
			"exchange_order_id": req.ExchangeOrderID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
