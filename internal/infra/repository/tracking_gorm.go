package repository

import (
	"context"
	"time"

	"estore/internal/domain/model"
	repo "estore/internal/repository"

	"gorm.io/gorm"
)

type TrackingGormRepository struct {
	db *gorm.DB
}

func NewTrackingGormRepository(db *gorm.DB) *TrackingGormRepository {
	return &TrackingGormRepository{db: db}
}

// 追記のみ
func (r *TrackingGormRepository) Append(ctx context.Context, t model.TrackingOrder) (model.TrackingOrder, error) {
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if err := r.db.WithContext(ctx).Create(&t).Error; err != nil {
		return model.TrackingOrder{}, err
	}
	return t, nil
}

// 時系列順
func (r *TrackingGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.TrackingOrder, error) {
	var rows []model.TrackingOrder
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return []model.TrackingOrder{}, err
	}
	return rows, nil
}

// 更新日時の新しい順
func (r *TrackingGormRepository) List(ctx context.Context, f repo.TrackingListFilter) ([]model.TrackingOrder, int64, error) {
	base := func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&model.TrackingOrder{})
		if len(f.Statuses) > 0 {
			tx = tx.Where("status IN ?", f.Statuses)
		}
		return tx
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return []model.TrackingOrder{}, 0, err
	}

	var rows []model.TrackingOrder
	err := base().
		Order("updated_at desc").
		Order("id desc").
		Offset(offsetOf(f.Page, f.Limit)).
		Limit(f.Limit).
		Find(&rows).Error
	if err != nil {
		return []model.TrackingOrder{}, 0, err
	}
	return rows, total, nil
}
