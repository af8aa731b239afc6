package repository

import (
	"context"
	"time"

	"estore/internal/domain/model"
	repo "estore/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, o model.Order) (model.Order, error) {
	o.Version = 1
	if err := r.db.WithContext(ctx).Create(&o).Error; err != nil {
		return model.Order{}, translate(err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, id int64) (model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return model.Order{}, translate(err)
	}
	return o, nil
}

func (r *OrderGormRepository) filtered(ctx context.Context, f repo.OrderListFilter) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&model.Order{})
	if len(f.Statuses) > 0 {
		tx = tx.Where("status IN ?", f.Statuses)
	}
	if f.MemberID != nil {
		tx = tx.Where("member_id = ?", *f.MemberID)
	}
	if f.From != nil {
		tx = tx.Where("order_date >= ?", *f.From)
	}
	if f.To != nil {
		tx = tx.Where("order_date <= ?", *f.To)
	}
	return tx
}

// 注文日の新しい順
func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	err := r.filtered(ctx, f).
		Order("order_date desc").
		Order("id desc").
		Offset(offsetOf(f.Page, f.Limit)).
		Limit(f.Limit).
		Find(&items).Error
	if err != nil {
		return []model.Order{}, 0, err
	}
	return items, total, nil
}

// member/日付/送料の上書き。Version>0なら一致を確認する
func (r *OrderGormRepository) Update(ctx context.Context, o model.Order) (model.Order, error) {
	tx := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", o.ID)
	if o.Version > 0 {
		tx = tx.Where("version = ?", o.Version)
	}
	res := tx.Updates(map[string]interface{}{
		"member_id":     o.MemberID,
		"order_date":    o.OrderDate,
		"required_date": o.RequiredDate,
		"shipped_date":  o.ShippedDate,
		"freight":       o.Freight,
		"version":       gorm.Expr("version + 1"),
	})
	if res.Error != nil {
		return model.Order{}, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, o.ID); err != nil {
			return model.Order{}, err
		}
		return model.Order{}, repo.ErrConflict
	}
	return r.FindByID(ctx, o.ID)
}

// ステータス更新。shippedDateがnilなら触らない
func (r *OrderGormRepository) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus, shippedDate *time.Time) error {
	values := map[string]interface{}{
		"status":  status,
		"version": gorm.Expr("version + 1"),
	}
	if shippedDate != nil {
		values["shipped_date"] = *shippedDate
	}

	res := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細と履歴ごと物理削除
func (r *OrderGormRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&model.OrderDetail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&model.TrackingOrder{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Order{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}
