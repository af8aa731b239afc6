package repository

import (
	"context"
	"sort"

	"estore/internal/domain/model"
	repo "estore/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 在庫が足りるときだけ減らす
func (r *InventoryGormRepository) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	if qty <= 0 {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND units_in_stock >= ?", productID, qty).
		Updates(map[string]interface{}{
			"units_in_stock": gorm.Expr("units_in_stock - ?", qty),
			"version":        gorm.Expr("version + 1"),
		})

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// デッドロックを避けるためid昇順でロック
func (r *InventoryGormRepository) LockProducts(ctx context.Context, ids []int64) ([]model.Product, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var products []model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id asc").
		Find(&products).Error
	if err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// 在庫を「現在値」に更新し、調整履歴も残す
func (r *InventoryGormRepository) SetStockWithAdjustment(ctx context.Context, actorMemberID int64, productID int64, newStock int64, reason string) (model.InventoryAdjustment, error) {
	var adj model.InventoryAdjustment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//現在の在庫を取得
		var p model.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, productID).Error; err != nil {
			return translate(err)
		}

		res := tx.Model(&model.Product{}).
			Where("id = ?", productID).
			Updates(map[string]interface{}{
				"units_in_stock": newStock,
				"version":        gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		adj = model.InventoryAdjustment{
			ProductID:     productID,
			ActorMemberID: actorMemberID,
			Delta:         newStock - p.UnitsInStock,
			Reason:        reason,
		}
		return tx.Create(&adj).Error
	})
	if err != nil {
		return model.InventoryAdjustment{}, err
	}
	return adj, nil
}
