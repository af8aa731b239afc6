package repository

import (
	"context"
	"errors"
	"time"

	"estore/internal/domain/model"
	repo "estore/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// 会員のカートを取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateByMemberID(ctx context.Context, memberID int64) (model.Cart, error) {
	var cart model.Cart

	//トランザクションで探す→無ければ作る
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("member_id = ?", memberID).
			First(&cart).Error

		if findErr == nil {
			return nil
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		// 無ければ作る
		now := time.Now()
		newCart := model.Cart{
			MemberID:  memberID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.SavePoint("cart_create").Error; err != nil {
			return err
		}
		if err := tx.Create(&newCart).Error; err != nil {
			// 同時に作られた（一意制約）なら取り直す
			if !isUniqueViolation(err) {
				return err
			}
			if rbErr := tx.RollbackTo("cart_create").Error; rbErr != nil {
				return rbErr
			}
			return tx.Where("member_id = ?", memberID).First(&cart).Error
		}

		cart = newCart
		return nil
	})

	if err != nil {
		return model.Cart{}, translate(err)
	}
	return cart, nil
}

func (r *CartGormRepository) FindByMemberID(ctx context.Context, memberID int64) (model.Cart, error) {
	var cart model.Cart
	if err := r.db.WithContext(ctx).Where("member_id = ?", memberID).First(&cart).Error; err != nil {
		return model.Cart{}, translate(err)
	}
	return cart, nil
}

func (r *CartGormRepository) Touch(ctx context.Context, cartID int64) error {
	res := r.db.WithContext(ctx).Model(&model.Cart{}).Where("id = ?", cartID).Update("updated_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細ごとカートを削除
func (r *CartGormRepository) Delete(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Cart{}, cartID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

// カート明細を商品情報つきで一覧取得
func (r *CartGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]repo.CartLine, error) {
	var lines []repo.CartLine

	err := r.db.WithContext(ctx).
		Table("cart_items").
		Select("cart_items.*, products.product_name AS product_name, products.image_url AS image_url, " +
			"products.units_in_stock AS units_in_stock, categories.category_name AS category_name").
		Joins("LEFT JOIN products ON products.id = cart_items.product_id").
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Where("cart_items.cart_id = ?", cartID).
		Order("cart_items.created_at asc").
		Order("cart_items.product_id asc").
		Scan(&lines).Error
	if err != nil {
		return []repo.CartLine{}, err
	}
	return lines, nil
}

func (r *CartGormRepository) FindByCartAndProduct(ctx context.Context, cartID, productID int64) (model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return model.CartItem{}, translate(err)
	}
	return item, nil
}

// 同一商品は数量加算（単価は最初のスナップショットのまま）
func (r *CartGormRepository) UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64, unitPriceSnapshot decimal.Decimal) (model.CartItem, error) {
	if addQty <= 0 {
		return model.CartItem{}, errors.New("invalid quantity")
	}

	var out model.CartItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.CartItem

		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			First(&item).Error

		if err == nil {
			// 既存ありだったら数量を増やす
			newQty := item.Quantity + addQty
			total := model.LineTotal(item.UnitPrice, newQty)

			res := tx.Model(&model.CartItem{}).
				Where("cart_id = ? AND product_id = ?", cartID, productID).
				Updates(map[string]interface{}{
					"quantity":    newQty,
					"total_price": total,
					"updated_at":  time.Now(),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repo.ErrNotFound
			}
			item.Quantity = newQty
			item.TotalPrice = total
			out = item
			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		//無い場合は新規作成
		now := time.Now()
		newItem := model.CartItem{
			CartID:     cartID,
			ProductID:  productID,
			Quantity:   addQty,
			UnitPrice:  unitPriceSnapshot,
			TotalPrice: model.LineTotal(unitPriceSnapshot, addQty),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(&newItem).Error; err != nil {
			return err
		}
		out = newItem
		return nil
	})
	if err != nil {
		return model.CartItem{}, translate(err)
	}
	return out, nil
}

// 明細の数量を更新（合計も再計算）
func (r *CartGormRepository) UpdateQuantity(ctx context.Context, cartID, productID int64, qty int64) error {
	item, err := r.FindByCartAndProduct(ctx, cartID, productID)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]interface{}{
			"quantity":    qty,
			"total_price": model.LineTotal(item.UnitPrice, qty),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *CartGormRepository) DeleteByCartAndProduct(ctx context.Context, cartID, productID int64) error {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&model.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CartGormRepository) CountByCartID(ctx context.Context, cartID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CartItem{}).Where("cart_id = ?", cartID).Count(&count).Error
	return count, err
}
