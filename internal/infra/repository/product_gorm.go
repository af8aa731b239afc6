package repository

import (
	"context"
	"strings"

	"estore/internal/domain/model"
	repo "estore/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 検索条件（商品名/カテゴリ名/価格帯）を組み立てる
func (r *ProductGormRepository) filtered(ctx context.Context, q repo.ProductListQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).
		Table("products").
		Joins("LEFT JOIN categories ON categories.id = products.category_id")

	if s := strings.TrimSpace(q.Q); s != "" {
		tx = tx.Where("LOWER(products.product_name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if s := strings.TrimSpace(q.CategoryName); s != "" {
		tx = tx.Where("LOWER(categories.category_name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if q.MinPrice != nil {
		tx = tx.Where("products.unit_price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("products.unit_price <= ?", *q.MaxPrice)
	}
	return tx
}

// 検索/価格帯/ソート/ページング付きで返す。
func (r *ProductGormRepository) List(ctx context.Context, q repo.ProductListQuery) ([]repo.ProductWithCategory, int64, error) {
	var total int64
	if err := r.filtered(ctx, q).Count(&total).Error; err != nil {
		return []repo.ProductWithCategory{}, 0, err
	}

	orders, ok := repo.ProductSortOrders[q.Sort]
	if !ok {
		orders = repo.ProductSortOrders[""]
	}

	tx := r.filtered(ctx, q).Select("products.*, categories.category_name AS category_name")
	for _, o := range orders {
		tx = tx.Order(o)
	}

	var rows []repo.ProductWithCategory
	if err := tx.Offset(offsetOf(q.Page, q.Limit)).Limit(q.Limit).Scan(&rows).Error; err != nil {
		return []repo.ProductWithCategory{}, 0, err
	}
	return rows, total, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

func (r *ProductGormRepository) FindWithCategory(ctx context.Context, id int64) (repo.ProductWithCategory, error) {
	var rows []repo.ProductWithCategory
	err := r.db.WithContext(ctx).
		Table("products").
		Select("products.*, categories.category_name AS category_name").
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Where("products.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return repo.ProductWithCategory{}, err
	}
	if len(rows) == 0 {
		return repo.ProductWithCategory{}, repo.ErrNotFound
	}
	return rows[0], nil
}

func (r *ProductGormRepository) ExistsByCategoryID(ctx context.Context, categoryID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Product{}).Where("category_id = ?", categoryID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// 商品の作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	p.Version = 1
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

// 商品の更新（versionが一致するときだけ）
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) (model.Product, error) {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]interface{}{
			"category_id":    p.CategoryID,
			"product_name":   p.ProductName,
			"weight":         p.Weight,
			"unit_price":     p.UnitPrice,
			"units_in_stock": p.UnitsInStock,
			"image_url":      p.ImageURL,
			"version":        gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return model.Product{}, res.Error
	}
	if res.RowsAffected == 0 {
		// 存在しないのか、versionが古いのか
		if _, err := r.FindByID(ctx, p.ID); err != nil {
			return model.Product{}, err
		}
		return model.Product{}, repo.ErrConflict
	}
	return r.FindByID(ctx, p.ID)
}

// 商品削除
func (r *ProductGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
