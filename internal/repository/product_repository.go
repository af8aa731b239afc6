package repository

import (
	"context"

	"estore/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 一覧検索
type ProductListQuery struct {
	Page         int
	Limit        int
	Q            string
	CategoryName string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Sort         string
}

// カテゴリ名つきの商品
type ProductWithCategory struct {
	model.Product
	CategoryName string `json:"category_name"`
}

// 並び替えキーは固定の集合だけ許す
var ProductSortOrders = map[string][]string{
	"":           {"products.id desc"},
	"new":        {"products.created_at desc", "products.id desc"},
	"name_asc":   {"products.product_name asc", "products.id asc"},
	"name_desc":  {"products.product_name desc", "products.id desc"},
	"price_asc":  {"products.unit_price asc", "products.id asc"},
	"price_desc": {"products.unit_price desc", "products.id desc"},
	"stock_asc":  {"products.units_in_stock asc", "products.id asc"},
	"stock_desc": {"products.units_in_stock desc", "products.id desc"},
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]ProductWithCategory, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindWithCategory(ctx context.Context, id int64) (ProductWithCategory, error)
	ExistsByCategoryID(ctx context.Context, categoryID int64) (bool, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	// p.Versionが現在値と一致するときだけ更新
	Update(ctx context.Context, p model.Product) (model.Product, error)
	Delete(ctx context.Context, id int64) error
}

// 在庫の増減と調整履歴
type InventoryRepository interface {
	// 在庫が足りるときだけ減らす
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)
	// 行ロックしてまとめて取る（id昇順）
	LockProducts(ctx context.Context, ids []int64) ([]model.Product, error)
	SetStockWithAdjustment(ctx context.Context, actorMemberID int64, productID int64, newStock int64, reason string) (model.InventoryAdjustment, error)
}
