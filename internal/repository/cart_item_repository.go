package repository

import (
	"context"

	"estore/internal/domain/model"

	"github.com/shopspring/decimal"
)

// カート明細＋表示用の商品情報
type CartLine struct {
	model.CartItem
	ProductName  string
	ImageURL     string
	CategoryName string
	UnitsInStock int64
}

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]CartLine, error)
	FindByCartAndProduct(ctx context.Context, cartID, productID int64) (model.CartItem, error)
	// 同一商品は数量加算
	UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64, unitPriceSnapshot decimal.Decimal) (model.CartItem, error)
	UpdateQuantity(ctx context.Context, cartID, productID int64, qty int64) error
	DeleteByCartAndProduct(ctx context.Context, cartID, productID int64) error
	CountByCartID(ctx context.Context, cartID int64) (int64, error)
}
