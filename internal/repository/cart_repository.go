package repository

import (
	"context"

	"estore/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateByMemberID(ctx context.Context, memberID int64) (model.Cart, error)
	FindByMemberID(ctx context.Context, memberID int64) (model.Cart, error)
	Touch(ctx context.Context, cartID int64) error
	// 明細ごとカートを消す
	Delete(ctx context.Context, cartID int64) error
}
