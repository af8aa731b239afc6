package repository

import (
	"context"

	"estore/internal/domain/model"
)

type TrackingListFilter struct {
	Page     int
	Limit    int
	Statuses []model.OrderStatus
}

type TrackingRepository interface {
	Append(ctx context.Context, t model.TrackingOrder) (model.TrackingOrder, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.TrackingOrder, error)
	List(ctx context.Context, f TrackingListFilter) ([]model.TrackingOrder, int64, error)
}
