package repository

import (
	"context"
	"time"

	"estore/internal/domain/model"
)

type OrderListFilter struct {
	Page     int
	Limit    int
	Statuses []model.OrderStatus // 空なら全件
	MemberID *int64
	From     *time.Time
	To       *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, o model.Order) (model.Order, error)
	FindByID(ctx context.Context, id int64) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	// versionが0なら検査しない
	Update(ctx context.Context, o model.Order) (model.Order, error)
	UpdateStatus(ctx context.Context, id int64, status model.OrderStatus, shippedDate *time.Time) error
	Delete(ctx context.Context, id int64) error
}

// 売上集計の元データ
type SalesLine struct {
	ProductName string
	model.OrderDetail
}

type OrderDetailRepository interface {
	CreateBulk(ctx context.Context, orderID int64, details []model.OrderDetail) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderDetail, error)
	ListSalesLines(ctx context.Context, from, to time.Time) ([]SalesLine, error)
}
