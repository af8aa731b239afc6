package repository

import (
	"context"
	"time"

	"estore/internal/domain/model"
	repo "estore/internal/repository"

	"gorm.io/gorm"
)

type OrderDetailGormRepository struct {
	db *gorm.DB
}

func NewOrderDetailGormRepository(db *gorm.DB) *OrderDetailGormRepository {
	return &OrderDetailGormRepository{db: db}
}

// 注文明細一括作成
func (r *OrderDetailGormRepository) CreateBulk(ctx context.Context, orderID int64, details []model.OrderDetail) error {
	if len(details) == 0 {
		return nil
	}
	rows := make([]model.OrderDetail, 0, len(details))
	for _, d := range details {
		d.OrderID = orderID
		rows = append(rows, d)
	}
	return translate(r.db.WithContext(ctx).Create(&rows).Error)
}

func (r *OrderDetailGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderDetail, error) {
	var details []model.OrderDetail
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("product_id asc").
		Find(&details).Error
	if err != nil {
		return []model.OrderDetail{}, err
	}
	return details, nil
}

// 期間内（両端含む）の注文明細を商品名つきで返す
func (r *OrderDetailGormRepository) ListSalesLines(ctx context.Context, from, to time.Time) ([]repo.SalesLine, error) {
	var lines []repo.SalesLine
	err := r.db.WithContext(ctx).
		Table("order_details").
		Select("products.product_name AS product_name, order_details.*").
		Joins("JOIN orders ON orders.id = order_details.order_id").
		Joins("JOIN products ON products.id = order_details.product_id").
		Where("orders.order_date >= ? AND orders.order_date <= ?", from, to).
		Scan(&lines).Error
	if err != nil {
		return []repo.SalesLine{}, err
	}
	return lines, nil
}
