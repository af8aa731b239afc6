package model

import "github.com/shopspring/decimal"

// 注文明細。(order_id, product_id)で一意
type OrderDetail struct {
	OrderID   int64           `gorm:"primaryKey;autoIncrement:false" json:"order_id"`
	ProductID int64           `gorm:"primaryKey;autoIncrement:false" json:"product_id"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	Discount  float64         `gorm:"not null;default:0" json:"discount"`
}

// 単価×数量×(1-割引)
func (d OrderDetail) Revenue() decimal.Decimal {
	return d.UnitPrice.
		Mul(decimal.NewFromInt(d.Quantity)).
		Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(d.Discount)))
}
