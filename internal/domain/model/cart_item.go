package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// カートの明細
// unit_priceは追加時点の価格を必ず保存。
type CartItem struct {
	CartID     int64           `gorm:"primaryKey;autoIncrement:false" json:"cart_id"`
	ProductID  int64           `gorm:"primaryKey;autoIncrement:false" json:"product_id"`
	Quantity   int64           `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_price"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 単価×数量
func LineTotal(unitPrice decimal.Decimal, qty int64) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(qty))
}
