package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 在庫(units_in_stock)は0未満にならない。versionは楽観ロック用
type Product struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID   int64           `gorm:"not null;index" json:"category_id"`
	ProductName  string          `gorm:"type:varchar(40);not null;index" json:"product_name"`
	Weight       string          `gorm:"type:varchar(20);not null" json:"weight"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	UnitsInStock int64           `gorm:"not null" json:"units_in_stock"`
	ImageURL     string          `gorm:"type:varchar(500)" json:"image_url"`
	Version      int64           `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
