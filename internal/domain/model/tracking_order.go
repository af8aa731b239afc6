package model

import "time"

// 注文ステータスの履歴。追記のみ
type TrackingOrder struct {
	ID         int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64       `gorm:"not null;index" json:"order_id"`
	MemberID   int64       `gorm:"not null;index" json:"member_id"`
	MemberName string      `gorm:"type:varchar(100)" json:"member_name"`
	Status     OrderStatus `gorm:"not null;index" json:"status"`
	CreatedAt  time.Time   `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"not null;index" json:"updated_at"`
}
