package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus int

const (
	OrderStatusReject   OrderStatus = 1
	OrderStatusSpending OrderStatus = 2
	OrderStatusApprove  OrderStatus = 3
	OrderStatusShipping OrderStatus = 4
	OrderStatusShipped  OrderStatus = 5
	OrderStatusCancel   OrderStatus = 6
)

var orderStatusNames = map[OrderStatus]string{
	OrderStatusReject:   "Reject",
	OrderStatusSpending: "Spending",
	OrderStatusApprove:  "Approve",
	OrderStatusShipping: "Shipping",
	OrderStatusShipped:  "Shipped",
	OrderStatusCancel:   "Cancel",
}

// 想定している遷移表。SetStatusでは既定で検査しない
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusSpending: {OrderStatusApprove, OrderStatusReject},
	OrderStatusApprove:  {OrderStatusShipping, OrderStatusCancel},
	OrderStatusShipping: {OrderStatusShipped},
}

func (s OrderStatus) String() string {
	if n, ok := orderStatusNames[s]; ok {
		return n
	}
	return "Unknown"
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusNames[s]
	return ok
}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// 名前(大小無視)か数値文字列からステータスへ
func ParseOrderStatus(s string) (OrderStatus, bool) {
	s = strings.TrimSpace(s)
	for st, name := range orderStatusNames {
		if strings.EqualFold(name, s) {
			return st, true
		}
	}
	if len(s) == 1 && s[0] >= '1' && s[0] <= '6' {
		return OrderStatus(s[0] - '0'), true
	}
	return 0, false
}

type Order struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID     int64           `gorm:"not null;index" json:"member_id"`
	OrderDate    time.Time       `gorm:"not null;index" json:"order_date"`
	RequiredDate *time.Time      `json:"required_date"`
	ShippedDate  *time.Time      `json:"shipped_date"`
	Freight      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"freight"`
	Status       OrderStatus     `gorm:"not null;index" json:"status"`
	Version      int64           `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
