package model

import "time"

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStaff   Role = "STAFF"
	RoleShipper Role = "SHIPPER"
	RoleUser    Role = "USER"
)

// 会員。emailは小文字で保存して一意にする
type Member struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	CompanyName  string    `gorm:"type:varchar(40);not null" json:"company_name"`
	City         string    `gorm:"type:varchar(15);not null" json:"city"`
	Country      string    `gorm:"type:varchar(15);not null" json:"country"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	TokenVersion int       `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleShipper, RoleUser:
		return true
	}
	return false
}
