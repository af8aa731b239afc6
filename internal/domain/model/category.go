package model

type Category struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryName string `gorm:"type:varchar(40);not null" json:"category_name"`
	Description  string `gorm:"type:text" json:"description"`
}
