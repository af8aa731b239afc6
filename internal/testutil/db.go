// Package testutil はsqliteのインメモリDBでテストするための部品です。
package testutil

import (
	"context"
	"testing"

	"estore/internal/domain/model"
	"estore/internal/infra/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// マイグレーション済みの空DB。テスト終了時に閉じる
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func SeedMember(t testing.TB, gdb *gorm.DB, email, company string, role model.Role, password string) model.Member {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	m := model.Member{
		Email:        email,
		CompanyName:  company,
		City:         "Tokyo",
		Country:      "Japan",
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, gdb.WithContext(context.Background()).Create(&m).Error)
	return m
}

func SeedCategory(t testing.TB, gdb *gorm.DB, name string) model.Category {
	t.Helper()

	c := model.Category{CategoryName: name}
	require.NoError(t, gdb.Create(&c).Error)
	return c
}

func SeedProduct(t testing.TB, gdb *gorm.DB, categoryID int64, name string, price string, stock int64) model.Product {
	t.Helper()

	p := model.Product{
		CategoryID:   categoryID,
		ProductName:  name,
		Weight:       "1kg",
		UnitPrice:    decimal.RequireFromString(price),
		UnitsInStock: stock,
		Version:      1,
	}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

func StockOf(t testing.TB, gdb *gorm.DB, productID int64) int64 {
	t.Helper()

	var p model.Product
	require.NoError(t, gdb.First(&p, productID).Error)
	return p.UnitsInStock
}
