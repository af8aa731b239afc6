package usecase

import (
	"context"
	"net/http"
	"testing"

	"estore/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddThenGetRoundTrip(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	m := env.seedMember(t, "m1@gmail.com")
	p := env.seedProduct(t, "Beans", "9.99", 10)

	_, err := env.cart.AddItem(ctx, m.ID, p.ID, 2)
	require.NoError(t, err)

	view, err := env.cart.GetCart(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, p.ID, view.Items[0].ProductID)
	assert.Equal(t, int64(2), view.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("19.98").Equal(view.Total), view.Total.String())
	assert.Equal(t, "Default", view.Items[0].CategoryName)
}

func TestCart_AddSameProductAddsQuantity(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	m := env.seedMember(t, "m1@gmail.com")
	p := env.seedProduct(t, "Beans", "10", 5)

	_, err := env.cart.AddItem(ctx, m.ID, p.ID, 1)
	require.NoError(t, err)
	view, err := env.cart.AddItem(ctx, m.ID, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(3), view.Items[0].Quantity)

	// 在庫を超える追加は失敗し、中身はそのまま
	view, err = env.cart.AddItem(ctx, m.ID, p.ID, 3)
	requireStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, view.ErrorMessage, "stock exceeded")
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(3), view.Items[0].Quantity)
}

func TestCart_AddUnknownProduct(t *testing.T) {
	env := newEnv(t, envOptions{})
	m := env.seedMember(t, "m1@gmail.com")

	view, err := env.cart.AddItem(context.Background(), m.ID, 999, 1)
	requireStatus(t, err, http.StatusNotFound)
	assert.Equal(t, "product not found", view.ErrorMessage)
	assert.Empty(t, view.Items)
	assert.False(t, env.cartExists(t, m.ID))
}

func TestCart_RemoveLastItemDeletesCart(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	m := env.seedMember(t, "m1@gmail.com")
	p := env.seedProduct(t, "Beans", "10", 5)

	_, err := env.cart.AddItem(ctx, m.ID, p.ID, 1)
	require.NoError(t, err)
	require.True(t, env.cartExists(t, m.ID))

	_, err = env.cart.RemoveItem(ctx, m.ID, p.ID)
	require.NoError(t, err)

	view, err := env.cart.GetCart(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Total.IsZero())
	assert.False(t, env.cartExists(t, m.ID))
}

func TestCart_UpdateQuantityClampsToStock(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	m := env.seedMember(t, "m1@gmail.com")
	p := env.seedProduct(t, "Beans", "10", 4)

	_, err := env.cart.AddItem(ctx, m.ID, p.ID, 1)
	require.NoError(t, err)

	view, err := env.cart.UpdateItemQuantity(ctx, m.ID, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(4), view.Items[0].Quantity)
	assert.Contains(t, view.Warning, "only 4 left")

	// 0は削除
	view, err = env.cart.UpdateItemQuantity(ctx, m.ID, p.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.False(t, env.cartExists(t, m.ID))
}

func TestCart_UpdateQuantityOutOfStockRemovesLine(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	m := env.seedMember(t, "m1@gmail.com")
	p := env.seedProduct(t, "Beans", "10", 4)
	other := env.seedProduct(t, "Rice", "3", 4)

	_, err := env.cart.AddItem(ctx, m.ID, p.ID, 1)
	require.NoError(t, err)
	_, err = env.cart.AddItem(ctx, m.ID, other.ID, 1)
	require.NoError(t, err)

	ok, err := env.products.DecreaseStock(ctx, p.ID, 4)
	require.NoError(t, err)
	require.True(t, ok)

	view, err := env.cart.UpdateItemQuantity(ctx, m.ID, p.ID, 2)
	require.NoError(t, err)
	assert.Contains(t, view.Warning, "out of stock")
	require.Len(t, view.Items, 1)
	assert.Equal(t, other.ID, view.Items[0].ProductID)
}

func TestCart_FinalizeIsIdempotent(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	m := env.seedMember(t, "m1@gmail.com")

	require.NoError(t, env.cart.FinalizeAfterOrder(ctx, m.ID))
	require.NoError(t, env.cart.FinalizeAfterOrder(ctx, m.ID))
	assert.False(t, env.cartExists(t, m.ID))
}

func TestCart_ClearCart(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	m := env.seedMember(t, "m1@gmail.com")
	p := env.seedProduct(t, "Beans", "10", 4)

	_, err := env.cart.AddItem(ctx, m.ID, p.ID, 2)
	require.NoError(t, err)

	view, err := env.cart.ClearCart(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.False(t, env.cartExists(t, m.ID))
}

func TestCart_Unauthorized(t *testing.T) {
	env := newEnv(t, envOptions{})

	view, err := env.cart.GetCart(context.Background(), 0)
	requireStatus(t, err, http.StatusUnauthorized)
	assert.Equal(t, "unauthorized", view.ErrorMessage)
	assert.NotNil(t, view.Items)
}

func TestCart_AddZeroStockRejected(t *testing.T) {
	env := newEnv(t, envOptions{})
	m := env.seedMember(t, "m1@gmail.com")
	p := env.seedProduct(t, "Beans", "10", 0)

	view, err := env.cart.AddItem(context.Background(), m.ID, p.ID, 1)
	requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "out of stock", view.ErrorMessage)
	assert.Empty(t, view.Items)
	assert.False(t, env.cartExists(t, m.ID))
}

func TestCart_AddNonPositiveQtyNormalizedToOne(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	m := env.seedMember(t, "m1@gmail.com")
	p := env.seedProduct(t, "Beans", "10", 5)

	view, err := env.cart.AddItem(ctx, m.ID, p.ID, -3)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(1), view.Items[0].Quantity)

	view, err = env.cart.AddItem(ctx, m.ID, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.Items[0].Quantity)
}

func TestCart_PriceSnapshotSurvivesProductPriceChange(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	m := env.seedMember(t, "m1@gmail.com")
	p := env.seedProduct(t, "Beans", "5", 5)

	_, err := env.cart.AddItem(ctx, m.ID, p.ID, 1)
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&model.Product{}).Where("id = ?", p.ID).
		Update("unit_price", decimal.NewFromInt(99)).Error)

	view, err := env.cart.GetCart(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.True(t, decimal.NewFromInt(5).Equal(view.Items[0].UnitPrice), view.Items[0].UnitPrice.String())
	assert.True(t, decimal.NewFromInt(5).Equal(view.Items[0].TotalPrice), view.Items[0].TotalPrice.String())
	assert.True(t, decimal.NewFromInt(5).Equal(view.Total), view.Total.String())
}
