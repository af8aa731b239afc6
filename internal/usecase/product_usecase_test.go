package usecase

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"estore/internal/event"
	repo "estore/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	items       map[int64]repo.ProductWithCategory
	invalidated []int64
}

func newMapCache() *mapCache {
	return &mapCache{items: map[int64]repo.ProductWithCategory{}}
}

func (c *mapCache) Get(_ context.Context, id int64) (repo.ProductWithCategory, bool, error) {
	p, ok := c.items[id]
	return p, ok, nil
}

func (c *mapCache) Set(_ context.Context, p repo.ProductWithCategory) error {
	c.items[p.ID] = p
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, id int64) error {
	delete(c.items, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

func TestProduct_DecreaseStock(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	p := env.seedProduct(t, "Beans", "10", 5)

	ok, err := env.products.DecreaseStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), env.stock(t, p.ID))

	// 足りなければ変えない
	ok, err = env.products.DecreaseStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(2), env.stock(t, p.ID))

	ok, err = env.products.DecreaseStock(ctx, 999, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = env.products.DecreaseStock(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProduct_DecreaseStockForManyIsAllOrNothing(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	a := env.seedProduct(t, "A", "1", 10)
	b := env.seedProduct(t, "B", "1", 10)

	ok, err := env.products.DecreaseStockForMany(ctx, map[int64]int64{a.ID: 5, b.ID: 1000000})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(10), env.stock(t, a.ID))
	assert.Equal(t, int64(10), env.stock(t, b.ID))

	// 存在しない商品が混ざっても何も減らない
	ok, err = env.products.DecreaseStockForMany(ctx, map[int64]int64{a.ID: 5, 999: 1})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(10), env.stock(t, a.ID))

	ok, err = env.products.DecreaseStockForMany(ctx, map[int64]int64{a.ID: 5, b.ID: 10})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), env.stock(t, a.ID))
	assert.Equal(t, int64(0), env.stock(t, b.ID))
}

func TestProduct_GetUsesCacheAndUpdateInvalidates(t *testing.T) {
	cache := newMapCache()
	env := newEnv(t, envOptions{cache: cache})
	ctx := context.Background()
	p := env.seedProduct(t, "Beans", "10", 5)

	got, err := env.products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Default", got.CategoryName)
	require.Contains(t, cache.items, p.ID)

	_, err = env.products.Update(ctx, p.ID, ProductInput{
		CategoryID:   p.CategoryID,
		ProductName:  "Beans v2",
		Weight:       "1kg",
		UnitPrice:    decimal.NewFromInt(12),
		UnitsInStock: 5,
	})
	require.NoError(t, err)
	assert.NotContains(t, cache.items, p.ID)
	assert.Contains(t, cache.invalidated, p.ID)

	got, err = env.products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beans v2", got.ProductName)
}

func TestProduct_UpdateWithStaleVersionConflicts(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	p := env.seedProduct(t, "Beans", "10", 5)

	in := ProductInput{
		CategoryID:   p.CategoryID,
		ProductName:  "Beans",
		Weight:       "1kg",
		UnitPrice:    decimal.NewFromInt(11),
		UnitsInStock: 5,
		Version:      p.Version,
	}
	updated, err := env.products.Update(ctx, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, p.Version+1, updated.Version)

	// 古いversionのまま再送
	_, err = env.products.Update(ctx, p.ID, in)
	requireStatus(t, err, http.StatusConflict)
}

func TestProduct_CreateValidatesAndEmitsEvent(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	cat, err := env.categories.Create(ctx, CategoryInput{CategoryName: "Tools"})
	require.NoError(t, err)

	_, err = env.products.Create(ctx, ProductInput{CategoryID: cat.ID, ProductName: "", Weight: "1kg", UnitPrice: decimal.NewFromInt(1)})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = env.products.Create(ctx, ProductInput{CategoryID: 999, ProductName: "Saw", Weight: "1kg", UnitPrice: decimal.NewFromInt(1)})
	requireStatus(t, err, http.StatusBadRequest)

	p, err := env.products.Create(ctx, ProductInput{CategoryID: cat.ID, ProductName: "Saw", Weight: "1kg", UnitPrice: decimal.NewFromInt(1), UnitsInStock: 3})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)

	assert.Equal(t, []string{event.TopicCategoryCreated, event.TopicProductCreated}, env.outboxTopics(t))
}

func TestProduct_ListFiltersAndSort(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	env.seedProduct(t, "Apple", "3", 5)
	env.seedProduct(t, "Banana", "1", 5)
	env.seedProduct(t, "Cherry", "7", 5)

	out, err := env.products.List(ctx, ListProductsInput{Page: 1, Limit: 10, Sort: "price_asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Total)
	require.Len(t, out.Items, 3)
	assert.Equal(t, "Banana", out.Items[0].ProductName)
	assert.Equal(t, "Cherry", out.Items[2].ProductName)

	min := decimal.NewFromInt(2)
	out, err = env.products.List(ctx, ListProductsInput{Page: 1, Limit: 10, MinPrice: &min, Sort: "name_asc"})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "Apple", out.Items[0].ProductName)

	_, err = env.products.List(ctx, ListProductsInput{Page: 1, Limit: 10, Sort: "unit_price; drop table"})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = env.products.List(ctx, ListProductsInput{Page: 1, Limit: 0})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestProduct_SetStockRecordsAdjustment(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	admin := env.seedMember(t, "admin@gmail.com")
	p := env.seedProduct(t, "Beans", "10", 5)

	adj, err := env.products.SetStock(ctx, admin.ID, p.ID, SetStockInput{UnitsInStock: 12, Reason: "restock"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), adj.Delta)
	assert.Equal(t, admin.ID, adj.ActorMemberID)
	assert.Equal(t, int64(12), env.stock(t, p.ID))

	_, err = env.products.SetStock(ctx, admin.ID, p.ID, SetStockInput{UnitsInStock: 1})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = env.products.SetStock(ctx, admin.ID, 999, SetStockInput{UnitsInStock: 1, Reason: "x"})
	requireStatus(t, err, http.StatusNotFound)
}

func TestProduct_ConcurrentDecreaseNeverOversells(t *testing.T) {
	env := newEnv(t, envOptions{})
	ctx := context.Background()
	a := env.seedProduct(t, "A", "1", 10)
	b := env.seedProduct(t, "B", "1", 4)

	const singles, bundles = 25, 10
	type result struct {
		bundle bool
		ok     bool
		err    error
	}
	results := make(chan result, singles+bundles)

	var wg sync.WaitGroup
	for i := 0; i < singles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := env.products.DecreaseStock(ctx, a.ID, 1)
			results <- result{ok: ok, err: err}
		}()
	}
	for i := 0; i < bundles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := env.products.DecreaseStockForMany(ctx, map[int64]int64{a.ID: 1, b.ID: 1})
			results <- result{bundle: true, ok: ok, err: err}
		}()
	}
	wg.Wait()
	close(results)

	var soldSingles, soldBundles int64
	for r := range results {
		require.NoError(t, r.err)
		switch {
		case r.ok && r.bundle:
			soldBundles++
		case r.ok:
			soldSingles++
		}
	}

	stockA, stockB := env.stock(t, a.ID), env.stock(t, b.ID)
	assert.GreaterOrEqual(t, stockA, int64(0))
	assert.GreaterOrEqual(t, stockB, int64(0))
	assert.LessOrEqual(t, soldBundles, int64(4))
	assert.Equal(t, int64(10), soldSingles+soldBundles+stockA)
	assert.Equal(t, int64(4), soldBundles+stockB)
	// 需要が在庫を上回るのでAは売り切れる
	assert.Zero(t, stockA)
}
