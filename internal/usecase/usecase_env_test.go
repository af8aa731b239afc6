package usecase

import (
	"context"
	"testing"

	"estore/internal/domain/model"
	infraRepo "estore/internal/infra/repository"
	repo "estore/internal/repository"
	"estore/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 形式チェックは別パッケージでテストするので、ここでは常に通す
type passValidator struct{}

func (passValidator) ValidateMember(context.Context, MemberInput, bool) error { return nil }

type testEnv struct {
	db    *gorm.DB
	repos repo.TxRepos
	tx    repo.TransactionManager

	members    *MemberUsecase
	categories *CategoryUsecase
	products   *ProductUsecase
	cart       *CartUsecase
	orders     *OrderUsecase
	status     *OrderStatusUsecase
	tracking   *TrackingUsecase
	reports    *ReportUsecase
}

type envOptions struct {
	strict bool
	atomic bool
	store  ReportStore
	cache  ProductCache
}

func newEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	gdb := testutil.NewDB(t)
	repos := infraRepo.NewRepos(gdb)
	tx := infraRepo.NewTxManagerGorm(gdb)

	products := NewProductUsecase(tx, repos.Products(), repos.Inventory(), opts.cache)
	cart := NewCartUsecase(tx, repos.Carts(), repos.CartItems())

	return &testEnv{
		db:         gdb,
		repos:      repos,
		tx:         tx,
		members:    NewMemberUsecase(tx, repos.Members(), passValidator{}),
		categories: NewCategoryUsecase(tx, repos.Categories(), repos.Products()),
		products:   products,
		cart:       cart,
		orders:     NewOrderUsecase(tx, repos, products, cart, OrderOptions{AtomicStockReservation: opts.atomic}),
		status:     NewOrderStatusUsecase(tx, opts.strict),
		tracking:   NewTrackingUsecase(repos.Tracking()),
		reports:    NewReportUsecase(repos.OrderDetails(), repos.Outbox(), opts.store),
	}
}

func (e *testEnv) seedMember(t *testing.T, email string) model.Member {
	return testutil.SeedMember(t, e.db, email, "Company "+email, model.RoleUser, "secret123")
}

func (e *testEnv) seedProduct(t *testing.T, name, price string, stock int64) model.Product {
	t.Helper()
	var cat model.Category
	if err := e.db.Where("category_name = ?", "Default").First(&cat).Error; err != nil {
		cat = testutil.SeedCategory(t, e.db, "Default")
	}
	return testutil.SeedProduct(t, e.db, cat.ID, name, price, stock)
}

func (e *testEnv) stock(t *testing.T, productID int64) int64 {
	return testutil.StockOf(t, e.db, productID)
}

func (e *testEnv) cartExists(t *testing.T, memberID int64) bool {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.Cart{}).Where("member_id = ?", memberID).Count(&n).Error)
	return n > 0
}

func (e *testEnv) outboxTopics(t *testing.T) []string {
	t.Helper()
	var rows []model.OutboxEvent
	require.NoError(t, e.db.Order("rowid asc").Find(&rows).Error)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Topic)
	}
	return out
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := AsHTTPError(err)
	require.True(t, ok, "want HTTPError, got %v", err)
	require.Equal(t, status, he.Status, he.Message)
}
