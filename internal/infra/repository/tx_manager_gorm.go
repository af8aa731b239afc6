package repository

import (
	"context"

	repo "estore/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	members      repo.MemberRepository
	categories   repo.CategoryRepository
	products     repo.ProductRepository
	inventory    repo.InventoryRepository
	carts        repo.CartRepository
	cartItems    repo.CartItemRepository
	orders       repo.OrderRepository
	orderDetails repo.OrderDetailRepository
	tracking     repo.TrackingRepository
	outbox       repo.OutboxRepository
}

func (r *txReposGorm) Members() repo.MemberRepository           { return r.members }
func (r *txReposGorm) Categories() repo.CategoryRepository      { return r.categories }
func (r *txReposGorm) Products() repo.ProductRepository         { return r.products }
func (r *txReposGorm) Inventory() repo.InventoryRepository      { return r.inventory }
func (r *txReposGorm) Carts() repo.CartRepository               { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository       { return r.cartItems }
func (r *txReposGorm) Orders() repo.OrderRepository             { return r.orders }
func (r *txReposGorm) OrderDetails() repo.OrderDetailRepository { return r.orderDetails }
func (r *txReposGorm) Tracking() repo.TrackingRepository        { return r.tracking }
func (r *txReposGorm) Outbox() repo.OutboxRepository            { return r.outbox }

// repoはdbを持ったもので作る（Tx内ならtx）
func newReposGorm(db *gorm.DB) *txReposGorm {
	carts := NewCartGormRepository(db)
	return &txReposGorm{
		members:      NewMemberGormRepository(db),
		categories:   NewCategoryGormRepository(db),
		products:     NewProductGormRepository(db),
		inventory:    NewInventoryGormRepository(db),
		carts:        carts,
		cartItems:    carts,
		orders:       NewOrderGormRepository(db),
		orderDetails: NewOrderDetailGormRepository(db),
		tracking:     NewTrackingGormRepository(db),
		outbox:       NewOutboxGormRepository(db),
	}
}

// Tx外で使う読み取り用のまとまり
func NewRepos(db *gorm.DB) repo.TxRepos {
	return newReposGorm(db)
}

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		return fn(newReposGorm(tx))
	})
}
