package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Members() MemberRepository
	Categories() CategoryRepository
	Products() ProductRepository
	Inventory() InventoryRepository
	Carts() CartRepository
	CartItems() CartItemRepository
	Orders() OrderRepository
	OrderDetails() OrderDetailRepository
	Tracking() TrackingRepository
	Outbox() OutboxRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
