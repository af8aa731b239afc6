package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"estore/internal/domain/model"
	"estore/internal/event"
	"estore/internal/logger"
	repo "estore/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 在庫をまとめて減らす
type StockReserver interface {
	DecreaseStockForMany(ctx context.Context, quantities map[int64]int64) (bool, error)
}

// 注文後にカートを消す
type CartFinalizer interface {
	FinalizeAfterOrder(ctx context.Context, memberID int64) error
}

type OrderOptions struct {
	// trueなら注文・在庫・履歴・カート削除を1つのTxで行う
	AtomicStockReservation bool
}

type OrderUsecase struct {
	tx       repo.TransactionManager
	orders   repo.OrderRepository
	details  repo.OrderDetailRepository
	carts    repo.CartRepository
	items    repo.CartItemRepository
	tracking repo.TrackingRepository
	stock    StockReserver
	cart     CartFinalizer
	opts     OrderOptions
}

// rはTx外の読み取り用
func NewOrderUsecase(
	tx repo.TransactionManager,
	r repo.TxRepos,
	stock StockReserver,
	cart CartFinalizer,
	opts OrderOptions,
) *OrderUsecase {
	return &OrderUsecase{
		tx:       tx,
		orders:   r.Orders(),
		details:  r.OrderDetails(),
		carts:    r.Carts(),
		items:    r.CartItems(),
		tracking: r.Tracking(),
		stock:    stock,
		cart:     cart,
		opts:     opts,
	}
}

type OrderLineInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
	Discount  float64
}

type CreateOrderInput struct {
	MemberID     int64
	OrderDate    time.Time
	RequiredDate *time.Time
	Freight      decimal.Decimal
	Lines        []OrderLineInput
}

type CreateOrderResult struct {
	OrderID int64 `json:"order_id"`
	// falseなら注文はできたが在庫は減っていない
	StockReserved bool `json:"stock_reserved"`
}

type OrderView struct {
	model.Order
	StatusName string              `json:"status_name"`
	Details    []model.OrderDetail `json:"details,omitempty"`
	// 明細の売上合計（送料は含まない）
	Total decimal.Decimal `json:"total"`
}

type OrderListOutput struct {
	Items []OrderView `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func validateOrderLines(lines []OrderLineInput) error {
	if len(lines) == 0 {
		return NewHTTPError(http.StatusBadRequest, "order has no lines")
	}
	seen := make(map[int64]struct{}, len(lines))
	for _, l := range lines {
		if l.ProductID <= 0 {
			return NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if l.Quantity <= 0 {
			return NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
		if l.UnitPrice.IsNegative() {
			return NewHTTPError(http.StatusBadRequest, "unit_price must be >= 0")
		}
		if l.Discount < 0 || l.Discount > 1 {
			return NewHTTPError(http.StatusBadRequest, "discount must be between 0 and 1")
		}
		if _, dup := seen[l.ProductID]; dup {
			return NewHTTPError(http.StatusBadRequest, "duplicate product in lines")
		}
		seen[l.ProductID] = struct{}{}
	}
	return nil
}

// 注文作成（Spending）。在庫減算の失敗は注文を戻さず、StockReserved=falseで知らせる
func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error) {
	if in.MemberID <= 0 {
		return CreateOrderResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateOrderLines(in.Lines); err != nil {
		return CreateOrderResult{}, err
	}
	if in.Freight.IsNegative() {
		return CreateOrderResult{}, NewHTTPError(http.StatusBadRequest, "freight must be >= 0")
	}
	if in.OrderDate.IsZero() {
		in.OrderDate = time.Now()
	}
	if in.RequiredDate != nil && in.RequiredDate.Before(in.OrderDate) {
		return CreateOrderResult{}, NewHTTPError(http.StatusBadRequest, "required_date must be after order_date")
	}

	quantities := make(map[int64]int64, len(in.Lines))
	for _, l := range in.Lines {
		quantities[l.ProductID] = l.Quantity
	}

	if u.opts.AtomicStockReservation {
		return u.createOrderAtomic(ctx, in, quantities)
	}

	var (
		order      model.Order
		memberName string
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		order, memberName, err = insertOrder(ctx, r, in)
		return err
	})
	if err != nil {
		return CreateOrderResult{}, txError("order.create", err)
	}

	res := CreateOrderResult{OrderID: order.ID, StockReserved: true}

	ok, err := u.stock.DecreaseStockForMany(ctx, quantities)
	if err != nil || !ok {
		res.StockReserved = false
		logger.Warn("stock not reserved for order",
			zap.Int64("order_id", order.ID),
			zap.Int64("member_id", in.MemberID),
			zap.Error(err))
	}

	if _, err := u.tracking.Append(ctx, model.TrackingOrder{
		OrderID:    order.ID,
		MemberID:   in.MemberID,
		MemberName: memberName,
		Status:     model.OrderStatusSpending,
	}); err != nil {
		logger.Error("tracking append failed", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	if err := u.cart.FinalizeAfterOrder(ctx, in.MemberID); err != nil {
		logger.Error("cart finalize failed", zap.Int64("member_id", in.MemberID), zap.Error(err))
	}

	return res, nil
}

func (u *OrderUsecase) createOrderAtomic(ctx context.Context, in CreateOrderInput, quantities map[int64]int64) (CreateOrderResult, error) {
	var res CreateOrderResult
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, memberName, err := insertOrder(ctx, r, in)
		if err != nil {
			return err
		}

		if err := reserveStock(ctx, r.Inventory(), quantities); err != nil {
			if errors.Is(err, errStockNotReserved) {
				return NewHTTPError(http.StatusConflict, "insufficient stock")
			}
			return err
		}

		if _, err := r.Tracking().Append(ctx, model.TrackingOrder{
			OrderID:    order.ID,
			MemberID:   in.MemberID,
			MemberName: memberName,
			Status:     model.OrderStatusSpending,
		}); err != nil {
			return err
		}

		if err := deleteCartOf(ctx, r.Carts(), in.MemberID); err != nil {
			return err
		}

		res = CreateOrderResult{OrderID: order.ID, StockReserved: true}
		return nil
	})
	if err != nil {
		return CreateOrderResult{}, txError("order.create_atomic", err)
	}
	return res, nil
}

// 注文＋明細＋OrderCreatedを書く
func insertOrder(ctx context.Context, r repo.TxRepos, in CreateOrderInput) (model.Order, string, error) {
	member, err := r.Members().FindByID(ctx, in.MemberID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, "", NewHTTPError(http.StatusNotFound, "member not found")
	}
	if err != nil {
		return model.Order{}, "", err
	}

	order, err := r.Orders().Create(ctx, model.Order{
		MemberID:     in.MemberID,
		OrderDate:    in.OrderDate,
		RequiredDate: in.RequiredDate,
		Freight:      in.Freight,
		Status:       model.OrderStatusSpending,
		Version:      1,
	})
	if err != nil {
		return model.Order{}, "", err
	}

	details := make([]model.OrderDetail, 0, len(in.Lines))
	for _, l := range in.Lines {
		details = append(details, model.OrderDetail{
			OrderID:   order.ID,
			ProductID: l.ProductID,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Discount:  l.Discount,
		})
	}
	if err := r.OrderDetails().CreateBulk(ctx, order.ID, details); err != nil {
		return model.Order{}, "", err
	}

	if err := enqueue(ctx, r.Outbox(), event.TopicOrderCreated, toOrderView(order, details)); err != nil {
		return model.Order{}, "", err
	}
	return order, member.CompanyName, nil
}

// カートの中身から注文を作る（単価はカートのスナップショット、割引なし）
func (u *OrderUsecase) Checkout(ctx context.Context, memberID int64, requiredDate *time.Time, freight decimal.Decimal) (CreateOrderResult, error) {
	if memberID <= 0 {
		return CreateOrderResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.carts.FindByMemberID(ctx, memberID)
	if errors.Is(err, repo.ErrNotFound) {
		return CreateOrderResult{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}
	if err != nil {
		return CreateOrderResult{}, dbError("order.checkout", err)
	}

	lines, err := u.items.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CreateOrderResult{}, dbError("order.checkout", err)
	}
	if len(lines) == 0 {
		return CreateOrderResult{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}

	in := CreateOrderInput{
		MemberID:     memberID,
		OrderDate:    time.Now(),
		RequiredDate: requiredDate,
		Freight:      freight,
		Lines:        make([]OrderLineInput, 0, len(lines)),
	}
	for _, l := range lines {
		in.Lines = append(in.Lines, OrderLineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return u.CreateOrder(ctx, in)
}

// 見つからないときは found=false（エラーにしない）
func (u *OrderUsecase) GetOrder(ctx context.Context, orderID int64) (OrderView, bool, error) {
	if orderID <= 0 {
		return OrderView{}, false, nil
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderView{}, false, nil
	}
	if err != nil {
		return OrderView{}, false, dbError("order.get", err)
	}

	details, err := u.details.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderView{}, false, dbError("order.get", err)
	}
	return toOrderView(o, details), true, nil
}

type UpdateOrderInput struct {
	ID           int64
	MemberID     int64
	OrderDate    time.Time
	RequiredDate *time.Time
	ShippedDate  *time.Time
	Freight      decimal.Decimal
	// 0なら検査しない
	Version int64
}

// member・日付・送料を上書きする。ステータスはSetStatusで変える
func (u *OrderUsecase) UpdateOrder(ctx context.Context, in UpdateOrderInput) (OrderView, error) {
	if in.ID <= 0 {
		return OrderView{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.MemberID <= 0 {
		return OrderView{}, NewHTTPError(http.StatusBadRequest, "invalid member_id")
	}
	if in.OrderDate.IsZero() {
		return OrderView{}, NewHTTPError(http.StatusBadRequest, "order_date required")
	}
	if in.Freight.IsNegative() {
		return OrderView{}, NewHTTPError(http.StatusBadRequest, "freight must be >= 0")
	}

	var view OrderView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Orders().FindByID(ctx, in.ID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		if _, err := r.Members().FindByID(ctx, in.MemberID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, "member not found")
			}
			return err
		}

		shipped := cur.ShippedDate
		if in.ShippedDate != nil {
			shipped = in.ShippedDate
		}
		o, err := r.Orders().Update(ctx, model.Order{
			ID:           in.ID,
			MemberID:     in.MemberID,
			OrderDate:    in.OrderDate,
			RequiredDate: in.RequiredDate,
			ShippedDate:  shipped,
			Freight:      in.Freight,
			Version:      in.Version,
		})
		if errors.Is(err, repo.ErrConflict) {
			return NewHTTPError(http.StatusConflict, "order was modified by another request")
		}
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}

		details, err := r.OrderDetails().ListByOrderID(ctx, in.ID)
		if err != nil {
			return err
		}
		view = toOrderView(o, details)
		return enqueue(ctx, r.Outbox(), event.TopicOrderUpdated, view)
	})
	if err != nil {
		return OrderView{}, txError("order.update", err)
	}
	return view, nil
}

// 明細と履歴ごと物理削除
func (u *OrderUsecase) DeleteOrder(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		err := r.Orders().Delete(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		return enqueue(ctx, r.Outbox(), event.TopicOrderDeleted, event.IDPayload{ID: orderID})
	})
	return txError("order.delete", err)
}

// ロールごとに見えるステータス。nilなら全部
func StatusesVisibleTo(role model.Role) []model.OrderStatus {
	switch role {
	case model.RoleStaff:
		return []model.OrderStatus{model.OrderStatusSpending, model.OrderStatusApprove, model.OrderStatusReject}
	case model.RoleShipper:
		return []model.OrderStatus{model.OrderStatusApprove, model.OrderStatusShipping, model.OrderStatusShipped}
	default:
		return nil
	}
}

type ListOrdersInput struct {
	Page  int
	Limit int
	// "ALL"か空なら絞らない。名前か数字
	Status string
	Role   model.Role
	From   *time.Time
	To     *time.Time
}

// 管理画面の一覧。order_date降順
func (u *OrderUsecase) ListOrders(ctx context.Context, in ListOrdersInput) (OrderListOutput, error) {
	if err := validatePage(in.Page, in.Limit); err != nil {
		return OrderListOutput{}, err
	}

	statuses, err := resolveStatuses(in.Status, StatusesVisibleTo(in.Role))
	if err != nil {
		return OrderListOutput{}, err
	}

	return u.list(ctx, repo.OrderListFilter{
		Page:     in.Page,
		Limit:    in.Limit,
		Statuses: statuses,
		From:     in.From,
		To:       in.To,
	})
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, memberID int64, page, limit int) (OrderListOutput, error) {
	if memberID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validatePage(page, limit); err != nil {
		return OrderListOutput{}, err
	}
	return u.list(ctx, repo.OrderListFilter{
		Page:     page,
		Limit:    limit,
		MemberID: &memberID,
	})
}

func (u *OrderUsecase) list(ctx context.Context, f repo.OrderListFilter) (OrderListOutput, error) {
	orders, total, err := u.orders.List(ctx, f)
	if err != nil {
		return OrderListOutput{}, dbError("order.list", err)
	}

	items := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		details, err := u.details.ListByOrderID(ctx, o.ID)
		if err != nil {
			return OrderListOutput{}, dbError("order.list", err)
		}
		items = append(items, toOrderView(o, details))
	}

	return OrderListOutput{
		Items: items,
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
	}, nil
}

// 指定ステータスと閲覧可能範囲の積
func resolveStatuses(raw string, visible []model.OrderStatus) ([]model.OrderStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "ALL") {
		return visible, nil
	}

	st, ok := model.ParseOrderStatus(raw)
	if !ok {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if visible == nil {
		return []model.OrderStatus{st}, nil
	}
	for _, v := range visible {
		if v == st {
			return []model.OrderStatus{st}, nil
		}
	}
	return nil, NewHTTPError(http.StatusForbidden, "status not visible for role")
}

func toOrderView(o model.Order, details []model.OrderDetail) OrderView {
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.Revenue())
	}
	if details == nil {
		details = []model.OrderDetail{}
	}
	return OrderView{
		Order:      o,
		StatusName: o.Status.String(),
		Details:    details,
		Total:      total.Round(2),
	}
}
