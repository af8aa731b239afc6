package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"estore/internal/domain/model"
	"estore/internal/event"
	repo "estore/internal/repository"
)

// OrderStatusUsecase は注文ステータスの変更を扱います。
//
// 既定ではSetStatusは遷移表(model.CanTransition)を検査せず、どのステータスからでも上書きします。
// strictをtrueにしたときだけ不正な遷移を409で拒否します。
type OrderStatusUsecase struct {
	tx     repo.TransactionManager
	strict bool
	now    func() time.Time
}

func NewOrderStatusUsecase(tx repo.TransactionManager, strict bool) *OrderStatusUsecase {
	return &OrderStatusUsecase{tx: tx, strict: strict, now: time.Now}
}

// ステータス上書き＋履歴追記＋ReceiveStatusChangeを同じTxで行う
func (u *OrderStatusUsecase) SetStatus(ctx context.Context, orderID int64, status model.OrderStatus) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !status.Valid() {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var updated model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}

		if u.strict && !model.CanTransition(o.Status, status) {
			return NewHTTPError(http.StatusConflict,
				fmt.Sprintf("cannot change status from %s to %s", o.Status, status))
		}

		now := u.now()
		var shipped *time.Time
		if status == model.OrderStatusShipping {
			shipped = &now
		}
		if err := r.Orders().UpdateStatus(ctx, orderID, status, shipped); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return err
		}

		// 会員が消えていても履歴は残す
		var memberName string
		if m, err := r.Members().FindByID(ctx, o.MemberID); err == nil {
			memberName = m.CompanyName
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		if _, err := r.Tracking().Append(ctx, model.TrackingOrder{
			OrderID:    orderID,
			MemberID:   o.MemberID,
			MemberName: memberName,
			Status:     status,
			CreatedAt:  now,
			UpdatedAt:  now,
		}); err != nil {
			return err
		}

		updated, err = r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		return enqueue(ctx, r.Outbox(), event.TopicStatusChanged, event.StatusChangedPayload{
			OrderID:    orderID,
			Status:     int(status),
			StatusName: status.String(),
		})
	})
	if err != nil {
		return model.Order{}, txError("order.set_status", err)
	}
	return updated, nil
}

func (u *OrderStatusUsecase) Approve(ctx context.Context, orderID int64) (model.Order, error) {
	return u.SetStatus(ctx, orderID, model.OrderStatusApprove)
}

func (u *OrderStatusUsecase) Reject(ctx context.Context, orderID int64) (model.Order, error) {
	return u.SetStatus(ctx, orderID, model.OrderStatusReject)
}

func (u *OrderStatusUsecase) Ship(ctx context.Context, orderID int64) (model.Order, error) {
	return u.SetStatus(ctx, orderID, model.OrderStatusShipping)
}

func (u *OrderStatusUsecase) MarkShipped(ctx context.Context, orderID int64) (model.Order, error) {
	return u.SetStatus(ctx, orderID, model.OrderStatusShipped)
}

func (u *OrderStatusUsecase) Cancel(ctx context.Context, orderID int64) (model.Order, error) {
	return u.SetStatus(ctx, orderID, model.OrderStatusCancel)
}
