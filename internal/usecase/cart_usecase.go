package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"estore/internal/domain/model"
	"estore/internal/logger"
	repo "estore/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartUsecase は会員ごとのカート（1会員1カート）を扱います。
// 空になったカートは行ごと削除します。
type CartUsecase struct {
	tx    repo.TransactionManager
	carts repo.CartRepository
	items repo.CartItemRepository
}

func NewCartUsecase(
	tx repo.TransactionManager,
	carts repo.CartRepository,
	items repo.CartItemRepository,
) *CartUsecase {
	return &CartUsecase{
		tx:    tx,
		carts: carts,
		items: items,
	}
}

type CartLineView struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ImageURL     string          `json:"image_url"`
	CategoryName string          `json:"category_name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int64           `json:"quantity"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

// 失敗してもerror_messageつきで必ず返す
type CartView struct {
	MemberID     int64           `json:"member_id"`
	Items        []CartLineView  `json:"items"`
	Total        decimal.Decimal `json:"total"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Warning      string          `json:"warning,omitempty"`
}

func emptyCartView(memberID int64) CartView {
	return CartView{
		MemberID: memberID,
		Items:    []CartLineView{},
		Total:    decimal.Zero,
	}
}

// カートが無ければ空で返す
func (u *CartUsecase) GetCart(ctx context.Context, memberID int64) (CartView, error) {
	if memberID <= 0 {
		return u.fail(ctx, memberID, NewHTTPError(http.StatusUnauthorized, "unauthorized"))
	}

	view, err := u.buildView(ctx, memberID)
	if err != nil {
		return u.fail(ctx, memberID, dbError("cart.get", err))
	}
	return view, nil
}

// 同一商品は数量加算。単価は追加時点のスナップショット
func (u *CartUsecase) AddItem(ctx context.Context, memberID, productID, qty int64) (CartView, error) {
	if memberID <= 0 {
		return u.fail(ctx, memberID, NewHTTPError(http.StatusUnauthorized, "unauthorized"))
	}
	if productID <= 0 {
		return u.fail(ctx, memberID, NewHTTPError(http.StatusBadRequest, "invalid product_id"))
	}
	if qty <= 0 {
		qty = 1
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return err
		}
		if p.UnitsInStock <= 0 {
			return NewHTTPError(http.StatusBadRequest, "out of stock")
		}

		cart, err := r.Carts().GetOrCreateByMemberID(ctx, memberID)
		if err != nil {
			return err
		}

		var existing int64
		item, err := r.CartItems().FindByCartAndProduct(ctx, cart.ID, productID)
		switch {
		case err == nil:
			existing = item.Quantity
		case errors.Is(err, repo.ErrNotFound):
		default:
			return err
		}

		if existing+qty > p.UnitsInStock {
			return NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("stock exceeded: only %d left", p.UnitsInStock))
		}

		if _, err := r.CartItems().UpsertByCartAndProduct(ctx, cart.ID, productID, qty, p.UnitPrice); err != nil {
			return err
		}
		return r.Carts().Touch(ctx, cart.ID)
	})
	if err != nil {
		return u.fail(ctx, memberID, txError("cart.add_item", err))
	}

	return u.GetCart(ctx, memberID)
}

// 0以下は削除。在庫超過は在庫数に丸めて警告を返す
func (u *CartUsecase) UpdateItemQuantity(ctx context.Context, memberID, productID, qty int64) (CartView, error) {
	if memberID <= 0 {
		return u.fail(ctx, memberID, NewHTTPError(http.StatusUnauthorized, "unauthorized"))
	}
	if productID <= 0 {
		return u.fail(ctx, memberID, NewHTTPError(http.StatusBadRequest, "invalid product_id"))
	}
	if qty <= 0 {
		return u.RemoveItem(ctx, memberID, productID)
	}

	var warning string
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByMemberID(ctx, memberID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return err
		}

		if _, err := r.CartItems().FindByCartAndProduct(ctx, cart.ID, productID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "item not found")
			}
			return err
		}

		p, err := r.Products().FindByID(ctx, productID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		// 商品が消えた／在庫切れなら明細を外す
		if errors.Is(err, repo.ErrNotFound) || p.UnitsInStock <= 0 {
			warning = "out of stock: item removed from cart"
			return removeLine(ctx, r, cart.ID, productID)
		}

		if qty > p.UnitsInStock {
			qty = p.UnitsInStock
			warning = fmt.Sprintf("only %d left in stock: quantity adjusted", p.UnitsInStock)
		}
		if err := r.CartItems().UpdateQuantity(ctx, cart.ID, productID, qty); err != nil {
			return err
		}
		return r.Carts().Touch(ctx, cart.ID)
	})
	if err != nil {
		return u.fail(ctx, memberID, txError("cart.update_item", err))
	}

	view, err := u.GetCart(ctx, memberID)
	view.Warning = warning
	return view, err
}

// 最後の明細を消したらカートも消す
func (u *CartUsecase) RemoveItem(ctx context.Context, memberID, productID int64) (CartView, error) {
	if memberID <= 0 {
		return u.fail(ctx, memberID, NewHTTPError(http.StatusUnauthorized, "unauthorized"))
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByMemberID(ctx, memberID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return err
		}
		err = removeLine(ctx, r, cart.ID, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "item not found")
		}
		return err
	})
	if err != nil {
		return u.fail(ctx, memberID, txError("cart.remove_item", err))
	}

	return u.GetCart(ctx, memberID)
}

// 明細とカート行を削除。カートが無くてもエラーにしない
func (u *CartUsecase) ClearCart(ctx context.Context, memberID int64) (CartView, error) {
	if memberID <= 0 {
		return u.fail(ctx, memberID, NewHTTPError(http.StatusUnauthorized, "unauthorized"))
	}
	if err := deleteCartOf(ctx, u.carts, memberID); err != nil {
		return u.fail(ctx, memberID, dbError("cart.clear", err))
	}
	return emptyCartView(memberID), nil
}

// 注文作成後に呼ぶ。何度呼んでもよい
func (u *CartUsecase) FinalizeAfterOrder(ctx context.Context, memberID int64) error {
	if err := deleteCartOf(ctx, u.carts, memberID); err != nil {
		return dbError("cart.finalize", err)
	}
	return nil
}

func deleteCartOf(ctx context.Context, carts repo.CartRepository, memberID int64) error {
	cart, err := carts.FindByMemberID(ctx, memberID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := carts.Delete(ctx, cart.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	return nil
}

func removeLine(ctx context.Context, r repo.TxRepos, cartID, productID int64) error {
	if err := r.CartItems().DeleteByCartAndProduct(ctx, cartID, productID); err != nil {
		return err
	}
	n, err := r.CartItems().CountByCartID(ctx, cartID)
	if err != nil {
		return err
	}
	if n == 0 {
		return r.Carts().Delete(ctx, cartID)
	}
	return r.Carts().Touch(ctx, cartID)
}

func (u *CartUsecase) buildView(ctx context.Context, memberID int64) (CartView, error) {
	view := emptyCartView(memberID)

	cart, err := u.carts.FindByMemberID(ctx, memberID)
	if errors.Is(err, repo.ErrNotFound) {
		return view, nil
	}
	if err != nil {
		return view, err
	}

	lines, err := u.items.ListByCartID(ctx, cart.ID)
	if err != nil {
		return view, err
	}

	total := decimal.Zero
	for _, l := range lines {
		line := model.LineTotal(l.UnitPrice, l.Quantity)
		view.Items = append(view.Items, CartLineView{
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			ImageURL:     l.ImageURL,
			CategoryName: l.CategoryName,
			UnitPrice:    l.UnitPrice,
			Quantity:     l.Quantity,
			TotalPrice:   line,
		})
		total = total.Add(line)
	}
	view.Total = total
	return view, nil
}

// 今のカート（読めなければ空）にerror_messageを載せる
func (u *CartUsecase) fail(ctx context.Context, memberID int64, err error) (CartView, error) {
	view := emptyCartView(memberID)
	if memberID > 0 {
		if v, loadErr := u.buildView(ctx, memberID); loadErr == nil {
			view = v
		} else {
			logger.Warn("cart reload failed", zap.Int64("member_id", memberID), zap.Error(loadErr))
		}
	}

	view.ErrorMessage = "internal error"
	if he, ok := AsHTTPError(err); ok && he.Status < http.StatusInternalServerError {
		view.ErrorMessage = he.Message
	}
	return view, err
}
