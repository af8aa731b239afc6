package usecase

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"estore/internal/domain/model"
	"estore/internal/event"
	"estore/internal/logger"
	repo "estore/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 商品詳細のキャッシュ。未設定なら何もしない実装を使う
type ProductCache interface {
	Get(ctx context.Context, id int64) (repo.ProductWithCategory, bool, error)
	Set(ctx context.Context, p repo.ProductWithCategory) error
	Invalidate(ctx context.Context, id int64) error
}

type nopProductCache struct{}

func (nopProductCache) Get(context.Context, int64) (repo.ProductWithCategory, bool, error) {
	return repo.ProductWithCategory{}, false, nil
}
func (nopProductCache) Set(context.Context, repo.ProductWithCategory) error { return nil }
func (nopProductCache) Invalidate(context.Context, int64) error              { return nil }

// 在庫不足などでまとめて減らせなかった
var errStockNotReserved = errors.New("stock not reserved")

type ProductUsecase struct {
	tx        repo.TransactionManager
	products  repo.ProductRepository
	inventory repo.InventoryRepository
	cache     ProductCache
}

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	products repo.ProductRepository,
	inventory repo.InventoryRepository,
	cache ProductCache,
) *ProductUsecase {
	if cache == nil {
		cache = nopProductCache{}
	}
	return &ProductUsecase{
		tx:        tx,
		products:  products,
		inventory: inventory,
		cache:     cache,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page         int
	Limit        int
	Q            string
	CategoryName string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Sort         string
}

type ProductListOutput struct {
	Items []repo.ProductWithCategory `json:"items"`
	Total int64                      `json:"total"`
	Page  int                        `json:"page"`
	Limit int                        `json:"limit"`
}

func (u *ProductUsecase) List(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if err := validatePage(in.Page, in.Limit); err != nil {
		return ProductListOutput{}, err
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	if _, ok := repo.ProductSortOrders[in.Sort]; !ok {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.products.List(ctx, repo.ProductListQuery{
		Page:         in.Page,
		Limit:        in.Limit,
		Q:            strings.TrimSpace(in.Q),
		CategoryName: strings.TrimSpace(in.CategoryName),
		MinPrice:     in.MinPrice,
		MaxPrice:     in.MaxPrice,
		Sort:         in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, dbError("product.list", err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

// キャッシュ→DBの順で引く
func (u *ProductUsecase) Get(ctx context.Context, productID int64) (repo.ProductWithCategory, error) {
	if productID <= 0 {
		return repo.ProductWithCategory{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	if p, ok, err := u.cache.Get(ctx, productID); err != nil {
		logger.Warn("product cache get failed", zap.Int64("product_id", productID), zap.Error(err))
	} else if ok {
		return p, nil
	}

	p, err := u.products.FindWithCategory(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return repo.ProductWithCategory{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return repo.ProductWithCategory{}, dbError("product.get", err)
	}

	if err := u.cache.Set(ctx, p); err != nil {
		logger.Warn("product cache set failed", zap.Int64("product_id", productID), zap.Error(err))
	}
	return p, nil
}

type ProductInput struct {
	CategoryID   int64
	ProductName  string
	Weight       string
	UnitPrice    decimal.Decimal
	UnitsInStock int64
	ImageURL     string
	// 更新時のみ。0なら検査しない
	Version int64
}

func validateProductInput(in ProductInput) error {
	name := strings.TrimSpace(in.ProductName)
	if name == "" {
		return NewHTTPError(http.StatusBadRequest, "product_name required")
	}
	if len(name) > 40 {
		return NewHTTPError(http.StatusBadRequest, "product_name too long")
	}
	if in.CategoryID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid category_id")
	}
	if strings.TrimSpace(in.Weight) == "" {
		return NewHTTPError(http.StatusBadRequest, "weight required")
	}
	if in.UnitPrice.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "unit_price must be >= 0")
	}
	if in.UnitsInStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "units_in_stock must be >= 0")
	}
	return nil
}

func (u *ProductUsecase) Create(ctx context.Context, in ProductInput) (model.Product, error) {
	if err := validateProductInput(in); err != nil {
		return model.Product{}, err
	}

	var created model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Categories().FindByID(ctx, in.CategoryID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, "category not found")
			}
			return err
		}

		p, err := r.Products().Create(ctx, model.Product{
			CategoryID:   in.CategoryID,
			ProductName:  strings.TrimSpace(in.ProductName),
			Weight:       strings.TrimSpace(in.Weight),
			UnitPrice:    in.UnitPrice,
			UnitsInStock: in.UnitsInStock,
			ImageURL:     strings.TrimSpace(in.ImageURL),
			Version:      1,
		})
		if err != nil {
			return err
		}
		created = p
		return enqueue(ctx, r.Outbox(), event.TopicProductCreated, p)
	})
	if err != nil {
		return model.Product{}, txError("product.create", err)
	}
	return created, nil
}

func (u *ProductUsecase) Update(ctx context.Context, productID int64, in ProductInput) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := validateProductInput(in); err != nil {
		return model.Product{}, err
	}

	var updated model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		if _, err := r.Categories().FindByID(ctx, in.CategoryID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, "category not found")
			}
			return err
		}

		version := cur.Version
		if in.Version > 0 {
			version = in.Version
		}
		p, err := r.Products().Update(ctx, model.Product{
			ID:           productID,
			CategoryID:   in.CategoryID,
			ProductName:  strings.TrimSpace(in.ProductName),
			Weight:       strings.TrimSpace(in.Weight),
			UnitPrice:    in.UnitPrice,
			UnitsInStock: in.UnitsInStock,
			ImageURL:     strings.TrimSpace(in.ImageURL),
			Version:      version,
			CreatedAt:    cur.CreatedAt,
		})
		if errors.Is(err, repo.ErrConflict) {
			return NewHTTPError(http.StatusConflict, "product was modified by another request")
		}
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		updated = p
		return enqueue(ctx, r.Outbox(), event.TopicProductUpdated, p)
	})
	if err != nil {
		return model.Product{}, txError("product.update", err)
	}

	u.invalidate(ctx, productID)
	return updated, nil
}

func (u *ProductUsecase) Delete(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		err := r.Products().Delete(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		return enqueue(ctx, r.Outbox(), event.TopicProductDeleted, event.IDPayload{ID: productID})
	})
	if err != nil {
		return txError("product.delete", err)
	}

	u.invalidate(ctx, productID)
	return nil
}

// 在庫が足りるときだけ減らす。足りない／無い商品はfalse
func (u *ProductUsecase) DecreaseStock(ctx context.Context, productID, qty int64) (bool, error) {
	if productID <= 0 || qty <= 0 {
		return false, nil
	}
	ok, err := u.inventory.DecreaseStockIfEnough(ctx, productID, qty)
	if err != nil {
		return false, dbError("product.decrease_stock", err)
	}
	if ok {
		u.invalidate(ctx, productID)
	}
	return ok, nil
}

// 全部減らせるか、何も減らさないか
func (u *ProductUsecase) DecreaseStockForMany(ctx context.Context, quantities map[int64]int64) (bool, error) {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return reserveStock(ctx, r.Inventory(), quantities)
	})
	if errors.Is(err, errStockNotReserved) {
		return false, nil
	}
	if err != nil {
		return false, dbError("product.decrease_stock_many", err)
	}

	for id := range quantities {
		u.invalidate(ctx, id)
	}
	return true, nil
}

// ロック→全件検証→全件適用。Tx内で呼ぶこと
func reserveStock(ctx context.Context, inv repo.InventoryRepository, quantities map[int64]int64) error {
	if len(quantities) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(quantities))
	for id, qty := range quantities {
		if id <= 0 || qty <= 0 {
			return errStockNotReserved
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	locked, err := inv.LockProducts(ctx, ids)
	if err != nil {
		return err
	}
	if len(locked) != len(ids) {
		return errStockNotReserved
	}
	for _, p := range locked {
		if p.UnitsInStock < quantities[p.ID] {
			return errStockNotReserved
		}
	}

	for _, id := range ids {
		ok, err := inv.DecreaseStockIfEnough(ctx, id, quantities[id])
		if err != nil {
			return err
		}
		if !ok {
			return errStockNotReserved
		}
	}
	return nil
}

type SetStockInput struct {
	UnitsInStock int64
	Reason       string
}

// 管理者による在庫の上書き。調整履歴を残す
func (u *ProductUsecase) SetStock(ctx context.Context, actorMemberID, productID int64, in SetStockInput) (model.InventoryAdjustment, error) {
	if actorMemberID <= 0 {
		return model.InventoryAdjustment{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.InventoryAdjustment{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if in.UnitsInStock < 0 {
		return model.InventoryAdjustment{}, NewHTTPError(http.StatusBadRequest, "units_in_stock must be >= 0")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return model.InventoryAdjustment{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}
	if len(reason) > 255 {
		return model.InventoryAdjustment{}, NewHTTPError(http.StatusBadRequest, "reason too long")
	}

	var adj model.InventoryAdjustment
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		a, err := r.Inventory().SetStockWithAdjustment(ctx, actorMemberID, productID, in.UnitsInStock, reason)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		adj = a

		p, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return err
		}
		return enqueue(ctx, r.Outbox(), event.TopicProductUpdated, p)
	})
	if err != nil {
		return model.InventoryAdjustment{}, txError("product.set_stock", err)
	}

	u.invalidate(ctx, productID)
	return adj, nil
}

func (u *ProductUsecase) invalidate(ctx context.Context, productID int64) {
	if err := u.cache.Invalidate(ctx, productID); err != nil {
		logger.Warn("product cache invalidate failed", zap.Int64("product_id", productID), zap.Error(err))
	}
}
