package handler

import (
	"net/http"

	"estore/internal/domain/model"
	"estore/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ProductRequest struct {
	CategoryID   int64           `json:"category_id" validate:"required,gt=0"`
	ProductName  string          `json:"product_name" validate:"required,max=40"`
	Weight       string          `json:"weight" validate:"max=20"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitsInStock int64           `json:"units_in_stock" validate:"gte=0"`
	ImageURL     string          `json:"image_url" validate:"omitempty,max=500"`
	// 更新時の楽観ロック。0なら見ない
	Version int64 `json:"version"`
}

// 在庫の上書き
type StockUpdateRequest struct {
	UnitsInStock int64  `json:"units_in_stock" validate:"gte=0"`
	Reason       string `json:"reason" validate:"max=200"`
}

// 商品の作成・更新・削除と在庫の上書き
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, guards Guards) {
	g := e.Group("/products", guards.Roles(model.RoleAdmin, model.RoleStaff)...)
	g.POST("", h.createProduct)
	g.PUT("/:id", h.updateProduct)
	g.DELETE("/:id", h.deleteProduct)

	e.PUT("/products/:id/stock", h.updateStock, guards.Roles(model.RoleAdmin)...)
}

func (req ProductRequest) toInput() usecase.ProductInput {
	return usecase.ProductInput{
		CategoryID:   req.CategoryID,
		ProductName:  req.ProductName,
		Weight:       req.Weight,
		UnitPrice:    req.UnitPrice,
		UnitsInStock: req.UnitsInStock,
		ImageURL:     req.ImageURL,
		Version:      req.Version,
	}
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.Create(c.Request().Context(), req.toInput())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, p)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.Update(c.Request().Context(), id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) updateStock(c echo.Context) error {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req StockUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	// 操作した管理者ID（調整履歴用）
	adminID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	adj, err := h.uc.SetStock(c.Request().Context(), adminID, productID, usecase.SetStockInput{
		UnitsInStock: req.UnitsInStock,
		Reason:       req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, adj)
}
