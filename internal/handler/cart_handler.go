package handler

import (
	"net/http"

	"estore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"gte=1"`
}

type UpdateCartItemRequest struct {
	Quantity int64 `json:"quantity"`
}

// /cart, /cart/items/{product_id} を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, guards Guards) {
	g := e.Group("/cart", guards.Authenticated()...)

	g.GET("", h.getCart)
	g.DELETE("", h.clearCart)
	g.POST("/items", h.addItem)
	g.PATCH("/items/:product_id", h.patchItem)
	g.DELETE("/items/:product_id", h.deleteItem)
}

// 失敗時もカートの中身をerror_messageつきで返す
func writeCart(c echo.Context, view usecase.CartView, err error) error {
	if err == nil {
		return c.JSON(http.StatusOK, view)
	}
	he, ok := usecase.AsHTTPError(err)
	if !ok {
		return writeError(c, err)
	}
	return c.JSON(he.Status, view)
}

func (h *CartHandler) getCart(c echo.Context) error {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	view, err := h.uc.GetCart(c.Request().Context(), memberID)
	return writeCart(c, view, err)
}

func (h *CartHandler) addItem(c echo.Context) error {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req AddCartRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	view, err := h.uc.AddItem(c.Request().Context(), memberID, req.ProductID, req.Quantity)
	return writeCart(c, view, err)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	var req UpdateCartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	view, err := h.uc.UpdateItemQuantity(c.Request().Context(), memberID, productID, req.Quantity)
	return writeCart(c, view, err)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	view, err := h.uc.RemoveItem(c.Request().Context(), memberID, productID)
	return writeCart(c, view, err)
}

func (h *CartHandler) clearCart(c echo.Context) error {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	view, err := h.uc.ClearCart(c.Request().Context(), memberID)
	return writeCart(c, view, err)
}
