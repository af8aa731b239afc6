package handler

import (
	"net/http"

	"estore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// E2Eテスト用。prodでは登録しない
type TestHandler struct {
	carts *usecase.CartUsecase
}

func NewTestHandler(carts *usecase.CartUsecase) *TestHandler {
	return &TestHandler{carts: carts}
}

func (h *TestHandler) RegisterRoutes(e *echo.Echo) {
	e.DELETE("/test/carts/:member_id", h.deleteCart)
}

func (h *TestHandler) deleteCart(c echo.Context) error {
	memberID, ok := parseIDParam(c, "member_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid member_id"})
	}

	if _, err := h.carts.ClearCart(c.Request().Context(), memberID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
