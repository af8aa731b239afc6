package handler

import (
	"net/http"
	"time"

	"estore/internal/domain/model"
	"estore/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// 注文者側の/orders
type OrderHandler struct {
	uc       *usecase.OrderUsecase
	tracking *usecase.TrackingUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase, tracking *usecase.TrackingUsecase) *OrderHandler {
	return &OrderHandler{uc: uc, tracking: tracking}
}

type OrderLineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"gte=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  float64         `json:"discount" validate:"gte=0,lte=1"`
}

type OrderCreateRequest struct {
	// ADMIN/STAFFが代理で作るときだけ指定
	MemberID     int64              `json:"member_id"`
	OrderDate    *time.Time         `json:"order_date"`
	RequiredDate *time.Time         `json:"required_date"`
	Freight      decimal.Decimal    `json:"freight"`
	Lines        []OrderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type CheckoutRequest struct {
	RequiredDate *time.Time      `json:"required_date"`
	Freight      decimal.Decimal `json:"freight"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, guards Guards) {
	auth := guards.Authenticated()

	e.POST("/orders", h.create, auth...)
	e.POST("/orders/checkout", h.checkout, auth...)
	e.GET("/orders/:id", h.detail, auth...)
	e.GET("/orders/:id/tracking", h.trackingOf, auth...)
	e.GET("/me/orders", h.myOrders, auth...)
}

func isBackOffice(role model.Role) bool {
	return role == model.RoleAdmin || role == model.RoleStaff || role == model.RoleShipper
}

func (h *OrderHandler) create(c echo.Context) error {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req OrderCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	if req.MemberID != 0 && req.MemberID != memberID {
		role := getRoleFromContext(c)
		if role != model.RoleAdmin && role != model.RoleStaff {
			return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		}
		memberID = req.MemberID
	}

	in := usecase.CreateOrderInput{
		MemberID:     memberID,
		RequiredDate: req.RequiredDate,
		Freight:      req.Freight,
		Lines:        make([]usecase.OrderLineInput, 0, len(req.Lines)),
	}
	if req.OrderDate != nil {
		in.OrderDate = *req.OrderDate
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, usecase.OrderLineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
		})
	}

	out, err := h.uc.CreateOrder(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// カートの中身で注文
func (h *OrderHandler) checkout(c echo.Context) error {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Checkout(c.Request().Context(), memberID, req.RequiredDate, req.Freight)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// 本人かバックオフィスのロールだけ。他人の注文は404にする
func (h *OrderHandler) loadVisible(c echo.Context) (usecase.OrderView, bool, error) {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return usecase.OrderView{}, false, usecase.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return usecase.OrderView{}, false, usecase.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	view, found, err := h.uc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return usecase.OrderView{}, false, err
	}
	if !found {
		return usecase.OrderView{}, false, nil
	}
	if view.MemberID != memberID && !isBackOffice(getRoleFromContext(c)) {
		return usecase.OrderView{}, false, nil
	}
	return view, true, nil
}

func (h *OrderHandler) detail(c echo.Context) error {
	view, found, err := h.loadVisible(c)
	if err != nil {
		return writeError(c, err)
	}
	if !found {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	}
	return c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) trackingOf(c echo.Context) error {
	view, found, err := h.loadVisible(c)
	if err != nil {
		return writeError(c, err)
	}
	if !found {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	}

	out, err := h.tracking.ListByOrder(c.Request().Context(), view.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) myOrders(c echo.Context) error {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	page, limit, err := parsePaging(c, 20)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), memberID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
