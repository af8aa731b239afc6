package handler

import (
	"net/http"
	"time"

	"estore/internal/domain/model"
	"estore/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// バックオフィス側の注文管理と配送履歴
type AdminOrderHandler struct {
	orders   *usecase.OrderUsecase
	status   *usecase.OrderStatusUsecase
	tracking *usecase.TrackingUsecase
}

func NewAdminOrderHandler(orders *usecase.OrderUsecase, status *usecase.OrderStatusUsecase, tracking *usecase.TrackingUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders, status: status, tracking: tracking}
}

// "Approve"などの名前か"3"のような数字
type OrderStatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

type OrderUpdateRequest struct {
	MemberID     int64           `json:"member_id" validate:"required,gt=0"`
	OrderDate    time.Time       `json:"order_date" validate:"required"`
	RequiredDate *time.Time      `json:"required_date"`
	ShippedDate  *time.Time      `json:"shipped_date"`
	Freight      decimal.Decimal `json:"freight"`
	Version      int64           `json:"version"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, guards Guards) {
	backOffice := guards.Roles(model.RoleAdmin, model.RoleStaff, model.RoleShipper)

	e.GET("/orders", h.list, backOffice...)
	e.PUT("/orders/:id", h.update, guards.Roles(model.RoleAdmin, model.RoleStaff)...)
	e.DELETE("/orders/:id", h.delete, guards.Roles(model.RoleAdmin)...)
	e.PUT("/orders/:id/status", h.updateStatus, backOffice...)
	e.GET("/tracking", h.listTracking, backOffice...)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, limit, err := parsePaging(c, 50)
	if err != nil {
		return writeError(c, err)
	}

	from, err := parseOptionalTime(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := parseOptionalTime(c, "to")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.orders.ListOrders(c.Request().Context(), usecase.ListOrdersInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		Role:   getRoleFromContext(c),
		From:   from,
		To:     to,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) update(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req OrderUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.orders.UpdateOrder(c.Request().Context(), usecase.UpdateOrderInput{
		ID:           orderID,
		MemberID:     req.MemberID,
		OrderDate:    req.OrderDate,
		RequiredDate: req.RequiredDate,
		ShippedDate:  req.ShippedDate,
		Freight:      req.Freight,
		Version:      req.Version,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) delete(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.orders.DeleteOrder(c.Request().Context(), orderID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req OrderStatusUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	status, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
	}

	// STAFF/SHIPPERは自分の担当範囲のステータスにしか変えられない
	if visible := usecase.StatusesVisibleTo(getRoleFromContext(c)); visible != nil {
		allowed := false
		for _, s := range visible {
			if s == status {
				allowed = true
				break
			}
		}
		if !allowed {
			return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		}
	}

	o, err := h.status.SetStatus(c.Request().Context(), orderID, status)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, usecase.OrderView{Order: o, StatusName: o.Status.String()})
}

func (h *AdminOrderHandler) listTracking(c echo.Context) error {
	page, limit, err := parsePaging(c, 50)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.tracking.List(c.Request().Context(), page, limit, c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
