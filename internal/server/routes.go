package server

import (
	"net/http"

	"estore/internal/config"
	"estore/internal/handler"

	"github.com/labstack/echo/v4"
)

const loginPerMinute = 10

func RegisterRoutes(e *echo.Echo, cfg config.Config, uc Usecases, events handler.EventSource) {
	guards := handler.Guards{JWT: cfg.JWT, Members: uc.Repos.Members()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.SuccessResponse{Message: "ok"})
	})

	handler.NewAuthHandler(uc.Auth, loginPerMinute).RegisterRoutes(e)
	handler.NewCategoryHandler(uc.Categories).RegisterRoutes(e, guards)
	handler.NewProductHandler(uc.Products).RegisterRoutes(e)
	handler.NewAdminProductHandler(uc.Products).RegisterRoutes(e, guards)
	handler.NewCartHandler(uc.Cart).RegisterRoutes(e, guards)
	handler.NewOrderHandler(uc.Orders, uc.Tracking).RegisterRoutes(e, guards)
	handler.NewAdminOrderHandler(uc.Orders, uc.Status, uc.Tracking).RegisterRoutes(e, guards)
	handler.NewAdminUserHandler(uc.Members).RegisterRoutes(e, guards)
	handler.NewReportHandler(uc.Reports).RegisterRoutes(e, guards)

	if events != nil {
		handler.NewEventHandler(events, 0).RegisterRoutes(e)
	}
	if !cfg.IsProd() {
		handler.NewTestHandler(uc.Cart).RegisterRoutes(e)
	}
}
