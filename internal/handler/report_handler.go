package handler

import (
	"net/http"
	"time"

	"estore/internal/domain/model"
	"estore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ReportHandler struct {
	uc *usecase.ReportUsecase
}

func NewReportHandler(uc *usecase.ReportUsecase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

func (h *ReportHandler) RegisterRoutes(e *echo.Echo, guards Guards) {
	e.GET("/reports/sales", h.sales, guards.Roles(model.RoleAdmin)...)
}

// to が日付だけならその日の終わりまで含める
func parseReportRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	if fromRaw == "" || toRaw == "" {
		return time.Time{}, time.Time{}, usecase.NewHTTPError(http.StatusBadRequest, "from and to required")
	}
	from, err := parseTimeParam(fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, usecase.NewHTTPError(http.StatusBadRequest, "invalid from")
	}
	to, err := parseTimeParam(toRaw)
	if err != nil {
		return time.Time{}, time.Time{}, usecase.NewHTTPError(http.StatusBadRequest, "invalid to")
	}
	if len(toRaw) == len("2006-01-02") {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

func (h *ReportHandler) sales(c echo.Context) error {
	from, to, err := parseReportRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.GenerateReport(c.Request().Context(), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
