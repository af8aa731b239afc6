package handler

import (
	"net/http"

	"estore/internal/domain/model"
	"estore/internal/repository"
	"estore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 会員管理（ADMIN）と本人のプロフィール
type AdminUserHandler struct {
	uc *usecase.MemberUsecase
}

func NewAdminUserHandler(uc *usecase.MemberUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc}
}

// 形式チェックはMemberValidatorに任せる
type MemberRequest struct {
	Email       string     `json:"email"`
	CompanyName string     `json:"company_name"`
	City        string     `json:"city"`
	Country     string     `json:"country"`
	Password    string     `json:"password"`
	Role        model.Role `json:"role"`
}

func (req MemberRequest) toInput() usecase.MemberInput {
	return usecase.MemberInput{
		Email:       req.Email,
		CompanyName: req.CompanyName,
		City:        req.City,
		Country:     req.Country,
		Password:    req.Password,
		Role:        req.Role,
	}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo, guards Guards) {
	// /members 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := e.Group("/members", guards.Roles(model.RoleAdmin)...)
	admin.GET("", h.list)
	admin.GET("/search", h.search)
	admin.POST("", h.create)
	admin.GET("/:id", h.detail)
	admin.PUT("/:id", h.update)
	admin.DELETE("/:id", h.delete)
	admin.POST("/:id/force-logout", h.forceLogout)

	me := e.Group("/me", guards.Authenticated()...)
	me.GET("/profile", h.profile)
	me.PUT("/profile", h.updateProfile)
}

func (h *AdminUserHandler) list(c echo.Context) error {
	page, limit, err := parsePaging(c, 50)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) search(c echo.Context) error {
	out, err := h.uc.Search(c.Request().Context(), repository.MemberSearchQuery{
		Email:       c.QueryParam("email"),
		CompanyName: c.QueryParam("company_name"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) create(c echo.Context) error {
	var req MemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	m, err := h.uc.Create(c.Request().Context(), req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *AdminUserHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid member_id"})
	}

	m, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *AdminUserHandler) update(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid member_id"})
	}

	var req MemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	m, err := h.uc.Update(c.Request().Context(), id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *AdminUserHandler) delete(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid member_id"})
	}

	if err := h.uc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminUserHandler) forceLogout(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid member_id"})
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AdminUserHandler) profile(c echo.Context) error {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	m, err := h.uc.Get(c.Request().Context(), memberID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// roleは無視される
func (h *AdminUserHandler) updateProfile(c echo.Context) error {
	memberID, ok := getMemberIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req MemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	m, err := h.uc.UpdateProfile(c.Request().Context(), memberID, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
