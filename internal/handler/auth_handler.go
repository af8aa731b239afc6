package handler

import (
	"net/http"

	"estore/internal/middleware"
	"estore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	uc *usecase.AuthUsecase
	// 1分あたりの試行回数
	loginPerMinute int
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.AuthUsecase, loginPerMinute int) *AuthHandler {
	return &AuthHandler{uc: uc, loginPerMinute: loginPerMinute}
}

// /auth/register のリクエストボディ。
type RegisterRequest struct {
	Email       string `json:"email" validate:"required"`
	Password    string `json:"password" validate:"required"`
	CompanyName string `json:"company_name"`
	City        string `json:"city"`
	Country     string `json:"country"`
}

// /auth/login のリクエストボディ。
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/auth")
	if h.loginPerMinute > 0 {
		g.Use(middleware.RateLimit(h.loginPerMinute, h.loginPerMinute))
	}

	g.POST("/register", h.register)
	g.POST("/login", h.login)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	m, err := h.uc.Register(c.Request().Context(), usecase.MemberInput{
		Email:       req.Email,
		Password:    req.Password,
		CompanyName: req.CompanyName,
		City:        req.City,
		Country:     req.Country,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, m)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
