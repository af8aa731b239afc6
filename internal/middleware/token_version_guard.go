package middleware

import (
	"net/http"

	"estore/internal/repository"

	"github.com/labstack/echo/v4"
)

// tvがDBのtoken_versionと違えば401。
// パスワード変更・role変更・強制ログアウトでtoken_versionが上がる。
func TokenVersionGuard(members repository.MemberRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			memberID, _ := c.Get(CtxMemberIDKey).(int64)
			tv, hasTV := c.Get(CtxTokenVersionKey).(int)
			if memberID <= 0 || !hasTV {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			m, err := members.FindByID(c.Request().Context(), memberID)
			if err != nil || m.TokenVersion != tv {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			return next(c)
		}
	}
}
