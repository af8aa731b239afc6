package middleware

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"estore/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxMemberIDKey     = "member_id"     // int64
	CtxMemberRoleKey   = "member_role"   // string
	CtxTokenVersionKey = "token_version" // int
)

var errInvalidToken = errors.New("invalid access token")

// アクセストークンから取り出した本人情報
type Principal struct {
	MemberID     int64
	Role         string
	TokenVersion int
}

// HS256で署名されたトークンを検証し、sub/role/tvを取り出す
func ParseAccessToken(secret, raw string) (Principal, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Principal{}, errInvalidToken
	}

	var p Principal
	if p.MemberID, err = claimInt64(claims["sub"]); err != nil || p.MemberID <= 0 {
		return Principal{}, fmt.Errorf("%w: sub", errInvalidToken)
	}
	if p.Role, ok = claims["role"].(string); !ok || p.Role == "" {
		return Principal{}, fmt.Errorf("%w: role", errInvalidToken)
	}
	tv, err := claimInt64(claims["tv"])
	if err != nil || tv < 0 || tv > math.MaxInt32 {
		return Principal{}, fmt.Errorf("%w: tv", errInvalidToken)
	}
	p.TokenVersion = int(tv)
	return p, nil
}

// "Bearer xxx" からトークン部分だけ
func bearerToken(header string) (string, bool) {
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}

// Authorizationヘッダのアクセストークンを検証してcontextへ載せる
func AuthJWT(cfg config.JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			p, err := ParseAccessToken(cfg.Secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxMemberIDKey, p.MemberID)
			c.Set(CtxMemberRoleKey, p.Role)
			c.Set(CtxTokenVersionKey, p.TokenVersion)
			return next(c)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// JSONの数値はfloat64で来る。文字列のsubも受ける
func claimInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, errors.New("not an integer")
		}
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("missing claim")
	}
}
