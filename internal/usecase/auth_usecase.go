package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"estore/internal/config"
	"estore/internal/domain/model"
	repo "estore/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

type AuthUsecase struct {
	jwt     config.JWTConfig
	members repo.MemberRepository
	signup  *MemberUsecase
	now     func() time.Time
}

func NewAuthUsecase(jwtCfg config.JWTConfig, members repo.MemberRepository, signup *MemberUsecase) *AuthUsecase {
	return &AuthUsecase{
		jwt:     jwtCfg,
		members: members,
		signup:  signup,
		now:     time.Now,
	}
}

type JwtAccessTokenDTO struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type AuthLoginResponse struct {
	Member model.Member      `json:"member"`
	Token  JwtAccessTokenDTO `json:"token"`
}

// 登録はUSERロール固定
func (u *AuthUsecase) Register(ctx context.Context, in MemberInput) (model.Member, error) {
	in.Role = model.RoleUser
	return u.signup.Create(ctx, in)
}

func (u *AuthUsecase) Login(ctx context.Context, email, password string) (AuthLoginResponse, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return AuthLoginResponse{}, NewHTTPError(http.StatusBadRequest, "email and password required")
	}

	m, err := u.members.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return AuthLoginResponse{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return AuthLoginResponse{}, dbError("auth.login", err)
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)); err != nil {
		return AuthLoginResponse{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, expiresIn, err := u.issueAccessToken(m)
	if err != nil {
		return AuthLoginResponse{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return AuthLoginResponse{
		Member: m,
		Token: JwtAccessTokenDTO{
			AccessToken:  token,
			ExpiresIn:    expiresIn,
			TokenVersion: m.TokenVersion,
		},
	}, nil
}

func (u *AuthUsecase) issueAccessToken(m model.Member) (string, int, error) {
	ttl := u.jwt.AccessTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	now := u.now()

	claims := jwt.MapClaims{
		"sub":  m.ID,
		"role": strings.ToUpper(string(m.Role)),
		"tv":   m.TokenVersion,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(u.jwt.Secret))
	if err != nil {
		return "", 0, err
	}
	return signed, int(ttl.Seconds()), nil
}
