package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"estore/internal/config"
	"estore/internal/domain/model"
	repo "estore/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Loginで使うFindByEmailだけ実装
type MemberRepoMock struct{ mock.Mock }

func (m *MemberRepoMock) FindByEmail(ctx context.Context, email string) (model.Member, error) {
	args := m.Called(ctx, email)
	mem, _ := args.Get(0).(model.Member)
	return mem, args.Error(1)
}

func (m *MemberRepoMock) List(ctx context.Context, page, limit int) ([]model.Member, int64, error) {
	panic("not used in AuthUsecase tests")
}

func (m *MemberRepoMock) Search(ctx context.Context, q repo.MemberSearchQuery) ([]model.Member, error) {
	panic("not used in AuthUsecase tests")
}

func (m *MemberRepoMock) FindByID(ctx context.Context, id int64) (model.Member, error) {
	panic("not used in AuthUsecase tests")
}

func (m *MemberRepoMock) Create(ctx context.Context, mem model.Member) (model.Member, error) {
	panic("not used in AuthUsecase tests")
}

func (m *MemberRepoMock) Update(ctx context.Context, mem model.Member) error {
	panic("not used in AuthUsecase tests")
}

func (m *MemberRepoMock) Delete(ctx context.Context, id int64) error {
	panic("not used in AuthUsecase tests")
}

func hashed(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthUsecase_Login_IssuesTokenWithClaims(t *testing.T) {
	members := new(MemberRepoMock)
	jwtCfg := config.JWTConfig{Secret: "test-secret", AccessTTL: 10 * time.Minute}
	uc := NewAuthUsecase(jwtCfg, members, nil)

	m := model.Member{ID: 7, Email: "a@gmail.com", Role: model.RoleStaff, TokenVersion: 3, PasswordHash: hashed(t, "secret123")}
	members.On("FindByEmail", mock.Anything, "a@gmail.com").Return(m, nil).Once()

	// emailは正規化されてから引く
	out, err := uc.Login(context.Background(), "  A@Gmail.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, 600, out.Token.ExpiresIn)
	assert.Equal(t, 3, out.Token.TokenVersion)

	parsed, err := jwt.Parse(out.Token.AccessToken, func(tok *jwt.Token) (interface{}, error) {
		return []byte(jwtCfg.Secret), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(7), claims["sub"])
	assert.Equal(t, "STAFF", claims["role"])
	assert.Equal(t, float64(3), claims["tv"])

	members.AssertExpectations(t)
}

func TestAuthUsecase_Login_WrongPassword(t *testing.T) {
	members := new(MemberRepoMock)
	uc := NewAuthUsecase(config.JWTConfig{Secret: "s"}, members, nil)

	members.On("FindByEmail", mock.Anything, "a@gmail.com").
		Return(model.Member{ID: 1, PasswordHash: hashed(t, "secret123")}, nil).Once()

	_, err := uc.Login(context.Background(), "a@gmail.com", "nope")
	requireStatus(t, err, http.StatusUnauthorized)
	members.AssertExpectations(t)
}

func TestAuthUsecase_Login_UnknownEmailAndDBError(t *testing.T) {
	members := new(MemberRepoMock)
	uc := NewAuthUsecase(config.JWTConfig{Secret: "s"}, members, nil)

	members.On("FindByEmail", mock.Anything, "ghost@gmail.com").Return(nil, repo.ErrNotFound).Once()
	members.On("FindByEmail", mock.Anything, "boom@gmail.com").Return(nil, errors.New("conn reset")).Once()

	_, err := uc.Login(context.Background(), "ghost@gmail.com", "secret123")
	requireStatus(t, err, http.StatusUnauthorized)

	_, err = uc.Login(context.Background(), "boom@gmail.com", "secret123")
	requireStatus(t, err, http.StatusInternalServerError)

	_, err = uc.Login(context.Background(), "", "secret123")
	requireStatus(t, err, http.StatusBadRequest)

	members.AssertExpectations(t)
}

func TestAuthUsecase_RegisterForcesUserRole(t *testing.T) {
	env := newEnv(t, envOptions{})
	auth := NewAuthUsecase(config.JWTConfig{Secret: "s"}, env.repos.Members(), env.members)

	m, err := auth.Register(context.Background(), MemberInput{
		Email:       "New@Gmail.com",
		CompanyName: "Acme",
		Password:    "secret123",
		Role:        model.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, m.Role)
	assert.Equal(t, "new@gmail.com", m.Email)

	out, err := auth.Login(context.Background(), "new@gmail.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, m.ID, out.Member.ID)
}
