package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"estore/internal/config"
	"estore/internal/domain/model"
	"estore/internal/testutil"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testApp struct {
	e  *echo.Echo
	db *gorm.DB
}

func testConfig() config.Config {
	return config.Config{
		App:    config.AppConfig{Env: "test"},
		JWT:    config.JWTConfig{Secret: "test-secret", AccessTTL: time.Hour},
		Member: config.MemberConfig{RequireGmail: true},
	}
}

func newTestApp(t *testing.T, cfg config.Config) *testApp {
	t.Helper()
	gdb := testutil.NewDB(t)
	uc := BuildUsecases(cfg, gdb, Integrations{})
	return &testApp{e: NewEcho(cfg, uc, nil), db: gdb}
}

func (a *testApp) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (a *testApp) login(t *testing.T, email, password string) string {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	decode(t, rec, &out)
	require.NotEmpty(t, out.Token.AccessToken)
	return out.Token.AccessToken
}

type cartBody struct {
	Items []struct {
		ProductID int64           `json:"product_id"`
		Quantity  int64           `json:"quantity"`
		UnitPrice decimal.Decimal `json:"unit_price"`
	} `json:"items"`
	Total        decimal.Decimal `json:"total"`
	ErrorMessage string          `json:"error_message"`
	Warning      string          `json:"warning"`
}

func TestRegisterAndLogin(t *testing.T) {
	a := newTestApp(t, testConfig())

	rec := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":        "Buyer@Gmail.com",
		"password":     "secret123",
		"company_name": "Buyer Co",
		"city":         "Osaka",
		"country":      "Japan",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var m model.Member
	decode(t, rec, &m)
	assert.Equal(t, "buyer@gmail.com", m.Email)
	assert.Equal(t, model.RoleUser, m.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	// 同じemailは409
	rec = a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "buyer@gmail.com", "password": "secret123",
		"company_name": "Other", "city": "Osaka", "country": "Japan",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// gmail以外は400
	rec = a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "buyer@example.com", "password": "secret123",
		"company_name": "Other", "city": "Osaka", "country": "Japan",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token := a.login(t, "buyer@gmail.com", "secret123")

	rec = a.do(t, http.MethodGet, "/me/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "buyer@gmail.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleGuards(t *testing.T) {
	a := newTestApp(t, testConfig())
	testutil.SeedMember(t, a.db, "user@gmail.com", "User Co", model.RoleUser, "secret123")
	testutil.SeedMember(t, a.db, "staff@gmail.com", "Staff Co", model.RoleStaff, "secret123")
	user := a.login(t, "user@gmail.com", "secret123")
	staff := a.login(t, "staff@gmail.com", "secret123")

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/members", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/members", user, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/orders", user, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/orders", staff, nil).Code)

	// STAFFはShippingを一覧できない
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/orders?status=Shipping", staff, nil).Code)

	// 公開API
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/products", "", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/categories", "", nil).Code)
}

func TestForceLogoutInvalidatesToken(t *testing.T) {
	a := newTestApp(t, testConfig())
	testutil.SeedMember(t, a.db, "admin@gmail.com", "Admin Co", model.RoleAdmin, "secret123")
	u := testutil.SeedMember(t, a.db, "user@gmail.com", "User Co", model.RoleUser, "secret123")
	admin := a.login(t, "admin@gmail.com", "secret123")
	user := a.login(t, "user@gmail.com", "secret123")

	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/cart", user, nil).Code)

	rec := a.do(t, http.MethodPost, "/members/"+strconv.FormatInt(u.ID, 10)+"/force-logout", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/cart", user, nil).Code)
}

func TestCheckoutScenario(t *testing.T) {
	a := newTestApp(t, testConfig())
	testutil.SeedMember(t, a.db, "admin@gmail.com", "Admin Co", model.RoleAdmin, "secret123")
	testutil.SeedMember(t, a.db, "user@gmail.com", "User Co", model.RoleUser, "secret123")
	admin := a.login(t, "admin@gmail.com", "secret123")
	user := a.login(t, "user@gmail.com", "secret123")

	// カテゴリと商品はADMINが作る
	rec := a.do(t, http.MethodPost, "/categories", admin, map[string]string{"category_name": "Tools"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat model.Category
	decode(t, rec, &cat)

	rec = a.do(t, http.MethodPost, "/products", admin, map[string]interface{}{
		"category_id":    cat.ID,
		"product_name":   "Widget",
		"weight":         "1kg",
		"unit_price":     "10",
		"units_in_stock": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p model.Product
	decode(t, rec, &p)

	// USERは商品を作れない
	rec = a.do(t, http.MethodPost, "/products", user, map[string]interface{}{
		"category_id": cat.ID, "product_name": "Nope", "unit_price": "1",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// 在庫超過はerror_messageつきのカートで400
	rec = a.do(t, http.MethodPost, "/cart/items", user, map[string]interface{}{"product_id": p.ID, "quantity": 6})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var cb cartBody
	decode(t, rec, &cb)
	assert.Contains(t, cb.ErrorMessage, "stock exceeded")
	assert.Empty(t, cb.Items)

	rec = a.do(t, http.MethodPost, "/cart/items", user, map[string]interface{}{"product_id": p.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cb = cartBody{}
	decode(t, rec, &cb)
	require.Len(t, cb.Items, 1)
	assert.Equal(t, int64(2), cb.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(20).Equal(cb.Total))

	rec = a.do(t, http.MethodPost, "/orders/checkout", user, map[string]interface{}{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		OrderID       int64 `json:"order_id"`
		StockReserved bool  `json:"stock_reserved"`
	}
	decode(t, rec, &created)
	assert.True(t, created.StockReserved)
	assert.Equal(t, int64(3), testutil.StockOf(t, a.db, p.ID))

	// カートは消えている
	rec = a.do(t, http.MethodGet, "/cart", user, nil)
	cb = cartBody{}
	decode(t, rec, &cb)
	assert.Empty(t, cb.Items)

	orderPath := "/orders/" + strconv.FormatInt(created.OrderID, 10)

	rec = a.do(t, http.MethodGet, orderPath, user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Status     int             `json:"status"`
		StatusName string          `json:"status_name"`
		Total      decimal.Decimal `json:"total"`
	}
	decode(t, rec, &view)
	assert.Equal(t, "Spending", view.StatusName)
	assert.True(t, decimal.NewFromInt(20).Equal(view.Total))

	// 承認→履歴は2件
	rec = a.do(t, http.MethodPut, orderPath+"/status", admin, map[string]string{"status": "Approve"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, orderPath+"/tracking", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tracks []struct {
		StatusName string `json:"status_name"`
		MemberName string `json:"member_name"`
	}
	decode(t, rec, &tracks)
	require.Len(t, tracks, 2)
	assert.Equal(t, "Spending", tracks[0].StatusName)
	assert.Equal(t, "Approve", tracks[1].StatusName)
	assert.Equal(t, "User Co", tracks[1].MemberName)

	rec = a.do(t, http.MethodGet, "/me/orders", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine struct {
		Total int64 `json:"total"`
	}
	decode(t, rec, &mine)
	assert.Equal(t, int64(1), mine.Total)

	from := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	to := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	rec = a.do(t, http.MethodGet, "/reports/sales?from="+from+"&to="+to, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report struct {
		Rows []struct {
			ProductName   string `json:"product_name"`
			TotalQuantity int64  `json:"total_quantity"`
		} `json:"rows"`
	}
	decode(t, rec, &report)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "Widget", report.Rows[0].ProductName)
	assert.Equal(t, int64(2), report.Rows[0].TotalQuantity)
}

func TestOtherMembersOrderIsNotFound(t *testing.T) {
	a := newTestApp(t, testConfig())
	owner := testutil.SeedMember(t, a.db, "owner@gmail.com", "Owner", model.RoleUser, "secret123")
	testutil.SeedMember(t, a.db, "other@gmail.com", "Other", model.RoleUser, "secret123")
	cat := testutil.SeedCategory(t, a.db, "Tools")
	p := testutil.SeedProduct(t, a.db, cat.ID, "Widget", "10", 5)

	ownerToken := a.login(t, "owner@gmail.com", "secret123")
	otherToken := a.login(t, "other@gmail.com", "secret123")

	rec := a.do(t, http.MethodPost, "/orders", ownerToken, map[string]interface{}{
		"lines": []map[string]interface{}{{"product_id": p.ID, "quantity": 1, "unit_price": "10"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		OrderID int64 `json:"order_id"`
	}
	decode(t, rec, &created)

	path := "/orders/" + strconv.FormatInt(created.OrderID, 10)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, path, ownerToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, path, otherToken, nil).Code)

	// USERは他人名義で注文できない
	rec = a.do(t, http.MethodPost, "/orders", otherToken, map[string]interface{}{
		"member_id": owner.ID,
		"lines":     []map[string]interface{}{{"product_id": p.ID, "quantity": 1, "unit_price": "10"}},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTestCartRouteOnlyOutsideProd(t *testing.T) {
	a := newTestApp(t, testConfig())
	rec := a.do(t, http.MethodDelete, "/test/carts/1", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	cfg := testConfig()
	cfg.App.Env = "prod"
	prod := newTestApp(t, cfg)
	rec = prod.do(t, http.MethodDelete, "/test/carts/1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}
