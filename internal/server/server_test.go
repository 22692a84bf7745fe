package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"testing"

	"eytstore/internal/config"
	"eytstore/internal/domain/model"
	"eytstore/internal/domain/pricing"
	"eytstore/internal/handler"
	"eytstore/internal/infra/memory"
	"eytstore/internal/infra/notify"
	"eytstore/internal/server"
	"eytstore/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "a-long-enough-pass"

type testApp struct {
	e     *echo.Echo
	store *memory.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := config.Config{JWTSecret: "server-test-secret", GoEnv: "test"}
	s := memory.NewStore()
	clock := usecase.SystemClock{}

	logger := log.New("test-events")
	logger.SetOutput(&bytes.Buffer{})
	events := notify.NewLogPublisher(logger)

	productUC := usecase.NewProductUsecase(s, s.Products(), clock)
	inventoryUC := usecase.NewInventoryUsecase(s, s.Products(), clock)
	orderUC := usecase.NewOrderUsecase(s, s.Addresses(), usecase.OrderSettings{
		Numbers: usecase.NewOrderNumberGenerator("EYT", 5),
		Pricing: pricing.DefaultPolicy(),
	}, clock, events)

	h := server.Handlers{
		Auth:         handler.NewAuthHandler(usecase.NewAuthUsecase(cfg.JWTSecret, s.Users(), clock)),
		Product:      handler.NewProductHandler(productUC, inventoryUC),
		Cart:         handler.NewCartHandler(usecase.NewCartUsecase(s.Carts(), s.CartItems(), s.Products())),
		Order:        handler.NewOrderHandler(orderUC),
		Address:      handler.NewAddressHandler(usecase.NewAddressUsecase(s.Addresses(), clock)),
		AdminOrder:   handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(s, clock, events)),
		AdminProduct: handler.NewAdminProductHandler(productUC, inventoryUC, usecase.NewAuditLogUsecase(s.AuditLogs())),
	}

	e := server.New(cfg, s.Users(), h)
	e.Logger.SetOutput(&bytes.Buffer{})
	return &testApp{e: e, store: s}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// 管理者は登録APIでは作れないのでストアへ直接入れる
func (a *testApp) seedAdmin(t *testing.T, email string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, a.store.Users().Create(context.Background(), &model.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}))
}

func (a *testApp) login(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": testPassword}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res usecase.AuthLoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Token.AccessToken
}

func (a *testApp) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": testPassword}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return a.login(t, email)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

var shipping = map[string]string{
	"name":        "Jane Doe",
	"line1":       "1 Main St",
	"city":        "Springfield",
	"state":       "IL",
	"postal_code": "62701",
	"country":     "US",
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutFlow(t *testing.T) {
	app := newTestApp(t)
	app.seedAdmin(t, "admin@example.com")
	adminToken := app.login(t, "admin@example.com")
	userToken := app.registerAndLogin(t, "alice@example.com")

	// 商品登録
	rec := app.do(t, http.MethodPost, "/admin/products", adminToken, map[string]any{
		"name": "Mug", "price": "20.00", "stock": 3, "is_active": true,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[usecase.ProductOutput](t, rec)

	// 一般ユーザーは管理APIを使えない
	rec = app.do(t, http.MethodGet, "/admin/orders", userToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodPost, "/cart", userToken, map[string]any{"product_id": product.ID, "quantity": 2}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/orders", userToken, map[string]any{
		"shipping": shipping, "payment_method": "card",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[usecase.OrderOutput](t, rec)
	assert.Regexp(t, regexp.MustCompile(`^EYT-\d{4}-000001$`), order.OrderNumber)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "40.00", order.Subtotal)

	rec = app.do(t, http.MethodGet, "/products/"+itoa(product.ID), "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[usecase.ProductOutput](t, rec).StockQuantity)

	// カートは空になっている
	rec = app.do(t, http.MethodPost, "/orders", userToken, map[string]any{
		"shipping": shipping, "payment_method": "card",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "your cart is empty", decode[handler.ErrorResponse](t, rec).Error)

	// 在庫を超える注文は409
	rec = app.do(t, http.MethodPost, "/cart", userToken, map[string]any{"product_id": product.ID, "quantity": 1}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = app.do(t, http.MethodPut, "/admin/products/"+itoa(product.ID)+"/stock", adminToken, map[string]any{
		"stock": 0, "reason": "damaged",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = app.do(t, http.MethodPost, "/orders", userToken, map[string]any{
		"shipping": shipping, "payment_method": "card",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// 管理者が発送→ユーザーはキャンセルできない
	rec = app.do(t, http.MethodPut, "/admin/orders/"+itoa(order.ID)+"/status", adminToken, map[string]string{"status": "processing"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = app.do(t, http.MethodPut, "/admin/orders/"+itoa(order.ID)+"/status", adminToken, map[string]string{"status": "shipped", "tracking_number": "1Z999"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1Z999", decode[usecase.OrderOutput](t, rec).TrackingNumber)

	rec = app.do(t, http.MethodPost, "/orders/"+itoa(order.ID)+"/cancel", userToken, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/admin/audit-logs?action=update_order_status", adminToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]model.AuditLog](t, rec), 2)
}

func TestCancelRestoresStock(t *testing.T) {
	app := newTestApp(t)
	app.seedAdmin(t, "admin@example.com")
	adminToken := app.login(t, "admin@example.com")
	userToken := app.registerAndLogin(t, "bob@example.com")

	rec := app.do(t, http.MethodPost, "/admin/products", adminToken, map[string]any{
		"name": "Lamp", "price": "120.00", "stock": 2, "is_active": true,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[usecase.ProductOutput](t, rec)

	rec = app.do(t, http.MethodPost, "/cart", userToken, map[string]any{"product_id": product.ID, "quantity": 2}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = app.do(t, http.MethodPost, "/orders", userToken, map[string]any{"shipping": shipping, "payment_method": "card"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[usecase.OrderOutput](t, rec)

	rec = app.do(t, http.MethodPost, "/orders/"+itoa(order.ID)+"/cancel", userToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode[usecase.OrderOutput](t, rec).Status)

	rec = app.do(t, http.MethodGet, "/products/"+itoa(product.ID)+"/availability?quantity=2", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"available":true`)

	// 他人の注文は見えない
	otherToken := app.registerAndLogin(t, "carol@example.com")
	rec = app.do(t, http.MethodGet, "/orders/"+itoa(order.ID), otherToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGuestCartSession(t *testing.T) {
	app := newTestApp(t)
	app.seedAdmin(t, "admin@example.com")
	adminToken := app.login(t, "admin@example.com")

	rec := app.do(t, http.MethodPost, "/admin/products", adminToken, map[string]any{
		"name": "Pen", "price": "2.00", "stock": 10, "is_active": true,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[usecase.ProductOutput](t, rec)

	rec = app.do(t, http.MethodPost, "/cart", "", map[string]any{"product_id": product.ID, "quantity": 3}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := rec.Header().Get(handler.CartSessionHeader)
	require.NotEmpty(t, session)

	rec = app.do(t, http.MethodGet, "/cart", "", nil, map[string]string{handler.CartSessionHeader: session})
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[usecase.CartResponse](t, rec)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "6.00", cart.Subtotal)

	// 別セッションは空
	rec = app.do(t, http.MethodGet, "/cart", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[usecase.CartResponse](t, rec).Items)

	// 匿名では注文できない
	rec = app.do(t, http.MethodPost, "/orders", "", map[string]any{"shipping": shipping, "payment_method": "card"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
