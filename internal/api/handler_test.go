package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tienda-service/internal/models"
	"tienda-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Authenticate(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockUsers) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]models.User)
	return rows, args.Error(1)
}

func (m *MockUsers) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockUsers) CreateUser(ctx context.Context, req *service.UserRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockUsers) UpdateUser(ctx context.Context, id int64, req *service.UserRequest) (*models.User, error) {
	args := m.Called(ctx, id, req)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockUsers) DeleteUser(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockSales struct {
	mock.Mock
}

func (m *MockSales) Sell(ctx context.Context, req *service.SellRequest) (*models.Sale, bool, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*models.Sale)
	return s, args.Bool(1), args.Error(2)
}

func (m *MockSales) ListSales(ctx context.Context) ([]models.Sale, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]models.Sale)
	return rows, args.Error(1)
}

func (m *MockSales) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*models.Sale)
	return s, args.Error(1)
}

func (m *MockSales) DeleteSale(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockInventory struct {
	mock.Mock
}

func (m *MockInventory) ReceiveStock(ctx context.Context, req *service.ReceiveStockRequest) (*models.StockEntry, error) {
	args := m.Called(ctx, req)
	e, _ := args.Get(0).(*models.StockEntry)
	return e, args.Error(1)
}

func (m *MockInventory) ListStockEntries(ctx context.Context) ([]models.StockEntry, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]models.StockEntry)
	return rows, args.Error(1)
}

func (m *MockInventory) DeleteStockEntry(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockDashboard struct {
	mock.Mock
}

func (m *MockDashboard) Build(ctx context.Context) *service.Dashboard {
	return m.Called(ctx).Get(0).(*service.Dashboard)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

const (
	vendorID = "1"
	viewerID = "2"
)

type fixture struct {
	router    *gin.Engine
	users     *MockUsers
	sales     *MockSales
	inventory *MockInventory
	dashboard *MockDashboard
}

func newFixture(deps map[string]Pinger) *fixture {
	gin.SetMode(gin.TestMode)

	f := &fixture{
		router:    gin.New(),
		users:     new(MockUsers),
		sales:     new(MockSales),
		inventory: new(MockInventory),
		dashboard: new(MockDashboard),
	}
	f.users.On("Authenticate", mock.Anything, int64(1)).
		Return(&models.User{ID: 1, Role: models.RoleVendor, IsActive: true}, nil)
	f.users.On("Authenticate", mock.Anything, int64(2)).
		Return(&models.User{ID: 2, Role: "viewer", IsActive: true}, nil)
	f.users.On("Authenticate", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("user: %w", models.ErrNotFound))

	h := NewHandler("tienda-service-test", Services{
		Users:     f.users,
		Inventory: f.inventory,
		Sales:     f.sales,
		Dashboard: f.dashboard,
	}, deps)
	h.SetupRoutes(f.router)
	return f
}

func (f *fixture) do(method, path, userID string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(nil)
	w := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadinessCheck(t *testing.T) {
	f := newFixture(map[string]Pinger{"postgres": stubPinger{}, "redis": stubPinger{err: errors.New("refused")}})
	w := f.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis")

	f = newFixture(map[string]Pinger{"postgres": stubPinger{}})
	w = f.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdentity(t *testing.T) {
	f := newFixture(nil)
	f.sales.On("ListSales", mock.Anything).Return([]models.Sale{}, nil)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/sales", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/sales", "abc", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/sales", "99", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/sales", viewerID, nil).Code)
}

func TestMutationsRequireCapability(t *testing.T) {
	f := newFixture(nil)

	w := f.do(http.MethodPost, "/api/v1/sales", viewerID, gin.H{"product_id": 1, "quantity": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodDelete, "/api/v1/stock-entries/3", viewerID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	f.sales.AssertNotCalled(t, "Sell", mock.Anything, mock.Anything)
	f.inventory.AssertNotCalled(t, "DeleteStockEntry", mock.Anything, mock.Anything)
}

func TestCreateSale(t *testing.T) {
	f := newFixture(nil)
	f.sales.On("Sell", mock.Anything, mock.MatchedBy(func(r *service.SellRequest) bool {
		return r.ProductID == 4 && r.Quantity == 3 && r.IdempotencyKey == "k-1"
	})).Return(&models.Sale{
		ID:          10,
		ProductID:   4,
		Quantity:    3,
		UnitPrice:   decimal.RequireFromString("5.00"),
		TotalAmount: decimal.RequireFromString("15.00"),
	}, true, nil).Once()

	w := f.do(http.MethodPost, "/api/v1/sales", vendorID, gin.H{"product_id": 4, "quantity": 3}, idempotencyKeyHeader, "k-1")
	require.Equal(t, http.StatusCreated, w.Code)

	var sale models.Sale
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sale))
	assert.Equal(t, int64(10), sale.ID)
	assert.Equal(t, "15", sale.TotalAmount.String())
}

func TestCreateSaleReplayReturnsOK(t *testing.T) {
	f := newFixture(nil)
	f.sales.On("Sell", mock.Anything, mock.Anything).Return(&models.Sale{ID: 10}, false, nil)

	w := f.do(http.MethodPost, "/api/v1/sales", vendorID, gin.H{"product_id": 4, "quantity": 3}, idempotencyKeyHeader, "k-1")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", fmt.Errorf("%w: quantity", models.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("product 9: %w", models.ErrNotFound), http.StatusNotFound},
		{"insufficient stock", fmt.Errorf("sell: %w", models.ErrInsufficientStock), http.StatusConflict},
		{"conflict", fmt.Errorf("%w: in use", models.ErrConflict), http.StatusConflict},
		{"transient", fmt.Errorf("%w: deadlock", models.ErrTransientStorage), http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			f.sales.On("Sell", mock.Anything, mock.Anything).Return(nil, false, tt.err)

			w := f.do(http.MethodPost, "/api/v1/sales", vendorID, gin.H{"product_id": 1, "quantity": 5})
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusServiceUnavailable {
				assert.Equal(t, "1", w.Header().Get("Retry-After"))
			}
		})
	}
}

func TestCreateSaleBadBody(t *testing.T) {
	f := newFixture(nil)

	w := f.do(http.MethodPost, "/api/v1/sales", vendorID, gin.H{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.sales.AssertNotCalled(t, "Sell", mock.Anything, mock.Anything)
}

func TestReceiveStock(t *testing.T) {
	f := newFixture(nil)
	f.inventory.On("ReceiveStock", mock.Anything, &service.ReceiveStockRequest{ProductID: 4, Quantity: 10, Note: "proveedor"}).
		Return(&models.StockEntry{ID: 1, ProductID: 4, Quantity: 10, Note: "proveedor"}, nil)

	w := f.do(http.MethodPost, "/api/v1/stock-entries", vendorID, gin.H{"product_id": 4, "quantity": 10, "note": "proveedor"})
	assert.Equal(t, http.StatusCreated, w.Code)
	f.inventory.AssertExpectations(t)
}

func TestInvalidIDParam(t *testing.T) {
	f := newFixture(nil)
	w := f.do(http.MethodGet, "/api/v1/sales/zero", viewerID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboard(t *testing.T) {
	f := newFixture(nil)
	f.dashboard.On("Build", mock.Anything).Return(&service.Dashboard{
		Labels: []string{"15 Mar"},
		Sales:  []decimal.Decimal{decimal.Zero},
		KPI:    service.KPI{Revenue: decimal.Zero, TopSell: service.NoTopSeller},
	})

	w := f.do(http.MethodGet, "/api/v1/dashboard", viewerID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	kpi := body["kpi"].(map[string]interface{})
	assert.Equal(t, "—", kpi["top_sell"].(map[string]interface{})["name"])
}
