package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/dashboard"
	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/orders"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "secret123"
)

func init() {
	gin.SetMode(gin.TestMode)
	decimal.MarshalJSONWithoutQuotes = true
}

type testServer struct {
	t          *testing.T
	router     *gin.Engine
	store      *database.SQLStore
	adminToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	st, err := database.OpenSQL(ctx, "sqlite3", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close(context.Background()) })
	require.NoError(t, database.EnsureDefaultAdmin(ctx, st, adminEmail, adminPassword))

	policy := cart.NewPolicy(cart.PolicyThreshold, decimal.NewFromInt(30000), decimal.NewFromInt(500000))
	carts := cart.NewService(st, cart.NewMemoryRepository(), policy)
	composer := checkout.NewComposer(st, st, nil, checkout.NewMemoryGuard(time.Hour), checkout.Options{StockAware: true})

	r := gin.New()
	RegisterRoutes(r, Deps{
		Store:     st,
		Catalog:   catalog.NewService(st),
		Carts:     carts,
		Composer:  composer,
		Statuses:  orders.NewStatusService(st, true),
		Dashboard: dashboard.NewService(st, time.UTC),
		JWTSecret: "test-secret",
		AccessTTL: time.Hour,
	})

	s := &testServer{t: t, router: r, store: st}
	s.adminToken = s.login(adminEmail, adminPassword)
	return s
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(s.t, w, &resp)
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

func (s *testServer) createProduct(name string, price int64, stock int) models.Product {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/products", s.adminToken, gin.H{
		"name":     name,
		"price":    price,
		"category": "drinks",
		"stock":    stock,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Product models.Product `json:"product"`
	}
	decode(s.t, w, &resp)
	return resp.Product
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": adminEmail, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "password is required")

	newUser := gin.H{"username": "clerk", "email": "clerk@example.com", "password": "hunter22"}
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/register", "", newUser).Code)

	w = s.do(http.MethodPost, "/api/auth/register", s.adminToken, newUser)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "hunter22")

	w = s.do(http.MethodPost, "/api/auth/register", s.adminToken, newUser)
	assert.Equal(t, http.StatusConflict, w.Code)

	clerk := s.login("clerk@example.com", "hunter22")
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/auth/register", clerk, newUser).Code)

	w = s.do(http.MethodGet, "/api/auth/profile", clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile models.User
	decode(t, w, &profile)
	assert.Equal(t, "clerk", profile.Username)
	assert.Equal(t, models.RoleEmployee, profile.Role)
}

func TestProductEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/products", "", gin.H{"name": "Tea", "price": 1, "category": "drinks"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/products", s.adminToken, gin.H{"name": "Tea", "category": "drinks"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "price is required")

	w = s.do(http.MethodPost, "/api/products", s.adminToken, gin.H{"name": "Tea", "price": -1, "category": "drinks"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	tea := s.createProduct("Tea", 65000, 10)
	assert.NotZero(t, tea.ID)
	assert.Regexp(t, `^SKU-\d+-[0-9A-F]{9}$`, tea.SKU)
	assert.Equal(t, models.DefaultMinStock, tea.MinStock)
	s.createProduct("Coffee", 45000, 2)

	w = s.do(http.MethodGet, "/api/products?limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data       []models.Product `json:"data"`
		Pagination struct {
			Page       int64 `json:"page"`
			Limit      int64 `json:"limit"`
			Total      int64 `json:"total"`
			TotalPages int64 `json:"totalPages"`
		} `json:"pagination"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Data, 1)
	assert.Equal(t, int64(2), list.Pagination.Total)
	assert.Equal(t, int64(2), list.Pagination.TotalPages)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/products?page=0", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/products?isActive=maybe", "", nil).Code)

	w = s.do(http.MethodPut, fmt.Sprintf("/api/products/%d", tea.ID), s.adminToken, gin.H{"price": 70000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, fmt.Sprintf("/api/products/%d", tea.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Product
	decode(t, w, &got)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(70000)))
	assert.Equal(t, 10, got.Stock)

	w = s.do(http.MethodPut, fmt.Sprintf("/api/products/%d", tea.ID), s.adminToken, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/products/categories/list", "", nil)
	assert.JSONEq(t, `{"data":["drinks"]}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/products/alerts/low-stock", "", nil).Code)
	w = s.do(http.MethodGet, "/api/products/alerts/low-stock", s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Coffee")
	assert.NotContains(t, w.Body.String(), "Tea")

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", tea.ID), s.adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/products/%d", tea.ID), "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/products/abc", "", nil).Code)
}

func TestCartCheckoutFlow(t *testing.T) {
	s := newTestServer(t)
	tea := s.createProduct("Tea", 65000, 10)

	w := s.do(http.MethodPost, "/api/carts/web-1/items", "", gin.H{"productId": tea.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view cart.View
	decode(t, w, &view)
	assert.Equal(t, 2, view.ItemCount)
	assert.True(t, view.Subtotal.Equal(decimal.NewFromInt(130000)))
	assert.True(t, view.ShippingFee.Equal(decimal.NewFromInt(30000)))
	assert.True(t, view.Total.Equal(decimal.NewFromInt(160000)))

	w = s.do(http.MethodPut, fmt.Sprintf("/api/carts/web-1/items/%d", tea.ID), "", gin.H{"quantity": 99})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &view)
	assert.Equal(t, 10, view.ItemCount)

	w = s.do(http.MethodPut, fmt.Sprintf("/api/carts/web-1/items/%d", tea.ID), "", gin.H{"quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPut, "/api/carts/web-1/delivery", "", gin.H{"deliveryMethod": "teleport"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/checkout/delivery-options?cartId=web-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"method":"pickup"`)

	w = s.do(http.MethodPost, "/api/carts/web-1/checkout", "", gin.H{"customer": gin.H{"name": "Lan"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "phone")

	w = s.do(http.MethodPost, "/api/carts/web-1/checkout", "", gin.H{
		"customer":      gin.H{"name": "Lan", "phone": "0901"},
		"paymentMethod": "cash",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed struct {
		Order models.Order `json:"order"`
	}
	decode(t, w, &placed)
	order := placed.Order
	assert.True(t, order.Total.Equal(decimal.NewFromInt(160000)))
	assert.Equal(t, models.PaymentMethodCOD, order.PaymentMethod)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	require.NoError(t, order.CheckTotals())
	assert.NotZero(t, order.CustomerID)

	w = s.do(http.MethodGet, "/api/carts/web-1", "", nil)
	decode(t, w, &view)
	assert.Empty(t, view.Items)

	w = s.do(http.MethodPost, "/api/carts/web-1/checkout", "", gin.H{"customer": gin.H{"name": "Lan", "phone": "0901"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cart is empty")

	product, err := s.store.GetProduct(context.Background(), tea.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, product.Stock)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/customers/%d/stats", order.CustomerID), s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.CustomerStats
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.TotalOrders)
	assert.True(t, stats.TotalSpent.Equal(decimal.NewFromInt(160000)))

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/customers/%d", order.CustomerID), s.adminToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/carts/bad%20id", "", nil).Code)
}

func TestCreateOrderEndpoint(t *testing.T) {
	s := newTestServer(t)
	tea := s.createProduct("Tea", 65000, 3)

	body := gin.H{
		"customer": gin.H{"name": "Minh", "phone": "0902"},
		"items":    []gin.H{{"productId": tea.ID, "quantity": 5}},
	}
	w := s.do(http.MethodPost, "/api/orders", "", body)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	var stockErr struct {
		ProductID int64 `json:"productId"`
		Available int   `json:"available"`
		Requested int   `json:"requested"`
	}
	decode(t, w, &stockErr)
	assert.Equal(t, tea.ID, stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 5, stockErr.Requested)

	body["items"] = []gin.H{{"productId": 9999, "quantity": 1}}
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/orders", "", body).Code)

	body["items"] = []gin.H{{"productId": tea.ID, "quantity": 0}}
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/orders", "", body).Code)

	body["items"] = []gin.H{}
	w = s.do(http.MethodPost, "/api/orders", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cart is empty")

	body["items"] = []gin.H{{"productId": tea.ID, "quantity": 1}}
	body["tax"] = 5000
	body["discount"] = 1000
	body["deliveryMethod"] = "pickup"
	w = s.do(http.MethodPost, "/api/orders", s.adminToken, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed struct {
		Order models.Order `json:"order"`
	}
	decode(t, w, &placed)
	assert.True(t, placed.Order.Total.Equal(decimal.NewFromInt(65000+5000-1000+30000)))
	assert.NotZero(t, placed.Order.CreatedBy)

	id := placed.Order.ID
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", id), "", nil).Code)
	w = s.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", id), s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/orders?status=pending&search=Minh", s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), placed.Order.OrderNumber)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/orders?status=lost", s.adminToken, nil).Code)
}

func TestUpdateOrderStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	tea := s.createProduct("Tea", 10000, 5)

	w := s.do(http.MethodPost, "/api/orders", "", gin.H{
		"customer": gin.H{"name": "Hoa", "phone": "0903"},
		"items":    []gin.H{{"productId": tea.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed struct {
		Order models.Order `json:"order"`
	}
	decode(t, w, &placed)
	path := fmt.Sprintf("/api/orders/%d/status", placed.Order.ID)

	w = s.do(http.MethodPut, path, s.adminToken, gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPut, path, s.adminToken, gin.H{"status": "unknown"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, path, s.adminToken, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, path, s.adminToken, gin.H{"status": "processing", "paymentStatus": "paid"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	order, err := s.store.GetOrder(context.Background(), placed.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, "/api/orders/4242/status", s.adminToken, gin.H{"status": "processing"}).Code)
}

func TestCustomerEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/customers", s.adminToken, gin.H{"name": "An", "email": "bad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/customers", s.adminToken, gin.H{"name": "An", "email": "AN@Example.com", "phone": "0904"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Customer models.Customer `json:"customer"`
	}
	decode(t, w, &created)
	assert.Equal(t, "an@example.com", created.Customer.Email)
	assert.True(t, created.Customer.IsActive)

	path := fmt.Sprintf("/api/customers/%d", created.Customer.ID)
	w = s.do(http.MethodPut, path, s.adminToken, gin.H{"notes": "VIP"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/customers?search=An", s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "VIP")

	w = s.do(http.MethodGet, path+"/stats", s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalOrders":0,"totalSpent":0,"lastOrderDate":null,"averageOrderValue":0}`, w.Body.String())

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, path, s.adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, s.adminToken, nil).Code)
}

func TestDashboardEndpoints(t *testing.T) {
	s := newTestServer(t)
	tea := s.createProduct("Tea", 20000, 5)

	w := s.do(http.MethodPost, "/api/orders", "", gin.H{
		"customer": gin.H{"name": "Vy", "phone": "0905"},
		"items":    []gin.H{{"productId": tea.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/dashboard/overview", "", nil).Code)

	w = s.do(http.MethodGet, "/api/dashboard/overview", s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var overview dashboard.Overview
	decode(t, w, &overview)
	assert.Equal(t, int64(1), overview.Today.Orders)
	assert.Equal(t, int64(1), overview.Total.Customers)
	require.Len(t, overview.TopProducts, 1)
	assert.Equal(t, 2, overview.TopProducts[0].Quantity)

	w = s.do(http.MethodGet, "/api/dashboard/sales-chart?days=abc", s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var series struct {
		Data []dashboard.DailySales `json:"data"`
	}
	decode(t, w, &series)
	require.Len(t, series.Data, 1)
	assert.Equal(t, int64(1), series.Data[0].Orders)

	w = s.do(http.MethodGet, "/api/dashboard/revenue-by-category?days=7", s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"drinks"`)
}

func TestRespondServiceError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"empty cart", apperr.ErrEmptyCart, http.StatusBadRequest, "cart is empty"},
		{"validation", apperr.Invalid("tax", "tax must be zero or greater"), http.StatusBadRequest, `"field":"tax"`},
		{"missing info", apperr.MissingCustomerInfoError{Fields: []string{"phone"}}, http.StatusBadRequest, `"fields":["phone"]`},
		{"not found", fmt.Errorf("wrap: %w", apperr.NotFoundError{Resource: "order", ID: 3}), http.StatusNotFound, "order 3 not found"},
		{"stock", apperr.InsufficientStockError{ProductID: 4, Available: 1, Requested: 2}, http.StatusConflict, `"available":1`},
		{"conflict", apperr.ConflictError{Message: "dup"}, http.StatusConflict, "dup"},
		{"transition", apperr.TransitionError{Field: "status", From: "pending", To: "shipped"}, http.StatusUnprocessableEntity, `"to":"shipped"`},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondServiceError(c, "TEST", tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestParsePaginationParams(t *testing.T) {
	page, limit, err := parsePaginationParams("", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), page)
	assert.Equal(t, int64(defaultPageLimit), limit)

	_, limit, err = parsePaginationParams("2", "1000")
	require.NoError(t, err)
	assert.Equal(t, int64(maxPageLimit), limit)

	_, _, err = parsePaginationParams("x", "")
	assert.Error(t, err)
	_, _, err = parsePaginationParams("1", "0")
	assert.Error(t, err)
}
