package order

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/backend"
)

func makeApp(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				claims := auth.Claims(auth.Session{UserID: id, Role: c.Get("X-Role")})
				c.Locals(auth.LocalsKey, &jwt.Token{Claims: claims})
			}
		}
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	h.RegisterAdminRoutes(app.Group("/api/v1/admin", auth.RequireAdmin()))
	return app
}

func seedOrders() []Order {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	item := Item{ProductID: 1, Name: "Banana", Quantity: 3, UnitPrice: decimal.RequireFromString("0.49")}
	return []Order{
		{ID: 1, UserID: 42, Items: []Item{item}, Total: decimal.RequireFromString("7.46"), Status: StatusPaid, CreatedAt: base},
		{ID: 2, UserID: 42, Items: []Item{item}, Total: decimal.RequireFromString("7.46"), Status: StatusDelivered, CreatedAt: base.Add(time.Hour)},
		{ID: 3, UserID: 7, Items: []Item{item}, Total: decimal.RequireFromString("7.46"), Status: StatusPending, CreatedAt: base},
	}
}

func do(t *testing.T, app *fiber.App, method, path, user, role, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
		req.Header.Set("X-Role", role)
	}
	res, err := app.Test(req)
	require.NoError(t, err)
	return res
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPaid, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusPaid, StatusPending, false},
		{StatusPaid, StatusPaid, false},
		{StatusShipped, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPaid, false},
		{"lost", StatusPaid, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), tc.from+"->"+tc.to)
	}
}

func TestGetOrders_OwnOnlyNewestFirst(t *testing.T) {
	app := makeApp(NewHandler(NewService(NewInMemoryRepository(seedOrders()), nil)))

	res := do(t, app, "GET", "/api/v1/orders", "", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	res = do(t, app, "GET", "/api/v1/orders", "42", auth.RoleCustomer, "")
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var got []Order
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].ID)
	assert.Equal(t, 1, got[1].ID)

	res = do(t, app, "GET", "/api/v1/orders/1", "42", auth.RoleCustomer, "")
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	res = do(t, app, "GET", "/api/v1/orders/3", "42", auth.RoleCustomer, "")
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode, "someone else's order")
}

func TestAdminOrders(t *testing.T) {
	app := makeApp(NewHandler(NewService(NewInMemoryRepository(seedOrders()), nil)))

	res := do(t, app, "GET", "/api/v1/admin/orders", "42", auth.RoleCustomer, "")
	assert.Equal(t, fiber.StatusForbidden, res.StatusCode)

	res = do(t, app, "GET", "/api/v1/admin/orders?status=pending", "1", auth.RoleAdmin, "")
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var got []Order
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].ID)

	res = do(t, app, "GET", "/api/v1/admin/orders?status=lost", "1", auth.RoleAdmin, "")
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	res = do(t, app, "PATCH", "/api/v1/admin/orders/1/status", "1", auth.RoleAdmin, `{"status":"shipped"}`)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var o Order
	require.NoError(t, json.NewDecoder(res.Body).Decode(&o))
	assert.Equal(t, StatusShipped, o.Status)

	res = do(t, app, "PATCH", "/api/v1/admin/orders/2/status", "1", auth.RoleAdmin, `{"status":"cancelled"}`)
	assert.Equal(t, fiber.StatusConflict, res.StatusCode)

	res = do(t, app, "PATCH", "/api/v1/admin/orders/1/status", "1", auth.RoleAdmin, `{"status":"teleported"}`)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	res = do(t, app, "PATCH", "/api/v1/admin/orders/99/status", "1", auth.RoleAdmin, `{"status":"paid"}`)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)

	res = do(t, app, "GET", "/api/v1/admin/orders/3", "1", auth.RoleAdmin, "")
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}

func TestService_CreateValidates(t *testing.T) {
	svc := NewService(NewInMemoryRepository(nil), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{UserID: 1})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	o, err := svc.Create(ctx, CreateInput{
		UserID: 1,
		Items:  []Item{{ProductID: 2, Name: "Milk", Quantity: 1, UnitPrice: decimal.RequireFromString("1.50")}},
		Total:  decimal.RequireFromString("7.49"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, o.ID)
	assert.Equal(t, StatusPending, o.Status)
	assert.False(t, o.CreatedAt.IsZero())
}

func TestRemoteRepository_Create(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/orders", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 12.5, body["total"])
		assert.Equal(t, "paid", body["status"])
		assert.Equal(t, "pi_123", body["payment_intent_id"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": 77, "status": "paid", "total": 12.5, "items": [{"product_id": 2, "product_name": "Milk", "quantity": 5, "unit_price": "2.50"}]}`)
	}))
	defer srv.Close()
	client, err := backend.New(backend.Config{BaseURL: srv.URL, APIPrefix: "/api/v1", Timeout: time.Second}, nil)
	require.NoError(t, err)

	o, err := NewRemoteRepository(client).Create(context.Background(), Order{
		UserID:          42,
		Items:           []Item{{ProductID: 2, Name: "Milk", Quantity: 5, UnitPrice: decimal.RequireFromString("2.50")}},
		Total:           decimal.RequireFromString("12.50"),
		Status:          StatusPaid,
		PaymentIntentID: "pi_123",
	})
	require.NoError(t, err)
	assert.Equal(t, 77, o.ID)
	assert.Equal(t, 42, o.UserID)
	assert.Equal(t, "Milk", o.Items[0].Name)
	assert.Equal(t, "12.50", o.Items[0].LineTotal().StringFixed(2))
}
