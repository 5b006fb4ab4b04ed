package address

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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/backend"
)

func makeAppWithAddressHandler(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				claims := auth.Claims(auth.Session{UserID: id, Role: auth.RoleCustomer})
				c.Locals(auth.LocalsKey, &jwt.Token{Claims: claims})
			}
		}
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	return app
}

func seedAddresses() []Address {
	return []Address{
		{ID: 1, UserID: 42, FullName: "Ada Park", Line1: "123 Main", City: "Springfield", PostalCode: "12345", Country: "US", IsDefault: true},
		{ID: 2, UserID: 7, FullName: "Other", Line1: "9 Elm", City: "Shelbyville", PostalCode: "54321", Country: "US", IsDefault: true},
	}
}

func call(t *testing.T, app *fiber.App, method, path, user, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	res, err := app.Test(req)
	require.NoError(t, err)
	return res
}

func TestAddressRoute_Unauthorized(t *testing.T) {
	app := makeAppWithAddressHandler(NewHandler(NewService(NewInMemoryRepository(seedAddresses()), nil)))
	res := call(t, app, "GET", "/api/v1/address", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestAddressRoute_ListOnlyOwn(t *testing.T) {
	app := makeAppWithAddressHandler(NewHandler(NewService(NewInMemoryRepository(seedAddresses()), nil)))
	res := call(t, app, "GET", "/api/v1/address", "42", "")
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var got []Address
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "123 Main", got[0].Line1)
}

func TestAddressRoute_DefaultRules(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	app := makeAppWithAddressHandler(NewHandler(NewService(repo, nil)))
	home := `{"fullName":"Ada Park","line1":"1 First St","city":"Springfield","postalCode":"12345","country":"US"}`
	work := `{"fullName":"Ada Park","line1":"2 Second St","city":"Springfield","postalCode":"12345","country":"US","isDefault":true}`

	res := call(t, app, "POST", "/api/v1/address", "42", home)
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	var first Address
	require.NoError(t, json.NewDecoder(res.Body).Decode(&first))
	assert.True(t, first.IsDefault, "first address becomes the default")

	res = call(t, app, "POST", "/api/v1/address", "42", work)
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	owned, err := repo.List(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.False(t, owned[0].IsDefault)
	assert.True(t, owned[1].IsDefault)

	res = call(t, app, "DELETE", "/api/v1/address/"+strconv.Itoa(owned[1].ID), "42", "")
	assert.Equal(t, fiber.StatusNoContent, res.StatusCode)
	owned, _ = repo.List(context.Background(), 42)
	require.Len(t, owned, 1)
	assert.True(t, owned[0].IsDefault, "remaining address is promoted")
}

func TestAddressRoute_Validation(t *testing.T) {
	app := makeAppWithAddressHandler(NewHandler(NewService(NewInMemoryRepository(nil), nil)))
	res := call(t, app, "POST", "/api/v1/address", "42", `{"fullName":"Ada"}`)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	b, _ := io.ReadAll(res.Body)
	assert.Contains(t, string(b), `"line1"`)
	assert.Contains(t, string(b), `"postalCode"`)
}

func TestAddressRoute_UpdateAndOwnership(t *testing.T) {
	app := makeAppWithAddressHandler(NewHandler(NewService(NewInMemoryRepository(seedAddresses()), nil)))

	res := call(t, app, "PATCH", "/api/v1/address/1", "42", `{"city":"Capital City"}`)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var got Address
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, "Capital City", got.City)
	assert.Equal(t, "123 Main", got.Line1)

	res = call(t, app, "PATCH", "/api/v1/address", "42", `{"addressId":1,"phone":"555-0000"}`)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	for _, tc := range []struct{ method, path, body string }{
		{"PATCH", "/api/v1/address/2", `{"city":"Mine now"}`},
		{"DELETE", "/api/v1/address/2", ""},
		{"DELETE", "/api/v1/address", `{"addressId":2}`},
	} {
		res = call(t, app, tc.method, tc.path, "42", tc.body)
		assert.Equal(t, fiber.StatusNotFound, res.StatusCode, tc.method+" "+tc.path)
	}

	res = call(t, app, "DELETE", "/api/v1/address", "42", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

type downRepository struct{ Repository }

func (downRepository) List(context.Context, int) ([]Address, error) {
	return nil, backend.ErrUnavailable
}

func TestService_FallsBackToMock(t *testing.T) {
	svc := NewService(downRepository{}, NewInMemoryRepository(seedAddresses()))
	ctx, trace := backend.WithTrace(context.Background())
	got, err := svc.List(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.True(t, trace.Mock())

	_, err = NewService(downRepository{}, nil).List(context.Background(), 42)
	assert.True(t, backend.IsUnavailable(err))
}

func TestRemoteRepository_RejectsForeignRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id": 5, "user_id": 9, "full_name": "X", "address_line1": "1 A", "city": "B", "postal_code": "1", "country": "US"}`)
	}))
	defer srv.Close()
	client, err := backend.New(backend.Config{BaseURL: srv.URL, APIPrefix: "/api/v1", Timeout: time.Second}, nil)
	require.NoError(t, err)

	ctx := backend.WithToken(context.Background(), "tok")
	_, err = NewRemoteRepository(client).GetByID(ctx, 42, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}
