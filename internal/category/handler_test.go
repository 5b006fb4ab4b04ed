package category

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/backend"
)

func seed() []Category {
	return []Category{
		{ID: 1, Name: "Fruits", Slug: "fruits", ProductCount: 6},
		{ID: 2, Name: "Dairy & Eggs", Slug: "dairy-eggs", ProductCount: 4},
	}
}

func makeApp(h *Handler) *fiber.App {
	app := fiber.New()
	h.RegisterPublicRoutes(app)
	app.Use(func(c *fiber.Ctx) error {
		if c.Get("X-Admin") == "1" {
			c.Locals(auth.LocalsKey, &jwt.Token{Claims: auth.Claims(auth.Session{UserID: 1, Role: auth.RoleAdmin})})
		}
		return c.Next()
	})
	h.RegisterAdminRoutes(app.Group("/api/v1/admin", auth.RequireAdmin()))
	return app
}

func TestSlugify(t *testing.T) {
	for in, want := range map[string]string{
		"Dairy & Eggs":       "dairy-eggs",
		"  Meat & Seafood  ": "meat-seafood",
		"Snacks!!":           "snacks",
		"Crème Brûlée 2024":  "crème-brûlée-2024",
		"---":                "",
	} {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestGetCategories(t *testing.T) {
	app := makeApp(NewHandler(NewService(NewInMemoryRepository(seed()), nil)))

	res, err := app.Test(httptest.NewRequest("GET", "/api/v1/categories", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var got []Category
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "fruits", got[0].Slug)

	res, err = app.Test(httptest.NewRequest("GET", "/api/v1/categories/2", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	res, err = app.Test(httptest.NewRequest("GET", "/api/v1/categories/9", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
}

func TestAdminCategories(t *testing.T) {
	repo := NewInMemoryRepository(seed())
	app := makeApp(NewHandler(NewService(repo, nil)))

	send := func(method, path, body string) *http.Response {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Admin", "1")
		res, err := app.Test(req)
		require.NoError(t, err)
		return res
	}

	res := send("POST", "/api/v1/admin/categories", `{"name":"Meat & Seafood"}`)
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	var created Category
	require.NoError(t, json.NewDecoder(res.Body).Decode(&created))
	assert.Equal(t, 3, created.ID)
	assert.Equal(t, "meat-seafood", created.Slug)

	res = send("POST", "/api/v1/admin/categories", `{"name":"Fruits"}`)
	assert.Equal(t, fiber.StatusConflict, res.StatusCode)

	res = send("POST", "/api/v1/admin/categories", `{"name":""}`)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	res = send("PUT", "/api/v1/admin/categories/1", `{"name":"Fresh Fruits"}`)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	c, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "fresh-fruits", c.Slug)
	assert.Equal(t, 6, c.ProductCount)

	res = send("DELETE", "/api/v1/admin/categories/3", "")
	assert.Equal(t, fiber.StatusNoContent, res.StatusCode)
	res = send("DELETE", "/api/v1/admin/categories/3", "")
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)

	req := httptest.NewRequest("DELETE", "/api/v1/admin/categories/1", nil)
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

type downRepository struct{ Repository }

func (downRepository) List(context.Context) ([]Category, error) { return nil, backend.ErrUnavailable }

func TestService_ListFallsBackToMock(t *testing.T) {
	svc := NewService(downRepository{}, NewInMemoryRepository(seed()))
	got, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
