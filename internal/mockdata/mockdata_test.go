package mockdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/freshcart/storefront/internal/order"
	"github.com/freshcart/storefront/internal/product"
	"github.com/freshcart/storefront/internal/user"
)

func generate(t *testing.T, seed int64) Dataset {
	t.Helper()
	d, err := Generate(Options{Seed: seed, Products: 24})
	require.NoError(t, err)
	return d
}

func productNames(d Dataset) []string {
	names := make([]string, 0, len(d.Products))
	for _, p := range d.Products {
		names = append(names, p.Name)
	}
	return names
}

func TestGenerate_Deterministic(t *testing.T) {
	a, b := generate(t, 7), generate(t, 7)
	assert.Equal(t, productNames(a), productNames(b))
	assert.Equal(t, a.Addresses, b.Addresses)
	assert.Equal(t, a.Orders, b.Orders)

	c := generate(t, 8)
	assert.NotEqual(t, productNames(a), productNames(c))
}

func TestGenerate_Catalogue(t *testing.T) {
	d := generate(t, 1)
	require.Len(t, d.Categories, len(categorySpecs))
	require.Len(t, d.Products, 24)

	seen := map[string]bool{}
	counts := map[int]int{}
	for _, p := range d.Products {
		assert.False(t, seen[p.Name], "duplicate product %q", p.Name)
		seen[p.Name] = true
		counts[p.CategoryID]++
		assert.True(t, p.Price.GreaterThanOrEqual(decimal.RequireFromString("0.99")), p.Name)
		assert.LessOrEqual(t, p.Price.InexactFloat64(), 24.99)
		assert.GreaterOrEqual(t, p.Rating, 3.0)
		assert.NotEmpty(t, p.Unit)
	}
	for _, c := range d.Categories {
		assert.Equal(t, counts[c.ID], c.ProductCount, c.Name)
		assert.NotEmpty(t, c.Slug)
	}
	assert.Equal(t, "dairy-eggs", d.Categories[2].Slug)
}

func TestGenerate_DemoAccountsSignIn(t *testing.T) {
	d := generate(t, 3)
	repos := NewRepositories()
	repos.Install(d)

	admin, _, err := repos.Users.Authenticate(context.Background(), AdminEmail, AdminPassword)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, admin.Role)

	shopper, _, err := repos.Users.Authenticate(context.Background(), ShopperEmail, ShopperPassword)
	require.NoError(t, err)
	assert.Equal(t, user.RoleCustomer, shopper.Role)

	_, _, err = repos.Users.Authenticate(context.Background(), ShopperEmail, "wrong")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	for _, o := range d.Orders {
		assert.Equal(t, shopper.ID, o.UserID)
		assert.True(t, order.ValidStatus(o.Status))
		assert.True(t, o.Total.Equal(o.Subtotal.Sub(o.Discount).Add(o.Shipping).Add(o.Tax)))
	}
	require.NotEmpty(t, d.Addresses)
	assert.True(t, d.Addresses[0].IsDefault)
}

func TestRepositories_SnapshotKeepsWrites(t *testing.T) {
	d := generate(t, 5)
	repos := NewRepositories()
	repos.Install(d)

	require.NoError(t, repos.Products.Delete(context.Background(), d.Products[0].ID))

	snap := repos.Snapshot()
	assert.Equal(t, d.Seed, snap.Seed)
	assert.Len(t, snap.Products, len(d.Products)-1)
	assert.Equal(t, d.Counts()["users"], snap.Counts()["users"])
}

func TestPostgresStore_LoadMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM mock_snapshots WHERE name = $1")).
		WithArgs(DefaultSnapshot).
		WillReturnError(sql.ErrNoRows)

	_, ok, err := NewPostgresStore(db, "").Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveThenLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db, "demo")

	d := Dataset{Seed: 9, Products: []product.Product{{ID: 1, Name: "Kale"}}}
	raw, err := json.Marshal(d)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO mock_snapshots").
		WithArgs("demo", raw, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM mock_snapshots").
		WithArgs("demo").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(raw))

	require.NoError(t, store.Save(context.Background(), d))
	got, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(9), got.Seed)
	assert.Equal(t, "Kale", got.Products[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type brokenStore struct {
	saved int
}

func (s *brokenStore) Load(context.Context) (Dataset, bool, error) {
	return Dataset{}, false, errors.New("relation does not exist")
}

func (s *brokenStore) Save(context.Context, Dataset) error {
	s.saved++
	return nil
}

func TestLoad_RegeneratesWhenSnapshotUnreadable(t *testing.T) {
	store := &brokenStore{}
	d, err := Load(context.Background(), store, Options{Seed: 11, Products: 8}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, int64(11), d.Seed)
	assert.Len(t, d.Products, 8)
	assert.Equal(t, 1, store.saved)
}

func TestResetRoute(t *testing.T) {
	repos := NewRepositories()

	app := fiber.New()
	NewHandler(repos, NopStore{}, Options{Products: 8}, false).RegisterDevRoutes(app)
	res, err := app.Test(httptest.NewRequest("POST", "/dev/mock/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, res.StatusCode)

	app = fiber.New()
	NewHandler(repos, NopStore{}, Options{Products: 8}, true).RegisterDevRoutes(app)
	res, err = app.Test(httptest.NewRequest("POST", "/dev/mock/reset?seed=abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	res, err = app.Test(httptest.NewRequest("POST", "/dev/mock/reset?seed=21", nil), 5000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var body struct {
		Seed   int64          `json:"seed"`
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, int64(21), body.Seed)
	assert.Equal(t, 8, body.Counts["products"])
	assert.Len(t, repos.Products.All(), 8)
	assert.Equal(t, int64(21), repos.Snapshot().Seed, "snapshot follows the reset seed")
}
