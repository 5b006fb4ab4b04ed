package user

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
	"golang.org/x/crypto/bcrypt"

	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/backend"
)

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func seedAccounts(t *testing.T) []Account {
	return []Account{
		{User: User{ID: 1, Email: "admin@freshcart.test", FullName: "Ada Admin", Role: RoleAdmin, IsActive: true}, PasswordHash: mustHash(t, "admin123")},
		{User: User{ID: 7, Email: "j@example.com", FullName: "Jenny Test", Phone: "123", Role: RoleCustomer, IsActive: true}, PasswordHash: mustHash(t, "secret-pass")},
		{User: User{ID: 8, Email: "off@example.com", FullName: "Off", Role: RoleCustomer, IsActive: false}, PasswordHash: mustHash(t, "secret-pass")},
	}
}

var testIssuer = auth.NewIssuer("test-secret", time.Hour, "freshcart")

// helper to build an app with a simple "bootstrap" middleware that injects a
// jwt.Token into locals when the X-User-ID header is provided.
func makeAppWithUserHandler(uHandler *Handler) *fiber.App {
	app := fiber.New()
	uHandler.RegisterPublicRoutes(app)
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				claims := auth.Claims(auth.Session{UserID: id, Role: c.Get("X-Role", RoleCustomer)})
				c.Locals(auth.LocalsKey, &jwt.Token{Claims: claims})
			}
		}
		return c.Next()
	})
	uHandler.RegisterProtectedRoutes(app)
	uHandler.RegisterAdminRoutes(app.Group("/api/v1/admin", auth.RequireAdmin()))
	return app
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSignIn(t *testing.T) {
	app := makeAppWithUserHandler(NewHandler(NewService(NewInMemoryRepository(seedAccounts(t)), nil, testIssuer)))

	res, err := app.Test(jsonRequest("POST", "/api/v1/sign-in", `{"email":"J@Example.com","password":"secret-pass"}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var body struct {
		Message   string    `json:"message"`
		User      User      `json:"user"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "Login successful", body.Message)
	assert.Equal(t, 7, body.User.ID)
	assert.NotEmpty(t, body.Token)

	parsed, err := jwt.Parse(body.Token, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, RoleCustomer, claims["role"])
	assert.True(t, strings.HasPrefix(claims["api_token"].(string), MockTokenPrefix))

	for _, payload := range []string{
		`{"email":"j@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"secret-pass"}`,
		`{"email":"off@example.com","password":"secret-pass"}`,
	} {
		res, err := app.Test(jsonRequest("POST", "/api/v1/sign-in", payload))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode, payload)
	}

	res, err = app.Test(jsonRequest("POST", "/api/v1/sign-in", `{"email":"not-an-email"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestSignUp(t *testing.T) {
	repo := NewInMemoryRepository(seedAccounts(t))
	app := makeAppWithUserHandler(NewHandler(NewService(repo, nil, testIssuer)))

	res, err := app.Test(jsonRequest("POST", "/api/v1/sign-up", `{"email":"new@example.com","password":"password1","fullName":"New Person"}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	b, _ := io.ReadAll(res.Body)
	assert.NotContains(t, string(b), "password")

	_, tok, err := repo.Authenticate(context.Background(), "new@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	res, err = app.Test(jsonRequest("POST", "/api/v1/sign-up", `{"email":"new@example.com","password":"password1","fullName":"Again"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, res.StatusCode)

	res, err = app.Test(jsonRequest("POST", "/api/v1/sign-up", `{"email":"x@example.com","password":"short","fullName":""}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestProfileRoute_RegistrationAndAuth(t *testing.T) {
	app := makeAppWithUserHandler(NewHandler(NewService(NewInMemoryRepository(seedAccounts(t)), nil, testIssuer)))

	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Path] = true
		}
	}
	if !routes["/api/v1/profile"] {
		t.Fatalf("expected route '/api/v1/profile' to be registered")
	}

	res, err := app.Test(httptest.NewRequest("GET", "/api/v1/profile", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	b, _ := io.ReadAll(res.Body)
	assert.Contains(t, string(b), `"redirect":"/login"`)

	req := httptest.NewRequest("GET", "/api/v1/profile", nil)
	req.Header.Set("X-User-ID", "7")
	res, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	b, _ = io.ReadAll(res.Body)
	assert.Contains(t, string(b), "j@example.com")
	assert.NotContains(t, string(b), "passwordHash")
}

func TestProfileUpdate(t *testing.T) {
	repo := NewInMemoryRepository(seedAccounts(t))
	app := makeAppWithUserHandler(NewHandler(NewService(repo, nil, testIssuer)))

	for _, method := range []string{"PUT", "PATCH"} {
		req := jsonRequest(method, "/api/v1/profile", `{"fullName":"Jenny New","phone":"999"}`)
		req.Header.Set("X-User-ID", "7")
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode, method)
	}
	u, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Jenny New", u.FullName)
	assert.Equal(t, "999", u.Phone)

	req := jsonRequest("PATCH", "/api/v1/profile", `{"password":"brand-new-pass"}`)
	req.Header.Set("X-User-ID", "7")
	res, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	_, _, err = repo.Authenticate(context.Background(), "j@example.com", "brand-new-pass")
	assert.NoError(t, err)

	req = jsonRequest("PATCH", "/api/v1/profile", `{"fullName":""}`)
	req.Header.Set("X-User-ID", "7")
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestAdminUsers(t *testing.T) {
	repo := NewInMemoryRepository(seedAccounts(t))
	app := makeAppWithUserHandler(NewHandler(NewService(repo, nil, testIssuer)))

	admin := func(req *http.Request) *http.Response {
		req.Header.Set("X-User-ID", "1")
		req.Header.Set("X-Role", RoleAdmin)
		res, err := app.Test(req)
		require.NoError(t, err)
		return res
	}

	res := admin(httptest.NewRequest("GET", "/api/v1/admin/users", nil))
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var users []User
	require.NoError(t, json.NewDecoder(res.Body).Decode(&users))
	assert.Len(t, users, 3)

	res = admin(jsonRequest("PATCH", "/api/v1/admin/users/7", `{"role":"admin","isActive":false}`))
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	u, _ := repo.GetByID(context.Background(), 7)
	assert.Equal(t, RoleAdmin, u.Role)
	assert.False(t, u.IsActive)

	res = admin(jsonRequest("PATCH", "/api/v1/admin/users/7", `{"role":"owner"}`))
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	res = admin(jsonRequest("PATCH", "/api/v1/admin/users/1", `{"role":"customer"}`))
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	res = admin(httptest.NewRequest("DELETE", "/api/v1/admin/users/1", nil))
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	res = admin(httptest.NewRequest("DELETE", "/api/v1/admin/users/8", nil))
	assert.Equal(t, fiber.StatusNoContent, res.StatusCode)
	res = admin(httptest.NewRequest("GET", "/api/v1/admin/users/8", nil))
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)

	req := httptest.NewRequest("GET", "/api/v1/admin/users", nil)
	req.Header.Set("X-User-ID", "7")
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
}

func TestRemoteRepository_Authenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			require.NoError(t, r.ParseForm())
			if r.PostForm.Get("password") != "right" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"detail":"Incorrect email or password"}`)
				return
			}
			_, _ = io.WriteString(w, `{"access_token":"api-123","token_type":"bearer"}`)
		case "/api/v1/users/me":
			assert.Equal(t, "Bearer api-123", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{"id":3,"email":"boss@example.com","full_name":"Boss","is_superuser":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := backend.New(backend.Config{BaseURL: srv.URL, APIPrefix: "/api/v1"}, nil)
	require.NoError(t, err)
	repo := NewRemoteRepository(client)

	u, tok, err := repo.Authenticate(context.Background(), "boss@example.com", "right")
	require.NoError(t, err)
	assert.Equal(t, "api-123", tok)
	assert.Equal(t, RoleAdmin, u.Role)
	assert.True(t, u.IsActive)

	_, _, err = repo.Authenticate(context.Background(), "boss@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRemoteRepository_RegisterConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"detail":"Email already registered"}`)
	}))
	defer srv.Close()

	client, err := backend.New(backend.Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	_, err = NewRemoteRepository(client).Register(context.Background(), RegisterInput{Email: "a@b.co", Password: "password1", FullName: "A"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

type downRepository struct{ Repository }

func (downRepository) Authenticate(context.Context, string, string) (User, string, error) {
	return User{}, "", backend.ErrUnavailable
}

func TestService_SignInFallsBackToMockAccounts(t *testing.T) {
	svc := NewService(downRepository{}, NewInMemoryRepository(seedAccounts(t)), testIssuer)
	res, err := svc.SignIn(context.Background(), "admin@freshcart.test", "admin123")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, res.User.Role)

	_, err = NewService(downRepository{}, nil, testIssuer).SignIn(context.Background(), "admin@freshcart.test", "admin123")
	assert.True(t, backend.IsUnavailable(err))
}
