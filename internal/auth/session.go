// Package auth issues and verifies the storefront session token. The token
// carries the backend API token so the browser only ever holds one credential.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/freshcart/storefront/internal/backend"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"

	// LocalsKey is where the verified *jwt.Token is stored on the fiber context.
	LocalsKey = "user"
	// LoginPath is where the frontend sends users whose session is gone.
	LoginPath = "/login"
)

var (
	ErrNoSession    = errors.New("auth: no session")
	ErrInvalidClaim = errors.New("auth: invalid claim")
)

// Session is what a signed-in request knows about its user.
type Session struct {
	UserID   int    `json:"userId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	APIToken string `json:"-"`
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// Claims returns the JWT claims for s without expiry information.
func Claims(s Session) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id":   s.UserID,
		"email":     s.Email,
		"name":      s.Name,
		"role":      s.Role,
		"api_token": s.APIToken,
	}
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, issuer string) *Issuer {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// Issue signs a session token and returns it with its expiry.
func (i *Issuer) Issue(s Session) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims(s)
	claims["iat"] = now.Unix()
	claims["exp"] = exp.Unix()
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// Unauthorized writes the 401 body the frontend uses to redirect to sign-in.
func Unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized", "redirect": LoginPath})
}

// Middleware verifies the bearer session token.
func Middleware(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		ContextKey:    LocalsKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return Unauthorized(c)
		},
	})
}

// RequireAdmin rejects sessions without the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := FromCtx(c)
		if err != nil {
			return Unauthorized(c)
		}
		if !s.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "forbidden"})
		}
		return c.Next()
	}
}

// FromCtx reads the session from the verified token in c.Locals.
func FromCtx(c *fiber.Ctx) (Session, error) {
	token, ok := c.Locals(LocalsKey).(*jwt.Token)
	if !ok || token == nil {
		return Session{}, ErrNoSession
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrNoSession
	}

	id, err := intClaim(claims["user_id"])
	if err != nil {
		return Session{}, err
	}
	s := Session{UserID: id}
	s.Email, _ = claims["email"].(string)
	s.Name, _ = claims["name"].(string)
	s.Role, _ = claims["role"].(string)
	s.APIToken, _ = claims["api_token"].(string)
	return s, nil
}

// Context returns the request context carrying the session's backend token, if any.
func Context(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if s, err := FromCtx(c); err == nil {
		ctx = backend.WithToken(ctx, s.APIToken)
	}
	return ctx
}

// UserID is FromCtx for handlers that only need the id.
func UserID(c *fiber.Ctx) (int, error) {
	s, err := FromCtx(c)
	if err != nil {
		return 0, err
	}
	return s.UserID, nil
}

func intClaim(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case string:
		id, err := strconv.Atoi(t)
		if err != nil {
			return 0, ErrInvalidClaim
		}
		return id, nil
	default:
		return 0, ErrInvalidClaim
	}
}
