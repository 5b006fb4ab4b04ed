package user

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/httpx"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Post("/api/v1/sign-in", h.login)
	r.Post("/api/v1/sign-up", h.register)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	// profile endpoint returns the current user based on the session
	r.Get("/api/v1/profile", h.getProfile)
	r.Put("/api/v1/profile", h.updateProfile)
	r.Patch("/api/v1/profile", h.updateProfile)
}

func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/users", h.getUsers)
	r.Get("/users/:id", h.getUser)
	r.Patch("/users/:id", h.updateUser)
	r.Delete("/users/:id", h.deleteUser)
}

func (h *Handler) login(c *fiber.Ctx) error {
	var payload SignInInput
	if err := httpx.Bind(c, &payload); err != nil {
		return httpx.Error(c, err)
	}

	res, err := h.service.SignIn(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return httpx.Fail(c, fiber.StatusUnauthorized, "Invalid email or password")
		}
		return httpx.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"message":   "Login successful",
		"user":      res.User,
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
	})
}

func (h *Handler) register(c *fiber.Ctx) error {
	var payload RegisterInput
	if err := httpx.Bind(c, &payload); err != nil {
		return httpx.Error(c, err)
	}

	created, err := h.service.Register(c.UserContext(), payload)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return httpx.Fail(c, fiber.StatusConflict, "Email already exists")
		}
		return httpx.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) getProfile(c *fiber.Ctx) error {
	s, err := auth.FromCtx(c)
	if err != nil {
		return auth.Unauthorized(c)
	}

	u, err := h.service.Me(auth.Context(c), s.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

func (h *Handler) updateProfile(c *fiber.Ctx) error {
	s, err := auth.FromCtx(c)
	if err != nil {
		return auth.Unauthorized(c)
	}

	var payload ProfileInput
	if err := httpx.Bind(c, &payload); err != nil {
		return httpx.Error(c, err)
	}
	u, err := h.service.UpdateProfile(auth.Context(c), s.UserID, payload)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

func (h *Handler) getUsers(c *fiber.Ctx) error {
	users, err := h.service.List(auth.Context(c))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(users)
}

func (h *Handler) getUser(c *fiber.Ctx) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return httpx.Error(c, err)
	}
	u, err := h.service.GetByID(auth.Context(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

func (h *Handler) updateUser(c *fiber.Ctx) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return httpx.Error(c, err)
	}
	var payload AdminUpdateInput
	if err := httpx.Bind(c, &payload); err != nil {
		return httpx.Error(c, err)
	}
	if self, _ := auth.UserID(c); self == id && payload.Role != nil && *payload.Role != RoleAdmin {
		return httpx.Fail(c, fiber.StatusBadRequest, "You cannot remove your own admin role")
	}
	u, err := h.service.Update(auth.Context(c), id, payload)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

func (h *Handler) deleteUser(c *fiber.Ctx) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return httpx.Error(c, err)
	}
	if self, _ := auth.UserID(c); self == id {
		return httpx.Fail(c, fiber.StatusBadRequest, "You cannot delete your own account")
	}
	if err := h.service.Delete(auth.Context(c), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNotFound) {
		return httpx.Fail(c, fiber.StatusNotFound, "User not found")
	}
	return httpx.Error(c, err)
}
