package order

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/httpx"
)

// Handler delegates order operations to the order service.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/api/v1/orders", h.getOrders)
	r.Get("/api/v1/orders/:id", h.getOrder)
}

// RegisterAdminRoutes expects r to be the admin group (/api/v1/admin).
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/orders", h.adminListOrders)
	r.Get("/orders/:id", h.adminGetOrder)
	r.Patch("/orders/:id/status", h.updateStatus)
}

// getOrders returns all orders belonging to the currently authenticated user.
func (h *Handler) getOrders(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	orders, err := h.service.ListForUser(auth.Context(c), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return httpx.Error(c, err)
	}
	o, err := h.service.GetForUser(auth.Context(c), userID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(o)
}

func (h *Handler) adminListOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListAll(auth.Context(c), c.Query("status"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) adminGetOrder(c *fiber.Ctx) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return httpx.Error(c, err)
	}
	o, err := h.service.Get(auth.Context(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(o)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending paid processing shipped delivered cancelled"`
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return httpx.Error(c, err)
	}
	var req statusRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Error(c, err)
	}
	o, err := h.service.UpdateStatus(auth.Context(c), id, req.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(o)
}

func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return httpx.Fail(c, fiber.StatusNotFound, "Order not found")
	case errors.Is(err, ErrInvalidTransition):
		return httpx.Fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidOrder):
		return httpx.Fail(c, fiber.StatusBadRequest, err.Error())
	}
	return httpx.Error(c, err)
}
