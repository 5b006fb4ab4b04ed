package checkout

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/freshcart/storefront/internal/address"
	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/backend"
	"github.com/freshcart/storefront/internal/httpx"
)

const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	service *Service
	client  ClientConfig
}

func NewHandler(s *Service, client ClientConfig) *Handler {
	return &Handler{service: s, client: client}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/api/v1/checkout/config", h.getConfig)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Post("/api/v1/checkout", h.checkout)
}

func (h *Handler) getConfig(c *fiber.Ctx) error {
	return c.JSON(h.client)
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	var req Request
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Error(c, err)
	}
	if req.AddressID == nil && req.Address == nil {
		return fail(c, ErrAddressRequired)
	}
	req.IdempotencyKey = c.Get(IdempotencyHeader)
	if len(req.IdempotencyKey) > 255 {
		return httpx.Fail(c, fiber.StatusBadRequest, "Idempotency-Key is too long")
	}

	res, err := h.service.Checkout(auth.Context(c), userID, req)
	if err != nil {
		return fail(c, err)
	}
	c.Set(IdempotencyHeader, res.IdempotencyKey)
	if res.Status == StatusRequiresAction {
		return c.Status(fiber.StatusAccepted).JSON(res)
	}
	if res.Replayed {
		return c.JSON(res)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrCheckoutInProgress):
		return httpx.Fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrAddressRequired), errors.Is(err, ErrInvalidTotal):
		return httpx.Fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, address.ErrNotFound):
		return httpx.Fail(c, fiber.StatusNotFound, "Address not found")
	case errors.Is(err, ErrPaymentFailed) && !backend.IsUnavailable(err):
		return httpx.Fail(c, fiber.StatusPaymentRequired, err.Error())
	case errors.Is(err, ErrOrderFailed):
		return httpx.Fail(c, fiber.StatusBadGateway, err.Error())
	}
	return httpx.Error(c, err)
}
