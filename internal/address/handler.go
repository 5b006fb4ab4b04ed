package address

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/httpx"
)

// Handler delegates address operations to the address service.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/api/v1/address", h.getAddresses)
	r.Post("/api/v1/address", h.addAddress)
	r.Patch("/api/v1/address/:id", h.updateAddress)
	r.Delete("/api/v1/address/:id", h.deleteAddress)
	// older clients send the id in the body
	r.Patch("/api/v1/address", h.updateAddress)
	r.Delete("/api/v1/address", h.deleteAddress)
}

type addressIDRequest struct {
	AddressID int `json:"addressId"`
}

// addressID reads the id from the route, or from the body for the legacy routes.
func addressID(c *fiber.Ctx) (int, error) {
	if c.Params("id") != "" {
		return httpx.ParseID(c, "id")
	}
	var req addressIDRequest
	if err := c.BodyParser(&req); err != nil || req.AddressID <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid addressId")
	}
	return req.AddressID, nil
}

func (h *Handler) getAddresses(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	addrs, err := h.service.List(auth.Context(c), userID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(addrs)
}

func (h *Handler) addAddress(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	var payload Input
	if err := httpx.Bind(c, &payload); err != nil {
		return httpx.Error(c, err)
	}
	addr, err := h.service.Create(auth.Context(c), userID, payload)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(addr)
}

func (h *Handler) updateAddress(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	id, err := addressID(c)
	if err != nil {
		return httpx.Error(c, err)
	}
	var payload Patch
	if err := httpx.Bind(c, &payload); err != nil {
		return httpx.Error(c, err)
	}
	addr, err := h.service.Update(auth.Context(c), userID, id, payload)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(addr)
}

func (h *Handler) deleteAddress(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	id, err := addressID(c)
	if err != nil {
		return httpx.Error(c, err)
	}
	if err := h.service.Delete(auth.Context(c), userID, id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNotFound) {
		return httpx.Fail(c, fiber.StatusNotFound, "Address not found")
	}
	return httpx.Error(c, err)
}
