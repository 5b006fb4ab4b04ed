package cart

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/httpx"
)

// Handler delegates cart operations to the cart service.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/api/v1/cart", h.getCart)
	r.Delete("/api/v1/cart", h.clearCart)
	r.Post("/api/v1/cart/items", h.addItem)
	r.Patch("/api/v1/cart/items/:productId", h.setQuantity)
	r.Delete("/api/v1/cart/items/:productId", h.removeItem)
	r.Post("/api/v1/cart/discount", h.applyDiscount)
	r.Delete("/api/v1/cart/discount", h.removeDiscount)
	r.Post("/api/v1/product/cart", h.adjust)
}

type addItemRequest struct {
	ProductID int `json:"productId" validate:"gt=0"`
	Quantity  int `json:"quantity" validate:"gte=0,max=99"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type discountRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// adjustRequest is the delta form: negative quantities decrement.
type adjustRequest struct {
	ProductID int `json:"productId" validate:"gt=0"`
	Quantity  int `json:"quantity" validate:"min=-99,max=99"`
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	v, err := h.service.Get(auth.Context(c), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(v)
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	var req addItemRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Error(c, err)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	v, err := h.service.AddItem(auth.Context(c), userID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(v)
}

func (h *Handler) setQuantity(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	productID, err := httpx.ParseID(c, "productId")
	if err != nil {
		return httpx.Error(c, err)
	}
	var req quantityRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Error(c, err)
	}
	v, err := h.service.SetQuantity(auth.Context(c), userID, productID, *req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(v)
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	productID, err := httpx.ParseID(c, "productId")
	if err != nil {
		return httpx.Error(c, err)
	}
	v, err := h.service.RemoveItem(auth.Context(c), userID, productID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(v)
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	ctx := auth.Context(c)
	if err := h.service.Clear(ctx, userID); err != nil {
		return fail(c, err)
	}
	v, err := h.service.Get(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(v)
}

func (h *Handler) applyDiscount(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	var req discountRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Error(c, err)
	}
	v, err := h.service.ApplyDiscount(auth.Context(c), userID, req.Code)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(v)
}

func (h *Handler) removeDiscount(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	v, err := h.service.RemoveDiscount(auth.Context(c), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(v)
}

// adjust keeps the delta-quantity endpoint; zero returns the current cart.
func (h *Handler) adjust(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return auth.Unauthorized(c)
	}
	var req adjustRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Error(c, err)
	}
	v, err := h.service.Adjust(auth.Context(c), userID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(v)
}

func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrItemNotFound):
		return httpx.Fail(c, fiber.StatusNotFound, "Item not in cart")
	case errors.Is(err, ErrProductUnavailable):
		return httpx.Fail(c, fiber.StatusConflict, "Product is not available")
	case errors.Is(err, ErrQuantityLimit), errors.Is(err, ErrInvalidQuantity):
		return httpx.Fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidDiscount):
		return httpx.Fail(c, fiber.StatusBadRequest, "Invalid discount code")
	}
	return httpx.Error(c, err)
}
