package product

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
	r.Get("/api/v1/products", h.getProducts)
	r.Get("/api/v1/products/featured", h.getFeatured)
	r.Get("/api/v1/product/:id", h.getProduct)
}

// RegisterAdminRoutes expects r to be the admin group (/api/v1/admin).
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/products", h.adminListProducts)
	r.Post("/products", h.createProduct)
	r.Put("/products/:id", h.updateProduct)
	r.Delete("/products/:id", h.deleteProduct)
}

func filterFromQuery(c *fiber.Ctx) Filter {
	f := Filter{
		CategoryID: c.QueryInt("categoryId"),
		Search:     c.Query("search", c.Query("q")),
		Sort:       c.Query("sort"),
		Limit:      c.QueryInt("limit"),
		Offset:     c.QueryInt("offset"),
	}
	if page := c.QueryInt("page"); page > 1 && f.Limit > 0 && f.Offset == 0 {
		f.Offset = (page - 1) * f.Limit
	}
	return f
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext(), filterFromQuery(c))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(products)
}

func (h *Handler) getFeatured(c *fiber.Ctx) error {
	products, err := h.service.Featured(c.UserContext(), c.QueryInt("limit"))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(products)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return httpx.Error(c, err)
	}

	p, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	if !p.IsActive {
		return httpx.Fail(c, fiber.StatusNotFound, "Product not found")
	}
	return c.JSON(p)
}

func (h *Handler) adminListProducts(c *fiber.Ctx) error {
	f := filterFromQuery(c)
	f.IncludeInactive = true
	products, err := h.service.List(auth.Context(c), f)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(products)
}

func bindInput(c *fiber.Ctx) (Input, error) {
	var in Input
	if err := httpx.Bind(c, &in); err != nil {
		return in, err
	}
	if in.Price.IsNegative() {
		return in, &httpx.ValidationError{Fields: map[string]string{"price": "must be at least 0"}}
	}
	return in, nil
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	in, err := bindInput(c)
	if err != nil {
		return httpx.Error(c, err)
	}
	created, err := h.service.Create(auth.Context(c), in)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return httpx.Error(c, err)
	}
	in, err := bindInput(c)
	if err != nil {
		return httpx.Error(c, err)
	}
	updated, err := h.service.Update(auth.Context(c), id, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return httpx.Error(c, err)
	}
	if err := h.service.Delete(auth.Context(c), id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNotFound) {
		return httpx.Fail(c, fiber.StatusNotFound, "Product not found")
	}
	return httpx.Error(c, err)
}
