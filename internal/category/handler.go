package category

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/httpx"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/api/v1/categories", h.getCategories)
	r.Get("/api/v1/categories/:id", h.getCategory)
}

func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/categories", h.getCategories)
	r.Post("/categories", h.createCategory)
	r.Put("/categories/:id", h.updateCategory)
	r.Delete("/categories/:id", h.deleteCategory)
}

func (h *Handler) getCategories(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext())
	if err != nil {
		return httpx.Error(c, err)
	}
	if limit := c.QueryInt("limit"); limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return c.JSON(items)
}

func (h *Handler) getCategory(c *fiber.Ctx) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return httpx.Error(c, err)
	}
	item, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(item)
}

func (h *Handler) createCategory(c *fiber.Ctx) error {
	var in Input
	if err := httpx.Bind(c, &in); err != nil {
		return httpx.Error(c, err)
	}
	created, err := h.service.Create(auth.Context(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) updateCategory(c *fiber.Ctx) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return httpx.Error(c, err)
	}
	var in Input
	if err := httpx.Bind(c, &in); err != nil {
		return httpx.Error(c, err)
	}
	updated, err := h.service.Update(auth.Context(c), id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) deleteCategory(c *fiber.Ctx) error {
	id, err := httpx.ParseID(c, "id")
	if err != nil {
		return httpx.Error(c, err)
	}
	if err := h.service.Delete(auth.Context(c), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return httpx.Fail(c, fiber.StatusNotFound, "Category not found")
	case errors.Is(err, ErrSlugExists):
		return httpx.Fail(c, fiber.StatusConflict, "A category with this slug already exists")
	}
	return httpx.Error(c, err)
}
