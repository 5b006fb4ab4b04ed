package mockdata

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/freshcart/storefront/internal/httpx"
	"github.com/freshcart/storefront/internal/infrastructure/logger"
)

// Handler exposes the development reset endpoint.
type Handler struct {
	repos *Repositories
	store Store
	opts  Options
	allow bool
}

func NewHandler(repos *Repositories, store Store, opts Options, allowReset bool) *Handler {
	return &Handler{repos: repos, store: store, opts: opts, allow: allowReset}
}

func (h *Handler) RegisterDevRoutes(r fiber.Router) {
	r.Post("/dev/mock/reset", h.reset)
}

// reset regenerates the dataset, optionally with ?seed=, and installs it.
func (h *Handler) reset(c *fiber.Ctx) error {
	if !h.allow {
		return httpx.Fail(c, fiber.StatusForbidden, "not allowed")
	}
	opts := h.opts
	if s := c.Query("seed"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return httpx.Fail(c, fiber.StatusBadRequest, "invalid seed")
		}
		opts.Seed = seed
	}

	d, err := Generate(opts)
	if err != nil {
		return httpx.Error(c, err)
	}
	h.repos.Install(d)

	log := logger.FromContext(c.UserContext())
	if err := h.store.Save(c.UserContext(), d); err != nil {
		log.Warn("mock snapshot not saved", zap.Error(err))
	}
	log.Info("mock data reset", zap.Int64("seed", d.Seed))
	return c.JSON(fiber.Map{"seed": d.Seed, "counts": d.Counts()})
}
