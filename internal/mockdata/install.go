package mockdata

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/freshcart/storefront/internal/address"
	"github.com/freshcart/storefront/internal/category"
	"github.com/freshcart/storefront/internal/order"
	"github.com/freshcart/storefront/internal/product"
	"github.com/freshcart/storefront/internal/user"
)

// Repositories are the in-memory stores that answer while the backend is down.
type Repositories struct {
	Categories *category.InMemoryRepository
	Products   *product.InMemoryRepository
	Users      *user.InMemoryRepository
	Orders     *order.InMemoryRepository
	Addresses  *address.InMemoryRepository

	seed atomic.Int64
}

func NewRepositories() *Repositories {
	return &Repositories{
		Categories: category.NewInMemoryRepository(nil),
		Products:   product.NewInMemoryRepository(nil),
		Users:      user.NewInMemoryRepository(nil),
		Orders:     order.NewInMemoryRepository(nil),
		Addresses:  address.NewInMemoryRepository(nil),
	}
}

// Install replaces the contents of every repository with d.
func (r *Repositories) Install(d Dataset) {
	r.Categories.Reset(d.Categories)
	r.Products.Reset(d.Products)
	r.Users.Reset(d.Users)
	r.Orders.Reset(d.Orders)
	r.Addresses.Reset(d.Addresses)
	r.seed.Store(d.Seed)
}

// Snapshot reads the repositories back, including writes made since the last
// Install, tagged with the seed that Install used.
func (r *Repositories) Snapshot() Dataset {
	return Dataset{
		Seed:       r.seed.Load(),
		Categories: r.Categories.All(),
		Products:   r.Products.All(),
		Users:      r.Users.Accounts(),
		Orders:     r.Orders.All(),
		Addresses:  r.Addresses.All(),
	}
}

// Load returns the stored snapshot, or generates and saves a new dataset when
// the store is empty.
func Load(ctx context.Context, store Store, opts Options, log *zap.Logger) (Dataset, error) {
	d, ok, err := store.Load(ctx)
	if err != nil {
		log.Warn("mock snapshot unreadable, regenerating", zap.Error(err))
	}
	if ok && err == nil {
		log.Info("mock data restored", zap.Int64("seed", d.Seed), zap.Int("products", len(d.Products)))
		return d, nil
	}

	d, err = Generate(opts)
	if err != nil {
		return Dataset{}, fmt.Errorf("generate mock data: %w", err)
	}
	if err := store.Save(ctx, d); err != nil {
		log.Warn("mock snapshot not saved", zap.Error(err))
	}
	log.Info("mock data generated", zap.Int64("seed", d.Seed), zap.Int("products", len(d.Products)))
	return d, nil
}
