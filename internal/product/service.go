package product

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/freshcart/storefront/internal/backend"
	"github.com/freshcart/storefront/internal/infrastructure/logger"
)

const DefaultFeaturedLimit = 8

// RemovalListener is told when a product leaves the catalogue.
type RemovalListener interface {
	ProductRemoved(ctx context.Context, productID int) error
}

type Service struct {
	repo      Repository
	mock      Repository
	listeners []RemovalListener
}

// NewService builds the catalogue service. mock may be nil, in which case
// backend outages are reported instead of answered from mock data.
func NewService(repo Repository, mock Repository) *Service {
	return &Service{repo: repo, mock: mock}
}

// OnRemove registers l to be notified after a successful Delete.
func (s *Service) OnRemove(l RemovalListener) {
	s.listeners = append(s.listeners, l)
}

func withMock[T any](mock Repository, fn func(Repository) (T, error)) func() (T, error) {
	if mock == nil {
		return nil
	}
	return func() (T, error) { return fn(mock) }
}

func (s *Service) List(ctx context.Context, f Filter) ([]Product, error) {
	f = f.normalized()
	list := func(r Repository) ([]Product, error) { return r.List(ctx, f) }
	return backend.Fallback(ctx, "product.list",
		func() ([]Product, error) { return list(s.repo) },
		withMock(s.mock, list))
}

func (s *Service) GetByID(ctx context.Context, id int) (Product, error) {
	get := func(r Repository) (Product, error) { return r.GetByID(ctx, id) }
	return backend.Fallback(ctx, "product.get",
		func() (Product, error) { return get(s.repo) },
		withMock(s.mock, get))
}

// Featured returns the best rated active products, ties broken by id.
func (s *Service) Featured(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultFeaturedLimit
	}
	all, err := s.List(ctx, Filter{Sort: SortRating, Limit: MaxLimit})
	if err != nil {
		return nil, err
	}
	active := make([]Product, 0, len(all))
	for _, p := range all {
		if p.IsActive {
			active = append(active, p)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Rating != active[j].Rating {
			return active[i].Rating > active[j].Rating
		}
		return active[i].ID < active[j].ID
	})
	if len(active) > limit {
		active = active[:limit]
	}
	return active, nil
}

func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	p := in.toProduct()
	create := func(r Repository) (Product, error) { return r.Create(ctx, p) }
	return backend.Fallback(ctx, "product.create",
		func() (Product, error) { return create(s.repo) },
		withMock(s.mock, create))
}

func (s *Service) Update(ctx context.Context, id int, in Input) (Product, error) {
	p := in.toProduct()
	update := func(r Repository) (Product, error) { return r.Update(ctx, id, p) }
	return backend.Fallback(ctx, "product.update",
		func() (Product, error) { return update(s.repo) },
		withMock(s.mock, update))
}

func (s *Service) Delete(ctx context.Context, id int) error {
	del := func(r Repository) (struct{}, error) { return struct{}{}, r.Delete(ctx, id) }
	if _, err := backend.Fallback(ctx, "product.delete",
		func() (struct{}, error) { return del(s.repo) },
		withMock(s.mock, del)); err != nil {
		return err
	}
	for _, l := range s.listeners {
		if err := l.ProductRemoved(ctx, id); err != nil {
			logger.FromContext(ctx).Warn("product removal listener failed",
				zap.Int("product_id", id), zap.Error(err))
		}
	}
	return nil
}
