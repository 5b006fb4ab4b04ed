package category

import (
	"context"

	"github.com/freshcart/storefront/internal/backend"
)

// Service provides business logic for categories.
type Service struct {
	repo Repository
	mock Repository
}

// NewService builds the service; mock may be nil to disable the fallback.
func NewService(repo Repository, mock Repository) *Service {
	return &Service{repo: repo, mock: mock}
}

func (s *Service) fallback(fn func(Repository) (Category, error)) func() (Category, error) {
	if s.mock == nil {
		return nil
	}
	return func() (Category, error) { return fn(s.mock) }
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	var fb func() ([]Category, error)
	if s.mock != nil {
		fb = func() ([]Category, error) { return s.mock.List(ctx) }
	}
	return backend.Fallback(ctx, "category.list", func() ([]Category, error) { return s.repo.List(ctx) }, fb)
}

func (s *Service) GetByID(ctx context.Context, id int) (Category, error) {
	get := func(r Repository) (Category, error) { return r.GetByID(ctx, id) }
	return backend.Fallback(ctx, "category.get", func() (Category, error) { return get(s.repo) }, s.fallback(get))
}

func (s *Service) Create(ctx context.Context, in Input) (Category, error) {
	c := in.toCategory()
	create := func(r Repository) (Category, error) { return r.Create(ctx, c) }
	return backend.Fallback(ctx, "category.create", func() (Category, error) { return create(s.repo) }, s.fallback(create))
}

func (s *Service) Update(ctx context.Context, id int, in Input) (Category, error) {
	c := in.toCategory()
	update := func(r Repository) (Category, error) { return r.Update(ctx, id, c) }
	return backend.Fallback(ctx, "category.update", func() (Category, error) { return update(s.repo) }, s.fallback(update))
}

func (s *Service) Delete(ctx context.Context, id int) error {
	var fb func() error
	if s.mock != nil {
		fb = func() error { return s.mock.Delete(ctx, id) }
	}
	return backend.FallbackErr(ctx, "category.delete", func() error { return s.repo.Delete(ctx, id) }, fb)
}
