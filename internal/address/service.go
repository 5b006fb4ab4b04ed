package address

import (
	"context"

	"github.com/freshcart/storefront/internal/backend"
)

// Service orchestrates address retrieval.
type Service struct {
	repo Repository
	mock Repository
}

func NewService(repo Repository, mock Repository) *Service {
	return &Service{repo: repo, mock: mock}
}

func fallback[T any](mock Repository, fn func(Repository) (T, error)) func() (T, error) {
	if mock == nil {
		return nil
	}
	return func() (T, error) { return fn(mock) }
}

func (s *Service) List(ctx context.Context, userID int) ([]Address, error) {
	list := func(r Repository) ([]Address, error) { return r.List(ctx, userID) }
	return backend.Fallback(ctx, "address.list", func() ([]Address, error) { return list(s.repo) }, fallback(s.mock, list))
}

// Get returns the address only when userID owns it.
func (s *Service) Get(ctx context.Context, userID, id int) (Address, error) {
	if userID <= 0 || id <= 0 {
		return Address{}, ErrNotFound
	}
	get := func(r Repository) (Address, error) { return r.GetByID(ctx, userID, id) }
	return backend.Fallback(ctx, "address.get", func() (Address, error) { return get(s.repo) }, fallback(s.mock, get))
}

func (s *Service) Create(ctx context.Context, userID int, in Input) (Address, error) {
	a := in.toAddress(userID)
	create := func(r Repository) (Address, error) { return r.Create(ctx, a) }
	return backend.Fallback(ctx, "address.create", func() (Address, error) { return create(s.repo) }, fallback(s.mock, create))
}

func (s *Service) Update(ctx context.Context, userID, id int, p Patch) (Address, error) {
	if userID <= 0 || id <= 0 {
		return Address{}, ErrNotFound
	}
	update := func(r Repository) (Address, error) { return r.Update(ctx, userID, id, p) }
	return backend.Fallback(ctx, "address.update", func() (Address, error) { return update(s.repo) }, fallback(s.mock, update))
}

func (s *Service) Delete(ctx context.Context, userID, id int) error {
	if userID <= 0 || id <= 0 {
		return ErrNotFound
	}
	var fb func() error
	if s.mock != nil {
		fb = func() error { return s.mock.Delete(ctx, userID, id) }
	}
	return backend.FallbackErr(ctx, "address.delete", func() error { return s.repo.Delete(ctx, userID, id) }, fb)
}
