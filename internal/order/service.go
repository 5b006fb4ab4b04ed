package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/freshcart/storefront/internal/backend"
	"github.com/freshcart/storefront/internal/infrastructure/logger"
)

// Service provides business logic for orders.
type Service struct {
	repo Repository
	mock Repository
}

func NewService(repo Repository, mock Repository) *Service {
	return &Service{repo: repo, mock: mock}
}

func withMock[T any](mock Repository, fn func(Repository) (T, error)) func() (T, error) {
	if mock == nil {
		return nil
	}
	return func() (T, error) { return fn(mock) }
}

// Create places an order. Status defaults to pending.
func (s *Service) Create(ctx context.Context, in CreateInput) (Order, error) {
	if err := in.validate(); err != nil {
		return Order{}, err
	}
	o := in.toOrder()
	create := func(r Repository) (Order, error) { return r.Create(ctx, o) }
	created, err := backend.Fallback(ctx, "order.create",
		func() (Order, error) { return create(s.repo) },
		withMock(s.mock, create))
	if err != nil {
		return Order{}, err
	}
	logger.FromContext(ctx).Info("order created",
		zap.Int("order_id", created.ID),
		zap.Int("user_id", created.UserID),
		zap.String("total", created.Total.StringFixed(2)),
		zap.String("status", created.Status))
	return created, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int) ([]Order, error) {
	list := func(r Repository) ([]Order, error) { return r.ListByUser(ctx, userID) }
	return backend.Fallback(ctx, "order.list",
		func() ([]Order, error) { return list(s.repo) },
		withMock(s.mock, list))
}

// GetForUser hides orders that belong to someone else behind ErrNotFound.
func (s *Service) GetForUser(ctx context.Context, userID, id int) (Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != userID {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, id int) (Order, error) {
	get := func(r Repository) (Order, error) { return r.GetByID(ctx, id) }
	return backend.Fallback(ctx, "order.get",
		func() (Order, error) { return get(s.repo) },
		withMock(s.mock, get))
}

func (s *Service) ListAll(ctx context.Context, status string) ([]Order, error) {
	if status != "" && !ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, status)
	}
	list := func(r Repository) ([]Order, error) { return r.ListAll(ctx, status) }
	return backend.Fallback(ctx, "order.list_all",
		func() ([]Order, error) { return list(s.repo) },
		withMock(s.mock, list))
}

// UpdateStatus moves an order along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id int, status string) (Order, error) {
	if !ValidStatus(status) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, status)
	}
	update := func(r Repository) (Order, error) {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return Order{}, err
		}
		if !CanTransition(current.Status, status) {
			return Order{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, status)
		}
		return r.UpdateStatus(ctx, id, status)
	}
	updated, err := backend.Fallback(ctx, "order.update_status",
		func() (Order, error) { return update(s.repo) },
		withMock(s.mock, update))
	if err != nil {
		return Order{}, err
	}
	logger.FromContext(ctx).Info("order status changed",
		zap.Int("order_id", id), zap.String("status", status))
	return updated, nil
}
