package order

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o Order) (Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID int) ([]Order, error)
	// ListAll returns every order, optionally narrowed to one status.
	ListAll(ctx context.Context, status string) ([]Order, error)
	GetByID(ctx context.Context, id int) (Order, error)
	UpdateStatus(ctx context.Context, id int, status string) (Order, error)
}

type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[int]Order
	nextID int
	now    func() time.Time
}

func NewInMemoryRepository(seed []Order) *InMemoryRepository {
	r := &InMemoryRepository{now: time.Now}
	r.Reset(seed)
	return r
}

func (r *InMemoryRepository) Reset(seed []Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = make(map[int]Order, len(seed))
	r.nextID = 1
	for _, o := range seed {
		r.orders[o.ID] = cloneOrder(o)
		if o.ID >= r.nextID {
			r.nextID = o.ID + 1
		}
	}
}

// All returns every order ordered by id.
func (r *InMemoryRepository) All() []Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.filter(func(Order) bool { return true })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneOrder(o Order) Order {
	items := make([]Item, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

func (r *InMemoryRepository) filter(keep func(Order) bool) []Order {
	out := make([]Order, 0)
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

func (r *InMemoryRepository) Create(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o = cloneOrder(o)
	o.ID = r.nextID
	r.nextID++
	now := r.now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	r.orders[o.ID] = o
	return cloneOrder(o), nil
}

func (r *InMemoryRepository) ListByUser(_ context.Context, userID int) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(func(o Order) bool { return o.UserID == userID }), nil
}

func (r *InMemoryRepository) ListAll(_ context.Context, status string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(func(o Order) bool { return status == "" || o.Status == status }), nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *InMemoryRepository) UpdateStatus(_ context.Context, id int, status string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = r.now().UTC()
	r.orders[id] = o
	return cloneOrder(o), nil
}
