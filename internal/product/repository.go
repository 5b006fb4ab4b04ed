package product

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("product not found")
)

type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id int) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id int, p Product) (Product, error)
	Delete(ctx context.Context, id int) error
}

// InMemoryRepository serves the mock catalogue and backs the handler tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Product
	nextID  int
	now     func() time.Time
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{now: time.Now}
	r.Reset(seed)
	return r
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Apply(r.storage, f), nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.storage {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	now := r.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.storage = append(r.storage, p)
	return p, nil
}

func (r *InMemoryRepository) Update(_ context.Context, id int, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			p.ID = id
			p.CreatedAt = r.storage[i].CreatedAt
			p.UpdatedAt = r.now().UTC()
			if p.CategoryName == "" && p.CategoryID == r.storage[i].CategoryID {
				p.CategoryName = r.storage[i].CategoryName
			}
			r.storage[i] = p
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			r.storage = append(r.storage[:i], r.storage[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Reset replaces the whole in-memory storage with the provided products.
func (r *InMemoryRepository) Reset(products []Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage = make([]Product, 0, len(products))
	maxID := 0
	for _, p := range products {
		r.storage = append(r.storage, p)
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	r.nextID = maxID + 1
	for i := range r.storage {
		if r.storage[i].ID == 0 {
			r.storage[i].ID = r.nextID
			r.nextID++
		}
	}
}

// All returns a copy of every stored product, inactive ones included.
func (r *InMemoryRepository) All() []Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, len(r.storage))
	copy(out, r.storage)
	return out
}
