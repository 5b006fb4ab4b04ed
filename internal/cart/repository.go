package cart

import (
	"context"
	"sort"
	"sync"
)

// Repository persists carts keyed by owner.
type Repository interface {
	// Get returns an empty cart when the owner has none.
	Get(ctx context.Context, ownerID int) (Cart, error)
	Save(ctx context.Context, c Cart) error
	Delete(ctx context.Context, ownerID int) error
	// OwnersWithProduct lists owners whose cart holds productID.
	OwnersWithProduct(ctx context.Context, productID int) ([]int, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu    sync.RWMutex
	carts map[int]Cart
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{carts: make(map[int]Cart)}
}

func (r *InMemoryRepository) Get(_ context.Context, ownerID int) (Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.carts[ownerID]
	if !ok {
		return Cart{OwnerID: ownerID, Items: []Item{}}, nil
	}
	return c.clone(), nil
}

func (r *InMemoryRepository) Save(_ context.Context, c Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[c.OwnerID] = c.clone()
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, ownerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, ownerID)
	return nil
}

func (r *InMemoryRepository) OwnersWithProduct(_ context.Context, productID int) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var owners []int
	for owner, c := range r.carts {
		if c.find(productID) >= 0 {
			owners = append(owners, owner)
		}
	}
	sort.Ints(owners)
	return owners, nil
}
