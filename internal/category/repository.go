package category

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound   = errors.New("category not found")
	ErrSlugExists = errors.New("category slug already exists")
)

type Repository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id int) (Category, error)
	Create(ctx context.Context, c Category) (Category, error)
	Update(ctx context.Context, id int, c Category) (Category, error)
	Delete(ctx context.Context, id int) error
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[int]Category
	nextID  int
}

func NewInMemoryRepository(seed []Category) *InMemoryRepository {
	r := &InMemoryRepository{}
	r.Reset(seed)
	return r
}

func (r *InMemoryRepository) List(_ context.Context) ([]Category, error) {
	return r.All(), nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.storage[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (r *InMemoryRepository) slugTaken(slug string, except int) bool {
	for id, c := range r.storage {
		if id != except && c.Slug == slug {
			return true
		}
	}
	return false
}

func (r *InMemoryRepository) Create(_ context.Context, c Category) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slugTaken(c.Slug, 0) {
		return Category{}, ErrSlugExists
	}
	c.ID = r.nextID
	r.nextID++
	r.storage[c.ID] = c
	return c, nil
}

func (r *InMemoryRepository) Update(_ context.Context, id int, c Category) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.storage[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	if r.slugTaken(c.Slug, id) {
		return Category{}, ErrSlugExists
	}
	c.ID = id
	c.ProductCount = existing.ProductCount
	r.storage[id] = c
	return c, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[id]; !ok {
		return ErrNotFound
	}
	delete(r.storage, id)
	return nil
}

func (r *InMemoryRepository) Reset(categories []Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage = make(map[int]Category, len(categories))
	r.nextID = 1
	for _, c := range categories {
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
	}
	for _, c := range categories {
		if c.ID == 0 {
			c.ID = r.nextID
			r.nextID++
		}
		r.storage[c.ID] = c
	}
}

// All returns every category ordered by id.
func (r *InMemoryRepository) All() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Category, 0, len(r.storage))
	for _, c := range r.storage {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
