package address

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("address not found")

// Repository scopes every operation to the owning user.
type Repository interface {
	List(ctx context.Context, userID int) ([]Address, error)
	GetByID(ctx context.Context, userID, id int) (Address, error)
	Create(ctx context.Context, a Address) (Address, error)
	Update(ctx context.Context, userID, id int, p Patch) (Address, error)
	Delete(ctx context.Context, userID, id int) error
}

// InMemoryRepository keeps at most one default address per user: the first
// address is the default, a new default demotes the old one, and deleting the
// default promotes the oldest remaining address.
type InMemoryRepository struct {
	mu     sync.RWMutex
	items  map[int]Address
	nextID int
	now    func() time.Time
}

func NewInMemoryRepository(seed []Address) *InMemoryRepository {
	r := &InMemoryRepository{now: time.Now}
	r.Reset(seed)
	return r
}

func (r *InMemoryRepository) Reset(seed []Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[int]Address, len(seed))
	r.nextID = 1
	for _, a := range seed {
		r.items[a.ID] = a
		if a.ID >= r.nextID {
			r.nextID = a.ID + 1
		}
	}
}

// All returns every address ordered by id.
func (r *InMemoryRepository) All() []Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(func(Address) bool { return true })
}

func (r *InMemoryRepository) filter(keep func(Address) bool) []Address {
	out := make([]Address, 0)
	for _, a := range r.items {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *InMemoryRepository) List(_ context.Context, userID int) ([]Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(func(a Address) bool { return a.UserID == userID }), nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, userID, id int) (Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok || a.UserID != userID {
		return Address{}, ErrNotFound
	}
	return a, nil
}

func (r *InMemoryRepository) Create(_ context.Context, a Address) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := r.filter(func(x Address) bool { return x.UserID == a.UserID })
	if len(owned) == 0 {
		a.IsDefault = true
	}
	a.ID = r.nextID
	r.nextID++
	a.CreatedAt = r.now().UTC()
	r.items[a.ID] = a
	if a.IsDefault {
		r.demoteOthers(a.UserID, a.ID)
	}
	return a, nil
}

func (r *InMemoryRepository) Update(_ context.Context, userID, id int, p Patch) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok || a.UserID != userID {
		return Address{}, ErrNotFound
	}
	wasDefault := a.IsDefault
	a = p.apply(a)
	r.items[id] = a
	switch {
	case a.IsDefault:
		r.demoteOthers(userID, id)
	case wasDefault:
		r.promoteOldest(userID)
	}
	return r.items[id], nil
}

func (r *InMemoryRepository) Delete(_ context.Context, userID, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	delete(r.items, id)
	if a.IsDefault {
		r.promoteOldest(userID)
	}
	return nil
}

func (r *InMemoryRepository) demoteOthers(userID, keep int) {
	for id, a := range r.items {
		if a.UserID == userID && id != keep && a.IsDefault {
			a.IsDefault = false
			r.items[id] = a
		}
	}
}

func (r *InMemoryRepository) promoteOldest(userID int) {
	owned := r.filter(func(a Address) bool { return a.UserID == userID })
	for _, a := range owned {
		if a.IsDefault {
			return
		}
	}
	if len(owned) > 0 {
		first := owned[0]
		first.IsDefault = true
		r.items[first.ID] = first
	}
}
