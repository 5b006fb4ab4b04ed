package user

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
)

// MockTokenPrefix marks API tokens minted by the in-memory repository.
const MockTokenPrefix = "mock-"

type Repository interface {
	// Authenticate checks the credentials and returns the user with a backend API token.
	Authenticate(ctx context.Context, email, password string) (User, string, error)
	Register(ctx context.Context, in RegisterInput) (User, error)
	Me(ctx context.Context, id int) (User, error)
	UpdateMe(ctx context.Context, id int, in ProfileInput) (User, error)
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id int) (User, error)
	Update(ctx context.Context, id int, in AdminUpdateInput) (User, error)
	Delete(ctx context.Context, id int) error
}

// Account is a user together with its bcrypt password hash.
type Account struct {
	User         User   `json:"user"`
	PasswordHash string `json:"passwordHash"`
}

// HashPassword returns the bcrypt hash stored for mock accounts.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

type InMemoryRepository struct {
	mu       sync.RWMutex
	accounts []Account
	nextID   int
	now      func() time.Time
}

func NewInMemoryRepository(seed []Account) *InMemoryRepository {
	repo := &InMemoryRepository{now: time.Now}
	repo.Reset(seed)
	return repo
}

func (r *InMemoryRepository) Reset(seed []Account) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts = make([]Account, 0, len(seed))
	maxID := 0
	for _, a := range seed {
		a.User.Email = normalizeEmail(a.User.Email)
		r.accounts = append(r.accounts, a)
		if a.User.ID > maxID {
			maxID = a.User.ID
		}
	}
	r.nextID = maxID + 1
}

// Accounts returns a copy of every stored account, hashes included.
func (r *InMemoryRepository) Accounts() []Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Account, len(r.accounts))
	copy(out, r.accounts)
	return out
}

func (r *InMemoryRepository) indexOf(id int) int {
	for i, a := range r.accounts {
		if a.User.ID == id {
			return i
		}
	}
	return -1
}

func (r *InMemoryRepository) Authenticate(_ context.Context, email, password string) (User, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = normalizeEmail(email)
	for _, a := range r.accounts {
		if a.User.Email != email {
			continue
		}
		if !a.User.IsActive || bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
			return User{}, "", ErrInvalidCredentials
		}
		return a.User, MockTokenPrefix + uuid.NewString(), nil
	}
	return User{}, "", ErrInvalidCredentials
}

func (r *InMemoryRepository) Register(_ context.Context, in RegisterInput) (User, error) {
	hashed, err := HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(in.Email)
	for _, a := range r.accounts {
		if a.User.Email == email {
			return User{}, ErrEmailExists
		}
	}
	u := User{
		ID:        r.nextID,
		Email:     email,
		FullName:  in.FullName,
		Phone:     in.Phone,
		Role:      RoleCustomer,
		IsActive:  true,
		CreatedAt: r.now().UTC(),
	}
	r.nextID++
	r.accounts = append(r.accounts, Account{User: u, PasswordHash: hashed})
	return u, nil
}

func (r *InMemoryRepository) Me(ctx context.Context, id int) (User, error) {
	return r.GetByID(ctx, id)
}

func (r *InMemoryRepository) UpdateMe(_ context.Context, id int, in ProfileInput) (User, error) {
	var hashed string
	if in.Password != nil {
		h, err := HashPassword(*in.Password)
		if err != nil {
			return User{}, err
		}
		hashed = h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return User{}, ErrNotFound
	}
	a := &r.accounts[i]
	if in.FullName != nil {
		a.User.FullName = *in.FullName
	}
	if in.Phone != nil {
		a.User.Phone = *in.Phone
	}
	if hashed != "" {
		a.PasswordHash = hashed
	}
	return a.User, nil
}

func (r *InMemoryRepository) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.accounts[i].User, nil
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Update(_ context.Context, id int, in AdminUpdateInput) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return User{}, ErrNotFound
	}
	u := &r.accounts[i].User
	if in.FullName != nil {
		u.FullName = *in.FullName
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	return *u, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	r.accounts = append(r.accounts[:i], r.accounts[i+1:]...)
	return nil
}
