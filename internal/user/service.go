package user

import (
	"context"
	"time"

	"github.com/freshcart/storefront/internal/auth"
	"github.com/freshcart/storefront/internal/backend"
)

type Service struct {
	repo   Repository
	mock   Repository
	issuer *auth.Issuer
}

// NewService builds the account service. mock may be nil to disable the fallback.
func NewService(repo Repository, mock Repository, issuer *auth.Issuer) *Service {
	return &Service{repo: repo, mock: mock, issuer: issuer}
}

func fallback[T any](mock Repository, fn func(Repository) (T, error)) func() (T, error) {
	if mock == nil {
		return nil
	}
	return func() (T, error) { return fn(mock) }
}

// SignInResult is a verified user with a freshly issued session token.
type SignInResult struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type credentials struct {
	user  User
	token string
}

func (s *Service) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	login := func(r Repository) (credentials, error) {
		u, tok, err := r.Authenticate(ctx, email, password)
		return credentials{user: u, token: tok}, err
	}
	creds, err := backend.Fallback(ctx, "user.sign_in",
		func() (credentials, error) { return login(s.repo) },
		fallback(s.mock, login))
	if err != nil {
		return SignInResult{}, err
	}
	if !creds.user.IsActive {
		return SignInResult{}, ErrInvalidCredentials
	}

	role := creds.user.Role
	if role == "" {
		role = RoleCustomer
	}
	token, exp, err := s.issuer.Issue(auth.Session{
		UserID:   creds.user.ID,
		Email:    creds.user.Email,
		Name:     creds.user.FullName,
		Role:     role,
		APIToken: creds.token,
	})
	if err != nil {
		return SignInResult{}, err
	}
	return SignInResult{User: creds.user, Token: token, ExpiresAt: exp}, nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	register := func(r Repository) (User, error) { return r.Register(ctx, in) }
	return backend.Fallback(ctx, "user.register",
		func() (User, error) { return register(s.repo) },
		fallback(s.mock, register))
}

func (s *Service) Me(ctx context.Context, id int) (User, error) {
	me := func(r Repository) (User, error) { return r.Me(ctx, id) }
	return backend.Fallback(ctx, "user.me",
		func() (User, error) { return me(s.repo) },
		fallback(s.mock, me))
}

func (s *Service) UpdateProfile(ctx context.Context, id int, in ProfileInput) (User, error) {
	update := func(r Repository) (User, error) { return r.UpdateMe(ctx, id, in) }
	return backend.Fallback(ctx, "user.update_profile",
		func() (User, error) { return update(s.repo) },
		fallback(s.mock, update))
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	list := func(r Repository) ([]User, error) { return r.List(ctx) }
	return backend.Fallback(ctx, "user.list",
		func() ([]User, error) { return list(s.repo) },
		fallback(s.mock, list))
}

func (s *Service) GetByID(ctx context.Context, id int) (User, error) {
	get := func(r Repository) (User, error) { return r.GetByID(ctx, id) }
	return backend.Fallback(ctx, "user.get",
		func() (User, error) { return get(s.repo) },
		fallback(s.mock, get))
}

func (s *Service) Update(ctx context.Context, id int, in AdminUpdateInput) (User, error) {
	update := func(r Repository) (User, error) { return r.Update(ctx, id, in) }
	return backend.Fallback(ctx, "user.update",
		func() (User, error) { return update(s.repo) },
		fallback(s.mock, update))
}

func (s *Service) Delete(ctx context.Context, id int) error {
	var fb func() error
	if s.mock != nil {
		fb = func() error { return s.mock.Delete(ctx, id) }
	}
	return backend.FallbackErr(ctx, "user.delete", func() error { return s.repo.Delete(ctx, id) }, fb)
}
