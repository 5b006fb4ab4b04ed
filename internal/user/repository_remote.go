package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/freshcart/storefront/internal/backend"
)

type remoteUser struct {
	ID          int       `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
	Role        string    `json:"role"`
	IsActive    *bool     `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
}

func (ru remoteUser) toUser() User {
	u := User{
		ID:        ru.ID,
		Email:     ru.Email,
		FullName:  ru.FullName,
		Phone:     ru.Phone,
		Role:      ru.Role,
		IsActive:  ru.IsActive == nil || *ru.IsActive,
		CreatedAt: ru.CreatedAt,
	}
	if u.Role == "" {
		u.Role = RoleCustomer
		if ru.IsSuperuser {
			u.Role = RoleAdmin
		}
	}
	return u
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type remoteRegister struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
}

type remoteProfile struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Password *string `json:"password,omitempty"`
}

type remoteAdminUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// RemoteRepository authenticates and manages accounts through the backend API.
type RemoteRepository struct {
	client *backend.Client
}

func NewRemoteRepository(client *backend.Client) *RemoteRepository {
	return &RemoteRepository{client: client}
}

func (r *RemoteRepository) Authenticate(ctx context.Context, email, password string) (User, string, error) {
	form := url.Values{}
	form.Set("username", normalizeEmail(email))
	form.Set("password", password)

	var tok tokenResponse
	if err := r.client.PostForm(ctx, "/auth/login", form, &tok); err != nil {
		if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, backend.ErrValidation) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", err
	}
	if tok.AccessToken == "" {
		return User{}, "", fmt.Errorf("login: backend returned no access token")
	}

	var me remoteUser
	if err := r.client.GetJSON(ctx, "/users/me", nil, tok.AccessToken, &me); err != nil {
		return User{}, "", fmt.Errorf("load signed-in user: %w", err)
	}
	return me.toUser(), tok.AccessToken, nil
}

func (r *RemoteRepository) Register(ctx context.Context, in RegisterInput) (User, error) {
	body := remoteRegister{Email: normalizeEmail(in.Email), Password: in.Password, FullName: in.FullName, Phone: in.Phone}
	var created remoteUser
	if err := r.client.SendJSON(ctx, http.MethodPost, "/auth/register", "", body, &created); err != nil {
		if errors.Is(err, backend.ErrConflict) {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return created.toUser(), nil
}

func (r *RemoteRepository) Me(ctx context.Context, _ int) (User, error) {
	var me remoteUser
	if err := r.client.GetJSON(ctx, "/users/me", nil, "", &me); err != nil {
		return User{}, translate(err)
	}
	return me.toUser(), nil
}

func (r *RemoteRepository) UpdateMe(ctx context.Context, _ int, in ProfileInput) (User, error) {
	var me remoteUser
	body := remoteProfile{FullName: in.FullName, Phone: in.Phone, Password: in.Password}
	if err := r.client.SendJSON(ctx, http.MethodPatch, "/users/me", "", body, &me); err != nil {
		return User{}, translate(err)
	}
	return me.toUser(), nil
}

func (r *RemoteRepository) List(ctx context.Context) ([]User, error) {
	var rows []remoteUser
	if err := r.client.GetJSON(ctx, "/users", nil, "", &rows); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toUser())
	}
	return out, nil
}

func (r *RemoteRepository) GetByID(ctx context.Context, id int) (User, error) {
	var row remoteUser
	if err := r.client.GetJSON(ctx, fmt.Sprintf("/users/%d", id), nil, "", &row); err != nil {
		return User{}, translate(err)
	}
	return row.toUser(), nil
}

func (r *RemoteRepository) Update(ctx context.Context, id int, in AdminUpdateInput) (User, error) {
	var row remoteUser
	body := remoteAdminUpdate{FullName: in.FullName, Phone: in.Phone, Role: in.Role, IsActive: in.IsActive}
	if err := r.client.SendJSON(ctx, http.MethodPatch, fmt.Sprintf("/users/%d", id), "", body, &row); err != nil {
		return User{}, translate(err)
	}
	return row.toUser(), nil
}

func (r *RemoteRepository) Delete(ctx context.Context, id int) error {
	return translate(r.client.SendJSON(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), "", nil, nil))
}

func translate(err error) error {
	if errors.Is(err, backend.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
