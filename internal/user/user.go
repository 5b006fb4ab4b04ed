package user

import (
	"strings"
	"time"
)

type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	FullName string `json:"fullName" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"max=32"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput is a partial update of the signed-in user's own record.
type ProfileInput struct {
	FullName *string `json:"fullName" validate:"omitempty,min=1,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
}

// AdminUpdateInput is what an administrator may change on any account.
type AdminUpdateInput struct {
	FullName *string `json:"fullName" validate:"omitempty,min=1,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin customer"`
	IsActive *bool   `json:"isActive"`
}
