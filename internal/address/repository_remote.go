package address

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/freshcart/storefront/internal/backend"
)

type remoteAddress struct {
	ID         int       `json:"id"`
	UserID     int       `json:"user_id"`
	FullName   string    `json:"full_name"`
	Line1      string    `json:"address_line1"`
	Line2      string    `json:"address_line2"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	Phone      string    `json:"phone"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ra remoteAddress) toAddress() Address {
	return Address{
		ID:         ra.ID,
		UserID:     ra.UserID,
		FullName:   ra.FullName,
		Line1:      ra.Line1,
		Line2:      ra.Line2,
		City:       ra.City,
		State:      ra.State,
		PostalCode: ra.PostalCode,
		Country:    ra.Country,
		Phone:      ra.Phone,
		IsDefault:  ra.IsDefault,
		CreatedAt:  ra.CreatedAt,
	}
}

type remoteAddressWrite struct {
	FullName   *string `json:"full_name,omitempty"`
	Line1      *string `json:"address_line1,omitempty"`
	Line2      *string `json:"address_line2,omitempty"`
	City       *string `json:"city,omitempty"`
	State      *string `json:"state,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	Country    *string `json:"country,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	IsDefault  *bool   `json:"is_default,omitempty"`
}

func patchToWrite(p Patch) remoteAddressWrite {
	return remoteAddressWrite{
		FullName:   p.FullName,
		Line1:      p.Line1,
		Line2:      p.Line2,
		City:       p.City,
		State:      p.State,
		PostalCode: p.PostalCode,
		Country:    p.Country,
		Phone:      p.Phone,
		IsDefault:  p.IsDefault,
	}
}

func addressToWrite(a Address) remoteAddressWrite {
	return remoteAddressWrite{
		FullName:   &a.FullName,
		Line1:      &a.Line1,
		Line2:      &a.Line2,
		City:       &a.City,
		State:      &a.State,
		PostalCode: &a.PostalCode,
		Country:    &a.Country,
		Phone:      &a.Phone,
		IsDefault:  &a.IsDefault,
	}
}

// RemoteRepository manages the signed-in user's addresses through the backend.
// The backend scopes addresses by the bearer token, so userID is only used to
// reject foreign rows.
type RemoteRepository struct {
	client *backend.Client
}

func NewRemoteRepository(client *backend.Client) *RemoteRepository {
	return &RemoteRepository{client: client}
}

func (r *RemoteRepository) List(ctx context.Context, userID int) ([]Address, error) {
	var rows []remoteAddress
	if err := r.client.GetJSON(ctx, "/addresses", nil, "", &rows); err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	out := make([]Address, 0, len(rows))
	for _, row := range rows {
		if row.UserID != 0 && row.UserID != userID {
			continue
		}
		out = append(out, row.toAddress())
	}
	return out, nil
}

func (r *RemoteRepository) GetByID(ctx context.Context, userID, id int) (Address, error) {
	var row remoteAddress
	if err := r.client.GetJSON(ctx, fmt.Sprintf("/addresses/%d", id), nil, "", &row); err != nil {
		return Address{}, translate(err)
	}
	if row.UserID != 0 && row.UserID != userID {
		return Address{}, ErrNotFound
	}
	return row.toAddress(), nil
}

func (r *RemoteRepository) Create(ctx context.Context, a Address) (Address, error) {
	var row remoteAddress
	if err := r.client.SendJSON(ctx, http.MethodPost, "/addresses", "", addressToWrite(a), &row); err != nil {
		return Address{}, fmt.Errorf("create address: %w", err)
	}
	return row.toAddress(), nil
}

func (r *RemoteRepository) Update(ctx context.Context, _, id int, p Patch) (Address, error) {
	var row remoteAddress
	if err := r.client.SendJSON(ctx, http.MethodPatch, fmt.Sprintf("/addresses/%d", id), "", patchToWrite(p), &row); err != nil {
		return Address{}, translate(err)
	}
	return row.toAddress(), nil
}

func (r *RemoteRepository) Delete(ctx context.Context, _, id int) error {
	return translate(r.client.SendJSON(ctx, http.MethodDelete, fmt.Sprintf("/addresses/%d", id), "", nil, nil))
}

func translate(err error) error {
	if errors.Is(err, backend.ErrNotFound) || errors.Is(err, backend.ErrForbidden) {
		return ErrNotFound
	}
	return err
}
