package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/freshcart/storefront/internal/backend"
)

type remoteItem struct {
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type remoteOrder struct {
	ID              int             `json:"id"`
	UserID          int             `json:"user_id"`
	AddressID       int             `json:"shipping_address_id"`
	Items           []remoteItem    `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Shipping        decimal.Decimal `json:"shipping_fee"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	DiscountCode    string          `json:"discount_code"`
	Status          string          `json:"status"`
	PaymentIntentID string          `json:"payment_intent_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (ro remoteOrder) toOrder() Order {
	items := make([]Item, 0, len(ro.Items))
	for _, it := range ro.Items {
		items = append(items, Item{ProductID: it.ProductID, Name: it.ProductName, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return Order{
		ID:              ro.ID,
		UserID:          ro.UserID,
		AddressID:       ro.AddressID,
		Items:           items,
		Subtotal:        ro.Subtotal,
		Discount:        ro.Discount,
		Shipping:        ro.Shipping,
		Tax:             ro.Tax,
		Total:           ro.Total,
		DiscountCode:    ro.DiscountCode,
		Status:          ro.Status,
		PaymentIntentID: ro.PaymentIntentID,
		CreatedAt:       ro.CreatedAt,
		UpdatedAt:       ro.UpdatedAt,
	}
}

type remoteItemWrite struct {
	ProductID   int     `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type remoteOrderWrite struct {
	AddressID       int               `json:"shipping_address_id,omitempty"`
	Items           []remoteItemWrite `json:"items"`
	Subtotal        float64           `json:"subtotal"`
	Discount        float64           `json:"discount"`
	Shipping        float64           `json:"shipping_fee"`
	Tax             float64           `json:"tax"`
	Total           float64           `json:"total"`
	DiscountCode    string            `json:"discount_code,omitempty"`
	Status          string            `json:"status"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
}

func toRemoteWrite(o Order) remoteOrderWrite {
	items := make([]remoteItemWrite, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, remoteItemWrite{
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.InexactFloat64(),
		})
	}
	return remoteOrderWrite{
		AddressID:       o.AddressID,
		Items:           items,
		Subtotal:        o.Subtotal.InexactFloat64(),
		Discount:        o.Discount.InexactFloat64(),
		Shipping:        o.Shipping.InexactFloat64(),
		Tax:             o.Tax.InexactFloat64(),
		Total:           o.Total.InexactFloat64(),
		DiscountCode:    o.DiscountCode,
		Status:          o.Status,
		PaymentIntentID: o.PaymentIntentID,
	}
}

// RemoteRepository stores orders through the backend API. The caller's token
// decides whose orders /orders returns.
type RemoteRepository struct {
	client *backend.Client
}

func NewRemoteRepository(client *backend.Client) *RemoteRepository {
	return &RemoteRepository{client: client}
}

func (r *RemoteRepository) Create(ctx context.Context, o Order) (Order, error) {
	var row remoteOrder
	if err := r.client.SendJSON(ctx, http.MethodPost, "/orders", "", toRemoteWrite(o), &row); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	created := row.toOrder()
	if created.UserID == 0 {
		created.UserID = o.UserID
	}
	return created, nil
}

func (r *RemoteRepository) list(ctx context.Context, path string, q url.Values) ([]Order, error) {
	var rows []remoteOrder
	if err := r.client.GetJSON(ctx, path, q, "", &rows); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toOrder())
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *RemoteRepository) ListByUser(ctx context.Context, userID int) ([]Order, error) {
	all, err := r.list(ctx, "/orders", nil)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, o := range all {
		if o.UserID == 0 || o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *RemoteRepository) ListAll(ctx context.Context, status string) ([]Order, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	return r.list(ctx, "/admin/orders", q)
}

func (r *RemoteRepository) GetByID(ctx context.Context, id int) (Order, error) {
	var row remoteOrder
	if err := r.client.GetJSON(ctx, fmt.Sprintf("/orders/%d", id), nil, "", &row); err != nil {
		return Order{}, notFound(err)
	}
	return row.toOrder(), nil
}

func (r *RemoteRepository) UpdateStatus(ctx context.Context, id int, status string) (Order, error) {
	var row remoteOrder
	body := map[string]string{"status": status}
	if err := r.client.SendJSON(ctx, http.MethodPatch, fmt.Sprintf("/admin/orders/%d/status", id), "", body, &row); err != nil {
		if errors.Is(err, backend.ErrConflict) {
			return Order{}, ErrInvalidTransition
		}
		return Order{}, notFound(err)
	}
	return row.toOrder(), nil
}

func notFound(err error) error {
	if errors.Is(err, backend.ErrNotFound) || errors.Is(err, backend.ErrForbidden) {
		return ErrNotFound
	}
	return err
}
