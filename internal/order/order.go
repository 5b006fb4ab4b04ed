package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending    = "pending"
	StatusPaid       = "paid"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// lifecycle lists the forward order of statuses; cancelled sits outside it.
var lifecycle = []string{StatusPending, StatusPaid, StatusProcessing, StatusShipped, StatusDelivered}

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidOrder      = errors.New("invalid order")
)

// Item is a line of an order, priced at the time of purchase.
type Item struct {
	ProductID int             `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (it Item) LineTotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Order struct {
	ID              int             `json:"id"`
	UserID          int             `json:"userId"`
	AddressID       int             `json:"addressId"`
	Items           []Item          `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Shipping        decimal.Decimal `json:"shipping"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	DiscountCode    string          `json:"discountCode,omitempty"`
	Status          string          `json:"status"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CreateInput carries everything checkout knows when it places an order.
type CreateInput struct {
	UserID          int
	AddressID       int
	Items           []Item
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	Shipping        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	DiscountCode    string
	Status          string
	PaymentIntentID string
}

func (in CreateInput) validate() error {
	if in.UserID <= 0 {
		return fmt.Errorf("%w: missing user", ErrInvalidOrder)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 || it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: bad item", ErrInvalidOrder)
		}
	}
	if in.Total.IsNegative() {
		return fmt.Errorf("%w: negative total", ErrInvalidOrder)
	}
	if in.Status != "" && !ValidStatus(in.Status) {
		return fmt.Errorf("%w: unknown status", ErrInvalidOrder)
	}
	return nil
}

func (in CreateInput) toOrder() Order {
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	items := make([]Item, len(in.Items))
	copy(items, in.Items)
	return Order{
		UserID:          in.UserID,
		AddressID:       in.AddressID,
		Items:           items,
		Subtotal:        in.Subtotal,
		Discount:        in.Discount,
		Shipping:        in.Shipping,
		Tax:             in.Tax,
		Total:           in.Total,
		DiscountCode:    in.DiscountCode,
		Status:          status,
		PaymentIntentID: in.PaymentIntentID,
	}
}

func ValidStatus(s string) bool {
	return s == StatusCancelled || rank(s) >= 0
}

func rank(s string) int {
	for i, st := range lifecycle {
		if st == s {
			return i
		}
	}
	return -1
}

// CanTransition reports whether an order may move from one status to another.
// Orders only move forward; any non-terminal order may be cancelled.
func CanTransition(from, to string) bool {
	if from == StatusCancelled || from == StatusDelivered {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	f, t := rank(from), rank(to)
	return f >= 0 && t > f
}
