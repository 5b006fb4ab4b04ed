package checkout

import (
	"errors"
	"time"

	"github.com/freshcart/storefront/internal/address"
	"github.com/freshcart/storefront/internal/cart"
	"github.com/freshcart/storefront/internal/order"
)

const (
	StatusCompleted      = "completed"
	StatusRequiresAction = "requires_action"
)

// Step names, in the order they run.
const (
	StepCart    = "cart"
	StepAddress = "address"
	StepIntent  = "payment_intent"
	StepConfirm = "payment_confirm"
	StepOrder   = "order"
)

var (
	ErrCheckoutInProgress = errors.New("a checkout with this idempotency key is already in progress")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidTotal       = errors.New("order total must be greater than zero")
	ErrAddressRequired    = errors.New("a shipping address is required")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrOrderFailed        = errors.New("order could not be created")
)

// Request is the checkout payload. Exactly one of AddressID or Address is
// expected; AddressID wins when both are sent.
type Request struct {
	AddressID       *int           `json:"addressId" validate:"omitempty,gt=0"`
	Address         *address.Input `json:"address"`
	PaymentMethodID string         `json:"paymentMethodId" validate:"required,max=255"`
	IdempotencyKey  string         `json:"-"`
}

// Step records how a checkout step went.
type Step struct {
	Name     string `json:"name"`
	Attempts int    `json:"attempts"`
	Mock     bool   `json:"mock"`
}

type Result struct {
	Status          string       `json:"status"`
	Order           *order.Order `json:"order,omitempty"`
	PaymentIntentID string       `json:"paymentIntentId"`
	ClientSecret    string       `json:"clientSecret,omitempty"`
	AddressID       int          `json:"addressId"`
	Totals          cart.Totals  `json:"totals"`
	Steps           []Step       `json:"steps"`
	IdempotencyKey  string       `json:"idempotencyKey"`
	Replayed        bool         `json:"replayed,omitempty"`
}

type Config struct {
	Currency       string
	StepAttempts   int
	StepRetryDelay time.Duration
	IdempotencyTTL time.Duration
}

// ClientConfig is what the storefront needs to mount the payment form.
type ClientConfig struct {
	PublishableKey string `json:"publishableKey"`
	Currency       string `json:"currency"`
	Provider       string `json:"provider"`
}
