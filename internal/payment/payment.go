package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Intent statuses, as Stripe reports them.
const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresConfirmation  = "requires_confirmation"
	StatusRequiresAction        = "requires_action"
	StatusProcessing            = "processing"
	StatusSucceeded             = "succeeded"
	StatusCanceled              = "canceled"
)

var (
	ErrCardDeclined   = errors.New("card declined")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrIntentNotFound = errors.New("payment intent not found")
)

// Intent is a payment intent; Amount is in minor units.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	Mock         bool   `json:"mock,omitempty"`
}

type CreateParams struct {
	Amount         int64
	Currency       string
	UserID         int
	IdempotencyKey string
}

// Gateway creates, confirms and refunds payment intents.
type Gateway interface {
	CreateIntent(ctx context.Context, p CreateParams) (Intent, error)
	Confirm(ctx context.Context, intentID, paymentMethodID string) (Intent, error)
	Refund(ctx context.Context, intentID string) error
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts an amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
