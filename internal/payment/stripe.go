package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"

	"github.com/freshcart/storefront/internal/backend"
)

// StripeGateway talks to Stripe directly with the secret key.
type StripeGateway struct {
	intents *paymentintent.Client
	refunds *refund.Client
}

// NewStripeGateway uses b when set, otherwise Stripe's API backend.
func NewStripeGateway(secretKey string, b stripe.Backend) *StripeGateway {
	if b == nil {
		b = stripe.GetBackend(stripe.APIBackend)
	}
	return &StripeGateway{
		intents: &paymentintent.Client{B: b, Key: secretKey},
		refunds: &refund.Client{B: b, Key: secretKey},
	}
}

func fromStripe(pi *stripe.PaymentIntent) Intent {
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, p CreateParams) (Intent, error) {
	if p.Amount <= 0 {
		return Intent{}, ErrInvalidAmount
	}
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(p.Amount),
		Currency:           stripe.String(p.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.Itoa(p.UserID))
	if p.IdempotencyKey != "" {
		params.AddMetadata("idempotency_key", p.IdempotencyKey)
		params.SetIdempotencyKey("intent-" + p.IdempotencyKey)
	}
	pi, err := g.intents.New(params)
	if err != nil {
		return Intent{}, stripeError("create payment intent", err)
	}
	return fromStripe(pi), nil
}

func (g *StripeGateway) Confirm(ctx context.Context, intentID, paymentMethodID string) (Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx
	pi, err := g.intents.Confirm(intentID, params)
	if err != nil {
		if settled, ok := g.settled(ctx, intentID, err); ok {
			return settled, nil
		}
		return Intent{}, stripeError("confirm payment intent", err)
	}
	return fromStripe(pi), nil
}

// settled returns the intent when Stripe refused a confirm because the intent
// already went through, as after a completed 3DS challenge.
func (g *StripeGateway) settled(ctx context.Context, intentID string, confirmErr error) (Intent, bool) {
	var se *stripe.Error
	if !errors.As(confirmErr, &se) || se.Code != stripe.ErrorCodePaymentIntentUnexpectedState {
		return Intent{}, false
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.intents.Get(intentID, params)
	if err != nil {
		return Intent{}, false
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		return fromStripe(pi), true
	}
	return Intent{}, false
}

func (g *StripeGateway) Refund(ctx context.Context, intentID string) error {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx
	if _, err := g.refunds.New(params); err != nil {
		return stripeError("refund payment intent", err)
	}
	return nil
}

// stripeError maps card failures to ErrCardDeclined and outages to
// backend.ErrUnavailable so callers can retry.
func stripeError(op string, err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("stripe: %s: %w: %v", op, backend.ErrUnavailable, err)
	}
	switch {
	case se.Type == stripe.ErrorTypeCard || se.Code == stripe.ErrorCodeCardDeclined:
		return fmt.Errorf("%w: %s", ErrCardDeclined, se.Msg)
	case se.Code == stripe.ErrorCodeResourceMissing:
		return fmt.Errorf("stripe: %s: %w", op, ErrIntentNotFound)
	case se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("stripe: %s: %w: %s", op, backend.ErrUnavailable, se.Msg)
	}
	return fmt.Errorf("stripe: %s: %w", op, err)
}
