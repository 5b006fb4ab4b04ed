package payment

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/freshcart/storefront/internal/backend"
)

type createIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

type createIntentResponse struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
}

// BackendGateway creates intents through the backend API. Confirmation and
// refunds go to confirmer; mock-created intents always stay with mock.
type BackendGateway struct {
	client    *backend.Client
	confirmer Gateway
	mock      *MockGateway
}

// NewBackendGateway wires the gateway. mock may be nil to disable fallback;
// a nil confirmer confirms through the mock gateway.
func NewBackendGateway(client *backend.Client, confirmer Gateway, mock *MockGateway) *BackendGateway {
	g := &BackendGateway{client: client, confirmer: confirmer, mock: mock}
	if g.confirmer == nil {
		if g.mock == nil {
			g.mock = NewMockGateway()
		}
		g.confirmer = g.mock
	}
	return g
}

func (g *BackendGateway) CreateIntent(ctx context.Context, p CreateParams) (Intent, error) {
	if p.Amount <= 0 {
		return Intent{}, ErrInvalidAmount
	}
	var fallback func() (Intent, error)
	if g.mock != nil {
		fallback = func() (Intent, error) { return g.mock.CreateIntent(ctx, p) }
	}
	return backend.Fallback(ctx, "payment.create_intent", func() (Intent, error) {
		req := createIntentRequest{
			Amount:   p.Amount,
			Currency: strings.ToLower(p.Currency),
			Metadata: map[string]string{"user_id": strconv.Itoa(p.UserID)},
		}
		if p.IdempotencyKey != "" {
			req.Metadata["idempotency_key"] = p.IdempotencyKey
		}
		var resp createIntentResponse
		if err := g.client.SendJSON(ctx, http.MethodPost, "/payments/create-payment-intent", "", req, &resp); err != nil {
			return Intent{}, fmt.Errorf("create payment intent: %w", err)
		}
		in := Intent{
			ID:           resp.PaymentIntentID,
			ClientSecret: resp.ClientSecret,
			Amount:       resp.Amount,
			Currency:     resp.Currency,
			Status:       resp.Status,
		}
		if in.Amount == 0 {
			in.Amount = p.Amount
		}
		if in.Currency == "" {
			in.Currency = req.Currency
		}
		if in.Status == "" {
			in.Status = StatusRequiresPaymentMethod
		}
		return in, nil
	}, fallback)
}

func (g *BackendGateway) route(intentID string) Gateway {
	if IsMockIntent(intentID) && g.mock != nil {
		return g.mock
	}
	return g.confirmer
}

func (g *BackendGateway) Confirm(ctx context.Context, intentID, paymentMethodID string) (Intent, error) {
	return g.route(intentID).Confirm(ctx, intentID, paymentMethodID)
}

func (g *BackendGateway) Refund(ctx context.Context, intentID string) error {
	return g.route(intentID).Refund(ctx, intentID)
}
