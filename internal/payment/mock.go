package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	MockIntentPrefix = "pi_mock_"

	// Stripe's test payment methods, honoured by MockGateway.
	DeclinedPaymentMethod       = "pm_card_chargeDeclined"
	AuthenticationPaymentMethod = "pm_card_authenticationRequired"
)

// MockGateway simulates Stripe in memory.
type MockGateway struct {
	mu       sync.Mutex
	intents  map[string]Intent
	refunded map[string]bool
}

func NewMockGateway() *MockGateway {
	return &MockGateway{intents: make(map[string]Intent), refunded: make(map[string]bool)}
}

func IsMockIntent(id string) bool {
	return strings.HasPrefix(id, MockIntentPrefix)
}

func (g *MockGateway) CreateIntent(_ context.Context, p CreateParams) (Intent, error) {
	if p.Amount <= 0 {
		return Intent{}, ErrInvalidAmount
	}
	id := MockIntentPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	in := Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.NewString()[:8],
		Amount:       p.Amount,
		Currency:     strings.ToLower(p.Currency),
		Status:       StatusRequiresPaymentMethod,
		Mock:         true,
	}
	g.mu.Lock()
	g.intents[id] = in
	g.mu.Unlock()
	return in, nil
}

// Confirm also accepts intents created elsewhere so a real backend can be
// paired with simulated confirmation.
func (g *MockGateway) Confirm(_ context.Context, intentID, paymentMethodID string) (Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	in, ok := g.intents[intentID]
	if !ok {
		in = Intent{ID: intentID, Status: StatusRequiresPaymentMethod, Mock: true}
	}
	if in.Status == StatusSucceeded {
		return in, nil
	}
	switch paymentMethodID {
	case DeclinedPaymentMethod:
		in.Status = StatusRequiresPaymentMethod
		g.intents[intentID] = in
		return Intent{}, fmt.Errorf("%w: your card was declined", ErrCardDeclined)
	case AuthenticationPaymentMethod:
		in.Status = StatusRequiresAction
	default:
		in.Status = StatusSucceeded
	}
	g.intents[intentID] = in
	return in, nil
}

func (g *MockGateway) Refund(_ context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.intents[intentID]; !ok {
		return ErrIntentNotFound
	}
	g.refunded[intentID] = true
	return nil
}

func (g *MockGateway) Refunded(intentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunded[intentID]
}
