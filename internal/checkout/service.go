package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/freshcart/storefront/internal/address"
	"github.com/freshcart/storefront/internal/backend"
	"github.com/freshcart/storefront/internal/cart"
	"github.com/freshcart/storefront/internal/infrastructure/cache"
	"github.com/freshcart/storefront/internal/infrastructure/logger"
	"github.com/freshcart/storefront/internal/order"
	"github.com/freshcart/storefront/internal/payment"
)

type Carts interface {
	Get(ctx context.Context, ownerID int) (cart.View, error)
	Clear(ctx context.Context, ownerID int) error
}

type Addresses interface {
	List(ctx context.Context, userID int) ([]address.Address, error)
	Create(ctx context.Context, userID int, in address.Input) (address.Address, error)
}

type Orders interface {
	Create(ctx context.Context, in order.CreateInput) (order.Order, error)
}

// Service turns a cart into a paid order.
type Service struct {
	carts     Carts
	addresses Addresses
	orders    Orders
	gateway   payment.Gateway
	store     cache.IdempotencyStore
	cfg       Config
	newKey    func() string
	observe   func(outcome string)
}

func NewService(carts Carts, addresses Addresses, orders Orders, gateway payment.Gateway, store cache.IdempotencyStore, cfg Config) *Service {
	if cfg.StepAttempts <= 0 {
		cfg.StepAttempts = 1
	}
	if cfg.StepRetryDelay <= 0 {
		cfg.StepRetryDelay = 100 * time.Millisecond
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Service{
		carts:     carts,
		addresses: addresses,
		orders:    orders,
		gateway:   gateway,
		store:     store,
		cfg:       cfg,
		newKey:    uuid.NewString,
	}
}

// storeKey scopes idempotency keys to the user so two shoppers cannot collide.
func storeKey(userID int, key string) string {
	return strconv.Itoa(userID) + ":" + key
}

// step runs fn, retrying while the failure is an outage, and records the
// attempt count and whether mock data answered.
func (s *Service) step(ctx context.Context, res *Result, name string, fn func(ctx context.Context) error) error {
	stepCtx, trace := backend.WithTrace(ctx)
	attempts := 0
	op := func() error {
		attempts++
		err := fn(stepCtx)
		if err != nil && !backend.IsUnavailable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.StepRetryDelay
	policy.MaxElapsedTime = 0
	retries := uint64(s.cfg.StepAttempts - 1)
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))

	res.Steps = append(res.Steps, Step{Name: name, Attempts: attempts, Mock: trace.Mock()})
	if err != nil {
		logger.FromContext(ctx).Warn("checkout step failed",
			zap.String("step", name), zap.Int("attempts", attempts), zap.Error(err))
	}
	return err
}

// OnOutcome registers fn to receive one outcome per Checkout call:
// completed, replayed, requires_action, declined, in_progress or failed.
func (s *Service) OnOutcome(fn func(outcome string)) {
	s.observe = fn
}

// Checkout runs the whole purchase for userID. A completed result is stored
// under the idempotency key and replayed for repeated requests.
func (s *Service) Checkout(ctx context.Context, userID int, req Request) (*Result, error) {
	res, err := s.checkout(ctx, userID, req)
	if s.observe != nil {
		s.observe(outcome(res, err))
	}
	return res, err
}

func outcome(res *Result, err error) string {
	switch {
	case errors.Is(err, ErrCheckoutInProgress):
		return "in_progress"
	case IsPaymentDeclined(err):
		return "declined"
	case err != nil:
		return "failed"
	case res.Replayed:
		return "replayed"
	}
	return res.Status
}

func (s *Service) checkout(ctx context.Context, userID int, req Request) (*Result, error) {
	key := req.IdempotencyKey
	if key == "" {
		key = s.newKey()
	}
	skey := storeKey(userID, key)
	log := logger.FromContext(ctx).With(zap.Int("user_id", userID), zap.String("idempotency_key", key))

	if prev, ok, err := s.replay(ctx, skey); err != nil || ok {
		return prev, err
	}
	reserved, err := s.store.Begin(ctx, skey, s.cfg.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if !reserved {
		if prev, ok, err := s.replay(ctx, skey); err != nil || ok {
			return prev, err
		}
		return nil, ErrCheckoutInProgress
	}

	res, err := s.run(ctx, userID, key, req)
	if err != nil || res.Status != StatusCompleted {
		if relErr := s.store.Release(context.WithoutCancel(ctx), skey); relErr != nil {
			log.Warn("release idempotency key", zap.Error(relErr))
		}
		return res, err
	}

	data, err := json.Marshal(res)
	if err == nil {
		err = s.store.Complete(context.WithoutCancel(ctx), skey, data, s.cfg.IdempotencyTTL)
	}
	if err != nil {
		log.Warn("store checkout result", zap.Error(err))
	}
	log.Info("checkout completed",
		zap.Int("order_id", res.Order.ID),
		zap.String("payment_intent_id", res.PaymentIntentID),
		zap.String("total", res.Totals.Total.StringFixed(2)))
	return res, nil
}

func (s *Service) replay(ctx context.Context, skey string) (*Result, bool, error) {
	data, ok, err := s.store.Result(ctx, skey)
	if err != nil {
		return nil, false, fmt.Errorf("load idempotency key: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("decode stored checkout: %w", err)
	}
	res.Replayed = true
	return &res, true, nil
}

func (s *Service) run(ctx context.Context, userID int, key string, req Request) (*Result, error) {
	res := &Result{IdempotencyKey: key, Steps: make([]Step, 0, 5)}

	var view cart.View
	if err := s.step(ctx, res, StepCart, func(ctx context.Context) (err error) {
		view, err = s.carts.Get(ctx, userID)
		return err
	}); err != nil {
		return nil, err
	}
	if view.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	res.Totals = view.Totals
	if !view.Totals.Total.IsPositive() {
		return nil, ErrInvalidTotal
	}

	if err := s.step(ctx, res, StepAddress, func(ctx context.Context) (err error) {
		res.AddressID, err = s.resolveAddress(ctx, userID, req)
		return err
	}); err != nil {
		return nil, err
	}

	var intent payment.Intent
	if err := s.step(ctx, res, StepIntent, func(ctx context.Context) (err error) {
		intent, err = s.gateway.CreateIntent(ctx, payment.CreateParams{
			Amount:         payment.ToMinorUnits(view.Totals.Total),
			Currency:       s.cfg.Currency,
			UserID:         userID,
			IdempotencyKey: key,
		})
		return err
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	res.PaymentIntentID = intent.ID

	if err := s.step(ctx, res, StepConfirm, func(ctx context.Context) (err error) {
		intent, err = s.gateway.Confirm(ctx, intent.ID, req.PaymentMethodID)
		return err
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}

	orderStatus := order.StatusPaid
	switch intent.Status {
	case payment.StatusSucceeded:
	case payment.StatusProcessing:
		orderStatus = order.StatusPending
	case payment.StatusRequiresAction:
		res.Status = StatusRequiresAction
		res.ClientSecret = intent.ClientSecret
		return res, nil
	default:
		return nil, fmt.Errorf("%w: payment intent is %s", ErrPaymentFailed, intent.Status)
	}

	items := make([]order.Item, 0, len(view.Cart.Items))
	for _, it := range view.Cart.Items {
		items = append(items, order.Item{ProductID: it.ProductID, Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	var placed order.Order
	if err := s.step(ctx, res, StepOrder, func(ctx context.Context) (err error) {
		placed, err = s.orders.Create(ctx, order.CreateInput{
			UserID:          userID,
			AddressID:       res.AddressID,
			Items:           items,
			Subtotal:        view.Totals.Subtotal,
			Discount:        view.Totals.Discount,
			Shipping:        view.Totals.Shipping,
			Tax:             view.Totals.Tax,
			Total:           view.Totals.Total,
			DiscountCode:    view.Cart.DiscountCode,
			Status:          orderStatus,
			PaymentIntentID: intent.ID,
		})
		return err
	}); err != nil {
		return nil, s.refund(ctx, intent.ID, err)
	}
	res.Order = &placed
	res.Status = StatusCompleted

	if err := s.carts.Clear(ctx, userID); err != nil {
		logger.FromContext(ctx).Warn("clear cart after checkout",
			zap.Int("user_id", userID), zap.Error(err))
	}
	return res, nil
}

// refund gives the money back after the order could not be recorded.
func (s *Service) refund(ctx context.Context, intentID string, cause error) error {
	log := logger.FromContext(ctx)
	if err := s.gateway.Refund(context.WithoutCancel(ctx), intentID); err != nil {
		log.Error("refund after failed order", zap.String("payment_intent_id", intentID), zap.Error(err))
		return fmt.Errorf("%w: payment %s was taken but could not be refunded: %w", ErrOrderFailed, intentID, cause)
	}
	log.Warn("payment refunded after failed order", zap.String("payment_intent_id", intentID), zap.Error(cause))
	return fmt.Errorf("%w: payment %s was refunded: %w", ErrOrderFailed, intentID, cause)
}

func (s *Service) resolveAddress(ctx context.Context, userID int, req Request) (int, error) {
	if req.AddressID != nil {
		addrs, err := s.addresses.List(ctx, userID)
		if err != nil {
			return 0, err
		}
		for _, a := range addrs {
			if a.ID == *req.AddressID {
				return a.ID, nil
			}
		}
		return 0, address.ErrNotFound
	}
	if req.Address == nil {
		return 0, ErrAddressRequired
	}
	created, err := s.addresses.Create(ctx, userID, *req.Address)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

// IsPaymentDeclined reports whether err is a card decline.
func IsPaymentDeclined(err error) bool {
	return errors.Is(err, payment.ErrCardDeclined)
}
