package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/freshcart/storefront/internal/infrastructure/logger"
	"github.com/freshcart/storefront/internal/product"
)

// ProductLookup resolves the product snapshot stored in a cart line.
type ProductLookup interface {
	GetByID(ctx context.Context, id int) (product.Product, error)
}

const lockStripes = 32

// Service orchestrates cart operations.
type Service struct {
	repo     Repository
	products ProductLookup
	pricing  Pricing
	now      func() time.Time
	locks    [lockStripes]sync.Mutex
}

func NewService(repo Repository, products ProductLookup, pricing Pricing) *Service {
	return &Service{repo: repo, products: products, pricing: pricing, now: time.Now}
}

func (s *Service) Pricing() Pricing { return s.pricing }

func (s *Service) lock(ownerID int) func() {
	m := &s.locks[uint(ownerID)%lockStripes]
	m.Lock()
	return m.Unlock
}

func (s *Service) view(c Cart) View {
	if c.Items == nil {
		c.Items = []Item{}
	}
	return View{Cart: c, Totals: s.pricing.Totals(c)}
}

// Totals prices c with the configured rules.
func (s *Service) Totals(c Cart) Totals {
	return s.pricing.Totals(c)
}

func (s *Service) Get(ctx context.Context, ownerID int) (View, error) {
	c, err := s.repo.Get(ctx, ownerID)
	if err != nil {
		return View{}, err
	}
	return s.view(c), nil
}

// modify runs fn on the owner's cart under the owner's lock and saves the result.
func (s *Service) modify(ctx context.Context, ownerID int, fn func(*Cart) error) (View, error) {
	unlock := s.lock(ownerID)
	defer unlock()

	c, err := s.repo.Get(ctx, ownerID)
	if err != nil {
		return View{}, err
	}
	if err := fn(&c); err != nil {
		return View{}, err
	}
	c.OwnerID = ownerID
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, c); err != nil {
		return View{}, err
	}
	return s.view(c), nil
}

func (s *Service) lookup(ctx context.Context, productID int) (Item, error) {
	p, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, product.ErrNotFound) {
		return Item{}, ErrProductUnavailable
	}
	if err != nil {
		return Item{}, err
	}
	if !p.Available() {
		return Item{}, ErrProductUnavailable
	}
	return Item{
		ProductID: p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		Unit:      p.Unit,
		UnitPrice: p.Price,
	}, nil
}

// AddItem puts qty of a product in the cart, incrementing an existing line.
func (s *Service) AddItem(ctx context.Context, ownerID, productID, qty int) (View, error) {
	if qty <= 0 {
		return View{}, ErrInvalidQuantity
	}
	it, err := s.lookup(ctx, productID)
	if err != nil {
		return View{}, err
	}
	return s.modify(ctx, ownerID, func(c *Cart) error {
		return c.add(it, qty)
	})
}

// Adjust applies a signed quantity change. Positive deltas add the product,
// negative ones decrement and drop the line at zero.
func (s *Service) Adjust(ctx context.Context, ownerID, productID, delta int) (View, error) {
	switch {
	case delta > 0:
		return s.AddItem(ctx, ownerID, productID, delta)
	case delta == 0:
		return s.Get(ctx, ownerID)
	}
	return s.modify(ctx, ownerID, func(c *Cart) error {
		i := c.find(productID)
		if i < 0 {
			return ErrItemNotFound
		}
		return c.setQuantity(productID, c.Items[i].Quantity+delta)
	})
}

// SetQuantity replaces a line's quantity; zero or less removes it.
func (s *Service) SetQuantity(ctx context.Context, ownerID, productID, qty int) (View, error) {
	return s.modify(ctx, ownerID, func(c *Cart) error {
		return c.setQuantity(productID, qty)
	})
}

func (s *Service) RemoveItem(ctx context.Context, ownerID, productID int) (View, error) {
	return s.modify(ctx, ownerID, func(c *Cart) error {
		if !c.remove(productID) {
			return ErrItemNotFound
		}
		return nil
	})
}

func (s *Service) ApplyDiscount(ctx context.Context, ownerID int, code string) (View, error) {
	code = NormalizeCode(code)
	if _, ok := s.pricing.Percent(code); !ok || code == "" {
		return View{}, ErrInvalidDiscount
	}
	return s.modify(ctx, ownerID, func(c *Cart) error {
		c.DiscountCode = code
		return nil
	})
}

func (s *Service) RemoveDiscount(ctx context.Context, ownerID int) (View, error) {
	return s.modify(ctx, ownerID, func(c *Cart) error {
		c.DiscountCode = ""
		return nil
	})
}

// Clear empties a user's cart.
func (s *Service) Clear(ctx context.Context, ownerID int) error {
	unlock := s.lock(ownerID)
	defer unlock()
	return s.repo.Delete(ctx, ownerID)
}

// ProductRemoved drops a deleted product from every cart holding it.
func (s *Service) ProductRemoved(ctx context.Context, productID int) error {
	owners, err := s.repo.OwnersWithProduct(ctx, productID)
	if err != nil {
		return err
	}
	var errs []error
	for _, owner := range owners {
		_, err := s.modify(ctx, owner, func(c *Cart) error {
			c.remove(productID)
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("cart %d: %w", owner, err))
		}
	}
	if len(owners) > 0 {
		logger.FromContext(ctx).Info("removed product from carts",
			zap.Int("product_id", productID), zap.Int("carts", len(owners)))
	}
	return errors.Join(errs...)
}
