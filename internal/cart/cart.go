package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

var (
	ErrProductUnavailable = errors.New("product is not available")
	ErrItemNotFound       = errors.New("item not in cart")
	ErrQuantityLimit      = fmt.Errorf("quantity per item cannot exceed %d", MaxQuantity)
	ErrInvalidDiscount    = errors.New("invalid discount code")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
)

// Item is a product snapshot plus quantity. UnitPrice is taken when the
// product is first added.
type Item struct {
	ProductID int             `json:"productId"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Unit      string          `json:"unit,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

func (it Item) LineTotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Cart struct {
	OwnerID      int       `json:"ownerId"`
	Items        []Item    `json:"items"`
	DiscountCode string    `json:"discountCode,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (c Cart) clone() Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	c.Items = items
	return c
}

func (c Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// ProductIDs lists the products in the cart in insertion order.
func (c Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, int64(it.ProductID))
	}
	return ids
}

func (c Cart) find(productID int) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// add increments an existing line or appends a new one.
func (c *Cart) add(it Item, qty int) error {
	if i := c.find(it.ProductID); i >= 0 {
		if qty > MaxQuantity-c.Items[i].Quantity {
			return ErrQuantityLimit
		}
		c.Items[i].Quantity += qty
		return nil
	}
	if qty > MaxQuantity {
		return ErrQuantityLimit
	}
	it.Quantity = qty
	c.Items = append(c.Items, it)
	return nil
}

// setQuantity removes the line when qty drops to zero or below.
func (c *Cart) setQuantity(productID, qty int) error {
	i := c.find(productID)
	if i < 0 {
		return ErrItemNotFound
	}
	if qty > MaxQuantity {
		return ErrQuantityLimit
	}
	if qty <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	}
	c.Items[i].Quantity = qty
	return nil
}

func (c *Cart) remove(productID int) bool {
	i := c.find(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

type Totals struct {
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Shipping  decimal.Decimal `json:"shipping"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

// Pricing holds the storefront's shipping, tax and discount rules.
// Discounts maps an upper-case code to a percentage.
type Pricing struct {
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal
	Discounts             map[string]decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		ShippingFee:           decimal.RequireFromString("5.99"),
		FreeShippingThreshold: decimal.NewFromInt(50),
		TaxRate:               decimal.Zero,
		Discounts: map[string]decimal.Decimal{
			"FRESH10": decimal.NewFromInt(10),
			"WELCOME": decimal.NewFromInt(15),
		},
	}
}

// ParsePricing builds Pricing from configuration strings.
func ParsePricing(shippingFee, freeThreshold, taxRate string, discounts map[string]string) (Pricing, error) {
	var p Pricing
	var err error
	if p.ShippingFee, err = decimal.NewFromString(shippingFee); err != nil {
		return Pricing{}, fmt.Errorf("shipping fee: %w", err)
	}
	if p.FreeShippingThreshold, err = decimal.NewFromString(freeThreshold); err != nil {
		return Pricing{}, fmt.Errorf("free shipping threshold: %w", err)
	}
	if p.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return Pricing{}, fmt.Errorf("tax rate: %w", err)
	}
	p.Discounts = make(map[string]decimal.Decimal, len(discounts))
	for code, pct := range discounts {
		d, err := decimal.NewFromString(pct)
		if err != nil {
			return Pricing{}, fmt.Errorf("discount %s: %w", code, err)
		}
		if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
			return Pricing{}, fmt.Errorf("discount %s: percent out of range", code)
		}
		p.Discounts[NormalizeCode(code)] = d
	}
	return p, nil
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Percent returns the discount percentage for code.
func (p Pricing) Percent(code string) (decimal.Decimal, bool) {
	pct, ok := p.Discounts[NormalizeCode(code)]
	return pct, ok
}

// Totals prices a cart. Every amount is rounded to cents, half away from zero.
func (p Pricing) Totals(c Cart) Totals {
	t := Totals{ItemCount: c.ItemCount()}
	subtotal := decimal.Zero
	for _, it := range c.Items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	t.Subtotal = subtotal.Round(2)

	t.Discount = decimal.Zero
	if pct, ok := p.Percent(c.DiscountCode); ok && c.DiscountCode != "" {
		t.Discount = t.Subtotal.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	}
	discounted := t.Subtotal.Sub(t.Discount)

	t.Shipping = decimal.Zero
	if !c.IsEmpty() && discounted.LessThan(p.FreeShippingThreshold) {
		t.Shipping = p.ShippingFee.Round(2)
	}
	t.Tax = discounted.Mul(p.TaxRate).Round(2)

	t.Total = discounted.Add(t.Shipping).Add(t.Tax)
	if t.Total.IsNegative() {
		t.Total = decimal.Zero
	}
	return t
}

// View is what every cart endpoint returns.
type View struct {
	Cart   Cart   `json:"cart"`
	Totals Totals `json:"totals"`
}
