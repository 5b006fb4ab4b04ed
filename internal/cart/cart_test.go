package cart

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPricing_Totals(t *testing.T) {
	pricing := Pricing{
		ShippingFee:           d("5.99"),
		FreeShippingThreshold: d("50"),
		TaxRate:               d("0.08"),
		Discounts:             map[string]decimal.Decimal{"FRESH10": d("10")},
	}
	cases := []struct {
		name                                    string
		cart                                    Cart
		subtotal, discount, shipping, tax, total string
	}{
		{
			name:     "empty cart ships free",
			cart:     Cart{},
			subtotal: "0", discount: "0", shipping: "0", tax: "0", total: "0",
		},
		{
			name:     "small cart pays shipping",
			cart:     Cart{Items: []Item{{ProductID: 1, UnitPrice: d("0.49"), Quantity: 3}}},
			subtotal: "1.47", discount: "0", shipping: "5.99", tax: "0.12", total: "7.58",
		},
		{
			name: "discount drops below free shipping",
			cart: Cart{DiscountCode: "FRESH10", Items: []Item{
				{ProductID: 1, UnitPrice: d("25.00"), Quantity: 2},
			}},
			subtotal: "50", discount: "5", shipping: "5.99", tax: "3.6", total: "54.59",
		},
		{
			name:     "unknown stored code is ignored",
			cart:     Cart{DiscountCode: "BOGUS", Items: []Item{{ProductID: 2, UnitPrice: d("60"), Quantity: 1}}},
			subtotal: "60", discount: "0", shipping: "0", tax: "4.8", total: "64.8",
		},
		{
			name:     "half cent rounds away from zero",
			cart:     Cart{DiscountCode: "fresh10", Items: []Item{{ProductID: 3, UnitPrice: d("0.05"), Quantity: 1}}},
			subtotal: "0.05", discount: "0.01", shipping: "5.99", tax: "0", total: "6.03",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pricing.Totals(tc.cart)
			assert.True(t, got.Subtotal.Equal(d(tc.subtotal)), "subtotal %s", got.Subtotal)
			assert.True(t, got.Discount.Equal(d(tc.discount)), "discount %s", got.Discount)
			assert.True(t, got.Shipping.Equal(d(tc.shipping)), "shipping %s", got.Shipping)
			assert.True(t, got.Tax.Equal(d(tc.tax)), "tax %s", got.Tax)
			assert.True(t, got.Total.Equal(d(tc.total)), "total %s", got.Total)
		})
	}
}

func TestCart_QuantityRules(t *testing.T) {
	var c Cart
	require.NoError(t, c.add(Item{ProductID: 1}, 2))
	require.NoError(t, c.add(Item{ProductID: 2}, 1))
	require.NoError(t, c.add(Item{ProductID: 1}, 3))
	assert.Equal(t, []int64{1, 2}, c.ProductIDs(), "insertion order kept")
	assert.Equal(t, 5, c.Items[0].Quantity)

	assert.ErrorIs(t, c.add(Item{ProductID: 1}, 95), ErrQuantityLimit)
	assert.ErrorIs(t, c.add(Item{ProductID: 1}, math.MaxInt), ErrQuantityLimit)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.ErrorIs(t, c.setQuantity(1, 100), ErrQuantityLimit)
	assert.ErrorIs(t, c.setQuantity(9, 1), ErrItemNotFound)

	require.NoError(t, c.setQuantity(1, 0))
	assert.Equal(t, []int64{2}, c.ProductIDs())
	assert.Equal(t, 1, c.ItemCount())
}

func TestParsePricing(t *testing.T) {
	p, err := ParsePricing("4.50", "40", "0", map[string]string{"welcome": "15"})
	require.NoError(t, err)
	pct, ok := p.Percent("Welcome ")
	require.True(t, ok)
	assert.True(t, pct.Equal(d("15")))

	_, err = ParsePricing("x", "40", "0", nil)
	assert.Error(t, err)
	_, err = ParsePricing("1", "40", "0", map[string]string{"ALL": "150"})
	assert.Error(t, err)
}
