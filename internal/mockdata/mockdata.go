// Package mockdata builds the dataset served when the backend API is down.
package mockdata

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"github.com/freshcart/storefront/internal/address"
	"github.com/freshcart/storefront/internal/cart"
	"github.com/freshcart/storefront/internal/category"
	"github.com/freshcart/storefront/internal/order"
	"github.com/freshcart/storefront/internal/product"
	"github.com/freshcart/storefront/internal/user"
)

const (
	AdminEmail       = "admin@freshcart.test"
	AdminPassword    = "admin123"
	ShopperEmail     = "shopper@freshcart.test"
	ShopperPassword  = "shopper123"
	CustomerPassword = "password123"

	DefaultSeed     = 42
	DefaultProducts = 48
)

// MockUser is an account with its password hash.
type MockUser = user.Account

type Dataset struct {
	Seed       int64               `json:"seed"`
	Categories []category.Category `json:"categories"`
	Products   []product.Product   `json:"products"`
	Users      []MockUser          `json:"users"`
	Orders     []order.Order       `json:"orders"`
	Addresses  []address.Address   `json:"addresses"`
}

// Counts summarises the dataset per collection.
func (d Dataset) Counts() map[string]int {
	return map[string]int{
		"categories": len(d.Categories),
		"products":   len(d.Products),
		"users":      len(d.Users),
		"orders":     len(d.Orders),
		"addresses":  len(d.Addresses),
	}
}

type Options struct {
	Seed     int64
	Products int
}

type categorySpec struct {
	name string
	unit string
	pick func(f *gofakeit.Faker) string
}

func fromList(items ...string) func(f *gofakeit.Faker) string {
	return func(f *gofakeit.Faker) string { return f.RandomString(items) }
}

var categorySpecs = []categorySpec{
	{"Fruits", "each", func(f *gofakeit.Faker) string { return f.Fruit() }},
	{"Vegetables", "lb", func(f *gofakeit.Faker) string { return f.Vegetable() }},
	{"Dairy & Eggs", "pack", fromList("Whole Milk", "Greek Yogurt", "Cheddar Cheese", "Free-Range Eggs", "Salted Butter", "Oat Milk", "Cottage Cheese", "Mozzarella", "Sour Cream", "Heavy Cream")},
	{"Bakery", "loaf", fromList("Sourdough Loaf", "Whole Wheat Bread", "Croissant", "Bagels", "Baguette", "Cinnamon Roll", "Rye Bread", "Brioche Buns", "Muffins", "Pita Bread")},
	{"Meat & Seafood", "lb", fromList("Chicken Breast", "Ground Beef", "Salmon Fillet", "Pork Chops", "Shrimp", "Turkey Slices", "Ribeye Steak", "Cod Fillet", "Lamb Chops", "Bacon")},
	{"Pantry", "pack", fromList("Basmati Rice", "Penne Pasta", "Olive Oil", "Rolled Oats", "Peanut Butter", "Canned Tomatoes", "Black Beans", "Honey", "Maple Syrup", "Flour")},
	{"Beverages", "bottle", func(f *gofakeit.Faker) string { return f.Drink() }},
	{"Snacks", "bag", func(f *gofakeit.Faker) string { return f.Snack() }},
}

var prefixes = []string{"Organic", "Fresh", "Local", "Premium", "Farm", "Family Size"}

// epoch anchors generated timestamps so equal seeds give equal datasets.
var epoch = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

// Generate builds a dataset. The same Options always yield the same catalogue,
// users, addresses and orders; only password hashes differ between runs.
func Generate(opts Options) (Dataset, error) {
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	if opts.Products <= 0 {
		opts.Products = DefaultProducts
	}
	f := gofakeit.New(uint64(opts.Seed))
	d := Dataset{Seed: opts.Seed}

	for i, cs := range categorySpecs {
		d.Categories = append(d.Categories, category.Category{
			ID:          i + 1,
			Name:        cs.name,
			Slug:        category.Slugify(cs.name),
			Description: f.Sentence(8),
			ImageURL:    fmt.Sprintf("/images/categories/%s.jpg", category.Slugify(cs.name)),
		})
	}

	seen := make(map[string]bool, opts.Products)
	for i := 0; i < opts.Products; i++ {
		ci := i % len(categorySpecs)
		cs := categorySpecs[ci]
		name := uniqueName(f, cs, seen)
		id := i + 1
		created := epoch.Add(time.Duration(i) * 6 * time.Hour)
		d.Products = append(d.Products, product.Product{
			ID:           id,
			Name:         name,
			Description:  f.Sentence(12),
			Price:        decimal.NewFromFloat(f.Price(0.99, 24.99)).Round(2),
			CategoryID:   ci + 1,
			CategoryName: cs.name,
			ImageURL:     fmt.Sprintf("/images/products/%d.jpg", id),
			Unit:         cs.unit,
			Stock:        f.Number(0, 120),
			Rating:       decimal.NewFromFloat(f.Float64Range(3, 5)).Round(1).InexactFloat64(),
			IsActive:     f.Number(1, 20) != 1,
			CreatedAt:    created,
			UpdatedAt:    created,
		})
		d.Categories[ci].ProductCount++
	}

	users, err := generateUsers(f)
	if err != nil {
		return Dataset{}, err
	}
	d.Users = users

	shopper := d.Users[1].User
	for i := 0; i < 2; i++ {
		d.Addresses = append(d.Addresses, address.Address{
			ID:         i + 1,
			UserID:     shopper.ID,
			FullName:   shopper.FullName,
			Line1:      f.Street(),
			City:       f.City(),
			State:      f.StateAbr(),
			PostalCode: f.Zip(),
			Country:    "US",
			Phone:      shopper.Phone,
			IsDefault:  i == 0,
			CreatedAt:  epoch.Add(time.Duration(i) * time.Hour),
		})
	}

	d.Orders = generateOrders(f, d.Products, shopper.ID, d.Addresses[0].ID)
	return d, nil
}

func uniqueName(f *gofakeit.Faker, cs categorySpec, seen map[string]bool) string {
	name := cs.pick(f)
	for attempt := 0; seen[strings.ToLower(name)]; attempt++ {
		base := cs.pick(f)
		if attempt >= 3 {
			name = fmt.Sprintf("%s %s %d", f.RandomString(prefixes), base, attempt)
			continue
		}
		name = f.RandomString(prefixes) + " " + base
	}
	seen[strings.ToLower(name)] = true
	return name
}

func generateUsers(f *gofakeit.Faker) ([]MockUser, error) {
	type seedUser struct {
		email, name, password, role string
	}
	seeds := []seedUser{
		{AdminEmail, "FreshCart Admin", AdminPassword, user.RoleAdmin},
		{ShopperEmail, "Sam Shopper", ShopperPassword, user.RoleCustomer},
	}
	for i := 0; i < 2; i++ {
		first, last := f.FirstName(), f.LastName()
		email := strings.ToLower(fmt.Sprintf("%s.%s%d@example.com", first, last, i+1))
		seeds = append(seeds, seedUser{email, first + " " + last, CustomerPassword, user.RoleCustomer})
	}

	out := make([]MockUser, 0, len(seeds))
	for i, s := range seeds {
		hash, err := user.HashPassword(s.password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", s.email, err)
		}
		out = append(out, MockUser{
			User: user.User{
				ID:        i + 1,
				Email:     s.email,
				FullName:  s.name,
				Phone:     f.Phone(),
				Role:      s.role,
				IsActive:  true,
				CreatedAt: epoch,
			},
			PasswordHash: hash,
		})
	}
	return out, nil
}

func generateOrders(f *gofakeit.Faker, products []product.Product, userID, addressID int) []order.Order {
	pricing := cart.DefaultPricing()
	statuses := []string{order.StatusDelivered, order.StatusShipped, order.StatusPaid}
	orders := make([]order.Order, 0, len(statuses))
	for i, status := range statuses {
		var c cart.Cart
		for n := f.Number(1, 4); n > 0; n-- {
			p := products[f.Number(0, len(products)-1)]
			it := cart.Item{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: f.Number(1, 3)}
			exists := false
			for _, have := range c.Items {
				exists = exists || have.ProductID == p.ID
			}
			if !exists {
				c.Items = append(c.Items, it)
			}
		}
		t := pricing.Totals(c)
		items := make([]order.Item, 0, len(c.Items))
		for _, it := range c.Items {
			items = append(items, order.Item{ProductID: it.ProductID, Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
		}
		placed := epoch.Add(time.Duration(i*7*24) * time.Hour)
		orders = append(orders, order.Order{
			ID:              i + 1,
			UserID:          userID,
			AddressID:       addressID,
			Items:           items,
			Subtotal:        t.Subtotal,
			Discount:        t.Discount,
			Shipping:        t.Shipping,
			Tax:             t.Tax,
			Total:           t.Total,
			Status:          status,
			PaymentIntentID: fmt.Sprintf("pi_mock_seed%d", i+1),
			CreatedAt:       placed,
			UpdatedAt:       placed,
		})
	}
	return orders
}
