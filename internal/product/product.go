package product

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalogue entry as served to the storefront.
type Product struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   int             `json:"categoryId"`
	CategoryName string          `json:"categoryName,omitempty"`
	ImageURL     string          `json:"imageUrl"`
	Unit         string          `json:"unit"`
	Stock        int             `json:"stock"`
	Rating       float64         `json:"rating"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Available reports whether the product can be put in a cart.
func (p Product) Available() bool {
	return p.IsActive && p.Stock > 0
}

const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
	SortRating    = "rating"
	SortNewest    = "newest"

	MaxLimit = 100
)

// Filter narrows a product listing. Zero values mean "no constraint".
type Filter struct {
	CategoryID      int
	Search          string
	Sort            string
	Limit           int
	Offset          int
	IncludeInactive bool
}

func (f Filter) normalized() Filter {
	f.Search = strings.TrimSpace(f.Search)
	switch f.Sort {
	case SortPriceAsc, SortPriceDesc, SortName, SortRating, SortNewest:
	default:
		f.Sort = ""
	}
	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Input is the admin create/update payload.
type Input struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=4000"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  int             `json:"categoryId" validate:"gte=0"`
	ImageURL    string          `json:"imageUrl" validate:"max=1000"`
	Unit        string          `json:"unit" validate:"max=32"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Rating      float64         `json:"rating" validate:"gte=0,lte=5"`
	IsActive    *bool           `json:"isActive"`
}

func (in Input) toProduct() Product {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price.Round(2),
		CategoryID:  in.CategoryID,
		ImageURL:    in.ImageURL,
		Unit:        in.Unit,
		Stock:       in.Stock,
		Rating:      in.Rating,
		IsActive:    active,
	}
}

// matches reports whether p passes the non-paging parts of f.
func (f Filter) matches(p Product) bool {
	if !f.IncludeInactive && !p.IsActive {
		return false
	}
	if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) &&
			!strings.Contains(strings.ToLower(p.CategoryName), q) {
			return false
		}
	}
	return true
}

func sortProducts(products []Product, mode string) {
	var less func(a, b Product) bool
	switch mode {
	case SortPriceAsc:
		less = func(a, b Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceDesc:
		less = func(a, b Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortName:
		less = func(a, b Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortRating:
		less = func(a, b Product) bool { return a.Rating > b.Rating }
	case SortNewest:
		less = func(a, b Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		less = func(a, b Product) bool { return false }
	}
	sort.SliceStable(products, func(i, j int) bool {
		if less(products[i], products[j]) {
			return true
		}
		if less(products[j], products[i]) {
			return false
		}
		return products[i].ID < products[j].ID
	})
}

// Apply filters, sorts and pages products in memory.
func Apply(products []Product, f Filter) []Product {
	f = f.normalized()
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.matches(p) {
			out = append(out, p)
		}
	}
	sortProducts(out, f.Sort)

	if f.Offset >= len(out) {
		return []Product{}
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
