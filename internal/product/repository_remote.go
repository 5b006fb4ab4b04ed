package product

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/freshcart/storefront/internal/backend"
)

// remoteProduct is the backend's snake_case product shape.
type remoteProduct struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  int             `json:"category_id"`
	Category    *struct {
		Name string `json:"name"`
	} `json:"category,omitempty"`
	ImageURL  string    `json:"image_url"`
	Unit      string    `json:"unit"`
	Stock     int       `json:"stock"`
	Rating    float64   `json:"rating"`
	IsActive  *bool     `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (rp remoteProduct) toProduct() Product {
	p := Product{
		ID:          rp.ID,
		Name:        rp.Name,
		Description: rp.Description,
		Price:       rp.Price,
		CategoryID:  rp.CategoryID,
		ImageURL:    rp.ImageURL,
		Unit:        rp.Unit,
		Stock:       rp.Stock,
		Rating:      rp.Rating,
		IsActive:    rp.IsActive == nil || *rp.IsActive,
		CreatedAt:   rp.CreatedAt,
		UpdatedAt:   rp.UpdatedAt,
	}
	if rp.Category != nil {
		p.CategoryName = rp.Category.Name
	}
	return p
}

type remoteProductWrite struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	CategoryID  int     `json:"category_id,omitempty"`
	ImageURL    string  `json:"image_url"`
	Unit        string  `json:"unit"`
	Stock       int     `json:"stock"`
	Rating      float64 `json:"rating"`
	IsActive    bool    `json:"is_active"`
}

func toRemoteWrite(p Product) remoteProductWrite {
	return remoteProductWrite{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		CategoryID:  p.CategoryID,
		ImageURL:    p.ImageURL,
		Unit:        p.Unit,
		Stock:       p.Stock,
		Rating:      p.Rating,
		IsActive:    p.IsActive,
	}
}

// RemoteRepository reads and writes the catalogue through the backend API.
type RemoteRepository struct {
	client *backend.Client
}

func NewRemoteRepository(client *backend.Client) *RemoteRepository {
	return &RemoteRepository{client: client}
}

func (r *RemoteRepository) List(ctx context.Context, f Filter) ([]Product, error) {
	f = f.normalized()
	q := url.Values{}
	if f.CategoryID != 0 {
		q.Set("category_id", strconv.Itoa(f.CategoryID))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("skip", strconv.Itoa(f.Offset))
	}
	if f.IncludeInactive {
		q.Set("include_inactive", "true")
	}

	var rows []remoteProduct
	if err := r.client.GetJSON(ctx, "/products", q, "", &rows); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toProduct())
	}
	return postFilter(out, f), nil
}

// postFilter re-applies filtering and sorting for backends that ignore those
// query parameters. Paging already happened remotely so only Limit is enforced.
func postFilter(products []Product, f Filter) []Product {
	local := f
	local.Offset = 0
	return Apply(products, local)
}

func (r *RemoteRepository) GetByID(ctx context.Context, id int) (Product, error) {
	var row remoteProduct
	if err := r.client.GetJSON(ctx, fmt.Sprintf("/products/%d", id), nil, "", &row); err != nil {
		return Product{}, notFound(err)
	}
	return row.toProduct(), nil
}

func (r *RemoteRepository) Create(ctx context.Context, p Product) (Product, error) {
	var row remoteProduct
	if err := r.client.SendJSON(ctx, http.MethodPost, "/products", "", toRemoteWrite(p), &row); err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return row.toProduct(), nil
}

func (r *RemoteRepository) Update(ctx context.Context, id int, p Product) (Product, error) {
	var row remoteProduct
	if err := r.client.SendJSON(ctx, http.MethodPut, fmt.Sprintf("/products/%d", id), "", toRemoteWrite(p), &row); err != nil {
		return Product{}, notFound(err)
	}
	return row.toProduct(), nil
}

func (r *RemoteRepository) Delete(ctx context.Context, id int) error {
	if err := r.client.SendJSON(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), "", nil, nil); err != nil {
		return notFound(err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, backend.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
