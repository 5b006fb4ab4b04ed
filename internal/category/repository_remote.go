package category

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/freshcart/storefront/internal/backend"
)

type remoteCategory struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	ProductCount int    `json:"product_count"`
}

func (rc remoteCategory) toCategory() Category {
	c := Category{
		ID:           rc.ID,
		Name:         rc.Name,
		Slug:         rc.Slug,
		Description:  rc.Description,
		ImageURL:     rc.ImageURL,
		ProductCount: rc.ProductCount,
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	return c
}

type remoteCategoryWrite struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// RemoteRepository reads and writes categories through the backend API.
type RemoteRepository struct {
	client *backend.Client
}

func NewRemoteRepository(client *backend.Client) *RemoteRepository {
	return &RemoteRepository{client: client}
}

func (r *RemoteRepository) List(ctx context.Context) ([]Category, error) {
	var rows []remoteCategory
	if err := r.client.GetJSON(ctx, "/categories", nil, "", &rows); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCategory())
	}
	return out, nil
}

func (r *RemoteRepository) GetByID(ctx context.Context, id int) (Category, error) {
	var row remoteCategory
	if err := r.client.GetJSON(ctx, fmt.Sprintf("/categories/%d", id), nil, "", &row); err != nil {
		return Category{}, translate(err)
	}
	return row.toCategory(), nil
}

func (r *RemoteRepository) Create(ctx context.Context, c Category) (Category, error) {
	var row remoteCategory
	body := remoteCategoryWrite{Name: c.Name, Slug: c.Slug, Description: c.Description, ImageURL: c.ImageURL}
	if err := r.client.SendJSON(ctx, http.MethodPost, "/categories", "", body, &row); err != nil {
		return Category{}, translate(err)
	}
	return row.toCategory(), nil
}

func (r *RemoteRepository) Update(ctx context.Context, id int, c Category) (Category, error) {
	var row remoteCategory
	body := remoteCategoryWrite{Name: c.Name, Slug: c.Slug, Description: c.Description, ImageURL: c.ImageURL}
	if err := r.client.SendJSON(ctx, http.MethodPut, fmt.Sprintf("/categories/%d", id), "", body, &row); err != nil {
		return Category{}, translate(err)
	}
	return row.toCategory(), nil
}

func (r *RemoteRepository) Delete(ctx context.Context, id int) error {
	return translate(r.client.SendJSON(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), "", nil, nil))
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, backend.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, backend.ErrConflict):
		return ErrSlugExists
	}
	return err
}
