package category

import (
	"strings"
	"unicode"
)

// Category groups products on the storefront.
type Category struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageUrl"`
	ProductCount int    `json:"productCount"`
}

// Input is the admin create/update payload.
type Input struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"max=100"`
	Description string `json:"description" validate:"max=1000"`
	ImageURL    string `json:"imageUrl" validate:"max=1000"`
}

func (in Input) toCategory() Category {
	c := Category{
		Name:        strings.TrimSpace(in.Name),
		Slug:        Slugify(in.Slug),
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	return c
}

// Slugify lowercases s and collapses every run of non-alphanumerics into "-".
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}
