package catalog

import (
	"fmt"
	"strings"
)

// PlaceholderImage is shown for products that carry neither image field.
const PlaceholderImage = "https://placehold.co/600x400?text=No+Image"

// Product is a catalog entry as served by either remote source. The two
// sources disagree on field names (title/name, image/imageUrl); both are
// kept so an entry survives a storage round trip unchanged.
type Product struct {
	ID       int     `json:"id"`
	Title    string  `json:"title,omitempty"`
	Name     string  `json:"name,omitempty"`
	Price    float64 `json:"price"`
	Image    string  `json:"image,omitempty"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

// DisplayName prefers title over name.
func (p Product) DisplayName() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}

// ImageSrc prefers image, then imageUrl, then the placeholder.
func (p Product) ImageSrc() string {
	switch {
	case p.Image != "":
		return p.Image
	case p.ImageURL != "":
		return p.ImageURL
	default:
		return PlaceholderImage
	}
}

// FormatPrice renders a price with exactly two decimals. Zero renders as
// "0.00".
func FormatPrice(price float64) string {
	if price == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", price)
}

// Search returns the products whose display name contains q, ignoring
// case. The input is never modified and order is kept; an empty query
// matches everything.
func Search(products []Product, q string) []Product {
	needle := strings.ToLower(q)
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.DisplayName()), needle) {
			out = append(out, p)
		}
	}
	return out
}

// Find locates a product by id.
func Find(products []Product, id int) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
