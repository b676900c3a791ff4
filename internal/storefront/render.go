package storefront

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"MiniCart/internal/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer turns a Snapshot into HTML. Every call rebuilds its container
// from scratch; nothing is diffed or cached between calls.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: t}, nil
}

// MustRenderer panics if the embedded templates do not parse.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

type productCard struct {
	ID     int
	Name   string
	Image  string
	Price  string
	InCart bool
}

type cartRow struct {
	ID    int
	Name  string
	Image string
	Price string
}

type viewData struct {
	Cards     []productCard
	Rows      []cartRow
	Query     string
	Total     string
	CSRFField template.HTML
}

func buildView(s Snapshot, csrfField template.HTML) viewData {
	v := viewData{
		Cards:     make([]productCard, 0, len(s.Visible)),
		Rows:      make([]cartRow, 0, len(s.Cart)),
		Query:     s.Query,
		CSRFField: csrfField,
	}

	for _, p := range s.Visible {
		v.Cards = append(v.Cards, productCard{
			ID:     p.ID,
			Name:   p.DisplayName(),
			Image:  p.ImageSrc(),
			Price:  catalog.FormatPrice(p.Price),
			InCart: s.InCart(p.ID),
		})
	}

	for _, e := range s.Cart {
		v.Rows = append(v.Rows, cartRow{
			ID:    e.ID,
			Name:  e.DisplayName(),
			Image: e.ImageSrc(),
			Price: catalog.FormatPrice(e.Price),
		})
	}
	v.Total = catalog.FormatPrice(s.Total)

	return v
}

// Products renders the product list container for the visible list.
func (r *Renderer) Products(w io.Writer, s Snapshot, csrfField template.HTML) error {
	return r.tmpl.ExecuteTemplate(w, "products", buildView(s, csrfField))
}

// Cart renders the cart panel rows. The rows are meant to sit inside one
// form whose submit buttons carry the entry id.
func (r *Renderer) Cart(w io.Writer, s Snapshot) error {
	return r.tmpl.ExecuteTemplate(w, "cart", buildView(s, ""))
}

func (r *Renderer) Page(w io.Writer, s Snapshot, csrfField template.HTML) error {
	return r.tmpl.ExecuteTemplate(w, "page", buildView(s, csrfField))
}

// render executes fn into a buffer so a template error never leaves a
// half-written response behind.
func render(fn func(io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
