package storefront

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"MiniCart/internal/catalog"
	"MiniCart/pkg/kit"
)

const maxFormBytes = 1 << 16

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Widget   *Widget
	Renderer *Renderer
	Store    Pinger
	Log      *zap.Logger
}

func (s *Server) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Routes registers the read-only surface. Mutations are mounted by
// NewHandler so they can carry the rate limiter.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	r.Get("/", s.page)
	r.Get("/fragments/products", s.productsFragment)
	r.Get("/fragments/cart", s.cartFragment)

	r.Get("/api/products", s.apiProducts)
	r.Get("/api/cart", s.apiCart)
}

// MutationRoutes registers every handler that changes state.
func (s *Server) MutationRoutes(r chi.Router) {
	r.Post("/products/{id}/toggle", s.toggleForm)
	r.Post("/cart/remove", s.removeForm)

	r.Post("/api/cart/{id}/toggle", s.apiToggle)
	r.Delete("/api/cart/{id}", s.apiRemove)
	r.Post("/api/catalog/reload", s.apiReload)
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if s.Store != nil {
		if err := s.Store.Ping(ctx); err != nil {
			s.log().Warn("readyz failed: cart store", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "cart store not ready", nil)
			return
		}
	}
	if !s.Widget.Loaded() {
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog not loaded", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// search applies ?q= when the parameter is present, even if empty.
func (s *Server) search(r *http.Request) {
	if q := r.URL.Query(); q.Has("q") {
		s.Widget.Search(q.Get("q"))
	}
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	s.search(r)
	snap := s.Widget.Snapshot()
	s.writeHTML(w, r, func(out io.Writer) error {
		return s.Renderer.Page(out, snap, csrf.TemplateField(r))
	})
}

func (s *Server) productsFragment(w http.ResponseWriter, r *http.Request) {
	s.search(r)
	snap := s.Widget.Snapshot()
	s.writeHTML(w, r, func(out io.Writer) error {
		return s.Renderer.Products(out, snap, csrf.TemplateField(r))
	})
}

func (s *Server) cartFragment(w http.ResponseWriter, r *http.Request) {
	snap := s.Widget.Snapshot()
	s.writeHTML(w, r, func(out io.Writer) error {
		return s.Renderer.Cart(out, snap)
	})
}

func (s *Server) writeHTML(w http.ResponseWriter, r *http.Request, fn func(io.Writer) error) {
	body, err := render(fn)
	if err != nil {
		s.log().Error("render failed", zap.Error(err), zap.String("path", r.URL.Path))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteHTML(w, http.StatusOK, body)
}

// toggleForm handles the per-card button. Each card carries its own form,
// rebuilt with every render of the list.
func (s *Server) toggleForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if _, err := s.Widget.Toggle(r.Context(), id); err != nil {
		s.writeMutationError(w, r, err, id)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// removeForm handles the single form wrapping the whole cart panel. The
// clicked row is identified by the id its submit button carries.
func (s *Server) removeForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad form", nil)
		return
	}

	raw := r.PostForm.Get("id")
	if raw == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	id, ok := parseID(w, r, raw)
	if !ok {
		return
	}
	if _, err := s.Widget.Remove(r.Context(), id); err != nil {
		s.writeMutationError(w, r, err, id)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type apiProduct struct {
	catalog.Product
	InCart bool `json:"in_cart"`
}

type apiCartResp struct {
	Entries []catalog.Product `json:"entries"`
	Count   int               `json:"count"`
	Total   float64           `json:"total"`
}

type apiMutationResp struct {
	ID      int         `json:"id"`
	Added   *bool       `json:"added,omitempty"`
	Removed *bool       `json:"removed,omitempty"`
	Cart    apiCartResp `json:"cart"`
}

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	s.search(r)
	snap := s.Widget.Snapshot()

	out := make([]apiProduct, 0, len(snap.Visible))
	for _, p := range snap.Visible {
		out = append(out, apiProduct{Product: p, InCart: snap.InCart(p.ID)})
	}
	kit.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) apiCart(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, cartResp(s.Widget.Snapshot()))
}

func (s *Server) apiToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	added, err := s.Widget.Toggle(r.Context(), id)
	if err != nil {
		s.writeMutationError(w, r, err, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, apiMutationResp{ID: id, Added: &added, Cart: cartResp(s.Widget.Snapshot())})
}

func (s *Server) apiRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	removed, err := s.Widget.Remove(r.Context(), id)
	if err != nil {
		s.writeMutationError(w, r, err, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, apiMutationResp{ID: id, Removed: &removed, Cart: cartResp(s.Widget.Snapshot())})
}

func (s *Server) apiReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Widget.Reload(r.Context()); err != nil {
		if errors.Is(err, catalog.ErrCatalogUnavailable) {
			kit.WriteError(w, r, http.StatusBadGateway, "catalog unavailable", nil)
			return
		}
		s.log().Error("catalog reload failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"products": len(s.Widget.Snapshot().Products)})
}

func cartResp(s Snapshot) apiCartResp {
	return apiCartResp{Entries: s.Cart, Count: len(s.Cart), Total: s.Total}
}

func parseID(w http.ResponseWriter, r *http.Request, raw string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}

func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, err error, id int) {
	switch {
	case errors.Is(err, ErrUnknownProduct):
		kit.WriteError(w, r, http.StatusNotFound, "unknown product", map[string]any{"id": id})
	default:
		s.log().Error("cart mutation failed", zap.Error(err), zap.Int("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}
