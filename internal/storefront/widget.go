package storefront

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"MiniCart/internal/cart"
	"MiniCart/internal/catalog"
	"MiniCart/pkg/kit"
)

// ErrUnknownProduct is returned when a toggle names an id the current
// catalog does not hold, typically a button from a stale page.
var ErrUnknownProduct = errors.New("unknown product")

type CatalogLoader interface {
	Load(ctx context.Context) ([]catalog.Product, error)
}

type CartPersister interface {
	Load(ctx context.Context) ([]catalog.Product, bool, error)
	Save(ctx context.Context, entries []catalog.Product) error
}

// Widget is the storefront controller. It owns the catalog, the list
// currently on display and the cart, and serializes every event through
// one mutex.
type Widget struct {
	Catalog CatalogLoader
	Cart    CartPersister
	Log     *zap.Logger

	mu       sync.Mutex
	products []catalog.Product
	visible  []catalog.Product
	query    string
	cart     *cart.Cart

	wg          sync.WaitGroup
	cartEntries prometheus.Gauge
}

func NewWidget(loader CatalogLoader, persister CartPersister, log *zap.Logger) *Widget {
	if log == nil {
		log = zap.NewNop()
	}
	return &Widget{
		Catalog: loader,
		Cart:    persister,
		Log:     log,
		cart:    cart.New(nil),
	}
}

// WithMetrics exposes the cart size as a gauge on reg.
func (w *Widget) WithMetrics(reg prometheus.Registerer) *Widget {
	w.cartEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: kit.Namespace,
		Name:      "cart_entries",
		Help:      "Entries currently in the cart",
	})
	reg.MustRegister(w.cartEntries)
	return w
}

// Start restores the stored cart and kicks off the catalog load without
// waiting for it. A corrupt stored cart is returned as is; there is no
// recovery path for it.
func (w *Widget) Start(ctx context.Context) error {
	if err := w.RestoreCart(ctx); err != nil {
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.Reload(ctx); err != nil {
			w.Log.Debug("initial catalog load failed", zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until the load started by Start has finished.
func (w *Widget) Wait() { w.wg.Wait() }

func (w *Widget) RestoreCart(ctx context.Context) error {
	entries, ok, err := w.Cart.Load(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if ok {
		w.cart = cart.New(entries)
		w.Log.Info("cart restored", zap.Int("entries", w.cart.Len()))
	}
	w.observeCart()
	return nil
}

// Reload fetches the catalog. On failure the previous catalog stays in
// place.
func (w *Widget) Reload(ctx context.Context) error {
	products, err := w.Catalog.Load(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.products = products
	w.showAll()
	w.Log.Info("catalog loaded", zap.Int("products", len(products)))
	return nil
}

// Search narrows the displayed list to products whose name contains q.
func (w *Widget) Search(q string) []catalog.Product {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.visible = catalog.Search(w.products, q)
	w.query = q
	return clone(w.visible)
}

// Toggle adds the product to the cart or takes it out again, persists the
// cart and puts the full catalog back on display.
func (w *Widget) Toggle(ctx context.Context, id int) (added bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// An entry already in the cart comes out even when the current
	// catalog no longer lists it.
	if w.cart.Remove(id) {
		return false, w.afterMutation(ctx)
	}

	p, ok := catalog.Find(w.products, id)
	if !ok {
		w.Log.Warn("toggle for unknown product", zap.Int("id", id))
		return false, ErrUnknownProduct
	}

	w.cart.Toggle(p)
	return true, w.afterMutation(ctx)
}

// Remove takes the product out of the cart if it is there. An absent id
// is a no-op: nothing is written and the displayed list stays as it is.
func (w *Widget) Remove(ctx context.Context, id int) (removed bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.cart.Remove(id) {
		return false, nil
	}
	return true, w.afterMutation(ctx)
}

func (w *Widget) afterMutation(ctx context.Context) error {
	w.showAll()
	w.observeCart()
	return w.Cart.Save(ctx, w.cart.Entries())
}

// Snapshot is a consistent copy of everything the renderer needs.
type Snapshot struct {
	Products []catalog.Product
	Visible  []catalog.Product
	Cart     []catalog.Product
	Query    string
	Total    float64
}

func (s Snapshot) InCart(id int) bool {
	for _, e := range s.Cart {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Snapshot{
		Products: clone(w.products),
		Visible:  clone(w.visible),
		Cart:     w.cart.Entries(),
		Query:    w.query,
		Total:    w.cart.Total(),
	}
}

// Loaded reports whether any catalog has been received.
func (w *Widget) Loaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.products) > 0
}

func (w *Widget) showAll() {
	w.visible = w.products
	w.query = ""
}

func (w *Widget) observeCart() {
	if w.cartEntries != nil {
		w.cartEntries.Set(float64(w.cart.Len()))
	}
}

func clone(ps []catalog.Product) []catalog.Product {
	out := make([]catalog.Product, len(ps))
	copy(out, ps)
	return out
}
