package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"MiniCart/internal/cart"
	"MiniCart/internal/catalog"
)

func newTestHandler(t *testing.T, w *Widget, deps HTTPDeps) http.Handler {
	t.Helper()

	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Service == "" {
		deps.Service = "storefront"
	}

	s := &Server{
		Widget:   w,
		Renderer: MustRenderer(),
		Store:    cart.NewMemStore(),
		Log:      zap.NewNop(),
	}
	return NewHandler(s, deps)
}

func do(t *testing.T, h http.Handler, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func serveJSON(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestStorefront_FallbackCatalogRendersOneCard(t *testing.T) {
	primary := serveJSON(t, http.StatusInternalServerError, `{"error":"boom"}`)
	fallback := serveJSON(t, http.StatusOK, `{"products":[{"id":1,"title":"Mug","price":9.5}]}`)

	loader := catalog.NewLoader(
		catalog.NewSource("primary", primary.URL, catalog.ShapeList, 0),
		catalog.NewSource("fallback", fallback.URL, catalog.ShapeEnvelope, 0),
		zap.NewNop(),
	)
	w := NewWidget(loader, cart.NewPersister(cart.NewMemStore()), zap.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	w.Wait()

	if got := w.Snapshot().Products; len(got) != 1 || got[0] != (catalog.Product{ID: 1, Title: "Mug", Price: 9.5}) {
		t.Fatalf("catalog=%+v", got)
	}

	h := newTestHandler(t, w, HTTPDeps{})
	rec := do(t, h, http.MethodGet, "/fragments/products", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	body := rec.Body.String()
	if n := strings.Count(body, `class="product"`); n != 1 {
		t.Fatalf("cards=%d want=1:\n%s", n, body)
	}
	if !strings.Contains(body, "9.50 €") {
		t.Fatalf("price missing:\n%s", body)
	}
}

func TestStorefront_ZeroPriceRendersAsZero(t *testing.T) {
	w := NewWidget(&stubLoader{products: []catalog.Product{{ID: 5, Title: "Sticker", Price: 0}}}, cart.NewPersister(cart.NewMemStore()), nil)
	if err := w.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	h := newTestHandler(t, w, HTTPDeps{})

	rec := do(t, h, http.MethodPost, "/products/5/toggle", "", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("toggle status=%d body=%s", rec.Code, rec.Body.String())
	}

	page := do(t, h, http.MethodGet, "/", "", nil).Body.String()
	if strings.Count(page, "0.00 €") < 2 {
		t.Fatalf("card and cart row should both show 0.00 €:\n%s", page)
	}
}

func TestStorefront_FormToggleAndDelegatedRemove(t *testing.T) {
	w := newStartedWidget(t, cart.NewMemStore())
	h := newTestHandler(t, w, HTTPDeps{})

	if rec := do(t, h, http.MethodPost, "/products/1/toggle", "", nil); rec.Code != http.StatusSeeOther {
		t.Fatalf("toggle 1 status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/products/2/toggle", "", nil); rec.Code != http.StatusSeeOther {
		t.Fatalf("toggle 2 status=%d", rec.Code)
	}

	cartHTML := do(t, h, http.MethodGet, "/fragments/cart", "", nil).Body.String()
	if n := strings.Count(cartHTML, `class="cart__remove"`); n != 2 {
		t.Fatalf("remove controls=%d want=2", n)
	}

	form := url.Values{"id": {"1"}}.Encode()
	rec := do(t, h, http.MethodPost, "/cart/remove", form, map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("remove status=%d body=%s", rec.Code, rec.Body.String())
	}

	snap := w.Snapshot()
	if len(snap.Cart) != 1 || snap.Cart[0].ID != 2 {
		t.Fatalf("cart after remove=%+v", snap.Cart)
	}
}

func TestStorefront_SearchQuery(t *testing.T) {
	w := newStartedWidget(t, cart.NewMemStore())
	h := newTestHandler(t, w, HTTPDeps{})

	body := do(t, h, http.MethodGet, "/?q=kett", "", nil).Body.String()
	if n := strings.Count(body, `class="product"`); n != 1 || !strings.Contains(body, "Kettle") {
		t.Fatalf("search page cards=%d:\n%s", n, body)
	}

	// the filtered list stays on display until the next event
	body = do(t, h, http.MethodGet, "/", "", nil).Body.String()
	if n := strings.Count(body, `class="product"`); n != 1 {
		t.Fatalf("filtered view lost, cards=%d", n)
	}

	body = do(t, h, http.MethodGet, "/?q=", "", nil).Body.String()
	if n := strings.Count(body, `class="product"`); n != len(products) {
		t.Fatalf("empty query cards=%d want=%d", n, len(products))
	}
}

func TestStorefront_BadAndUnknownIDs(t *testing.T) {
	w := newStartedWidget(t, cart.NewMemStore())
	h := newTestHandler(t, w, HTTPDeps{})

	if rec := do(t, h, http.MethodPost, "/products/abc/toggle", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/products/777/toggle", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/cart/777/toggle", "", map[string]string{"Content-Type": "application/json"}); rec.Code != http.StatusNotFound {
		t.Fatalf("api unknown id status=%d", rec.Code)
	}
	if len(w.Snapshot().Cart) != 0 {
		t.Fatalf("cart changed: %+v", w.Snapshot().Cart)
	}
}

func TestStorefront_JSONAPI(t *testing.T) {
	w := newStartedWidget(t, cart.NewMemStore())
	h := newTestHandler(t, w, HTTPDeps{})
	jsonHdr := map[string]string{"Content-Type": "application/json"}

	rec := do(t, h, http.MethodPost, "/api/cart/2/toggle", "", jsonHdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status=%d body=%s", rec.Code, rec.Body.String())
	}
	var tr apiMutationResp
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.Added == nil || !*tr.Added || tr.Cart.Count != 1 || tr.Cart.Total != 30 {
		t.Fatalf("toggle resp=%+v", tr)
	}

	rec = do(t, h, http.MethodGet, "/api/products?q=mug", "", nil)
	var ps []apiProduct
	if err := json.Unmarshal(rec.Body.Bytes(), &ps); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	if len(ps) != 1 || ps[0].ID != 1 || ps[0].InCart {
		t.Fatalf("products=%+v", ps)
	}

	rec = do(t, h, http.MethodDelete, "/api/cart/42", "", jsonHdr)
	var rr apiMutationResp
	if err := json.Unmarshal(rec.Body.Bytes(), &rr); err != nil {
		t.Fatalf("decode remove: %v", err)
	}
	if rr.Removed == nil || *rr.Removed || rr.Cart.Count != 1 {
		t.Fatalf("remove absent resp=%+v", rr)
	}

	rec = do(t, h, http.MethodDelete, "/api/cart/2", "", jsonHdr)
	if err := json.Unmarshal(rec.Body.Bytes(), &rr); err != nil {
		t.Fatalf("decode remove: %v", err)
	}
	if rr.Removed == nil || !*rr.Removed || rr.Cart.Count != 0 {
		t.Fatalf("remove resp=%+v", rr)
	}

	rec = do(t, h, http.MethodGet, "/api/cart", "", nil)
	var cr apiCartResp
	if err := json.Unmarshal(rec.Body.Bytes(), &cr); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if cr.Count != 0 || cr.Entries == nil {
		t.Fatalf("cart=%+v", cr)
	}
}

func TestStorefront_Reload(t *testing.T) {
	loader := &stubLoader{err: catalog.ErrCatalogUnavailable}
	w := NewWidget(loader, cart.NewPersister(cart.NewMemStore()), nil)
	h := newTestHandler(t, w, HTTPDeps{})

	if rec := do(t, h, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before load=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/catalog/reload", "", nil); rec.Code != http.StatusBadGateway {
		t.Fatalf("reload failure status=%d", rec.Code)
	}

	loader.err = nil
	loader.products = products
	if rec := do(t, h, http.MethodPost, "/api/catalog/reload", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("reload status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz after load=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz=%d", rec.Code)
	}
}

func TestStorefront_MutationsAreRateLimited(t *testing.T) {
	w := newStartedWidget(t, cart.NewMemStore())
	h := newTestHandler(t, w, HTTPDeps{MutationLimitPerMin: 2})

	for i := 0; i < 2; i++ {
		if rec := do(t, h, http.MethodPost, "/products/1/toggle", "", nil); rec.Code != http.StatusSeeOther {
			t.Fatalf("toggle %d status=%d", i, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodPost, "/products/1/toggle", "", nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third toggle status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, status=%d", rec.Code)
	}
}

func TestStorefront_CSRFGuardsFormsButNotJSON(t *testing.T) {
	w := newStartedWidget(t, cart.NewMemStore())
	h := newTestHandler(t, w, HTTPDeps{CSRFKey: []byte("0123456789abcdef0123456789abcdef")})

	if rec := do(t, h, http.MethodPost, "/products/1/toggle", "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("form post without token status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/cart/1/toggle", "", map[string]string{"Content-Type": "application/json"}); rec.Code != http.StatusOK {
		t.Fatalf("json toggle status=%d body=%s", rec.Code, rec.Body.String())
	}

	page := do(t, h, http.MethodGet, "/", "", nil).Body.String()
	if !strings.Contains(page, "gorilla.csrf.Token") {
		t.Fatalf("page forms should carry the csrf field")
	}
}

func TestStorefront_MetricsRequireToken(t *testing.T) {
	w := newStartedWidget(t, cart.NewMemStore())
	h := newTestHandler(t, w, HTTPDeps{
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: true,
		MetricsToken:   "secret",
	})

	_ = do(t, h, http.MethodGet, "/", "", nil)

	if rec := do(t, h, http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("metrics without token=%d", rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/metrics", "", map[string]string{"Authorization": "Bearer secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics with token=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "minicart_http_requests_total") {
		t.Fatalf("request counter missing from exposition")
	}
}
