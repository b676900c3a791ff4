package kit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UnmatchedRoute labels requests that hit no registered route.
const UnmatchedRoute = "unmatched"

// RouteLabel labels metrics by chi route pattern so that /api/cart/{id}
// stays one series regardless of the id. Requests that matched nothing
// share a single label instead of one series per raw path.
func RouteLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if rp := rc.RoutePattern(); rp != "" {
			return rp
		}
	}
	return UnmatchedRoute
}
