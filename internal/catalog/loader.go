package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"MiniCart/pkg/kit"
)

// ErrCatalogUnavailable means neither the primary nor the fallback source
// produced a product list.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// Fetcher is one catalog endpoint.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Product, error)
}

// Loader tries the primary source and falls back to the secondary one.
// There is no retry: a load either succeeds from one of the two sources
// or fails as a whole.
type Loader struct {
	Primary  Fetcher
	Fallback Fetcher
	Log      *zap.Logger

	loads *prometheus.CounterVec
	group singleflight.Group
}

func NewLoader(primary, fallback Fetcher, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{Primary: primary, Fallback: fallback, Log: log}
}

// WithMetrics registers catalog_load_total on reg.
func (l *Loader) WithMetrics(reg prometheus.Registerer) *Loader {
	l.loads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: kit.Namespace,
			Name:      "catalog_load_total",
			Help:      "Catalog load attempts by source and result",
		},
		[]string{"source", "result"},
	)
	reg.MustRegister(l.loads)
	return l
}

// Load returns the product list. Callers arriving while a load is in flight
// share its result.
func (l *Loader) Load(ctx context.Context) ([]Product, error) {
	v, err, _ := l.group.Do("catalog", func() (any, error) {
		return l.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Product), nil
}

func (l *Loader) load(ctx context.Context) ([]Product, error) {
	products, primaryErr := l.Primary.Fetch(ctx)
	if primaryErr == nil {
		l.count("primary", "ok")
		return products, nil
	}
	l.count("primary", "error")
	l.Log.Warn("primary catalog failed, trying fallback", zap.Error(primaryErr))

	if l.Fallback == nil {
		l.Log.Error("catalog could not be loaded", zap.Error(primaryErr))
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, primaryErr)
	}

	products, fallbackErr := l.Fallback.Fetch(ctx)
	if fallbackErr == nil {
		l.count("fallback", "ok")
		return products, nil
	}
	l.count("fallback", "error")
	l.Log.Error("catalog could not be loaded",
		zap.NamedError("primary", primaryErr),
		zap.NamedError("fallback", fallbackErr),
	)
	return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, errors.Join(primaryErr, fallbackErr))
}

func (l *Loader) count(source, result string) {
	if l.loads != nil {
		l.loads.WithLabelValues(source, result).Inc()
	}
}
