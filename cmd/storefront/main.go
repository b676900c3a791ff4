package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"MiniCart/internal/cart"
	"MiniCart/internal/catalog"
	"MiniCart/internal/config"
	"MiniCart/internal/storefront"
	"MiniCart/pkg/kit"
)

func main() {
	service := "storefront"

	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		kit.NewLogger(service).Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLoggerAt(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	store, err := cart.Open(ctx, string(cfg.Cart.Store), cfg.Cart.SQLitePath, cfg.Cart.DatabaseURL)
	if err != nil {
		log.Fatal("open cart store failed", zap.Error(err), zap.String("store", string(cfg.Cart.Store)))
	}
	defer func() { _ = store.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var fallback catalog.Fetcher
	if cfg.Catalog.FallbackURL != "" {
		fallback = catalog.NewSource("fallback", cfg.Catalog.FallbackURL, catalog.ShapeEnvelope, cfg.Catalog.Timeout)
	}
	loader := catalog.NewLoader(
		catalog.NewSource("primary", cfg.Catalog.PrimaryURL, catalog.ShapeList, cfg.Catalog.Timeout),
		fallback,
		log,
	).WithMetrics(reg)

	w := storefront.NewWidget(loader, cart.NewPersister(store), log).WithMetrics(reg)
	if err := w.Start(ctx); err != nil {
		if errors.Is(err, cart.ErrCorruptCart) {
			log.Fatal("stored cart is unreadable", zap.Error(err))
		}
		log.Fatal("start widget failed", zap.Error(err))
	}

	csrfKey := []byte(cfg.HTTP.CSRFKey)
	if len(csrfKey) == 0 {
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			log.Fatal("generate csrf key failed", zap.Error(err))
		}
		log.Warn("CSRF_KEY not set, using a random key; form tokens will not survive a restart")
	}

	s := &storefront.Server{
		Widget:   w,
		Renderer: storefront.MustRenderer(),
		Store:    store,
		Log:      log,
	}
	h := storefront.NewHandler(s, storefront.HTTPDeps{
		Log:                 log,
		Service:             service,
		Registry:            reg,
		MetricsEnabled:      true,
		MetricsToken:        cfg.HTTP.MetricsToken,
		CSRFKey:             csrfKey,
		CSRFTrustedOrigins:  cfg.HTTP.CSRFTrustedOrigins,
		CSRFSecure:          cfg.HTTP.CSRFSecure,
		MutationLimitPerMin: cfg.HTTP.MutationLimit,
	})

	if err := kit.RunHTTPServer(ctx, ":"+cfg.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
