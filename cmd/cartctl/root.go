package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"MiniCart/internal/cart"
	"MiniCart/internal/catalog"
	"MiniCart/internal/config"
	"MiniCart/internal/storefront"
	"MiniCart/pkg/kit"
)

type options struct {
	configPath  string
	store       string
	sqlitePath  string
	primaryURL  string
	fallbackURL string
	verbose     bool
}

// session is the widget plus the store it was opened against, alive for
// one command.
type session struct {
	widget *storefront.Widget
	store  cart.Store
	log    *zap.Logger
}

func (s *session) Close() {
	_ = s.store.Close()
	_ = s.log.Sync()
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Browse the catalog and edit the stored cart",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file (default $"+config.PathEnv+")")
	pf.StringVar(&opts.store, "store", "", "cart store: memory, sqlite or postgres (default sqlite)")
	pf.StringVar(&opts.sqlitePath, "sqlite-path", "", "SQLite database file")
	pf.StringVar(&opts.primaryURL, "primary-url", "", "primary catalog endpoint")
	pf.StringVar(&opts.fallbackURL, "fallback-url", "", "fallback catalog endpoint")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newProductsCmd(opts),
		newToggleCmd(opts),
		newRemoveCmd(opts),
		newCartCmd(opts),
	)
	return root
}

func openSession(ctx context.Context, opts *options, errOut io.Writer) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	// An in-memory cart would be gone when the command exits.
	if cfg.Cart.Store == config.StoreMemory {
		cfg.Cart.Store = config.StoreSQLite
	}
	if opts.store != "" {
		cfg.Cart.Store = config.StoreKind(opts.store)
	}
	if opts.sqlitePath != "" {
		cfg.Cart.SQLitePath = opts.sqlitePath
	}
	if opts.primaryURL != "" {
		cfg.Catalog.PrimaryURL = opts.primaryURL
	}
	if opts.fallbackURL != "" {
		cfg.Catalog.FallbackURL = opts.fallbackURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if opts.verbose {
		log = kit.NewLoggerAt("cartctl", cfg.LogLevel)
	}

	store, err := cart.Open(ctx, string(cfg.Cart.Store), cfg.Cart.SQLitePath, cfg.Cart.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open cart store: %w", err)
	}

	var fallback catalog.Fetcher
	if cfg.Catalog.FallbackURL != "" {
		fallback = catalog.NewSource("fallback", cfg.Catalog.FallbackURL, catalog.ShapeEnvelope, cfg.Catalog.Timeout)
	}
	loader := catalog.NewLoader(
		catalog.NewSource("primary", cfg.Catalog.PrimaryURL, catalog.ShapeList, cfg.Catalog.Timeout),
		fallback,
		log,
	)

	w := storefront.NewWidget(loader, cart.NewPersister(store), log)
	if err := w.RestoreCart(ctx); err != nil {
		_ = store.Close()
		if errors.Is(err, cart.ErrCorruptCart) {
			fmt.Fprintln(errOut, "the stored cart cannot be read; fix or delete the \"cart\" key")
		}
		return nil, err
	}
	return &session{widget: w, store: store, log: log}, nil
}

func newProductsCmd(opts *options) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalog products, optionally filtered by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.widget.Reload(cmd.Context()); err != nil {
				return err
			}
			s.widget.Search(query)

			snap := s.widget.Snapshot()
			return printProducts(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive name filter")
	return cmd
}

func newToggleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Add a product to the cart, or take it out if it is there",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.widget.Reload(cmd.Context()); err != nil {
				return err
			}
			added, err := s.widget.Toggle(cmd.Context(), id)
			if err != nil {
				return err
			}

			verb := "removed"
			if added {
				verb = "added"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", verb, id)
			return printCart(cmd.OutOrStdout(), s.widget.Snapshot())
		},
	}
}

func newRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Take a product out of the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			removed, err := s.widget.Remove(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%d was not in the cart\n", id)
			}
			return printCart(cmd.OutOrStdout(), s.widget.Snapshot())
		},
	}
}

func newCartCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cart",
		Short: "Show the stored cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			return printCart(cmd.OutOrStdout(), s.widget.Snapshot())
		},
	}
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("bad id %q", raw)
	}
	return id, nil
}

func printProducts(out io.Writer, snap storefront.Snapshot) error {
	if len(snap.Visible) == 0 {
		_, err := fmt.Fprintln(out, "no products")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCART")
	for _, p := range snap.Visible {
		mark := ""
		if snap.InCart(p.ID) {
			mark = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s €\t%s\n", p.ID, p.DisplayName(), catalog.FormatPrice(p.Price), mark)
	}
	return tw.Flush()
}

func printCart(out io.Writer, snap storefront.Snapshot) error {
	if len(snap.Cart) == 0 {
		_, err := fmt.Fprintln(out, "El carrito está vacío")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, p := range snap.Cart {
		fmt.Fprintf(tw, "%d\t%s\t%s €\n", p.ID, p.DisplayName(), catalog.FormatPrice(p.Price))
	}
	fmt.Fprintf(tw, "\tTotal\t%s €\n", catalog.FormatPrice(snap.Total))
	return tw.Flush()
}
