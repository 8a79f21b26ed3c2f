package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/api"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/backend"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/catalog"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/checkout"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/config"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/logging"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/payment"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/pricing"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/promo"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/render"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema/validate"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/store"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/tax"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// Exit codes.
const (
	exitInvalid  = 3
	exitProvider = 4
	exitStorage  = 5
)

var (
	configPath string
	verbose    bool
	cfg        *config.Config
	logger     = zap.NewNop()
)

// quoteFlags holds the parsed flags for the quote command.
type quoteFlags struct {
	state       string
	shipping    string
	promo       string
	catalogPath string
	format      string
	out         string
}

func main() {
	root := &cobra.Command{
		Use:          "delicias",
		Short:        "Delicias de mi Patria storefront service",
		Long:         "delicias serves the storefront and admin API, prices carts offline, and seeds the catalog.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront and admin HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	var qf quoteFlags
	quoteCmd := &cobra.Command{
		Use:   "quote <cart-file>",
		Short: "Price a cart file offline and print a receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(args[0], qf, cfg)
		},
	}
	f := quoteCmd.Flags()
	f.StringVar(&qf.state, "state", "", "Destination state (overrides the cart file)")
	f.StringVar(&qf.shipping, "shipping", "0", "Shipping price")
	f.StringVar(&qf.promo, "promo", "", "Promotion code (requires --catalog)")
	f.StringVar(&qf.catalogPath, "catalog", "", "Catalog YAML used to reprice lines and look up promotions")
	f.StringVar(&qf.format, "format", "json", "Output format: json or md")
	f.StringVar(&qf.out, "out", "", "Write output to file instead of stdout")

	seedCmd := &cobra.Command{
		Use:   "seed <catalog.yaml>",
		Short: "Load a catalog YAML file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), args[0], cfg)
		},
	}

	root.AddCommand(serveCmd, quoteCmd, seedCmd)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(1)
	}
}

// setup loads the configuration and builds the process logger.
func setup() error {
	c, err := config.Load(configPath)
	if err != nil {
		return codeError(exitInvalid, "loading config: %s", err)
	}
	l, err := logging.New(c.Logging.Level, verbose)
	if err != nil {
		return codeError(exitInvalid, "building logger: %s", err)
	}
	cfg, logger = c, l
	return nil
}

// taxTable returns the built-in table with the configured default rate.
func taxTable(c *config.Config) (*tax.Table, error) {
	rate, ok, err := c.TaxDefaultRate()
	if err != nil || !ok {
		return tax.Default(), err
	}
	return tax.Default().WithDefault(rate)
}

func runServe(ctx context.Context, c *config.Config) error {
	// --- Step 1: Storage ---
	st, err := store.Open(c.Store.Path)
	if err != nil {
		return codeError(exitStorage, "opening store: %s", err)
	}
	defer st.Close()

	// --- Step 2: Payment gateway ---
	provider, err := payment.NewProvider(c.Payment.Provider)
	if err != nil {
		return codeError(exitProvider, "creating payment provider: %s", err)
	}

	// --- Step 3: Pricing and sync ---
	rates, err := taxTable(c)
	if err != nil {
		return codeError(exitInvalid, "tax: %s", err)
	}
	var syncer backend.Syncer = backend.New(backend.Options{})
	if c.Backend.Enabled {
		syncer = backend.New(backend.Options{URL: c.Backend.URL, APIKey: c.Backend.APIKey, Timeout: c.Backend.Timeout})
	}

	svc := checkout.New(st, checkout.Config{
		Payments: provider,
		Rates:    rates,
		Backend:  syncer,
		Logger:   logger.Named("checkout"),
	})
	if c.Server.AdminToken == "" {
		logger.Warn("admin token not set; admin API disabled")
	}
	srv := &http.Server{
		Addr: c.Server.Addr,
		Handler: api.New(st, svc, api.Options{
			AdminToken: c.Server.AdminToken,
			Logger:     logger.Named("api"),
		}).Handler(),
		ReadTimeout:  c.Server.ReadTimeout,
		WriteTimeout: c.Server.WriteTimeout,
	}

	// --- Step 4: Serve until signalled ---
	logger.Info("starting",
		zap.String("version", version),
		zap.String("payment", provider.Name()),
		zap.Bool("backend_sync", syncer.Enabled()),
		zap.String("db", c.Store.Path))
	if err := api.ListenAndServe(ctx, srv, 10*time.Second, logger); err != nil {
		return codeError(1, "server: %s", err)
	}
	return nil
}

// cartFile is the on-disk cart accepted by quote.
type cartFile struct {
	State string            `json:"state"`
	Items []schema.LineItem `json:"items"`
}

func runQuote(cartPath string, flags quoteFlags, c *config.Config) error {
	// --- Step 1: Validate flags ---
	shipping, err := validateFlags(flags)
	if err != nil {
		return codeError(exitInvalid, "invalid flags: %s", err)
	}

	// --- Step 2: Load cart ---
	raw, err := os.ReadFile(cartPath)
	if err != nil {
		return codeError(exitInvalid, "reading cart: %s", err)
	}
	var cf cartFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return codeError(exitInvalid, "parsing cart: %s", err)
	}
	if len(cf.Items) == 0 {
		return codeError(exitInvalid, "cart has no items")
	}
	if err := validate.Items(cf.Items); err != nil {
		return codeError(exitInvalid, "cart: %s", err)
	}
	state := cf.State
	if flags.state != "" {
		state = flags.state
	}

	// --- Step 3: Reprice from catalog when given ---
	var cat *catalog.Catalog
	if flags.catalogPath != "" {
		logger.Debug("loading catalog", zap.String("path", flags.catalogPath))
		cat, err = catalog.Load(flags.catalogPath)
		if err != nil {
			return codeError(exitInvalid, "loading catalog: %s", err)
		}
		if cf.Items, err = reprice(cf.Items, cat); err != nil {
			return codeError(exitInvalid, "%s", err)
		}
	}

	// --- Step 4: Promotion ---
	discount := decimal.Zero
	promoCode := ""
	if flags.promo != "" {
		p, ok := findPromotion(cat, flags.promo)
		if !ok {
			return codeError(exitInvalid, "promotion %s not found in catalog", flags.promo)
		}
		d, err := promo.Discount(p, promo.Order{Items: cf.Items, Shipping: shipping, State: state, Now: time.Now().UTC()})
		if err != nil {
			logger.Warn("promotion not applied", zap.String("code", p.Code), zap.Error(err))
			fmt.Fprintf(os.Stderr, "WARN: promotion %s not applied: %s\n", p.Code, err)
		} else {
			discount, promoCode = d, p.Code
		}
	}

	// --- Step 5: Totals ---
	rates, err := taxTable(c)
	if err != nil {
		return codeError(exitInvalid, "tax: %s", err)
	}
	o := &schema.Order{
		Items:           cf.Items,
		ShippingAddress: schema.Address{State: state},
		PromotionCode:   promoCode,
		Totals:          pricing.Compute(pricing.Input{Items: cf.Items, Shipping: shipping, State: state, Discount: discount}, rates),
	}

	// --- Step 6: Render output ---
	renderer, err := render.NewRenderer(flags.format)
	if err != nil {
		return codeError(exitInvalid, "invalid format: %s", err)
	}
	outputBytes, err := renderer.Render(o)
	if err != nil {
		return codeError(exitInvalid, "rendering output: %s", err)
	}

	// --- Step 7: Write output ---
	if flags.out != "" {
		if err := os.WriteFile(flags.out, outputBytes, 0o644); err != nil {
			return codeError(exitInvalid, "writing output file: %s", err)
		}
		return nil
	}
	if _, err := os.Stdout.Write(outputBytes); err != nil {
		return codeError(exitInvalid, "writing output: %s", err)
	}
	// Ensure output ends with a newline for terminal friendliness.
	if len(outputBytes) > 0 && outputBytes[len(outputBytes)-1] != '\n' {
		fmt.Fprintln(os.Stdout)
	}
	return nil
}

// validateFlags checks the quote flags and returns the parsed shipping price.
func validateFlags(flags quoteFlags) (decimal.Decimal, error) {
	switch flags.format {
	case "json", "md":
	default:
		return decimal.Zero, fmt.Errorf("--format must be json or md, got %q", flags.format)
	}
	shipping, err := decimal.NewFromString(flags.shipping)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--shipping must be a number, got %q", flags.shipping)
	}
	if shipping.IsNegative() {
		return decimal.Zero, fmt.Errorf("--shipping must be ≥ 0, got %s", shipping)
	}
	if flags.promo != "" && flags.catalogPath == "" {
		return decimal.Zero, fmt.Errorf("--promo requires --catalog")
	}
	return shipping, nil
}

// reprice replaces line names and prices with the catalog's.
func reprice(items []schema.LineItem, cat *catalog.Catalog) ([]schema.LineItem, error) {
	byID := make(map[string]schema.Product, len(cat.Products))
	for _, p := range cat.Products {
		byID[p.ID] = p
	}
	out := make([]schema.LineItem, len(items))
	for i, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("items[%d]: product %q is not in the catalog", i, it.ProductID)
		}
		out[i] = schema.LineItem{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: it.Quantity}
	}
	return out, nil
}

func findPromotion(cat *catalog.Catalog, code string) (schema.Promotion, bool) {
	if cat == nil {
		return schema.Promotion{}, false
	}
	for _, p := range cat.Promotions {
		if strings.EqualFold(p.Code, strings.TrimSpace(code)) {
			return p, true
		}
	}
	return schema.Promotion{}, false
}

func runSeed(ctx context.Context, catalogPath string, c *config.Config) error {
	// --- Step 1: Load and validate catalog ---
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return codeError(exitInvalid, "loading catalog: %s", err)
	}

	// --- Step 2: Open store ---
	st, err := store.Open(c.Store.Path)
	if err != nil {
		return codeError(exitStorage, "opening store: %s", err)
	}
	defer st.Close()

	// --- Step 3: Apply ---
	stats, err := cat.Apply(ctx, st)
	if err != nil {
		return codeError(exitStorage, "seeding: %s", err)
	}
	logger.Info("catalog seeded",
		zap.String("catalog", cat.Path),
		zap.String("hash", cat.Hash),
		zap.Int("categories", stats.Categories),
		zap.Int("products", stats.Products),
		zap.Int("shipping_options", stats.ShippingOptions),
		zap.Int("promotions", stats.Promotions),
		zap.Int("content", stats.Content))
	fmt.Fprintf(os.Stdout, "seeded %s (%s): %d categories, %d products, %d shipping options, %d promotions, %d content blocks\n",
		cat.Path, cat.Hash, stats.Categories, stats.Products, stats.ShippingOptions, stats.Promotions, stats.Content)
	return nil
}
