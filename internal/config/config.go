// Package config resolves runtime settings from, in increasing priority,
// built-in defaults, an optional YAML file, a .env file and the process
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPrimaryURL  = "https://fakestoreapi.com/products"
	DefaultFallbackURL = "https://raw.githubusercontent.com/Adalab/resources/master/apis/products.json"

	// PathEnv names the variable holding the YAML config path.
	PathEnv = "MINICART_CONFIG"
)

type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StoreSQLite   StoreKind = "sqlite"
	StorePostgres StoreKind = "postgres"
)

type Config struct {
	Port     string `yaml:"port" envconfig:"PORT"`
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	Catalog CatalogConfig `yaml:"catalog"`
	Cart    CartConfig    `yaml:"cart"`
	HTTP    HTTPConfig    `yaml:"http"`
}

type CatalogConfig struct {
	PrimaryURL  string `yaml:"primary_url" envconfig:"CATALOG_PRIMARY_URL"`
	FallbackURL string `yaml:"fallback_url" envconfig:"CATALOG_FALLBACK_URL"`
	// Zero means no client-side timeout.
	Timeout time.Duration `yaml:"timeout" envconfig:"CATALOG_TIMEOUT"`
}

type CartConfig struct {
	Store       StoreKind `yaml:"store" envconfig:"CART_STORE"`
	SQLitePath  string    `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	DatabaseURL string    `yaml:"database_url" envconfig:"DATABASE_URL"`
}

type HTTPConfig struct {
	CSRFKey            string   `yaml:"csrf_key" envconfig:"CSRF_KEY"`
	CSRFTrustedOrigins []string `yaml:"csrf_trusted_origins" envconfig:"CSRF_TRUSTED_ORIGINS"`
	CSRFSecure         bool     `yaml:"csrf_secure" envconfig:"CSRF_SECURE"`
	MetricsToken       string   `yaml:"metrics_token" envconfig:"METRICS_TOKEN"`
	MutationLimit      int      `yaml:"mutation_limit_per_min" envconfig:"MUTATION_LIMIT_PER_MIN"`
}

func Default() Config {
	return Config{
		Port:     "8080",
		LogLevel: "info",
		Catalog: CatalogConfig{
			PrimaryURL:  DefaultPrimaryURL,
			FallbackURL: DefaultFallbackURL,
		},
		Cart: CartConfig{
			Store:      StoreMemory,
			SQLitePath: "minicart.db",
		},
		HTTP: HTTPConfig{
			CSRFTrustedOrigins: []string{"localhost:8080", "127.0.0.1:8080"},
			MutationLimit:      120,
		},
	}
}

// Load resolves the configuration. path may be empty, in which case
// MINICART_CONFIG is consulted; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		if err := readYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Catalog.PrimaryURL) == "" {
		return errors.New("catalog primary url is required")
	}
	if c.Catalog.Timeout < 0 {
		return errors.New("catalog timeout must not be negative")
	}

	switch c.Cart.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.Cart.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite cart store")
		}
	case StorePostgres:
		if c.Cart.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres cart store")
		}
	default:
		return fmt.Errorf("unknown cart store %q", c.Cart.Store)
	}

	if k := c.HTTP.CSRFKey; k != "" && len(k) != 32 {
		return errors.New("CSRF_KEY must be exactly 32 bytes")
	}
	return nil
}
