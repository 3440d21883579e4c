// Package config provides application configuration loaded from an optional
// TOML file and environment variables (env wins).
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neurovault/vault/internal/domain"
)

// Backend driver names.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                 string        // e.g. "8080"
	BackofficePort       string        // e.g. "8081"
	Env                  string        // "development" | "production"
	ReadTimeout          time.Duration // default 10s
	WriteTimeout         time.Duration // default 10s
	BackofficeAllowedIPs string        // comma-separated IPs; "" = allow all
	AllowedOrigins       string        // comma-separated websocket origins; "" = allow all
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds access token settings.
type JWTConfig struct {
	AccessSecret string        // must be set
	AccessTTL    time.Duration // default 15m
	Issuer       string        // default "neurovault"
}

// LedgerConfig selects and describes the token ledger.
type LedgerConfig struct {
	Driver        string        // "memory" | "postgres"
	Name          string        // default "Vault USD"
	Symbol        string        // default "USDX"
	Decimals      uint8         // default 6
	Timeout       time.Duration // bound on every ledger call, default 5s
	GenesisSupply int64         // minted to the first bootstrap admin on an empty ledger
}

// StorageConfig selects where vault state is persisted.
type StorageConfig struct {
	Driver string // "memory" | "postgres"
}

// VaultConfig holds vault behaviour knobs.
type VaultConfig struct {
	BootstrapAdmins      []uuid.UUID
	DefaultLockMinutes   int64         // default 60
	ActivityRetention    int           // activities kept in memory, default 500
	RecentActivityWindow int           // activities in the admin report, default 20
	TopInvestors         int           // default 10
	StatsInterval        time.Duration // websocket stats push, default 5s
	ReconcileInterval    time.Duration // pool vs ledger check, default 1m
}

// FaucetConfig holds test-token faucet settings.
type FaucetConfig struct {
	Enabled  bool
	Amount   int64         // base units, default 100 USDX
	Cooldown time.Duration // default 1h
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	PublicRPS int // default 20
	FaucetRPS int // default 1
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	JWT       JWTConfig
	Ledger    LedgerConfig
	Storage   StorageConfig
	Vault     VaultConfig
	Faucet    FaucetConfig
	RateLimit RateLimitConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// OriginList returns the configured websocket/CORS origins.
func (s ServerConfig) OriginList() []string { return splitList(s.AllowedOrigins) }

// AllowedIPList returns the backoffice IP allowlist.
func (s ServerConfig) AllowedIPList() []string { return splitList(s.BackofficeAllowedIPs) }

// NeedsDB reports whether any backend talks to PostgreSQL.
func (c *Config) NeedsDB() bool {
	return c.Storage.Driver == DriverPostgres || c.Ledger.Driver == DriverPostgres
}

// Validate checks that all required configuration values are present and valid.
// All problems are returned joined together.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}
	if c.IsProd() && c.NeedsDB() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}
	if c.Ledger.Driver != DriverMemory && c.Ledger.Driver != DriverPostgres {
		errs = append(errs, fmt.Errorf("LEDGER_DRIVER must be memory or postgres, got %q", c.Ledger.Driver))
	}
	if c.Storage.Driver != DriverMemory && c.Storage.Driver != DriverPostgres {
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be memory or postgres, got %q", c.Storage.Driver))
	}
	if c.Storage.Driver == DriverPostgres && c.Ledger.Driver == DriverMemory {
		errs = append(errs, errors.New("STORAGE_DRIVER=postgres requires LEDGER_DRIVER=postgres"))
	}
	if c.Ledger.Timeout <= 0 {
		errs = append(errs, errors.New("LEDGER_TIMEOUT must be positive"))
	}
	if c.Ledger.GenesisSupply < 0 {
		errs = append(errs, errors.New("LEDGER_GENESIS_SUPPLY must not be negative"))
	}
	if len(c.Vault.BootstrapAdmins) == 0 {
		errs = append(errs, errors.New("VAULT_BOOTSTRAP_ADMINS must list at least one principal"))
	}
	if err := domain.Minutes(c.Vault.DefaultLockMinutes).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("VAULT_DEFAULT_LOCK_MINUTES: %w", err))
	}
	if c.Vault.RecentActivityWindow <= 0 || c.Vault.TopInvestors <= 0 {
		errs = append(errs, errors.New("report windows must be positive"))
	}
	if c.Faucet.Enabled && (c.Faucet.Amount <= 0 || c.Faucet.Cooldown <= 0) {
		errs = append(errs, errors.New("FAUCET_AMOUNT and FAUCET_COOLDOWN must be positive when the faucet is enabled"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once.
// Panics if loading fails; call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = Load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Loader
// ──────────────────────────────────────────────────────────────────────────────

// Load builds a fresh Config: defaults, then CONFIG_FILE (if set), then env.
func Load() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			BackofficePort: "8081",
			Env:            "development",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
		},
		DB: DBConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		JWT: JWTConfig{
			AccessTTL: 15 * time.Minute,
			Issuer:    "neurovault",
		},
		Ledger: LedgerConfig{
			Driver:   DriverMemory,
			Name:     "Vault USD",
			Symbol:   "USDX",
			Decimals: 6,
			Timeout:  5 * time.Second,
		},
		Storage: StorageConfig{Driver: DriverMemory},
		Vault: VaultConfig{
			DefaultLockMinutes:   60,
			ActivityRetention:    500,
			RecentActivityWindow: 20,
			TopInvestors:         10,
			StatsInterval:        5 * time.Second,
			ReconcileInterval:    time.Minute,
		},
		Faucet: FaucetConfig{
			Enabled:  true,
			Amount:   100_000_000,
			Cooldown: time.Hour,
		},
		RateLimit: RateLimitConfig{PublicRPS: 20, FaucetRPS: 1},
	}
}

func applyEnv(cfg *Config) error {
	var err error

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.BackofficePort = getEnv("BACKOFFICE_PORT", cfg.Server.BackofficePort)
	cfg.Server.Env = getEnv("ENVIRONMENT", cfg.Server.Env)
	cfg.Server.BackofficeAllowedIPs = getEnv("BACKOFFICE_ALLOWED_IPS", cfg.Server.BackofficeAllowedIPs)
	cfg.Server.AllowedOrigins = getEnv("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)
	if cfg.Server.ReadTimeout, err = getDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout); err != nil {
		return err
	}
	if cfg.Server.WriteTimeout, err = getDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout); err != nil {
		return err
	}

	// ── Database ──────────────────────────────────────────────────────────────
	cfg.DB.DSN = getEnv("DATABASE_DSN", cfg.DB.DSN)
	if cfg.DB.DSN == "" {
		// Build DSN from individual components for convenience in dev
		cfg.DB.DSN = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "neurovault"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}
	if cfg.DB.MaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", cfg.DB.MaxOpenConns); err != nil {
		return err
	}
	if cfg.DB.MaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", cfg.DB.MaxIdleConns); err != nil {
		return err
	}
	if cfg.DB.ConnMaxLifetime, err = getDuration("DB_CONN_MAX_LIFETIME", cfg.DB.ConnMaxLifetime); err != nil {
		return err
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT.AccessSecret = getEnv("JWT_ACCESS_SECRET", cfg.JWT.AccessSecret)
	cfg.JWT.Issuer = getEnv("JWT_ISSUER", cfg.JWT.Issuer)
	if cfg.JWT.AccessTTL, err = getDuration("JWT_ACCESS_TTL", cfg.JWT.AccessTTL); err != nil {
		return err
	}

	// ── Ledger / storage ──────────────────────────────────────────────────────
	cfg.Ledger.Driver = getEnv("LEDGER_DRIVER", cfg.Ledger.Driver)
	cfg.Ledger.Name = getEnv("TOKEN_NAME", cfg.Ledger.Name)
	cfg.Ledger.Symbol = getEnv("TOKEN_SYMBOL", cfg.Ledger.Symbol)
	decimals, err := getInt("TOKEN_DECIMALS", int(cfg.Ledger.Decimals))
	if err != nil {
		return err
	}
	if decimals < 0 || decimals > 18 {
		return fmt.Errorf("TOKEN_DECIMALS: out of range %d", decimals)
	}
	cfg.Ledger.Decimals = uint8(decimals)
	if cfg.Ledger.Timeout, err = getDuration("LEDGER_TIMEOUT", cfg.Ledger.Timeout); err != nil {
		return err
	}
	if cfg.Ledger.GenesisSupply, err = getInt64("LEDGER_GENESIS_SUPPLY", cfg.Ledger.GenesisSupply); err != nil {
		return err
	}
	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)

	// ── Vault ─────────────────────────────────────────────────────────────────
	if v := os.Getenv("VAULT_BOOTSTRAP_ADMINS"); v != "" {
		if cfg.Vault.BootstrapAdmins, err = parsePrincipals(v); err != nil {
			return fmt.Errorf("VAULT_BOOTSTRAP_ADMINS: %w", err)
		}
	}
	if cfg.Vault.DefaultLockMinutes, err = getInt64("VAULT_DEFAULT_LOCK_MINUTES", cfg.Vault.DefaultLockMinutes); err != nil {
		return err
	}
	if cfg.Vault.ActivityRetention, err = getInt("VAULT_ACTIVITY_RETENTION", cfg.Vault.ActivityRetention); err != nil {
		return err
	}
	if cfg.Vault.RecentActivityWindow, err = getInt("VAULT_RECENT_ACTIVITY", cfg.Vault.RecentActivityWindow); err != nil {
		return err
	}
	if cfg.Vault.TopInvestors, err = getInt("VAULT_TOP_INVESTORS", cfg.Vault.TopInvestors); err != nil {
		return err
	}
	if cfg.Vault.StatsInterval, err = getDuration("VAULT_STATS_INTERVAL", cfg.Vault.StatsInterval); err != nil {
		return err
	}
	if cfg.Vault.ReconcileInterval, err = getDuration("VAULT_RECONCILE_INTERVAL", cfg.Vault.ReconcileInterval); err != nil {
		return err
	}

	// ── Faucet / rate limits ──────────────────────────────────────────────────
	if cfg.Faucet.Enabled, err = getBool("FAUCET_ENABLED", cfg.Faucet.Enabled); err != nil {
		return err
	}
	if cfg.Faucet.Amount, err = getInt64("FAUCET_AMOUNT", cfg.Faucet.Amount); err != nil {
		return err
	}
	if cfg.Faucet.Cooldown, err = getDuration("FAUCET_COOLDOWN", cfg.Faucet.Cooldown); err != nil {
		return err
	}
	if cfg.RateLimit.PublicRPS, err = getInt("RATE_LIMIT_PUBLIC_RPS", cfg.RateLimit.PublicRPS); err != nil {
		return err
	}
	if cfg.RateLimit.FaucetRPS, err = getInt("RATE_LIMIT_FAUCET_RPS", cfg.RateLimit.FaucetRPS); err != nil {
		return err
	}

	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func parsePrincipals(csv string) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("invalid principal %q: %w", part, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func splitList(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
