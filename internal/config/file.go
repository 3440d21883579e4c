package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors Config in TOML form. Durations are Go duration strings;
// zero values leave the default untouched.
type fileConfig struct {
	Server struct {
		Port                 string `toml:"port"`
		BackofficePort       string `toml:"backoffice_port"`
		Env                  string `toml:"env"`
		ReadTimeout          string `toml:"read_timeout"`
		WriteTimeout         string `toml:"write_timeout"`
		BackofficeAllowedIPs string `toml:"backoffice_allowed_ips"`
		AllowedOrigins       string `toml:"allowed_origins"`
	} `toml:"server"`
	DB struct {
		DSN             string `toml:"dsn"`
		MaxOpenConns    int    `toml:"max_open_conns"`
		MaxIdleConns    int    `toml:"max_idle_conns"`
		ConnMaxLifetime string `toml:"conn_max_lifetime"`
	} `toml:"database"`
	JWT struct {
		AccessSecret string `toml:"access_secret"`
		AccessTTL    string `toml:"access_ttl"`
		Issuer       string `toml:"issuer"`
	} `toml:"jwt"`
	Ledger struct {
		Driver        string `toml:"driver"`
		Name          string `toml:"name"`
		Symbol        string `toml:"symbol"`
		Decimals      *uint8 `toml:"decimals"`
		Timeout       string `toml:"timeout"`
		GenesisSupply int64  `toml:"genesis_supply"`
	} `toml:"ledger"`
	Storage struct {
		Driver string `toml:"driver"`
	} `toml:"storage"`
	Vault struct {
		BootstrapAdmins      []string `toml:"bootstrap_admins"`
		DefaultLockMinutes   int64    `toml:"default_lock_minutes"`
		ActivityRetention    int      `toml:"activity_retention"`
		RecentActivityWindow int      `toml:"recent_activity_window"`
		TopInvestors         int      `toml:"top_investors"`
		StatsInterval        string   `toml:"stats_interval"`
		ReconcileInterval    string   `toml:"reconcile_interval"`
	} `toml:"vault"`
	Faucet struct {
		Enabled  *bool  `toml:"enabled"`
		Amount   int64  `toml:"amount"`
		Cooldown string `toml:"cooldown"`
	} `toml:"faucet"`
	RateLimit struct {
		PublicRPS int `toml:"public_rps"`
		FaucetRPS int `toml:"faucet_rps"`
	} `toml:"rate_limit"`
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}

	setStr(&cfg.Server.Port, fc.Server.Port)
	setStr(&cfg.Server.BackofficePort, fc.Server.BackofficePort)
	setStr(&cfg.Server.Env, fc.Server.Env)
	setStr(&cfg.Server.BackofficeAllowedIPs, fc.Server.BackofficeAllowedIPs)
	setStr(&cfg.Server.AllowedOrigins, fc.Server.AllowedOrigins)
	setStr(&cfg.DB.DSN, fc.DB.DSN)
	setInt(&cfg.DB.MaxOpenConns, fc.DB.MaxOpenConns)
	setInt(&cfg.DB.MaxIdleConns, fc.DB.MaxIdleConns)
	setStr(&cfg.JWT.AccessSecret, fc.JWT.AccessSecret)
	setStr(&cfg.JWT.Issuer, fc.JWT.Issuer)
	setStr(&cfg.Ledger.Driver, fc.Ledger.Driver)
	setStr(&cfg.Ledger.Name, fc.Ledger.Name)
	setStr(&cfg.Ledger.Symbol, fc.Ledger.Symbol)
	if fc.Ledger.Decimals != nil {
		cfg.Ledger.Decimals = *fc.Ledger.Decimals
	}
	if fc.Ledger.GenesisSupply != 0 {
		cfg.Ledger.GenesisSupply = fc.Ledger.GenesisSupply
	}
	setStr(&cfg.Storage.Driver, fc.Storage.Driver)
	if fc.Vault.DefaultLockMinutes != 0 {
		cfg.Vault.DefaultLockMinutes = fc.Vault.DefaultLockMinutes
	}
	setInt(&cfg.Vault.ActivityRetention, fc.Vault.ActivityRetention)
	setInt(&cfg.Vault.RecentActivityWindow, fc.Vault.RecentActivityWindow)
	setInt(&cfg.Vault.TopInvestors, fc.Vault.TopInvestors)
	if fc.Faucet.Enabled != nil {
		cfg.Faucet.Enabled = *fc.Faucet.Enabled
	}
	if fc.Faucet.Amount != 0 {
		cfg.Faucet.Amount = fc.Faucet.Amount
	}
	setInt(&cfg.RateLimit.PublicRPS, fc.RateLimit.PublicRPS)
	setInt(&cfg.RateLimit.FaucetRPS, fc.RateLimit.FaucetRPS)

	if len(fc.Vault.BootstrapAdmins) > 0 {
		admins, err := parsePrincipals(strings.Join(fc.Vault.BootstrapAdmins, ","))
		if err != nil {
			return fmt.Errorf("config: vault.bootstrap_admins: %w", err)
		}
		cfg.Vault.BootstrapAdmins = admins
	}

	durations := []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"server.read_timeout", fc.Server.ReadTimeout, &cfg.Server.ReadTimeout},
		{"server.write_timeout", fc.Server.WriteTimeout, &cfg.Server.WriteTimeout},
		{"database.conn_max_lifetime", fc.DB.ConnMaxLifetime, &cfg.DB.ConnMaxLifetime},
		{"jwt.access_ttl", fc.JWT.AccessTTL, &cfg.JWT.AccessTTL},
		{"ledger.timeout", fc.Ledger.Timeout, &cfg.Ledger.Timeout},
		{"vault.stats_interval", fc.Vault.StatsInterval, &cfg.Vault.StatsInterval},
		{"vault.reconcile_interval", fc.Vault.ReconcileInterval, &cfg.Vault.ReconcileInterval},
		{"faucet.cooldown", fc.Faucet.Cooldown, &cfg.Faucet.Cooldown},
	}
	for _, d := range durations {
		if d.src == "" {
			continue
		}
		v, err := time.ParseDuration(d.src)
		if err != nil {
			return fmt.Errorf("config: %s: invalid duration %q", d.name, d.src)
		}
		*d.dst = v
	}
	return nil
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
