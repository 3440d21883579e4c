// Package main is the entry point for the neurovault custodial token vault.
// It wires together the ledger, the store and the vault service, and serves
// the public API and the admin backoffice alongside the WebSocket hub and
// background scheduler.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/neurovault/vault/internal/api"
	"github.com/neurovault/vault/internal/backoffice"
	"github.com/neurovault/vault/internal/clock"
	"github.com/neurovault/vault/internal/config"
	"github.com/neurovault/vault/internal/ledger"
	"github.com/neurovault/vault/internal/logging"
	"github.com/neurovault/vault/internal/repository"
	"github.com/neurovault/vault/internal/scheduler"
	"github.com/neurovault/vault/internal/service"
	"github.com/neurovault/vault/internal/ws"
)

func main() {
	cfg := config.MustLoad()

	// ── 1. Logger ─────────────────────────────────────────────────────────────
	logger := logging.New(os.Stdout, cfg.IsProd())
	slog.SetDefault(logger)
	log := logging.NewSlogLogger(logger)

	// ── 2. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg, log); err != nil {
		log.Error(ctx, "server exited with error", "err", err)
		os.Exit(1)
	}
	log.Info(ctx, "server stopped cleanly")
}

func run(ctx context.Context, stop context.CancelFunc, cfg *config.Config, log logging.Logger) error {
	log.Info(ctx, "starting neurovault",
		"env", cfg.Server.Env, "port", cfg.Server.Port, "backoffice_port", cfg.Server.BackofficePort,
		"ledger", cfg.Ledger.Driver, "storage", cfg.Storage.Driver)

	// ── 3. Database + migrations ──────────────────────────────────────────────
	var db *sqlx.DB
	if cfg.NeedsDB() {
		var err error
		if db, err = repository.Connect(ctx, cfg.DB); err != nil {
			return err
		}
		defer db.Close()
		log.Info(ctx, "database connected")

		if err = repository.Migrate(ctx, db.DB); err != nil {
			return err
		}
		log.Info(ctx, "migrations applied")
	}

	// ── 4. Ledger + store ─────────────────────────────────────────────────────
	var led ledger.TokenLedger
	switch cfg.Ledger.Driver {
	case config.DriverPostgres:
		led = ledger.NewPostgres(db, cfg.Ledger.Name, cfg.Ledger.Symbol, cfg.Ledger.Decimals)
	default:
		led = ledger.NewMemory(cfg.Ledger.Name, cfg.Ledger.Symbol, cfg.Ledger.Decimals)
	}

	var store service.Store
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		store = repository.NewPostgresStore(db, cfg.Vault.ActivityRetention)
	default:
		store = repository.NewMemoryStore()
	}

	// ── 5. Services ───────────────────────────────────────────────────────────
	clk := clock.Real{}
	vault, err := service.NewVaultService(ctx, led, store, clk, log.With("component", "vault"), service.SettingsFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("vault service: %w", err)
	}
	if cfg.Ledger.GenesisSupply > 0 {
		if err = vault.SeedGenesis(ctx, cfg.Ledger.GenesisSupply); err != nil {
			return err
		}
	}
	authSvc := service.NewAuthService(cfg.JWT, clk)

	// ── 6. WebSocket hub ──────────────────────────────────────────────────────
	hub := ws.NewHub([]byte(cfg.JWT.AccessSecret), cfg.JWT.Issuer, cfg.Server.OriginList(), log.With("component", "ws"))
	vault.SetBroadcaster(hub)
	go hub.Run(ctx)
	log.Info(ctx, "websocket hub started")

	// ── 7. Scheduler ──────────────────────────────────────────────────────────
	scheduler.NewScheduler(vault, hub, scheduler.IntervalsFromConfig(cfg), log).Start(ctx)

	// ── 8. HTTP servers ───────────────────────────────────────────────────────
	public := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: api.SetupRouter(api.RouterDeps{
			Ctx:     ctx,
			AuthSvc: authSvc,
			Vault:   vault,
			Hub:     hub,
			Cfg:     cfg,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	admin := &http.Server{
		Addr: ":" + cfg.Server.BackofficePort,
		Handler: backoffice.SetupBackofficeRouter(backoffice.BackofficeDeps{
			AuthSvc: authSvc,
			Vault:   vault,
			Hub:     hub,
			Clock:   clk,
			Cfg:     cfg,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	for name, srv := range map[string]*http.Server{"api": public, "backoffice": admin} {
		name, srv := name, srv
		go func() {
			log.Info(ctx, "http server listening", "server", name, "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "http server error", "server", name, "err", err)
				stop() // trigger graceful shutdown
			}
		}()
	}

	// ── 9. Graceful shutdown ──────────────────────────────────────────────────
	<-ctx.Done()
	log.Info(context.Background(), "shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return errors.Join(public.Shutdown(shutdownCtx), admin.Shutdown(shutdownCtx))
}
