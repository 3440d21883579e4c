// Package scheduler runs the vault's background goroutines:
//  1. statsBroadcastLoop – pushes vault totals to WS clients on an interval.
//  2. reconcileLoop      – compares the ledger pool with the pooled counter.
package scheduler

import (
	"context"
	"time"

	"github.com/neurovault/vault/internal/config"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/logging"
	"github.com/neurovault/vault/internal/service"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dependencies
// ──────────────────────────────────────────────────────────────────────────────

// Vault is the subset of the vault service the loops read from.
type Vault interface {
	VaultInfo(ctx context.Context) domain.VaultInfo
	Reconcile(ctx context.Context) (service.Drift, error)
}

// StatsBroadcaster defines the broadcast operation the Scheduler needs from
// the WebSocket hub. Declared here so the scheduler package does not import
// the ws implementation.
type StatsBroadcaster interface {
	BroadcastVaultStats(info domain.VaultInfo)
}

// Intervals configures the loop periods. A zero interval disables its loop.
type Intervals struct {
	Stats     time.Duration
	Reconcile time.Duration
}

// IntervalsFromConfig reads the loop periods from cfg.
func IntervalsFromConfig(cfg *config.Config) Intervals {
	return Intervals{Stats: cfg.Vault.StatsInterval, Reconcile: cfg.Vault.ReconcileInterval}
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler runs the background loops. Call Start(ctx) once from main();
// cancel the context to shut it down gracefully.
type Scheduler struct {
	vault     Vault
	hub       StatsBroadcaster
	intervals Intervals
	logger    logging.Logger
}

// NewScheduler creates a Scheduler. hub may be nil.
func NewScheduler(vault Vault, hub StatsBroadcaster, intervals Intervals, logger logging.Logger) *Scheduler {
	return &Scheduler{
		vault:     vault,
		hub:       hub,
		intervals: intervals,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start launches the background goroutines. It returns immediately; all loops
// run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if s.hub != nil && s.intervals.Stats > 0 {
		go s.statsBroadcastLoop(ctx)
	}
	if s.intervals.Reconcile > 0 {
		go s.reconcileLoop(ctx)
	}
	s.logger.Info(ctx, "scheduler started",
		"stats_interval", s.intervals.Stats, "reconcile_interval", s.intervals.Reconcile)
}

// ──────────────────────────────────────────────────────────────────────────────
// statsBroadcastLoop
// ──────────────────────────────────────────────────────────────────────────────

func (s *Scheduler) statsBroadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.intervals.Stats)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "statsBroadcastLoop: shutting down")
			return
		case <-ticker.C:
			s.broadcastStats(ctx)
		}
	}
}

// broadcastStats is the inner body of statsBroadcastLoop, extracted so that
// the defer/recover catches panics per tick.
func (s *Scheduler) broadcastStats(ctx context.Context) {
	defer s.recoverAndLog(ctx, "statsBroadcastLoop")
	s.hub.BroadcastVaultStats(s.vault.VaultInfo(ctx))
}

// ──────────────────────────────────────────────────────────────────────────────
// reconcileLoop
// ──────────────────────────────────────────────────────────────────────────────

func (s *Scheduler) reconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(s.intervals.Reconcile)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "reconcileLoop: shutting down")
			return
		case <-ticker.C:
			s.reconcile(ctx)
		}
	}
}

// reconcile runs one check. Drift itself is logged by the vault service.
func (s *Scheduler) reconcile(ctx context.Context) {
	defer s.recoverAndLog(ctx, "reconcileLoop")
	if _, err := s.vault.Reconcile(ctx); err != nil {
		s.logger.Error(ctx, "reconcileLoop: Reconcile", "err", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog catches unexpected panics, logs them, and lets the loop
// continue with the next tick.
func (s *Scheduler) recoverAndLog(ctx context.Context, loop string) {
	if r := recover(); r != nil {
		s.logger.Error(ctx, "PANIC recovered in scheduler loop", "loop", loop, "panic", r)
	}
}
