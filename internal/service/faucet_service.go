package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neurovault/vault/internal/domain"
)

// Faucet mints test tokens to caller, at most once per cooldown window.
func (s *VaultService) Faucet(ctx context.Context, caller uuid.UUID) (domain.FaucetResult, error) {
	cfg := s.settings.Faucet
	if !cfg.Enabled {
		return domain.FaucetResult{}, domain.ErrFaucetDisabled
	}
	if caller == uuid.Nil {
		return domain.FaucetResult{}, domain.ErrInvalidPrincipal
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// ── 1. Cooldown ──────────────────────────────────────────────────────────
	now := s.clock.Now()
	if last, ok := s.state.FaucetGrants[caller]; ok {
		next := last.Add(cfg.Cooldown)
		if now.Before(next) {
			return domain.FaucetResult{}, fmt.Errorf("%w: retry in %s",
				domain.ErrFaucetCooldown, next.Sub(now).Round(time.Second))
		}
	}

	// ── 2. Mint ──────────────────────────────────────────────────────────────
	if err := s.mint(ctx, domain.UserAccount(caller), cfg.Amount, "faucet"); err != nil {
		return domain.FaucetResult{}, fmt.Errorf("faucet.Grant: mint: %w", err)
	}

	// ── 3. Record the grant ──────────────────────────────────────────────────
	// A mint cannot be reversed; a failed write only loses the cooldown.
	grant := domain.FaucetGrant{Principal: caller, Amount: cfg.Amount, GrantedAt: now}
	if err := s.persist(ctx, "faucet.Grant", &domain.Changeset{FaucetGrants: []domain.FaucetGrant{grant}}); err != nil {
		s.log.Error(ctx, "faucet grant not recorded after mint", "principal", caller, "amount", cfg.Amount, "error", err)
		return domain.FaucetResult{}, err
	}

	s.log.Info(ctx, "faucet grant", "principal", caller, "amount", cfg.Amount)
	return domain.FaucetResult{Amount: cfg.Amount, NextAllowedAt: now.Add(cfg.Cooldown)}, nil
}
