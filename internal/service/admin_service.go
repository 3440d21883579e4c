package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/ledger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Admin list
// ──────────────────────────────────────────────────────────────────────────────

// IsAdmin reports whether p is on the vault's admin list.
func (s *VaultService) IsAdmin(p uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAdmin(p)
}

// Admins returns the admin list in a stable order.
func (s *VaultService) Admins(ctx context.Context) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AdminList()
}

// AddAdmin grants admin rights to p.
func (s *VaultService) AddAdmin(ctx context.Context, admin, p uuid.UUID) error {
	if p == uuid.Nil {
		return domain.ErrInvalidPrincipal
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return err
	}
	if s.state.IsAdmin(p) {
		return domain.ErrAdminExists
	}
	if err := s.persist(ctx, "admin_service.AddAdmin", &domain.Changeset{AddedAdmins: []uuid.UUID{p}}); err != nil {
		return err
	}

	s.log.Info(ctx, "admin added", "principal", p, "by", admin)
	return nil
}

// RemoveAdmin revokes p's admin rights. The last admin cannot be removed.
func (s *VaultService) RemoveAdmin(ctx context.Context, admin, p uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return err
	}
	if !s.state.IsAdmin(p) {
		return domain.ErrAdminNotFound
	}
	if len(s.state.Admins) == 1 {
		return domain.ErrLastAdmin
	}
	if err := s.persist(ctx, "admin_service.RemoveAdmin", &domain.Changeset{RemovedAdmins: []uuid.UUID{p}}); err != nil {
		return err
	}

	s.log.Info(ctx, "admin removed", "principal", p, "by", admin)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Settings and token movements
// ──────────────────────────────────────────────────────────────────────────────

// SetLockPeriod changes the default lock term used when a lock request names
// no duration. Existing entries are not affected.
func (s *VaultService) SetLockPeriod(ctx context.Context, admin uuid.UUID, minutes int64) error {
	if err := domain.Minutes(minutes).Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return err
	}
	vs := s.state.Settings
	prev := vs.LockPeriodMinutes
	vs.LockPeriodMinutes = minutes
	if err := s.persist(ctx, "admin_service.SetLockPeriod", &domain.Changeset{Settings: &vs}); err != nil {
		return err
	}

	s.log.Info(ctx, "lock period changed", "from_minutes", prev, "to_minutes", minutes, "admin", admin)
	return nil
}

// AdminTransfer moves tokens from the admin's own account to another principal.
// It does not touch vault state.
func (s *VaultService) AdminTransfer(ctx context.Context, admin, to uuid.UUID, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if to == uuid.Nil {
		return domain.ErrInvalidPrincipal
	}

	s.mu.RLock()
	err := s.requireAdmin(admin)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	from := domain.UserAccount(admin)
	bal, err := s.balanceOf(ctx, from)
	if err != nil {
		return fmt.Errorf("admin_service.AdminTransfer: balance: %w", err)
	}
	if bal < amount {
		return fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientBalance, bal, amount)
	}
	if err := s.transfer(ctx, ledger.TransferArgs{
		From: from, To: domain.UserAccount(to), Amount: amount, Memo: "admin transfer",
	}); err != nil {
		return fmt.Errorf("admin_service.AdminTransfer: transfer: %w", err)
	}

	s.log.Info(ctx, "admin transfer", "from", admin, "to", to, "amount", amount)
	return nil
}

// TokenInfo returns the custodied token's metadata.
func (s *VaultService) TokenInfo(ctx context.Context) (domain.TokenInfo, error) {
	lctx, cancel := s.ledgerCtx(ctx)
	defer cancel()
	info, err := s.ledger.Metadata(lctx)
	if err != nil {
		return domain.TokenInfo{}, fmt.Errorf("admin_service.TokenInfo: %w", joinUpstream(err))
	}
	return info, nil
}

// Balance returns p's token balance.
func (s *VaultService) Balance(ctx context.Context, p uuid.UUID) (int64, error) {
	bal, err := s.balanceOf(ctx, domain.UserAccount(p))
	if err != nil {
		return 0, fmt.Errorf("admin_service.Balance: %w", err)
	}
	return bal, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Startup and background checks
// ──────────────────────────────────────────────────────────────────────────────

// SeedGenesis mints supply to the first admin when the ledger is empty. It is
// a no-op once any token exists.
func (s *VaultService) SeedGenesis(ctx context.Context, supply int64) error {
	if supply <= 0 {
		return nil
	}
	info, err := s.TokenInfo(ctx)
	if err != nil {
		return err
	}
	if info.TotalSupply > 0 {
		return nil
	}

	s.mu.RLock()
	admins := s.state.AdminList()
	s.mu.RUnlock()
	if len(admins) == 0 {
		return fmt.Errorf("admin_service.SeedGenesis: no admin to receive supply")
	}
	to := admins[0]
	if len(s.settings.BootstrapAdmins) > 0 {
		to = s.settings.BootstrapAdmins[0]
	}
	if err := s.mint(ctx, domain.UserAccount(to), supply, "genesis"); err != nil {
		return fmt.Errorf("admin_service.SeedGenesis: %w", err)
	}

	s.log.Info(ctx, "genesis supply minted", "to", to, "amount", supply, "symbol", info.Symbol)
	return nil
}

// Drift compares the pool account on the ledger with the pooled-balance
// counter.
type Drift struct {
	LedgerPool    int64 `json:"ledger_pool"`
	PooledBalance int64 `json:"pooled_balance"`
}

// Delta is ledger minus counter.
func (d Drift) Delta() int64 { return d.LedgerPool - d.PooledBalance }

// Reconcile reads the pool account and logs any drift from the counter. It
// never changes state.
func (s *VaultService) Reconcile(ctx context.Context) (Drift, error) {
	s.mu.RLock()
	pooled := s.state.Settings.PooledBalance
	bal, err := s.balanceOf(ctx, domain.PoolAccount)
	s.mu.RUnlock()
	if err != nil {
		return Drift{}, fmt.Errorf("admin_service.Reconcile: %w", err)
	}

	d := Drift{LedgerPool: bal, PooledBalance: pooled}
	if d.Delta() != 0 {
		s.log.Warn(ctx, "pool drift detected", "ledger_pool", bal, "pooled_balance", pooled, "delta", d.Delta())
	}
	return d, nil
}

func joinUpstream(err error) error {
	if domain.IsUpstream(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstream, err)
}
