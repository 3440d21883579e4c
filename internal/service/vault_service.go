package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neurovault/vault/internal/clock"
	"github.com/neurovault/vault/internal/config"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/ledger"
	"github.com/neurovault/vault/internal/logging"
)

// ──────────────────────────────────────────────────────────────────────────────
// Collaborators
// ──────────────────────────────────────────────────────────────────────────────

// Store persists vault state. Implemented by repository.PostgresStore and
// repository.MemoryStore.
type Store interface {
	Load(ctx context.Context) (*domain.VaultState, error)
	Commit(ctx context.Context, cs *domain.Changeset) error
}

// Broadcaster is the minimal interface the vault needs from the WS hub.
type Broadcaster interface {
	BroadcastActivity(a domain.Activity)
	BroadcastVaultStats(info domain.VaultInfo)
}

// FaucetSettings controls the test-token faucet.
type FaucetSettings struct {
	Enabled  bool
	Amount   int64
	Cooldown time.Duration
}

// Settings are the service knobs taken from config.
type Settings struct {
	BootstrapAdmins      []uuid.UUID
	DefaultLockMinutes   int64
	ActivityRetention    int
	RecentActivityWindow int
	TopInvestors         int
	LedgerTimeout        time.Duration
	Faucet               FaucetSettings
}

// SettingsFromConfig maps the application config onto service settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		BootstrapAdmins:      cfg.Vault.BootstrapAdmins,
		DefaultLockMinutes:   cfg.Vault.DefaultLockMinutes,
		ActivityRetention:    cfg.Vault.ActivityRetention,
		RecentActivityWindow: cfg.Vault.RecentActivityWindow,
		TopInvestors:         cfg.Vault.TopInvestors,
		LedgerTimeout:        cfg.Ledger.Timeout,
		Faucet: FaucetSettings{
			Enabled:  cfg.Faucet.Enabled,
			Amount:   cfg.Faucet.Amount,
			Cooldown: cfg.Faucet.Cooldown,
		},
	}
}

func (s *Settings) applyDefaults() {
	if s.DefaultLockMinutes <= 0 {
		s.DefaultLockMinutes = 60
	}
	if s.RecentActivityWindow <= 0 {
		s.RecentActivityWindow = 20
	}
	if s.TopInvestors <= 0 {
		s.TopInvestors = 10
	}
	if s.LedgerTimeout <= 0 {
		s.LedgerTimeout = 5 * time.Second
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// VaultService
// ──────────────────────────────────────────────────────────────────────────────

// VaultService owns the vault state. Every mutation runs under the write lock
// in the order: validate, ledger movement, persist, apply to memory. Reads
// take the read lock and return copies.
type VaultService struct {
	mu          sync.RWMutex
	state       *domain.VaultState
	ledger      ledger.TokenLedger
	store       Store
	clock       clock.Clock
	log         logging.Logger
	settings    Settings
	broadcaster Broadcaster
}

// NewVaultService loads persisted state and seeds the default lock period and
// bootstrap admins on first start.
func NewVaultService(
	ctx context.Context,
	led ledger.TokenLedger,
	store Store,
	clk clock.Clock,
	log logging.Logger,
	settings Settings,
) (*VaultService, error) {
	settings.applyDefaults()

	st, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault_service.New: load: %w", err)
	}

	s := &VaultService{
		state:    st,
		ledger:   led,
		store:    store,
		clock:    clk,
		log:      log,
		settings: settings,
	}

	cs := &domain.Changeset{}
	if st.Settings.LockPeriodMinutes <= 0 {
		vs := st.Settings
		vs.LockPeriodMinutes = settings.DefaultLockMinutes
		cs.Settings = &vs
	}
	if len(st.Admins) == 0 {
		if len(settings.BootstrapAdmins) == 0 {
			return nil, errors.New("vault_service.New: no admins stored and none configured")
		}
		cs.AddedAdmins = append(cs.AddedAdmins, settings.BootstrapAdmins...)
	}
	if cs.Settings != nil || len(cs.AddedAdmins) > 0 {
		if err := store.Commit(ctx, cs); err != nil {
			return nil, fmt.Errorf("vault_service.New: bootstrap: %w", err)
		}
		st.Apply(cs, settings.ActivityRetention)
		log.Info(ctx, "vault bootstrapped",
			"lock_period_minutes", st.Settings.LockPeriodMinutes, "admins", len(st.Admins))
	}

	log.Info(ctx, "vault state loaded",
		"entries", len(st.Entries), "distributions", len(st.Distributions),
		"instruments", len(st.Instruments), "pooled_balance", st.Settings.PooledBalance)
	return s, nil
}

// SetBroadcaster injects the WS hub post-construction.
func (s *VaultService) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcaster = b
}

// ──────────────────────────────────────────────────────────────────────────────
// Lock / Unlock
// ──────────────────────────────────────────────────────────────────────────────

// LockRequest is the payload of a lock call. A nil Duration selects the
// vault's default lock period.
type LockRequest struct {
	Amount    int64            `json:"amount"     binding:"required"`
	ProductID domain.ProductID `json:"product_id" binding:"required"`
	Duration  *domain.Duration `json:"duration"`
}

// Lock moves amount from the owner's ledger account into the pool and
// records a Locked entry.
func (s *VaultService) Lock(ctx context.Context, owner uuid.UUID, req LockRequest) (domain.EntryID, error) {
	// ── 1. Input validation ──────────────────────────────────────────────────
	if owner == uuid.Nil {
		return 0, domain.ErrInvalidPrincipal
	}
	if req.Amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// ── 2. Catalog rules ─────────────────────────────────────────────────────
	product, ok := s.state.Products[req.ProductID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	if !product.IsActive {
		return 0, domain.ErrProductInactive
	}
	d := domain.Minutes(s.state.Settings.LockPeriodMinutes)
	if req.Duration != nil {
		d = *req.Duration
	}
	if err := d.Validate(); err != nil {
		return 0, err
	}
	if !product.Durations.Contains(d) {
		return 0, fmt.Errorf("%w: %s", domain.ErrDurationNotOffered, d)
	}

	// ── 3. Owner balance ─────────────────────────────────────────────────────
	from := domain.UserAccount(owner)
	bal, err := s.balanceOf(ctx, from)
	if err != nil {
		return 0, fmt.Errorf("vault_service.Lock: balance: %w", err)
	}
	if bal < req.Amount {
		return 0, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientBalance, bal, req.Amount)
	}

	// ── 4. Debit owner into the pool ─────────────────────────────────────────
	id := domain.EntryID(s.state.Seq.Entry + 1)
	move := ledger.TransferArgs{
		From: from, To: domain.PoolAccount, Amount: req.Amount,
		Memo: fmt.Sprintf("lock entry %d", id),
	}
	if err := s.transfer(ctx, move); err != nil {
		return 0, fmt.Errorf("vault_service.Lock: transfer: %w", err)
	}

	// ── 5. Persist and apply ─────────────────────────────────────────────────
	now := s.clock.Now()
	entry := domain.NewVaultEntry(id, owner, product.ID, req.Amount, d, now)
	vs := s.state.Settings
	vs.PooledBalance += req.Amount
	cs := &domain.Changeset{
		Settings: &vs,
		Entries:  []domain.VaultEntry{entry},
		Activities: []domain.Activity{s.newActivity(owner, domain.ActivityLock, req.Amount, uint64(id),
			fmt.Sprintf("%s, %s", product.Name, d.Label()), now)},
	}
	if err := s.persist(ctx, "vault_service.Lock", cs, move); err != nil {
		return 0, err
	}

	s.log.Info(ctx, "tokens locked",
		"entry_id", id, "owner", owner, "product_id", product.ID, "amount", req.Amount, "duration", d.String())
	return id, nil
}

// Unlock returns a matured entry's amount to its owner.
func (s *VaultService) Unlock(ctx context.Context, owner uuid.UUID, id domain.EntryID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.state.Entries[id]
	if !ok {
		return 0, domain.ErrEntryNotFound
	}
	if entry.Owner != owner {
		return 0, domain.ErrNotOwner
	}
	if !entry.IsLocked() {
		return 0, domain.ErrAlreadyUnlocked
	}
	now := s.clock.Now()
	if !entry.IsFlexible && entry.UnlockTime != nil && now.Before(*entry.UnlockTime) {
		return 0, fmt.Errorf("%w: unlocks in %s", domain.ErrStillLocked, entry.UnlockTime.Sub(now).Round(time.Second))
	}

	return s.release(ctx, "vault_service.Unlock", entry, now, uuid.Nil)
}

// EmergencyWithdraw is the admin override that releases an entry regardless
// of its maturity.
func (s *VaultService) EmergencyWithdraw(ctx context.Context, admin uuid.UUID, id domain.EntryID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return 0, err
	}
	entry, ok := s.state.Entries[id]
	if !ok {
		return 0, domain.ErrEntryNotFound
	}
	if !entry.IsLocked() {
		return 0, domain.ErrAlreadyUnlocked
	}

	return s.release(ctx, "vault_service.EmergencyWithdraw", entry, s.clock.Now(), admin)
}

// release pays a Locked entry back to its owner. A non-nil admin marks the
// release as an emergency withdrawal. Caller holds the write lock.
func (s *VaultService) release(ctx context.Context, op string, entry *domain.VaultEntry, now time.Time, admin uuid.UUID) (int64, error) {
	if s.state.Settings.PooledBalance < entry.Amount {
		return 0, fmt.Errorf("%w: pooled %d, entry %d",
			domain.ErrInsufficientPooledBalance, s.state.Settings.PooledBalance, entry.Amount)
	}
	vs := s.state.Settings
	vs.PooledBalance -= entry.Amount
	if err := s.checkPooled(ctx, op, vs.PooledBalance); err != nil {
		return 0, err
	}

	move := ledger.TransferArgs{
		From: domain.PoolAccount, To: domain.UserAccount(entry.Owner), Amount: entry.Amount,
		Memo: fmt.Sprintf("unlock entry %d", entry.ID),
	}
	if err := s.transfer(ctx, move); err != nil {
		return 0, fmt.Errorf("%s: transfer: %w", op, err)
	}

	updated := entry.Clone()
	updated.Status = domain.EntryUnlocked
	updated.UnlockedAt = &now
	details := ""
	if admin != uuid.Nil {
		updated.Emergency = true
		details = "emergency withdrawal by admin " + admin.String()
	}
	cs := &domain.Changeset{
		Settings:   &vs,
		Entries:    []domain.VaultEntry{updated},
		Activities: []domain.Activity{s.newActivity(entry.Owner, domain.ActivityUnlock, entry.Amount, uint64(entry.ID), details, now)},
	}
	if err := s.persist(ctx, op, cs, move); err != nil {
		return 0, err
	}

	s.log.Info(ctx, "tokens unlocked",
		"entry_id", entry.ID, "owner", entry.Owner, "amount", entry.Amount, "emergency", updated.Emergency)
	return entry.Amount, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// VaultInfo returns the aggregate projection of the vault.
func (s *VaultService) VaultInfo(ctx context.Context) domain.VaultInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vaultInfoLocked()
}

func (s *VaultService) vaultInfoLocked() domain.VaultInfo {
	info := domain.VaultInfo{
		TotalLocked:       s.state.TotalLocked(),
		PooledBalance:     s.state.Settings.PooledBalance,
		LockPeriodMinutes: s.state.Settings.LockPeriodMinutes,
		LockPeriodSeconds: s.state.Settings.LockPeriodMinutes * 60,
		DividendCount:     len(s.state.Distributions),
		Admins:            s.state.AdminList(),
	}
	for _, e := range s.state.Entries {
		if e.IsLocked() {
			info.ActiveEntries++
		}
	}
	for _, p := range s.state.Products {
		if p.IsActive {
			info.ActiveProducts++
		}
	}
	return info
}

// UserEntries returns every entry of owner, oldest first, with derived
// unlock fields evaluated now.
func (s *VaultService) UserEntries(ctx context.Context, owner uuid.UUID) []domain.EntryResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	out := make([]domain.EntryResponse, 0)
	for _, e := range s.ownerEntriesLocked(owner) {
		out = append(out, e.ToResponse(now))
	}
	return out
}

func (s *VaultService) ownerEntriesLocked(owner uuid.UUID) []domain.VaultEntry {
	var out []domain.VaultEntry
	for _, e := range s.state.Entries {
		if e.Owner == owner {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal helpers (caller holds the appropriate lock)
// ──────────────────────────────────────────────────────────────────────────────

func (s *VaultService) requireAdmin(p uuid.UUID) error {
	if !s.state.IsAdmin(p) {
		return domain.ErrForbidden
	}
	return nil
}

// ledgerCtx bounds a ledger call. Accepted mutations are not cancelled by the
// caller going away.
func (s *VaultService) ledgerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.settings.LedgerTimeout)
}

func (s *VaultService) transfer(ctx context.Context, args ledger.TransferArgs) error {
	lctx, cancel := s.ledgerCtx(ctx)
	defer cancel()
	if err := s.ledger.Transfer(lctx, args); err != nil {
		return errors.Join(domain.ErrUpstream, err)
	}
	return nil
}

func (s *VaultService) mint(ctx context.Context, to domain.Account, amount int64, memo string) error {
	lctx, cancel := s.ledgerCtx(ctx)
	defer cancel()
	if err := s.ledger.Mint(lctx, to, amount, memo); err != nil {
		return errors.Join(domain.ErrUpstream, err)
	}
	return nil
}

func (s *VaultService) balanceOf(ctx context.Context, account domain.Account) (int64, error) {
	lctx, cancel := s.ledgerCtx(ctx)
	defer cancel()
	bal, err := s.ledger.BalanceOf(lctx, account)
	if err != nil {
		return 0, errors.Join(domain.ErrUpstream, err)
	}
	return bal, nil
}

// persist commits cs and applies it to memory. When the store fails the
// ledger movements in moved are reversed and memory is left untouched.
func (s *VaultService) persist(ctx context.Context, op string, cs *domain.Changeset, moved ...ledger.TransferArgs) error {
	if err := s.store.Commit(context.WithoutCancel(ctx), cs); err != nil {
		s.compensate(ctx, op, moved)
		return fmt.Errorf("%s: persist: %w", op, err)
	}
	s.state.Apply(cs, s.settings.ActivityRetention)
	if s.broadcaster != nil {
		for _, a := range cs.Activities {
			s.broadcaster.BroadcastActivity(a)
		}
	}
	return nil
}

func (s *VaultService) compensate(ctx context.Context, op string, moved []ledger.TransferArgs) {
	for i := len(moved) - 1; i >= 0; i-- {
		rev := moved[i].Reverse("revert: " + moved[i].Memo)
		if err := s.transfer(ctx, rev); err != nil {
			s.log.Error(ctx, "compensating transfer failed",
				"op", op, "from", rev.From, "to", rev.To, "amount", rev.Amount, "error", err)
			continue
		}
		s.log.Error(ctx, "ledger movement reverted after persist failure",
			"op", op, "from", rev.From, "to", rev.To, "amount", rev.Amount)
	}
}

func (s *VaultService) checkPooled(ctx context.Context, op string, pooled int64) error {
	if pooled < 0 {
		s.log.Error(ctx, "invariant violation: negative pooled balance", "op", op, "pooled", pooled)
		return fmt.Errorf("%s: pooled balance %d: %w", op, pooled, domain.ErrInvariantViolation)
	}
	return nil
}

func (s *VaultService) newActivity(p uuid.UUID, typ domain.ActivityType, amount int64, ref uint64, details string, now time.Time) domain.Activity {
	return domain.Activity{
		ID:        domain.ActivityID(s.state.Seq.Activity + 1),
		Principal: p,
		Type:      typ,
		Amount:    amount,
		RefID:     ref,
		Details:   details,
		CreatedAt: now,
	}
}
