package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/neurovault/vault/internal/clock"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/ledger"
	"github.com/neurovault/vault/internal/logging"
	"github.com/neurovault/vault/internal/repository"
	"github.com/neurovault/vault/internal/service"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// flakyStore wraps the memory store and fails commits while fail is set.
type flakyStore struct {
	*repository.MemoryStore
	mu   sync.Mutex
	fail error
}

func (s *flakyStore) Commit(ctx context.Context, cs *domain.Changeset) error {
	s.mu.Lock()
	err := s.fail
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.Commit(ctx, cs)
}

func (s *flakyStore) setFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// flakyLedger wraps the memory ledger and rejects transfers while fail is set.
type flakyLedger struct {
	*ledger.Memory
	mu   sync.Mutex
	fail error
}

func (l *flakyLedger) Transfer(ctx context.Context, args ledger.TransferArgs) error {
	l.mu.Lock()
	err := l.fail
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return l.Memory.Transfer(ctx, args)
}

func (l *flakyLedger) setFail(err error) {
	l.mu.Lock()
	l.fail = err
	l.mu.Unlock()
}

type harness struct {
	ctx   context.Context
	svc   *service.VaultService
	led   *flakyLedger
	store *flakyStore
	clk   *clock.Stub
	admin uuid.UUID
}

func testSettings(admin uuid.UUID) service.Settings {
	return service.Settings{
		BootstrapAdmins:      []uuid.UUID{admin},
		DefaultLockMinutes:   60,
		ActivityRetention:    100,
		RecentActivityWindow: 20,
		TopInvestors:         10,
		LedgerTimeout:        time.Second,
		Faucet: service.FaucetSettings{
			Enabled:  true,
			Amount:   100_000_000,
			Cooldown: time.Hour,
		},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ctx:   context.Background(),
		led:   &flakyLedger{Memory: ledger.NewMemory("USD Test", "USDX", 6)},
		store: &flakyStore{MemoryStore: repository.NewMemoryStore()},
		clk:   clock.NewStub(t0),
		admin: uuid.New(),
	}
	svc, err := service.NewVaultService(h.ctx, h.led, h.store, h.clk, logging.Nop(), testSettings(h.admin))
	require.NoError(t, err)
	h.svc = svc
	return h
}

// reopen builds a second service over the same store and ledger.
func (h *harness) reopen(t *testing.T) *service.VaultService {
	t.Helper()
	svc, err := service.NewVaultService(h.ctx, h.led, h.store, h.clk, logging.Nop(), testSettings(h.admin))
	require.NoError(t, err)
	return svc
}

func (h *harness) fund(t *testing.T, who uuid.UUID, amount int64) {
	t.Helper()
	require.NoError(t, h.led.Mint(h.ctx, domain.UserAccount(who), amount, "test funding"))
}

func (h *harness) balance(t *testing.T, account domain.Account) int64 {
	t.Helper()
	bal, err := h.led.BalanceOf(h.ctx, account)
	require.NoError(t, err)
	return bal
}

func (h *harness) product(t *testing.T, name string, durations ...domain.Duration) domain.ProductID {
	t.Helper()
	p, err := h.svc.CreateProduct(h.ctx, h.admin, domain.ProductInput{Name: name, Durations: durations})
	require.NoError(t, err)
	return p.ID
}

func (h *harness) lock(t *testing.T, owner uuid.UUID, product domain.ProductID, amount int64, d domain.Duration) domain.EntryID {
	t.Helper()
	id, err := h.svc.Lock(h.ctx, owner, service.LockRequest{Amount: amount, ProductID: product, Duration: &d})
	require.NoError(t, err)
	return id
}

func (h *harness) instrument(t *testing.T, min int64) domain.InstrumentID {
	t.Helper()
	inst, err := h.svc.CreateInstrument(h.ctx, h.admin, domain.InstrumentInput{
		Name:          "Cosmos staking",
		Type:          domain.InstrumentType{Kind: domain.InstrumentStaking, Staking: &domain.StakingParams{Validator: "validator-1", Network: "cosmos"}},
		RiskLevel:     3,
		MinInvestment: min,
	})
	require.NoError(t, err)
	return inst.ID
}

// assertPoolMatches checks the pool account against the pooled counter.
func (h *harness) assertPoolMatches(t *testing.T) {
	t.Helper()
	info := h.svc.VaultInfo(h.ctx)
	require.Equal(t, info.PooledBalance, h.balance(t, domain.PoolAccount), "ledger pool vs pooled balance")
}

var errStoreDown = errors.New("store unavailable")

func newServiceWith(h *harness, settings service.Settings) (*service.VaultService, error) {
	return service.NewVaultService(h.ctx, h.led, h.store, h.clk, logging.Nop(), settings)
}
