package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurovault/vault/internal/domain"
)

func TestAdminList(t *testing.T) {
	h := newHarness(t)
	bob := uuid.New()

	assert.True(t, h.svc.IsAdmin(h.admin))
	assert.False(t, h.svc.IsAdmin(bob))

	assert.ErrorIs(t, h.svc.AddAdmin(h.ctx, bob, bob), domain.ErrForbidden)
	require.NoError(t, h.svc.AddAdmin(h.ctx, h.admin, bob))
	assert.ErrorIs(t, h.svc.AddAdmin(h.ctx, h.admin, bob), domain.ErrAdminExists)
	assert.Len(t, h.svc.Admins(h.ctx), 2)

	require.NoError(t, h.svc.RemoveAdmin(h.ctx, bob, h.admin))
	assert.False(t, h.svc.IsAdmin(h.admin))
	assert.ErrorIs(t, h.svc.RemoveAdmin(h.ctx, bob, bob), domain.ErrLastAdmin)
	assert.ErrorIs(t, h.svc.RemoveAdmin(h.ctx, bob, uuid.New()), domain.ErrAdminNotFound)

	// Bootstrap admins are only seeded into an empty list.
	again := h.reopen(t)
	assert.Equal(t, []uuid.UUID{bob}, again.Admins(h.ctx))
}

func TestSetLockPeriod(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.svc.SetLockPeriod(h.ctx, h.admin, 0), domain.ErrInvalidDuration)
	assert.ErrorIs(t, h.svc.SetLockPeriod(h.ctx, uuid.New(), 10), domain.ErrForbidden)
	require.NoError(t, h.svc.SetLockPeriod(h.ctx, h.admin, 10))

	info := h.svc.VaultInfo(h.ctx)
	assert.Equal(t, int64(10), info.LockPeriodMinutes)
	assert.Equal(t, int64(600), info.LockPeriodSeconds)

	assert.ErrorIs(t, h.svc.SetLockPeriod(h.ctx, h.admin, domain.MaxLockMinutes+1), domain.ErrInvalidDuration)
	assert.Equal(t, int64(10), h.svc.VaultInfo(h.ctx).LockPeriodMinutes)
}

func TestLock_DurationPastCapRejected(t *testing.T) {
	h := newHarness(t)
	alice := uuid.New()
	h.fund(t, alice, 100)

	_, err := h.svc.CreateProduct(h.ctx, h.admin, domain.ProductInput{
		Name: "Forever", Durations: domain.Durations{domain.Minutes(153_722_868)},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	p := h.product(t, "Century", domain.Minutes(domain.MaxLockMinutes))
	entry := h.lock(t, alice, p, 100, domain.Minutes(domain.MaxLockMinutes))
	_, err = h.svc.Unlock(h.ctx, alice, entry)
	assert.ErrorIs(t, err, domain.ErrStillLocked)
	assert.Equal(t, int64(0), h.balance(t, domain.UserAccount(alice)))
}

func TestAdminTransfer(t *testing.T) {
	h := newHarness(t)
	alice := uuid.New()
	h.fund(t, h.admin, 100)

	assert.ErrorIs(t, h.svc.AdminTransfer(h.ctx, alice, h.admin, 10), domain.ErrForbidden)
	assert.ErrorIs(t, h.svc.AdminTransfer(h.ctx, h.admin, alice, 0), domain.ErrInvalidAmount)
	assert.ErrorIs(t, h.svc.AdminTransfer(h.ctx, h.admin, alice, 101), domain.ErrInsufficientBalance)

	require.NoError(t, h.svc.AdminTransfer(h.ctx, h.admin, alice, 40))
	bal, err := h.svc.Balance(h.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(40), bal)
}

func TestTokenInfoAndGenesis(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.svc.SeedGenesis(h.ctx, 1_000_000))
	info, err := h.svc.TokenInfo(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, "USDX", info.Symbol)
	assert.Equal(t, uint8(6), info.Decimals)
	assert.Equal(t, int64(1_000_000), info.TotalSupply)
	assert.Equal(t, int64(1_000_000), h.balance(t, domain.UserAccount(h.admin)))

	// Second start with a populated ledger mints nothing.
	require.NoError(t, h.svc.SeedGenesis(h.ctx, 1_000_000))
	info, err = h.svc.TokenInfo(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), info.TotalSupply)
}

func TestReconcile(t *testing.T) {
	h := newHarness(t)
	poolOf(t, h, 250)

	d, err := h.svc.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, d.Delta())

	require.NoError(t, h.led.Mint(h.ctx, domain.PoolAccount, 5, "stray deposit"))
	d, err = h.svc.Reconcile(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), d.Delta())
	assert.Equal(t, int64(250), h.svc.VaultInfo(h.ctx).PooledBalance)
}

func TestFaucet(t *testing.T) {
	h := newHarness(t)
	alice := uuid.New()

	res, err := h.svc.Faucet(h.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000_000), res.Amount)
	assert.Equal(t, t0.Add(time.Hour), res.NextAllowedAt)
	assert.Equal(t, int64(100_000_000), h.balance(t, domain.UserAccount(alice)))

	h.clk.Advance(59 * time.Minute)
	_, err = h.svc.Faucet(h.ctx, alice)
	assert.ErrorIs(t, err, domain.ErrFaucetCooldown)
	assert.True(t, domain.IsConflict(err))

	h.clk.Advance(time.Minute)
	_, err = h.svc.Faucet(h.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(200_000_000), h.balance(t, domain.UserAccount(alice)))

	// The cooldown survives a restart.
	again := h.reopen(t)
	_, err = again.Faucet(h.ctx, alice)
	assert.ErrorIs(t, err, domain.ErrFaucetCooldown)
}

func TestFaucet_Disabled(t *testing.T) {
	h := newHarness(t)
	settings := testSettings(h.admin)
	settings.Faucet.Enabled = false
	svc, err := newServiceWith(h, settings)
	require.NoError(t, err)

	_, err = svc.Faucet(h.ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrFaucetDisabled)
}

func TestProductCatalog(t *testing.T) {
	h := newHarness(t)
	alice := uuid.New()
	h.fund(t, alice, 10)

	_, err := h.svc.CreateProduct(h.ctx, alice, domain.ProductInput{Name: "x", Durations: domain.Durations{domain.Flexible()}})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.svc.CreateProduct(h.ctx, h.admin, domain.ProductInput{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)

	active := h.product(t, "Flex", domain.Flexible())
	off := false
	hidden, err := h.svc.CreateProduct(h.ctx, h.admin, domain.ProductInput{
		Name: "Hidden", Durations: domain.Durations{domain.Minutes(5)}, IsActive: &off,
	})
	require.NoError(t, err)

	assert.Len(t, h.svc.ActiveProducts(h.ctx), 1)
	assert.Len(t, h.svc.AllProducts(h.ctx), 2)

	desc := "updated"
	p, err := h.svc.UpdateProduct(h.ctx, h.admin, hidden.ID, domain.ProductUpdate{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "updated", p.Description)
	assert.False(t, p.IsActive)

	h.lock(t, alice, active, 10, domain.Flexible())
	assert.ErrorIs(t, h.svc.DeleteProduct(h.ctx, h.admin, active), domain.ErrProductInUse)
	require.NoError(t, h.svc.DeleteProduct(h.ctx, h.admin, hidden.ID))
	assert.ErrorIs(t, h.svc.DeleteProduct(h.ctx, h.admin, hidden.ID), domain.ErrProductNotFound)
}

func TestUpdateProduct_TermsFrozenWhileLocked(t *testing.T) {
	h := newHarness(t)
	alice := uuid.New()
	h.fund(t, alice, 100)
	p := h.product(t, "Hour", domain.Minutes(60))
	entry := h.lock(t, alice, p, 100, domain.Minutes(60))

	name := "renamed"
	flex := domain.Durations{domain.Flexible()}
	_, err := h.svc.UpdateProduct(h.ctx, h.admin, p, domain.ProductUpdate{Name: &name, Durations: &flex})
	assert.ErrorIs(t, err, domain.ErrProductInUse)
	desc := "new terms"
	_, err = h.svc.UpdateProduct(h.ctx, h.admin, p, domain.ProductUpdate{Description: &desc})
	assert.ErrorIs(t, err, domain.ErrProductInUse)

	off := false
	got, err := h.svc.UpdateProduct(h.ctx, h.admin, p, domain.ProductUpdate{IsActive: &off})
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "Hour", got.Name)
	assert.Equal(t, domain.Durations{domain.Minutes(60)}, got.Durations)

	// Terms open up again once nothing is locked.
	h.clk.Advance(time.Hour)
	_, err = h.svc.Unlock(h.ctx, alice, entry)
	require.NoError(t, err)
	got, err = h.svc.UpdateProduct(h.ctx, h.admin, p, domain.ProductUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
}
