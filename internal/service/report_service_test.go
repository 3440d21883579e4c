package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurovault/vault/internal/domain"
)

func TestUserReport(t *testing.T) {
	h := newHarness(t)
	alice, bob := uuid.New(), uuid.New()
	h.fund(t, alice, 300)
	h.fund(t, bob, 100)
	h.fund(t, h.admin, 80)
	flex := h.product(t, "Flexible Savings", domain.Flexible())
	fixed := h.product(t, "Hourly", domain.Minutes(60))

	e1 := h.lock(t, alice, flex, 100, domain.Flexible())
	h.lock(t, alice, fixed, 200, domain.Minutes(60))
	h.lock(t, bob, flex, 100, domain.Flexible())

	dist, err := h.svc.Distribute(h.ctx, h.admin, 80)
	require.NoError(t, err)
	_, err = h.svc.Unlock(h.ctx, alice, e1)
	require.NoError(t, err)

	h.clk.Advance(30 * time.Minute)
	rep := h.svc.UserReport(h.ctx, alice)
	require.Len(t, rep.Positions, 2)

	first, second := rep.Positions[0], rep.Positions[1]
	assert.Equal(t, "Flexible Savings", first.ProductName)
	assert.Equal(t, "Flexible", first.Duration)
	assert.Equal(t, int64(-1), first.DurationMinutes)
	assert.Equal(t, domain.EntryUnlocked, first.Status)
	assert.Equal(t, int64(20), first.DividendsEarned)
	assert.Equal(t, int64(120), first.CurrentValue)
	assert.Equal(t, 20.0, first.ROIPercent)

	assert.Equal(t, "Hourly", second.ProductName)
	assert.Equal(t, "1 hours", second.Duration)
	assert.False(t, second.CanUnlock)
	assert.Equal(t, int64(1800), second.SecondsRemaining)
	assert.Equal(t, int64(40), second.DividendsEarned)

	assert.Equal(t, int64(200), rep.Summary.TotalLocked)
	assert.Equal(t, int64(300), rep.Summary.TotalEverLocked)
	assert.Equal(t, 1, rep.Summary.ActivePositions)
	assert.Equal(t, int64(60), rep.Summary.DividendsUnclaimed)
	assert.Equal(t, 20.0, rep.Summary.ROIPercent)
	require.Len(t, rep.UnclaimedDividends, 1)
	assert.Equal(t, dist, rep.UnclaimedDividends[0].DistributionID)

	_, err = h.svc.Claim(h.ctx, alice, dist)
	require.NoError(t, err)
	rep = h.svc.UserReport(h.ctx, alice)
	assert.Equal(t, int64(60), rep.Summary.DividendsClaimed)
	assert.Zero(t, rep.Summary.DividendsUnclaimed)
	assert.Empty(t, rep.UnclaimedDividends)
}

func TestAdminReport(t *testing.T) {
	h := newHarness(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	for _, o := range []uuid.UUID{alice, bob, carol} {
		h.fund(t, o, 1000)
	}
	h.fund(t, h.admin, 100)
	p := h.product(t, "Flex", domain.Flexible())
	q := h.product(t, "Day", domain.Minutes(1440))

	h.lock(t, alice, p, 100, domain.Flexible())
	h.lock(t, bob, p, 500, domain.Flexible())
	h.lock(t, carol, q, 300, domain.Minutes(1440))
	e := h.lock(t, alice, q, 50, domain.Minutes(1440))
	_, err := h.svc.EmergencyWithdraw(h.ctx, h.admin, e)
	require.NoError(t, err)

	dist, err := h.svc.Distribute(h.ctx, h.admin, 90)
	require.NoError(t, err)
	_, err = h.svc.Claim(h.ctx, bob, dist)
	require.NoError(t, err)

	inst := h.instrument(t, 0)
	_, err = h.svc.Invest(h.ctx, h.admin, inst, 400)
	require.NoError(t, err)

	_, err = h.svc.AdminReport(h.ctx, alice)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	rep, err := h.svc.AdminReport(h.ctx, h.admin)
	require.NoError(t, err)

	assert.Equal(t, int64(900), rep.Totals.TotalLocked)
	assert.Equal(t, int64(500), rep.Totals.PooledBalance)
	assert.Equal(t, int64(400), rep.Totals.TotalInvested)
	assert.Equal(t, int64(90), rep.Totals.TotalDistributed)
	assert.Equal(t, int64(50), rep.Totals.TotalClaimed)
	assert.Equal(t, 3, rep.Totals.UniqueHolders)
	assert.Equal(t, 3, rep.Totals.ActiveEntries)
	assert.Equal(t, 4, rep.Totals.TotalEntries)

	require.Len(t, rep.TopInvestors, 3)
	assert.Equal(t, bob, rep.TopInvestors[0].Owner)
	assert.Equal(t, carol, rep.TopInvestors[1].Owner)
	assert.Equal(t, alice, rep.TopInvestors[2].Owner)

	require.Len(t, rep.Products, 2)
	assert.Equal(t, int64(600), rep.Products[0].TotalLocked)
	assert.Equal(t, int64(300), rep.Products[1].TotalLocked)

	require.Len(t, rep.Instruments, 1)
	assert.Equal(t, "Staking: validator-1 @ cosmos", rep.Instruments[0].Type)
	assert.Equal(t, int64(400), rep.Instruments[0].TotalInvested)
	assert.Zero(t, rep.Instruments[0].ROIPercent)

	require.NotEmpty(t, rep.RecentActivity)
	assert.Equal(t, domain.ActivityDividendClaim, rep.RecentActivity[0].Type)
	assert.Equal(t, domain.ActivityDividendDistribution, rep.RecentActivity[1].Type)
	assert.Equal(t, domain.ActivityUnlock, rep.RecentActivity[2].Type)
	assert.Contains(t, rep.RecentActivity[2].Details, "emergency")
	for i := 1; i < len(rep.RecentActivity); i++ {
		assert.Greater(t, rep.RecentActivity[i-1].ID, rep.RecentActivity[i].ID)
	}
}

func TestRecentActivity_Window(t *testing.T) {
	h := newHarness(t)
	alice := uuid.New()
	h.fund(t, alice, 100)
	p := h.product(t, "Flex", domain.Flexible())
	for i := 0; i < 30; i++ {
		h.lock(t, alice, p, 1, domain.Flexible())
	}

	acts := h.svc.RecentActivity(h.ctx, 0)
	require.Len(t, acts, 20)
	assert.Equal(t, domain.ActivityID(30), acts[0].ID)
	assert.Equal(t, domain.ActivityID(11), acts[19].ID)
	assert.Len(t, h.svc.RecentActivity(h.ctx, 5), 5)
}
