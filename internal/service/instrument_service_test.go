package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurovault/vault/internal/domain"
)

func poolOf(t *testing.T, h *harness, amount int64) {
	t.Helper()
	owner := uuid.New()
	h.fund(t, owner, amount)
	p := h.product(t, "Flex", domain.Flexible())
	h.lock(t, owner, p, amount, domain.Flexible())
}

func TestInvest_MinimumAndPoolLimits(t *testing.T) {
	h := newHarness(t)
	poolOf(t, h, 1000)
	inst := h.instrument(t, 1000)

	_, err := h.svc.Invest(h.ctx, h.admin, inst, 500)
	assert.ErrorIs(t, err, domain.ErrInvestmentOutOfRange)
	assert.True(t, domain.IsValidation(err))

	invID, err := h.svc.Invest(h.ctx, h.admin, inst, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), h.balance(t, domain.CustodyAccount(invID)))

	_, err = h.svc.Invest(h.ctx, h.admin, inst, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientPooledBalance)
	assert.Equal(t, int64(0), h.svc.VaultInfo(h.ctx).PooledBalance)
	h.assertPoolMatches(t)
}

func TestInvest_Rejections(t *testing.T) {
	h := newHarness(t)
	poolOf(t, h, 1000)
	inst := h.instrument(t, 0)

	_, err := h.svc.Invest(h.ctx, uuid.New(), inst, 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.svc.Invest(h.ctx, h.admin, 77, 10)
	assert.ErrorIs(t, err, domain.ErrInstrumentNotFound)

	_, err = h.svc.Invest(h.ctx, h.admin, inst, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	paused := domain.InstrumentPaused
	_, err = h.svc.UpdateInstrument(h.ctx, h.admin, inst, domain.InstrumentUpdate{Status: &paused})
	require.NoError(t, err)
	_, err = h.svc.Invest(h.ctx, h.admin, inst, 10)
	assert.ErrorIs(t, err, domain.ErrInstrumentNotActive)
}

func TestPostYieldAndExit(t *testing.T) {
	h := newHarness(t)
	poolOf(t, h, 1000)
	h.fund(t, h.admin, 50)
	inst := h.instrument(t, 0)

	invID, err := h.svc.Invest(h.ctx, h.admin, inst, 1000)
	require.NoError(t, err)

	inv, err := h.svc.PostYield(h.ctx, h.admin, invID, 50, domain.YieldType{Kind: domain.YieldStakingRewards})
	require.NoError(t, err)
	assert.Equal(t, int64(1050), inv.CurrentValue)
	assert.Equal(t, int64(50), inv.YieldEarned)
	require.NotNil(t, inv.LastYieldType)
	assert.Equal(t, domain.YieldStakingRewards, inv.LastYieldType.Kind)
	assert.True(t, decimal.NewFromInt(5).Equal(inv.ROI()))

	_, err = h.svc.PostYield(h.ctx, h.admin, invID, 10, domain.YieldType{Kind: domain.YieldOther})
	assert.ErrorIs(t, err, domain.ErrInvalidYieldType)

	_, err = h.svc.Exit(h.ctx, h.admin, invID, "scheduled")
	assert.ErrorIs(t, err, domain.ErrUnsupportedExitMode)

	got, err := h.svc.Exit(h.ctx, h.admin, invID, domain.ExitImmediate)
	require.NoError(t, err)
	assert.Equal(t, int64(1050), got)
	assert.Equal(t, int64(1050), h.svc.VaultInfo(h.ctx).PooledBalance)
	assert.Equal(t, int64(0), h.balance(t, domain.CustodyAccount(invID)))
	h.assertPoolMatches(t)

	_, err = h.svc.Exit(h.ctx, h.admin, invID, domain.ExitImmediate)
	assert.ErrorIs(t, err, domain.ErrInvestmentNotActive)
	_, err = h.svc.PostYield(h.ctx, h.admin, invID, 1, domain.YieldType{Kind: domain.YieldInterest})
	assert.ErrorIs(t, err, domain.ErrInvestmentNotActive)

	insts := h.svc.Instruments(h.ctx)
	require.Len(t, insts, 1)
	assert.Zero(t, insts[0].TotalInvested)

	invs := h.svc.Investments(h.ctx, inst)
	require.Len(t, invs, 1)
	assert.Equal(t, domain.InvestmentCompleted, invs[0].Status)
	require.NotNil(t, invs[0].ExitAmount)
	assert.Equal(t, int64(1050), *invs[0].ExitAmount)
}

func TestInstrument_DeleteAndClose(t *testing.T) {
	h := newHarness(t)
	poolOf(t, h, 100)
	inst := h.instrument(t, 0)
	invID, err := h.svc.Invest(h.ctx, h.admin, inst, 100)
	require.NoError(t, err)

	err = h.svc.DeleteInstrument(h.ctx, h.admin, inst)
	assert.ErrorIs(t, err, domain.ErrInstrumentInUse)

	closed := domain.InstrumentClosed
	_, err = h.svc.UpdateInstrument(h.ctx, h.admin, inst, domain.InstrumentUpdate{Status: &closed})
	assert.ErrorIs(t, err, domain.ErrInstrumentInUse)

	_, err = h.svc.Exit(h.ctx, h.admin, invID, domain.ExitImmediate)
	require.NoError(t, err)
	require.NoError(t, h.svc.DeleteInstrument(h.ctx, h.admin, inst))
	assert.Empty(t, h.svc.Instruments(h.ctx))

	err = h.svc.DeleteInstrument(h.ctx, h.admin, inst)
	assert.ErrorIs(t, err, domain.ErrInstrumentNotFound)
}

func TestCreateInstrument_Validation(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateInstrument(h.ctx, h.admin, domain.InstrumentInput{
		Name:      "bad",
		Type:      domain.InstrumentType{Kind: domain.InstrumentLending, Staking: &domain.StakingParams{Validator: "v", Network: "n"}},
		RiskLevel: 3,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInstrument)

	name := "renamed"
	_, err = h.svc.UpdateInstrument(h.ctx, h.admin, 5, domain.InstrumentUpdate{Name: &name})
	assert.ErrorIs(t, err, domain.ErrInstrumentNotFound)
}

func TestInvestmentSummary(t *testing.T) {
	h := newHarness(t)
	poolOf(t, h, 1000)
	a := h.instrument(t, 0)
	b := h.instrument(t, 0)
	apy := decimal.NewFromInt(10)
	_, err := h.svc.UpdateInstrument(h.ctx, h.admin, a, domain.InstrumentUpdate{ExpectedAPY: &apy})
	require.NoError(t, err)

	_, err = h.svc.Invest(h.ctx, h.admin, a, 300)
	require.NoError(t, err)
	_, err = h.svc.Invest(h.ctx, h.admin, b, 300)
	require.NoError(t, err)

	_, err = h.svc.InvestmentSummary(h.ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	sum, err := h.svc.InvestmentSummary(h.ctx, h.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), sum.TotalVaultBalance)
	assert.Equal(t, int64(600), sum.TotalInvestedInInstruments)
	assert.Equal(t, int64(400), sum.TotalAvailableForInvestment)
	assert.Equal(t, 2, sum.ActiveInstruments)
	assert.Equal(t, 5.0, sum.WeightedAverageAPY)
	assert.Equal(t, 100.0, sum.DiversityScore)
}
