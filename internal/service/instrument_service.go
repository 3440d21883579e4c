package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/ledger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Registry
// ──────────────────────────────────────────────────────────────────────────────

// CreateInstrument registers a new Active instrument.
func (s *VaultService) CreateInstrument(ctx context.Context, admin uuid.UUID, in domain.InstrumentInput) (domain.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return domain.Instrument{}, err
	}

	now := s.clock.Now()
	inst := domain.Instrument{
		ID:             domain.InstrumentID(s.state.Seq.Instrument + 1),
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Type:           in.Type,
		ExpectedAPY:    in.ExpectedAPY,
		RiskLevel:      in.RiskLevel,
		MinInvestment:  in.MinInvestment,
		MaxInvestment:  in.MaxInvestment,
		LockPeriodDays: in.LockPeriodDays,
		Status:         domain.InstrumentActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	inst = inst.Clone()
	if err := inst.Validate(); err != nil {
		return domain.Instrument{}, err
	}
	if err := s.persist(ctx, "instrument_service.Create", &domain.Changeset{Instruments: []domain.Instrument{inst}}); err != nil {
		return domain.Instrument{}, err
	}

	s.log.Info(ctx, "instrument created", "instrument_id", inst.ID, "type", inst.Type.Label(), "admin", admin)
	return inst.Clone(), nil
}

// UpdateInstrument applies the present fields of u. An instrument holding
// capital cannot be closed.
func (s *VaultService) UpdateInstrument(ctx context.Context, admin uuid.UUID, id domain.InstrumentID, u domain.InstrumentUpdate) (domain.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return domain.Instrument{}, err
	}
	cur, ok := s.state.Instruments[id]
	if !ok {
		return domain.Instrument{}, domain.ErrInstrumentNotFound
	}

	inst := cur.Clone()
	inst.Apply(u, s.clock.Now())
	if err := inst.Validate(); err != nil {
		return domain.Instrument{}, err
	}
	if inst.Status == domain.InstrumentClosed && inst.TotalInvested > 0 {
		return domain.Instrument{}, fmt.Errorf("%w: %d still invested", domain.ErrInstrumentInUse, inst.TotalInvested)
	}
	if err := s.persist(ctx, "instrument_service.Update", &domain.Changeset{Instruments: []domain.Instrument{inst}}); err != nil {
		return domain.Instrument{}, err
	}

	s.log.Info(ctx, "instrument updated", "instrument_id", id, "status", inst.Status, "admin", admin)
	return inst.Clone(), nil
}

// DeleteInstrument removes an instrument with no capital deployed.
func (s *VaultService) DeleteInstrument(ctx context.Context, admin uuid.UUID, id domain.InstrumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return err
	}
	inst, ok := s.state.Instruments[id]
	if !ok {
		return domain.ErrInstrumentNotFound
	}
	if inst.TotalInvested > 0 {
		return fmt.Errorf("%w: %d still invested", domain.ErrInstrumentInUse, inst.TotalInvested)
	}
	if err := s.persist(ctx, "instrument_service.Delete", &domain.Changeset{DeletedInstruments: []domain.InstrumentID{id}}); err != nil {
		return err
	}

	s.log.Info(ctx, "instrument deleted", "instrument_id", id, "admin", admin)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Investments
// ──────────────────────────────────────────────────────────────────────────────

// Invest deploys amount of pooled capital into an instrument.
func (s *VaultService) Invest(ctx context.Context, admin uuid.UUID, id domain.InstrumentID, amount int64) (domain.InvestmentID, error) {
	// ── 1. Input validation ──────────────────────────────────────────────────
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return 0, err
	}

	// ── 2. Instrument and availability ───────────────────────────────────────
	cur, ok := s.state.Instruments[id]
	if !ok {
		return 0, domain.ErrInstrumentNotFound
	}
	if cur.Status != domain.InstrumentActive {
		return 0, fmt.Errorf("%w: status %s", domain.ErrInstrumentNotActive, cur.Status)
	}
	if amount > s.state.Settings.PooledBalance {
		return 0, fmt.Errorf("%w: available %d, requested %d",
			domain.ErrInsufficientPooledBalance, s.state.Settings.PooledBalance, amount)
	}
	if err := cur.CheckAmount(amount); err != nil {
		return 0, err
	}

	vs := s.state.Settings
	vs.PooledBalance -= amount
	if err := s.checkPooled(ctx, "instrument_service.Invest", vs.PooledBalance); err != nil {
		return 0, err
	}

	// ── 3. Pool into custody ─────────────────────────────────────────────────
	invID := domain.InvestmentID(s.state.Seq.Investment + 1)
	move := ledger.TransferArgs{
		From: domain.PoolAccount, To: domain.CustodyAccount(invID), Amount: amount,
		Memo: fmt.Sprintf("invest %d into instrument %d", invID, id),
	}
	if err := s.transfer(ctx, move); err != nil {
		return 0, fmt.Errorf("instrument_service.Invest: transfer: %w", err)
	}

	// ── 4. Persist and apply ─────────────────────────────────────────────────
	now := s.clock.Now()
	inst := cur.Clone()
	inst.TotalInvested += amount
	inst.UpdatedAt = now
	inv := domain.Investment{
		ID:             invID,
		InstrumentID:   id,
		AmountInvested: amount,
		CurrentValue:   amount,
		Status:         domain.InvestmentActive,
		InvestedAt:     now,
	}
	cs := &domain.Changeset{
		Settings:    &vs,
		Instruments: []domain.Instrument{inst},
		Investments: []domain.Investment{inv},
	}
	if err := s.persist(ctx, "instrument_service.Invest", cs, move); err != nil {
		return 0, err
	}

	s.log.Info(ctx, "capital invested",
		"investment_id", invID, "instrument_id", id, "amount", amount, "pooled_after", vs.PooledBalance)
	return invID, nil
}

// PostYield records realised yield on an active investment. The admin funds
// the yield into the investment's custody account so Exit can return it.
func (s *VaultService) PostYield(ctx context.Context, admin uuid.UUID, id domain.InvestmentID, amount int64, yt domain.YieldType) (domain.Investment, error) {
	if amount <= 0 {
		return domain.Investment{}, domain.ErrInvalidAmount
	}
	if err := yt.Validate(); err != nil {
		return domain.Investment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return domain.Investment{}, err
	}
	cur, ok := s.state.Investments[id]
	if !ok {
		return domain.Investment{}, domain.ErrInvestmentNotFound
	}
	if !cur.IsActive() {
		return domain.Investment{}, fmt.Errorf("%w: status %s", domain.ErrInvestmentNotActive, cur.Status)
	}

	from := domain.UserAccount(admin)
	bal, err := s.balanceOf(ctx, from)
	if err != nil {
		return domain.Investment{}, fmt.Errorf("instrument_service.PostYield: balance: %w", err)
	}
	if bal < amount {
		return domain.Investment{}, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientBalance, bal, amount)
	}
	move := ledger.TransferArgs{
		From: from, To: domain.CustodyAccount(id), Amount: amount,
		Memo: fmt.Sprintf("yield %s on investment %d", yt.Kind, id),
	}
	if err := s.transfer(ctx, move); err != nil {
		return domain.Investment{}, fmt.Errorf("instrument_service.PostYield: transfer: %w", err)
	}

	now := s.clock.Now()
	inv := cur.Clone()
	inv.CurrentValue += amount
	inv.YieldEarned += amount
	inv.LastYieldAt = &now
	inv.LastYieldType = &yt
	if err := s.persist(ctx, "instrument_service.PostYield", &domain.Changeset{Investments: []domain.Investment{inv}}, move); err != nil {
		return domain.Investment{}, err
	}

	s.log.Info(ctx, "yield posted",
		"investment_id", id, "amount", amount, "yield_type", yt.Kind, "current_value", inv.CurrentValue)
	return inv.Clone(), nil
}

// Exit unwinds an investment and returns its current value to the pool.
func (s *VaultService) Exit(ctx context.Context, admin uuid.UUID, id domain.InvestmentID, mode domain.ExitMode) (int64, error) {
	if err := mode.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return 0, err
	}
	cur, ok := s.state.Investments[id]
	if !ok {
		return 0, domain.ErrInvestmentNotFound
	}
	if !cur.IsActive() {
		return 0, fmt.Errorf("%w: status %s", domain.ErrInvestmentNotActive, cur.Status)
	}

	amount := cur.CurrentValue
	var moved []ledger.TransferArgs
	if amount > 0 {
		move := ledger.TransferArgs{
			From: domain.CustodyAccount(id), To: domain.PoolAccount, Amount: amount,
			Memo: fmt.Sprintf("exit investment %d", id),
		}
		if err := s.transfer(ctx, move); err != nil {
			return 0, fmt.Errorf("instrument_service.Exit: transfer: %w", err)
		}
		moved = append(moved, move)
	}

	now := s.clock.Now()
	vs := s.state.Settings
	vs.PooledBalance += amount
	inv := cur.Clone()
	inv.Status = domain.InvestmentCompleted
	inv.ExitedAt = &now
	inv.ExitAmount = &amount
	cs := &domain.Changeset{
		Settings:    &vs,
		Investments: []domain.Investment{inv},
	}
	if instCur, ok := s.state.Instruments[cur.InstrumentID]; ok {
		inst := instCur.Clone()
		inst.TotalInvested = max(inst.TotalInvested-cur.AmountInvested, 0)
		inst.UpdatedAt = now
		cs.Instruments = []domain.Instrument{inst}
	}
	if err := s.persist(ctx, "instrument_service.Exit", cs, moved...); err != nil {
		return 0, err
	}

	s.log.Info(ctx, "investment exited",
		"investment_id", id, "mode", mode, "amount", amount, "yield", inv.YieldEarned, "pooled_after", vs.PooledBalance)
	return amount, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// Instruments lists every instrument, ordered by id.
func (s *VaultService) Instruments(ctx context.Context) []domain.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instrumentsLocked()
}

func (s *VaultService) instrumentsLocked() []domain.Instrument {
	out := make([]domain.Instrument, 0, len(s.state.Instruments))
	for _, i := range s.state.Instruments {
		out = append(out, i.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Investments lists investments ordered by id. A zero instrument id returns
// all of them.
func (s *VaultService) Investments(ctx context.Context, instrument domain.InstrumentID) []domain.Investment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Investment, 0)
	for _, v := range s.investmentsLocked() {
		if instrument == 0 || v.InstrumentID == instrument {
			out = append(out, v)
		}
	}
	return out
}

func (s *VaultService) investmentsLocked() []domain.Investment {
	out := make([]domain.Investment, 0, len(s.state.Investments))
	for _, v := range s.state.Investments {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InvestmentSummary aggregates deployed capital. Admin only.
func (s *VaultService) InvestmentSummary(ctx context.Context, admin uuid.UUID) (domain.InvestmentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireAdmin(admin); err != nil {
		return domain.InvestmentSummary{}, err
	}
	return domain.SummarizeInvestments(s.state.Settings.PooledBalance, s.instrumentsLocked(), s.investmentsLocked()), nil
}
