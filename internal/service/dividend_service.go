package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/ledger"
)

// Distribute snapshots every Locked entry and escrows total from the admin's
// account for pro-rata claims.
func (s *VaultService) Distribute(ctx context.Context, admin uuid.UUID, total int64) (domain.DistributionID, error) {
	// ── 1. Input validation ──────────────────────────────────────────────────
	if total <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return 0, err
	}

	// ── 2. Freeze the snapshot ───────────────────────────────────────────────
	now := s.clock.Now()
	id := domain.DistributionID(s.state.Seq.Distribution + 1)
	snap, entries := s.state.LockedSnapshot()
	dist, err := domain.NewDistribution(id, total, snap, entries, admin, now)
	if err != nil {
		return 0, err
	}

	// ── 3. Fund the escrow ───────────────────────────────────────────────────
	from := domain.UserAccount(admin)
	bal, err := s.balanceOf(ctx, from)
	if err != nil {
		return 0, fmt.Errorf("dividend_service.Distribute: balance: %w", err)
	}
	if bal < total {
		return 0, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientBalance, bal, total)
	}
	move := ledger.TransferArgs{
		From: from, To: domain.EscrowAccount(id), Amount: total,
		Memo: fmt.Sprintf("dividend %d escrow", id),
	}
	if err := s.transfer(ctx, move); err != nil {
		return 0, fmt.Errorf("dividend_service.Distribute: transfer: %w", err)
	}

	// ── 4. Persist and apply ─────────────────────────────────────────────────
	cs := &domain.Changeset{
		Distributions: []domain.DividendDistribution{dist},
		Activities: []domain.Activity{s.newActivity(admin, domain.ActivityDividendDistribution, total, uint64(id),
			fmt.Sprintf("%d holders, %d tokens locked", len(snap), dist.SnapshotTotal), now)},
	}
	if err := s.persist(ctx, "dividend_service.Distribute", cs, move); err != nil {
		return 0, err
	}

	s.log.Info(ctx, "dividend distributed",
		"distribution_id", id, "total", total, "holders", len(snap),
		"snapshot_total", dist.SnapshotTotal, "per_token", dist.PerTokenAmount.String())
	return id, nil
}

// Claim pays owner's share of a distribution. Each owner can claim a given
// distribution at most once.
func (s *VaultService) Claim(ctx context.Context, owner uuid.UUID, id domain.DistributionID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dist, ok := s.state.Distributions[id]
	if !ok {
		return 0, domain.ErrDistributionNotFound
	}
	amount, eligible := dist.AmountFor(owner)
	if !eligible {
		return 0, domain.ErrNotEligible
	}
	key := domain.ClaimKey{Distribution: id, Owner: owner}
	if _, claimed := s.state.Claims[key]; claimed {
		return 0, domain.ErrAlreadyClaimed
	}

	var moved []ledger.TransferArgs
	if amount > 0 {
		move := ledger.TransferArgs{
			From: domain.EscrowAccount(id), To: domain.UserAccount(owner), Amount: amount,
			Memo: fmt.Sprintf("dividend %d claim", id),
		}
		if err := s.transfer(ctx, move); err != nil {
			return 0, fmt.Errorf("dividend_service.Claim: transfer: %w", err)
		}
		moved = append(moved, move)
	}

	now := s.clock.Now()
	cs := &domain.Changeset{
		Claims: []domain.ClaimRecord{{DistributionID: id, Owner: owner, Amount: amount, ClaimedAt: now}},
		Activities: []domain.Activity{s.newActivity(owner, domain.ActivityDividendClaim, amount, uint64(id),
			"", now)},
	}
	if err := s.persist(ctx, "dividend_service.Claim", cs, moved...); err != nil {
		return 0, err
	}

	s.log.Info(ctx, "dividend claimed", "distribution_id", id, "owner", owner, "amount", amount)
	return amount, nil
}

// UnclaimedFor lists the non-zero payouts owner can still claim, oldest first.
func (s *VaultService) UnclaimedFor(ctx context.Context, owner uuid.UUID) []domain.UnclaimedDividend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unclaimedLocked(owner)
}

func (s *VaultService) unclaimedLocked(owner uuid.UUID) []domain.UnclaimedDividend {
	out := make([]domain.UnclaimedDividend, 0)
	for _, d := range s.sortedDistributionsLocked() {
		amount, ok := d.AmountFor(owner)
		if !ok || amount == 0 {
			continue
		}
		if _, claimed := s.state.Claims[domain.ClaimKey{Distribution: d.ID, Owner: owner}]; claimed {
			continue
		}
		out = append(out, domain.UnclaimedDividend{
			DistributionID: d.ID,
			Amount:         amount,
			DistributedAt:  d.DistributedAt,
		})
	}
	return out
}

// History returns every distribution, oldest first.
func (s *VaultService) History(ctx context.Context) []domain.DividendDistribution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DividendDistribution, 0, len(s.state.Distributions))
	for _, d := range s.sortedDistributionsLocked() {
		out = append(out, d.Clone())
	}
	return out
}

func (s *VaultService) sortedDistributionsLocked() []*domain.DividendDistribution {
	out := make([]*domain.DividendDistribution, 0, len(s.state.Distributions))
	for _, d := range s.state.Distributions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
