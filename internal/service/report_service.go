package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/neurovault/vault/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Report types
// ──────────────────────────────────────────────────────────────────────────────

// Position is one vault entry as seen in a user report.
type Position struct {
	EntryID          domain.EntryID     `json:"entry_id"`
	ProductID        domain.ProductID   `json:"product_id"`
	ProductName      string             `json:"product_name"`
	Duration         string             `json:"duration"`
	DurationMinutes  int64              `json:"duration_minutes"` // -1 for flexible
	Amount           int64              `json:"amount"`
	Status           domain.EntryStatus `json:"status"`
	LockedAt         time.Time          `json:"locked_at"`
	UnlockTime       *time.Time         `json:"unlock_time"`
	CanUnlock        bool               `json:"can_unlock"`
	DividendsEarned  int64              `json:"dividends_earned"`
	CurrentValue     int64              `json:"current_value"`
	ROIPercent       float64            `json:"roi_percent"`
	SecondsRemaining int64              `json:"seconds_remaining"`
}

// UserSummary totals a user's positions.
type UserSummary struct {
	TotalLocked        int64   `json:"total_locked"`
	TotalEverLocked    int64   `json:"total_ever_locked"`
	ActivePositions    int     `json:"active_positions"`
	DividendsClaimed   int64   `json:"dividends_claimed"`
	DividendsUnclaimed int64   `json:"dividends_unclaimed"`
	ROIPercent         float64 `json:"roi_percent"`
}

// UserReport is the per-owner investment report.
type UserReport struct {
	Owner              uuid.UUID                  `json:"owner"`
	Summary            UserSummary                `json:"summary"`
	Positions          []Position                 `json:"positions"`
	UnclaimedDividends []domain.UnclaimedDividend `json:"unclaimed_dividends"`
	GeneratedAt        time.Time                  `json:"generated_at"`
}

// PlatformTotals are the vault-wide figures of the admin report.
type PlatformTotals struct {
	TotalLocked      int64 `json:"total_locked"`
	PooledBalance    int64 `json:"pooled_balance"`
	TotalInvested    int64 `json:"total_invested"`
	TotalYield       int64 `json:"total_yield"`
	TotalDistributed int64 `json:"total_distributed"`
	TotalClaimed     int64 `json:"total_claimed"`
	UniqueHolders    int   `json:"unique_holders"`
	ActiveEntries    int   `json:"active_entries"`
	TotalEntries     int   `json:"total_entries"`
}

// InvestorTotal ranks an owner by locked balance.
type InvestorTotal struct {
	Owner         uuid.UUID `json:"owner"`
	TotalLocked   int64     `json:"total_locked"`
	ActiveEntries int       `json:"active_entries"`
}

// ProductTotal sums the locked balance per product.
type ProductTotal struct {
	ProductID     domain.ProductID `json:"product_id"`
	Name          string           `json:"name"`
	IsActive      bool             `json:"is_active"`
	TotalLocked   int64            `json:"total_locked"`
	ActiveEntries int              `json:"active_entries"`
}

// InstrumentPerformance is the ROI of the capital deployed in one instrument.
type InstrumentPerformance struct {
	InstrumentID  domain.InstrumentID     `json:"instrument_id"`
	Name          string                  `json:"name"`
	Type          string                  `json:"type"`
	Status        domain.InstrumentStatus `json:"status"`
	TotalInvested int64                   `json:"total_invested"`
	CurrentValue  int64                   `json:"current_value"`
	YieldEarned   int64                   `json:"yield_earned"`
	ROIPercent    float64                 `json:"roi_percent"`
}

// AdminReport is the platform-wide investment report.
type AdminReport struct {
	Totals         PlatformTotals           `json:"totals"`
	TopInvestors   []InvestorTotal          `json:"top_investors"`
	Products       []ProductTotal           `json:"products"`
	Instruments    []InstrumentPerformance  `json:"instruments"`
	Investments    domain.InvestmentSummary `json:"investment_summary"`
	RecentActivity []domain.Activity        `json:"recent_activity"`
	GeneratedAt    time.Time                `json:"generated_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Builders
// ──────────────────────────────────────────────────────────────────────────────

// UserReport joins owner's entries, dividends and ROI.
func (s *VaultService) UserReport(ctx context.Context, owner uuid.UUID) UserReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	dists := s.sortedDistributionsLocked()
	rep := UserReport{
		Owner:              owner,
		Positions:          make([]Position, 0),
		UnclaimedDividends: s.unclaimedLocked(owner),
		GeneratedAt:        now,
	}

	for _, e := range s.ownerEntriesLocked(owner) {
		name := "unknown"
		if p, ok := s.state.Products[e.ProductID]; ok {
			name = p.Name
		}
		var earned int64
		for _, d := range dists {
			if d.Includes(e.ID) {
				earned += domain.ShareOf(e.Amount, d.TotalAmount, d.SnapshotTotal)
			}
		}
		r := e.ToResponse(now)
		rep.Positions = append(rep.Positions, Position{
			EntryID:          e.ID,
			ProductID:        e.ProductID,
			ProductName:      name,
			Duration:         e.Duration.Label(),
			DurationMinutes:  e.Duration.ReportMinutes(),
			Amount:           e.Amount,
			Status:           e.Status,
			LockedAt:         e.LockedAt,
			UnlockTime:       e.UnlockTime,
			CanUnlock:        r.CanUnlock,
			DividendsEarned:  earned,
			CurrentValue:     e.Amount + earned,
			ROIPercent:       domain.Percent(domain.ROIPercent(e.Amount, e.Amount+earned)),
			SecondsRemaining: r.SecondsRemaining,
		})

		rep.Summary.TotalEverLocked += e.Amount
		if e.IsLocked() {
			rep.Summary.TotalLocked += e.Amount
			rep.Summary.ActivePositions++
		}
	}

	for _, d := range dists {
		if c, ok := s.state.Claims[domain.ClaimKey{Distribution: d.ID, Owner: owner}]; ok {
			rep.Summary.DividendsClaimed += c.Amount
		}
	}
	for _, u := range rep.UnclaimedDividends {
		rep.Summary.DividendsUnclaimed += u.Amount
	}
	earned := rep.Summary.DividendsClaimed + rep.Summary.DividendsUnclaimed
	rep.Summary.ROIPercent = domain.Percent(domain.ROIPercent(rep.Summary.TotalEverLocked, rep.Summary.TotalEverLocked+earned))
	return rep
}

// AdminReport composes the platform view. Admin only.
func (s *VaultService) AdminReport(ctx context.Context, admin uuid.UUID) (AdminReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireAdmin(admin); err != nil {
		return AdminReport{}, err
	}

	st := s.state
	rep := AdminReport{GeneratedAt: s.clock.Now()}
	rep.Totals.PooledBalance = st.Settings.PooledBalance
	rep.Totals.TotalEntries = len(st.Entries)

	// ── 1. Entries: holders and products ─────────────────────────────────────
	holders := make(map[uuid.UUID]*InvestorTotal)
	products := make(map[domain.ProductID]*ProductTotal, len(st.Products))
	for _, p := range st.Products {
		products[p.ID] = &ProductTotal{ProductID: p.ID, Name: p.Name, IsActive: p.IsActive}
	}
	for _, e := range st.Entries {
		if !e.IsLocked() {
			continue
		}
		rep.Totals.TotalLocked += e.Amount
		rep.Totals.ActiveEntries++

		h, ok := holders[e.Owner]
		if !ok {
			h = &InvestorTotal{Owner: e.Owner}
			holders[e.Owner] = h
		}
		h.TotalLocked += e.Amount
		h.ActiveEntries++

		if p, ok := products[e.ProductID]; ok {
			p.TotalLocked += e.Amount
			p.ActiveEntries++
		}
	}
	rep.Totals.UniqueHolders = len(holders)

	rep.TopInvestors = make([]InvestorTotal, 0, len(holders))
	for _, h := range holders {
		rep.TopInvestors = append(rep.TopInvestors, *h)
	}
	sort.Slice(rep.TopInvestors, func(i, j int) bool {
		a, b := rep.TopInvestors[i], rep.TopInvestors[j]
		if a.TotalLocked != b.TotalLocked {
			return a.TotalLocked > b.TotalLocked
		}
		return a.Owner.String() < b.Owner.String()
	})
	if len(rep.TopInvestors) > s.settings.TopInvestors {
		rep.TopInvestors = rep.TopInvestors[:s.settings.TopInvestors]
	}

	rep.Products = make([]ProductTotal, 0, len(products))
	for _, p := range products {
		rep.Products = append(rep.Products, *p)
	}
	sort.Slice(rep.Products, func(i, j int) bool { return rep.Products[i].ProductID < rep.Products[j].ProductID })

	// ── 2. Dividends ─────────────────────────────────────────────────────────
	for _, d := range st.Distributions {
		rep.Totals.TotalDistributed += d.TotalAmount
	}
	for _, c := range st.Claims {
		rep.Totals.TotalClaimed += c.Amount
	}

	// ── 3. Instruments ───────────────────────────────────────────────────────
	instruments := s.instrumentsLocked()
	investments := s.investmentsLocked()
	perf := make(map[domain.InstrumentID]*InstrumentPerformance, len(instruments))
	rep.Instruments = make([]InstrumentPerformance, 0, len(instruments))
	for _, inst := range instruments {
		perf[inst.ID] = &InstrumentPerformance{
			InstrumentID: inst.ID,
			Name:         inst.Name,
			Type:         inst.Type.Label(),
			Status:       inst.Status,
		}
	}
	for _, v := range investments {
		rep.Totals.TotalYield += v.YieldEarned
		if !v.IsActive() {
			continue
		}
		rep.Totals.TotalInvested += v.AmountInvested
		if p, ok := perf[v.InstrumentID]; ok {
			p.TotalInvested += v.AmountInvested
			p.CurrentValue += v.CurrentValue
			p.YieldEarned += v.YieldEarned
		}
	}
	for _, inst := range instruments {
		p := perf[inst.ID]
		p.ROIPercent = domain.Percent(domain.ROIPercent(p.TotalInvested, p.CurrentValue))
		rep.Instruments = append(rep.Instruments, *p)
	}
	rep.Investments = domain.SummarizeInvestments(st.Settings.PooledBalance, instruments, investments)

	// ── 4. Recent activity, newest first ─────────────────────────────────────
	rep.RecentActivity = s.recentActivityLocked(s.settings.RecentActivityWindow)
	return rep, nil
}

// RecentActivity returns up to limit activities, newest first.
func (s *VaultService) RecentActivity(ctx context.Context, limit int) []domain.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = s.settings.RecentActivityWindow
	}
	return s.recentActivityLocked(limit)
}

func (s *VaultService) recentActivityLocked(limit int) []domain.Activity {
	acts := s.state.Activities
	n := min(limit, len(acts))
	out := make([]domain.Activity, 0, n)
	for i := len(acts) - 1; i >= len(acts)-n; i-- {
		out = append(out, acts[i])
	}
	return out
}
