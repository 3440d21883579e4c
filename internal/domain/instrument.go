package domain

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ──────────────────────────────────────────────────────────────────────────────
// InstrumentType
// ──────────────────────────────────────────────────────────────────────────────

// InstrumentKind discriminates the InstrumentType variants.
type InstrumentKind string

const (
	InstrumentOnChain   InstrumentKind = "on_chain"
	InstrumentOffChain  InstrumentKind = "off_chain"
	InstrumentLiquidity InstrumentKind = "liquidity"
	InstrumentStaking   InstrumentKind = "staking"
	InstrumentLending   InstrumentKind = "lending"
)

type OnChainParams struct {
	Protocol        string  `json:"protocol"`
	ContractAddress *string `json:"contract_address,omitempty"`
}

type OffChainParams struct {
	Provider       string `json:"provider"`
	InstrumentName string `json:"instrument_name"`
}

type LiquidityParams struct {
	DEX  string `json:"dex"`
	Pair string `json:"pair"`
}

type StakingParams struct {
	Validator string `json:"validator"`
	Network   string `json:"network"`
}

type LendingParams struct {
	Platform string `json:"platform"`
	Asset    string `json:"asset"`
}

// InstrumentType is a tagged variant: Kind selects which params pointer is set.
type InstrumentType struct {
	Kind      InstrumentKind   `json:"kind"`
	OnChain   *OnChainParams   `json:"on_chain,omitempty"`
	OffChain  *OffChainParams  `json:"off_chain,omitempty"`
	Liquidity *LiquidityParams `json:"liquidity,omitempty"`
	Staking   *StakingParams   `json:"staking,omitempty"`
	Lending   *LendingParams   `json:"lending,omitempty"`
}

// set counts the populated variant payloads.
func (t InstrumentType) set() int {
	n := 0
	for _, present := range []bool{t.OnChain != nil, t.OffChain != nil, t.Liquidity != nil, t.Staking != nil, t.Lending != nil} {
		if present {
			n++
		}
	}
	return n
}

// Validate requires exactly the payload matching Kind, with its mandatory
// fields filled in.
func (t InstrumentType) Validate() error {
	if t.set() != 1 {
		return fmt.Errorf("%w: instrument type needs exactly one payload", ErrInvalidInstrument)
	}
	var required []string
	switch t.Kind {
	case InstrumentOnChain:
		if t.OnChain == nil {
			break
		}
		required = []string{t.OnChain.Protocol}
	case InstrumentOffChain:
		if t.OffChain == nil {
			break
		}
		required = []string{t.OffChain.Provider, t.OffChain.InstrumentName}
	case InstrumentLiquidity:
		if t.Liquidity == nil {
			break
		}
		required = []string{t.Liquidity.DEX, t.Liquidity.Pair}
	case InstrumentStaking:
		if t.Staking == nil {
			break
		}
		required = []string{t.Staking.Validator, t.Staking.Network}
	case InstrumentLending:
		if t.Lending == nil {
			break
		}
		required = []string{t.Lending.Platform, t.Lending.Asset}
	default:
		return fmt.Errorf("%w: unknown instrument kind %q", ErrInvalidInstrument, t.Kind)
	}
	if required == nil {
		return fmt.Errorf("%w: payload does not match kind %q", ErrInvalidInstrument, t.Kind)
	}
	for _, v := range required {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s fields must not be empty", ErrInvalidInstrument, t.Kind)
		}
	}
	return nil
}

// Label is a short description such as "Staking: validator-1 @ cosmos".
func (t InstrumentType) Label() string {
	switch t.Kind {
	case InstrumentOnChain:
		if t.OnChain != nil {
			return "OnChain: " + t.OnChain.Protocol
		}
	case InstrumentOffChain:
		if t.OffChain != nil {
			return "OffChain: " + t.OffChain.Provider + " " + t.OffChain.InstrumentName
		}
	case InstrumentLiquidity:
		if t.Liquidity != nil {
			return "Liquidity: " + t.Liquidity.DEX + " " + t.Liquidity.Pair
		}
	case InstrumentStaking:
		if t.Staking != nil {
			return "Staking: " + t.Staking.Validator + " @ " + t.Staking.Network
		}
	case InstrumentLending:
		if t.Lending != nil {
			return "Lending: " + t.Lending.Platform + " " + t.Lending.Asset
		}
	}
	return string(t.Kind)
}

// Value implements driver.Valuer (jsonb).
func (t InstrumentType) Value() (driver.Value, error) { return jsonValue(t) }

// Scan implements sql.Scanner (jsonb).
func (t *InstrumentType) Scan(src any) error { return scanJSON(src, t) }

// ──────────────────────────────────────────────────────────────────────────────
// YieldType / ExitMode
// ──────────────────────────────────────────────────────────────────────────────

// YieldKind classifies a yield posting. It is metadata only.
type YieldKind string

const (
	YieldInterest        YieldKind = "interest"
	YieldDividends       YieldKind = "dividends"
	YieldTradingFees     YieldKind = "trading_fees"
	YieldStakingRewards  YieldKind = "staking_rewards"
	YieldLiquidityMining YieldKind = "liquidity_mining"
	YieldOther           YieldKind = "other"
)

// YieldType is a YieldKind plus a free-form label for YieldOther.
type YieldType struct {
	Kind  YieldKind `json:"kind"`
	Other string    `json:"other,omitempty"`
}

// Validate rejects unknown kinds and unlabeled "other" yields.
func (y YieldType) Validate() error {
	switch y.Kind {
	case YieldInterest, YieldDividends, YieldTradingFees, YieldStakingRewards, YieldLiquidityMining:
		return nil
	case YieldOther:
		if strings.TrimSpace(y.Other) == "" {
			return fmt.Errorf("%w: other yield needs a label", ErrInvalidYieldType)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidYieldType, y.Kind)
	}
}

// Value implements driver.Valuer (jsonb).
func (y YieldType) Value() (driver.Value, error) { return jsonValue(y) }

// Scan implements sql.Scanner (jsonb).
func (y *YieldType) Scan(src any) error { return scanJSON(src, y) }

// ExitMode selects how an investment is unwound.
type ExitMode string

// ExitImmediate unwinds the whole position at its current value.
const ExitImmediate ExitMode = "immediate"

// Validate accepts only the modes that are implemented.
func (m ExitMode) Validate() error {
	switch m {
	case ExitImmediate:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedExitMode, m)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Statuses
// ──────────────────────────────────────────────────────────────────────────────

// InstrumentStatus represents the admin-managed lifecycle of an instrument.
type InstrumentStatus string

const (
	InstrumentActive      InstrumentStatus = "active"
	InstrumentPaused      InstrumentStatus = "paused"
	InstrumentLiquidating InstrumentStatus = "liquidating"
	InstrumentClosed      InstrumentStatus = "closed"
)

// IsValid returns true for the known statuses.
func (s InstrumentStatus) IsValid() bool {
	switch s {
	case InstrumentActive, InstrumentPaused, InstrumentLiquidating, InstrumentClosed:
		return true
	}
	return false
}

// InvestmentStatus represents the lifecycle of an instrument investment.
type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
	InvestmentCancelled InvestmentStatus = "cancelled"
)

// ──────────────────────────────────────────────────────────────────────────────
// Instrument
// ──────────────────────────────────────────────────────────────────────────────

// Instrument is a destination for idle vault capital.
type Instrument struct {
	ID             InstrumentID     `json:"id"               db:"id"`
	Name           string           `json:"name"             db:"name"`
	Description    string           `json:"description"      db:"description"`
	Type           InstrumentType   `json:"instrument_type"  db:"instrument_type"`
	ExpectedAPY    decimal.Decimal  `json:"expected_apy"     db:"expected_apy"`
	RiskLevel      int              `json:"risk_level"       db:"risk_level"`
	MinInvestment  int64            `json:"min_investment"   db:"min_investment"`
	MaxInvestment  *int64           `json:"max_investment"   db:"max_investment"`
	LockPeriodDays *int64           `json:"lock_period_days" db:"lock_period_days"`
	TotalInvested  int64            `json:"total_invested"   db:"total_invested"`
	Status         InstrumentStatus `json:"status"           db:"status"`
	CreatedAt      time.Time        `json:"created_at"       db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"       db:"updated_at"`
}

// maxExpectedAPY is the exclusive bound of the NUMERIC(9,4) expected_apy column.
var maxExpectedAPY = decimal.NewFromInt(100_000)

// Validate checks the static terms of an instrument.
func (i *Instrument) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInstrument)
	}
	if err := i.Type.Validate(); err != nil {
		return err
	}
	if i.ExpectedAPY.IsNegative() {
		return fmt.Errorf("%w: expected_apy must not be negative", ErrInvalidInstrument)
	}
	if i.ExpectedAPY.GreaterThanOrEqual(maxExpectedAPY) {
		return fmt.Errorf("%w: expected_apy must be below %s", ErrInvalidInstrument, maxExpectedAPY)
	}
	if i.RiskLevel < 1 || i.RiskLevel > 10 {
		return fmt.Errorf("%w: risk_level must be between 1 and 10, got %d", ErrInvalidInstrument, i.RiskLevel)
	}
	if i.MinInvestment < 0 {
		return fmt.Errorf("%w: min_investment must not be negative", ErrInvalidInstrument)
	}
	if i.MaxInvestment != nil && (*i.MaxInvestment <= 0 || *i.MaxInvestment < i.MinInvestment) {
		return fmt.Errorf("%w: max_investment must be positive and >= min_investment", ErrInvalidInstrument)
	}
	if i.LockPeriodDays != nil && *i.LockPeriodDays <= 0 {
		return fmt.Errorf("%w: lock_period_days must be positive", ErrInvalidInstrument)
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInstrument, i.Status)
	}
	return nil
}

// CheckAmount enforces the min/max investment bounds.
func (i *Instrument) CheckAmount(amount int64) error {
	if amount < i.MinInvestment {
		return fmt.Errorf("%w: minimum is %d", ErrInvestmentOutOfRange, i.MinInvestment)
	}
	if i.MaxInvestment != nil && amount > *i.MaxInvestment {
		return fmt.Errorf("%w: maximum is %d", ErrInvestmentOutOfRange, *i.MaxInvestment)
	}
	return nil
}

// Clone returns a copy that shares no pointers with i.
func (i Instrument) Clone() Instrument {
	if i.MaxInvestment != nil {
		v := *i.MaxInvestment
		i.MaxInvestment = &v
	}
	if i.LockPeriodDays != nil {
		v := *i.LockPeriodDays
		i.LockPeriodDays = &v
	}
	if i.Type.OnChain != nil {
		oc := *i.Type.OnChain
		if oc.ContractAddress != nil {
			addr := *oc.ContractAddress
			oc.ContractAddress = &addr
		}
		i.Type.OnChain = &oc
	}
	if i.Type.OffChain != nil {
		v := *i.Type.OffChain
		i.Type.OffChain = &v
	}
	if i.Type.Liquidity != nil {
		v := *i.Type.Liquidity
		i.Type.Liquidity = &v
	}
	if i.Type.Staking != nil {
		v := *i.Type.Staking
		i.Type.Staking = &v
	}
	if i.Type.Lending != nil {
		v := *i.Type.Lending
		i.Type.Lending = &v
	}
	return i
}

// InstrumentInput is the admin payload for creating an instrument.
type InstrumentInput struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Type           InstrumentType  `json:"instrument_type"`
	ExpectedAPY    decimal.Decimal `json:"expected_apy"`
	RiskLevel      int             `json:"risk_level"`
	MinInvestment  int64           `json:"min_investment"`
	MaxInvestment  *int64          `json:"max_investment"`
	LockPeriodDays *int64          `json:"lock_period_days"`
}

// InstrumentUpdate carries optional changes; nil means "leave unchanged".
type InstrumentUpdate struct {
	Name           *string           `json:"name"`
	Description    *string           `json:"description"`
	Type           *InstrumentType   `json:"instrument_type"`
	ExpectedAPY    *decimal.Decimal  `json:"expected_apy"`
	RiskLevel      *int              `json:"risk_level"`
	MinInvestment  *int64            `json:"min_investment"`
	MaxInvestment  *int64            `json:"max_investment"`
	LockPeriodDays *int64            `json:"lock_period_days"`
	Status         *InstrumentStatus `json:"status"`
}

// Apply writes the present fields onto i.
func (i *Instrument) Apply(u InstrumentUpdate, now time.Time) {
	if u.Name != nil {
		i.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		i.Description = *u.Description
	}
	if u.Type != nil {
		i.Type = *u.Type
	}
	if u.ExpectedAPY != nil {
		i.ExpectedAPY = *u.ExpectedAPY
	}
	if u.RiskLevel != nil {
		i.RiskLevel = *u.RiskLevel
	}
	if u.MinInvestment != nil {
		i.MinInvestment = *u.MinInvestment
	}
	if u.MaxInvestment != nil {
		v := *u.MaxInvestment
		i.MaxInvestment = &v
	}
	if u.LockPeriodDays != nil {
		v := *u.LockPeriodDays
		i.LockPeriodDays = &v
	}
	if u.Status != nil {
		i.Status = *u.Status
	}
	i.UpdatedAt = now
}

// ──────────────────────────────────────────────────────────────────────────────
// Investment
// ──────────────────────────────────────────────────────────────────────────────

// Investment is capital allocated from the pool to one instrument.
type Investment struct {
	ID             InvestmentID     `json:"id"              db:"id"`
	InstrumentID   InstrumentID     `json:"instrument_id"   db:"instrument_id"`
	AmountInvested int64            `json:"amount_invested" db:"amount_invested"`
	CurrentValue   int64            `json:"current_value"   db:"current_value"`
	YieldEarned    int64            `json:"yield_earned"    db:"yield_earned"`
	Status         InvestmentStatus `json:"status"          db:"status"`
	InvestedAt     time.Time        `json:"invested_at"     db:"invested_at"`
	LastYieldAt    *time.Time       `json:"last_yield_at"   db:"last_yield_at"`
	LastYieldType  *YieldType       `json:"last_yield_type" db:"last_yield_type"`
	ExitedAt       *time.Time       `json:"exited_at"       db:"exited_at"`
	ExitAmount     *int64           `json:"exit_amount"     db:"exit_amount"`
}

// IsActive reports whether capital is still deployed.
func (v *Investment) IsActive() bool { return v.Status == InvestmentActive }

// ROI returns (current_value - amount_invested) / amount_invested × 100.
func (v *Investment) ROI() decimal.Decimal {
	return ROIPercent(v.AmountInvested, v.CurrentValue)
}

// Clone returns a copy that shares no pointers with v.
func (v Investment) Clone() Investment {
	if v.LastYieldAt != nil {
		t := *v.LastYieldAt
		v.LastYieldAt = &t
	}
	if v.LastYieldType != nil {
		y := *v.LastYieldType
		v.LastYieldType = &y
	}
	if v.ExitedAt != nil {
		t := *v.ExitedAt
		v.ExitedAt = &t
	}
	if v.ExitAmount != nil {
		a := *v.ExitAmount
		v.ExitAmount = &a
	}
	return v
}

// ──────────────────────────────────────────────────────────────────────────────
// Ratios
// ──────────────────────────────────────────────────────────────────────────────

// ROIPercent returns the percentage gain of current over initial; zero when
// nothing was invested.
func ROIPercent(initial, current int64) decimal.Decimal {
	if initial <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(current - initial).
		Mul(hundred).
		DivRound(decimal.NewFromInt(initial), 8)
}

// Percent rounds to the two-decimal display convention.
func Percent(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// DiversityScore is the Shannon entropy of the capital shares normalised by
// the entropy of an even split over slots, scaled to 0..100. Spreading capital
// more evenly or across more of the slots never lowers the score.
func DiversityScore(shares []int64, slots int) float64 {
	if slots < 2 {
		return 0
	}
	var total float64
	for _, s := range shares {
		if s > 0 {
			total += float64(s)
		}
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, s := range shares {
		if s <= 0 {
			continue
		}
		p := float64(s) / total
		h -= p * math.Log(p)
	}
	score := h / math.Log(float64(slots)) * 100
	if score > 100 {
		score = 100
	}
	return math.Round(score*100) / 100
}

// InvestmentSummary is the vault-wide view of deployed capital.
type InvestmentSummary struct {
	TotalVaultBalance           int64   `json:"total_vault_balance"`
	TotalInvestedInInstruments  int64   `json:"total_invested_in_instruments"`
	TotalAvailableForInvestment int64   `json:"total_available_for_investment"`
	TotalYieldEarned            int64   `json:"total_yield_earned"`
	WeightedAverageAPY          float64 `json:"weighted_average_apy"`
	ActiveInstruments           int     `json:"active_instruments"`
	DiversityScore              float64 `json:"diversity_score"`
}

// SummarizeInvestments aggregates the instrument registry. pooled is the
// undeployed part of the vault.
func SummarizeInvestments(pooled int64, instruments []Instrument, investments []Investment) InvestmentSummary {
	sum := InvestmentSummary{TotalAvailableForInvestment: pooled}

	for _, v := range investments {
		sum.TotalYieldEarned += v.YieldEarned
		if v.IsActive() {
			sum.TotalInvestedInInstruments += v.AmountInvested
		}
	}
	sum.TotalVaultBalance = pooled + sum.TotalInvestedInInstruments

	weighted := decimal.Zero
	var weight int64
	var shares []int64
	for _, inst := range instruments {
		if inst.Status != InstrumentActive {
			continue
		}
		sum.ActiveInstruments++
		shares = append(shares, inst.TotalInvested)
		if inst.TotalInvested > 0 {
			weighted = weighted.Add(inst.ExpectedAPY.Mul(decimal.NewFromInt(inst.TotalInvested)))
			weight += inst.TotalInvested
		}
	}
	if weight > 0 {
		sum.WeightedAverageAPY = Percent(weighted.DivRound(decimal.NewFromInt(weight), 8))
	}
	sum.DiversityScore = DiversityScore(shares, sum.ActiveInstruments)
	return sum
}
