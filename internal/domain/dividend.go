package domain

import (
	"database/sql/driver"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// perTokenPrecision is the number of decimal places of the display rate.
// Claim amounts never use it; they are computed from the exact ratio.
const perTokenPrecision = 18

// ──────────────────────────────────────────────────────────────────────────────
// Snapshot
// ──────────────────────────────────────────────────────────────────────────────

// Snapshot maps each owner to their locked amount at distribution time.
type Snapshot map[uuid.UUID]int64

// Total sums the snapshot.
func (s Snapshot) Total() int64 {
	var total int64
	for _, v := range s {
		total += v
	}
	return total
}

// Owners returns the owners in a stable order.
func (s Snapshot) Owners() []uuid.UUID {
	owners := make([]uuid.UUID, 0, len(s))
	for o := range s {
		owners = append(owners, o)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].String() < owners[j].String() })
	return owners
}

// Value implements driver.Valuer (jsonb).
func (s Snapshot) Value() (driver.Value, error) { return jsonValue(map[uuid.UUID]int64(s)) }

// Scan implements sql.Scanner (jsonb).
func (s *Snapshot) Scan(src any) error { return scanJSON(src, (*map[uuid.UUID]int64)(s)) }

// EntryIDs lists the vault entries that made up a snapshot.
type EntryIDs []EntryID

// Value implements driver.Valuer (jsonb).
func (ids EntryIDs) Value() (driver.Value, error) { return jsonValue([]EntryID(ids)) }

// Scan implements sql.Scanner (jsonb).
func (ids *EntryIDs) Scan(src any) error { return scanJSON(src, (*[]EntryID)(ids)) }

// ──────────────────────────────────────────────────────────────────────────────
// Pro-rata arithmetic
// ──────────────────────────────────────────────────────────────────────────────

// ShareOf returns ⌊holding × total / snapshotTotal⌋ computed exactly. The sum of
// the shares of a snapshot never exceeds total.
func ShareOf(holding, total, snapshotTotal int64) int64 {
	if holding <= 0 || total <= 0 || snapshotTotal <= 0 {
		return 0
	}
	q, _ := decimal.NewFromInt(holding).
		Mul(decimal.NewFromInt(total)).
		QuoRem(decimal.NewFromInt(snapshotTotal), 0)
	return q.IntPart()
}

// ──────────────────────────────────────────────────────────────────────────────
// DividendDistribution
// ──────────────────────────────────────────────────────────────────────────────

// DividendDistribution is a frozen pro-rata payout over a snapshot of locked
// balances. The rate is the exact ratio TotalAmount/SnapshotTotal.
type DividendDistribution struct {
	ID             DistributionID  `json:"id"               db:"id"`
	TotalAmount    int64           `json:"total_amount"     db:"total_amount"`
	SnapshotTotal  int64           `json:"snapshot_total"   db:"snapshot_total"`
	PerTokenAmount decimal.Decimal `json:"per_token_amount" db:"per_token_amount"` // display only
	DistributedAt  time.Time       `json:"distributed_at"   db:"distributed_at"`
	DistributedBy  uuid.UUID       `json:"distributed_by"   db:"distributed_by"`
	Snapshot       Snapshot        `json:"snapshot"         db:"snapshot"`
	Entries        EntryIDs        `json:"entry_ids"        db:"entry_ids"`
}

// NewDistribution freezes a distribution. It fails with ErrNoLockedTokens when
// the snapshot is empty.
func NewDistribution(id DistributionID, total int64, snap Snapshot, entries EntryIDs, by uuid.UUID, now time.Time) (DividendDistribution, error) {
	if total <= 0 {
		return DividendDistribution{}, ErrInvalidAmount
	}
	snapTotal := snap.Total()
	if snapTotal <= 0 {
		return DividendDistribution{}, ErrNoLockedTokens
	}
	return DividendDistribution{
		ID:             id,
		TotalAmount:    total,
		SnapshotTotal:  snapTotal,
		PerTokenAmount: decimal.NewFromInt(total).DivRound(decimal.NewFromInt(snapTotal), perTokenPrecision),
		DistributedAt:  now,
		DistributedBy:  by,
		Snapshot:       snap,
		Entries:        entries,
	}, nil
}

// AmountFor returns the owner's claimable amount and whether they are in the
// snapshot at all.
func (d *DividendDistribution) AmountFor(owner uuid.UUID) (int64, bool) {
	held, ok := d.Snapshot[owner]
	if !ok {
		return 0, false
	}
	return ShareOf(held, d.TotalAmount, d.SnapshotTotal), true
}

// Includes reports whether entry id was part of the snapshot.
func (d *DividendDistribution) Includes(id EntryID) bool {
	for _, e := range d.Entries {
		if e == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (d DividendDistribution) Clone() DividendDistribution {
	snap := make(Snapshot, len(d.Snapshot))
	for k, v := range d.Snapshot {
		snap[k] = v
	}
	d.Snapshot = snap
	d.Entries = append(EntryIDs(nil), d.Entries...)
	return d
}

// ──────────────────────────────────────────────────────────────────────────────
// Claims
// ──────────────────────────────────────────────────────────────────────────────

// ClaimKey identifies the single claim an owner may make per distribution.
type ClaimKey struct {
	Distribution DistributionID
	Owner        uuid.UUID
}

// ClaimRecord is the immutable proof that a dividend was paid.
type ClaimRecord struct {
	DistributionID DistributionID `json:"distribution_id" db:"distribution_id"`
	Owner          uuid.UUID      `json:"owner"           db:"owner"`
	Amount         int64          `json:"amount"          db:"amount"`
	ClaimedAt      time.Time      `json:"claimed_at"      db:"claimed_at"`
}

// Key returns the record's claim key.
func (c ClaimRecord) Key() ClaimKey {
	return ClaimKey{Distribution: c.DistributionID, Owner: c.Owner}
}

// UnclaimedDividend is one pending payout for an owner.
type UnclaimedDividend struct {
	DistributionID DistributionID `json:"distribution_id"`
	Amount         int64          `json:"amount"`
	DistributedAt  time.Time      `json:"distributed_at"`
}
