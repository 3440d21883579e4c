package domain

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// EntryStatus
// ──────────────────────────────────────────────────────────────────────────────

// EntryStatus represents the lifecycle of a vault entry.
type EntryStatus string

const (
	EntryLocked   EntryStatus = "locked"
	EntryUnlocked EntryStatus = "unlocked"
)

// ──────────────────────────────────────────────────────────────────────────────
// VaultEntry
// ──────────────────────────────────────────────────────────────────────────────

// VaultEntry is one lock position. Amount never changes after creation; an
// unlock always returns the whole amount.
type VaultEntry struct {
	ID         EntryID     `json:"id"                db:"id"`
	Owner      uuid.UUID   `json:"owner"             db:"owner"`
	ProductID  ProductID   `json:"product_id"        db:"product_id"`
	Amount     int64       `json:"amount"            db:"amount"`
	Duration   Duration    `json:"selected_duration" db:"selected_duration"`
	IsFlexible bool        `json:"is_flexible"       db:"is_flexible"`
	LockedAt   time.Time   `json:"locked_at"         db:"locked_at"`
	UnlockTime *time.Time  `json:"unlock_time"       db:"unlock_time"` // nil when flexible
	Status     EntryStatus `json:"status"            db:"status"`
	UnlockedAt *time.Time  `json:"unlocked_at"       db:"unlocked_at"`
	Emergency  bool        `json:"emergency"         db:"emergency"` // released by admin override
}

// NewVaultEntry builds a Locked entry; unlock_time is locked_at + duration for
// fixed terms.
func NewVaultEntry(id EntryID, owner uuid.UUID, product ProductID, amount int64, d Duration, now time.Time) VaultEntry {
	e := VaultEntry{
		ID:         id,
		Owner:      owner,
		ProductID:  product,
		Amount:     amount,
		Duration:   d,
		IsFlexible: d.IsFlexible(),
		LockedAt:   now,
		Status:     EntryLocked,
	}
	if !e.IsFlexible {
		t := now.Add(d.Length())
		e.UnlockTime = &t
	}
	return e
}

// IsLocked reports whether the entry still holds funds.
func (e *VaultEntry) IsLocked() bool {
	return e.Status == EntryLocked
}

// CanUnlock reports whether an owner unlock would pass the maturity check at now.
func (e *VaultEntry) CanUnlock(now time.Time) bool {
	if !e.IsLocked() {
		return false
	}
	return e.IsFlexible || e.UnlockTime == nil || !now.Before(*e.UnlockTime)
}

// Clone returns a copy that shares no pointers with e.
func (e VaultEntry) Clone() VaultEntry {
	if e.UnlockTime != nil {
		t := *e.UnlockTime
		e.UnlockTime = &t
	}
	if e.UnlockedAt != nil {
		t := *e.UnlockedAt
		e.UnlockedAt = &t
	}
	return e
}

// EntryResponse is the API view of an entry with derived fields.
type EntryResponse struct {
	VaultEntry
	CanUnlock        bool  `json:"can_unlock"`
	SecondsRemaining int64 `json:"seconds_remaining"`
}

// ToResponse evaluates the derived fields at now.
func (e VaultEntry) ToResponse(now time.Time) EntryResponse {
	r := EntryResponse{VaultEntry: e, CanUnlock: e.CanUnlock(now)}
	if e.IsLocked() && e.UnlockTime != nil && now.Before(*e.UnlockTime) {
		r.SecondsRemaining = int64(e.UnlockTime.Sub(now).Seconds())
	}
	return r
}

// ──────────────────────────────────────────────────────────────────────────────
// VaultInfo
// ──────────────────────────────────────────────────────────────────────────────

// VaultInfo is a read projection over the vault state.
type VaultInfo struct {
	TotalLocked       int64       `json:"total_locked"`
	PooledBalance     int64       `json:"pooled_balance"`
	ActiveEntries     int         `json:"active_entries"`
	ActiveProducts    int         `json:"active_products"`
	LockPeriodMinutes int64       `json:"lock_period_minutes"`
	LockPeriodSeconds int64       `json:"lock_period_seconds"`
	DividendCount     int         `json:"dividend_count"`
	Admins            []uuid.UUID `json:"admins"`
}
