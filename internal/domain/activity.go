package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType enumerates the events shown in the recent-activity feed.
type ActivityType string

const (
	ActivityLock                 ActivityType = "lock"
	ActivityUnlock               ActivityType = "unlock"
	ActivityDividendClaim        ActivityType = "dividend_claim"
	ActivityDividendDistribution ActivityType = "dividend_distribution"
)

// Activity is an immutable audit record of one vault event.
type Activity struct {
	ID        ActivityID   `json:"id"         db:"id"`
	Principal uuid.UUID    `json:"principal"  db:"principal"`
	Type      ActivityType `json:"type"       db:"type"`
	Amount    int64        `json:"amount"     db:"amount"`
	RefID     uint64       `json:"ref_id"     db:"ref_id"` // entry or distribution id
	Details   string       `json:"details"    db:"details"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
