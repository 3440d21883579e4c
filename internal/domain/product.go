package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Duration
// ──────────────────────────────────────────────────────────────────────────────

// DurationKind discriminates the Duration variants.
type DurationKind string

const (
	DurationFlexible DurationKind = "flexible"
	DurationMinutes  DurationKind = "minutes"
)

// Duration is a lock term: either Flexible (no maturity) or a fixed number of
// minutes. Minutes is only meaningful for DurationMinutes.
type Duration struct {
	Kind    DurationKind `json:"kind"`
	Minutes int64        `json:"minutes,omitempty"`
}

// MaxLockMinutes bounds a fixed lock term at 100 years, well inside the range
// of time.Duration.
const MaxLockMinutes int64 = 100 * 365 * 24 * 60

// Flexible returns the flexible duration.
func Flexible() Duration { return Duration{Kind: DurationFlexible} }

// Minutes returns a fixed duration of n minutes.
func Minutes(n int64) Duration { return Duration{Kind: DurationMinutes, Minutes: n} }

// Validate rejects unknown kinds and minute counts outside 1..MaxLockMinutes.
func (d Duration) Validate() error {
	switch d.Kind {
	case DurationFlexible:
		if d.Minutes != 0 {
			return fmt.Errorf("%w: flexible duration carries minutes", ErrInvalidDuration)
		}
		return nil
	case DurationMinutes:
		if d.Minutes <= 0 {
			return fmt.Errorf("%w: minutes must be positive, got %d", ErrInvalidDuration, d.Minutes)
		}
		if d.Minutes > MaxLockMinutes {
			return fmt.Errorf("%w: minutes must not exceed %d, got %d", ErrInvalidDuration, MaxLockMinutes, d.Minutes)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDuration, d.Kind)
	}
}

// Equal is structural equality: Flexible matches Flexible, Minutes(n) matches
// only Minutes(n).
func (d Duration) Equal(o Duration) bool {
	switch d.Kind {
	case DurationFlexible:
		return o.Kind == DurationFlexible
	case DurationMinutes:
		return o.Kind == DurationMinutes && o.Minutes == d.Minutes
	default:
		return false
	}
}

// IsFlexible reports whether d has no maturity.
func (d Duration) IsFlexible() bool { return d.Kind == DurationFlexible }

// Length returns the lock length; zero for flexible.
func (d Duration) Length() time.Duration {
	if d.Kind != DurationMinutes {
		return 0
	}
	return time.Duration(d.Minutes) * time.Minute
}

// ReportMinutes returns the minute count, or -1 for flexible.
func (d Duration) ReportMinutes() int64 {
	if d.IsFlexible() {
		return -1
	}
	return d.Minutes
}

// String renders "flexible" or e.g. "60m".
func (d Duration) String() string {
	switch d.Kind {
	case DurationFlexible:
		return "flexible"
	case DurationMinutes:
		return fmt.Sprintf("%dm", d.Minutes)
	default:
		return "invalid"
	}
}

// Label is the human-readable form used in reports.
func (d Duration) Label() string {
	switch d.Kind {
	case DurationFlexible:
		return "Flexible"
	case DurationMinutes:
		switch {
		case d.Minutes%(60*24) == 0:
			return fmt.Sprintf("%d days", d.Minutes/(60*24))
		case d.Minutes%60 == 0:
			return fmt.Sprintf("%d hours", d.Minutes/60)
		default:
			return fmt.Sprintf("%d minutes", d.Minutes)
		}
	default:
		return "Unknown"
	}
}

// Value implements driver.Valuer (jsonb).
func (d Duration) Value() (driver.Value, error) { return jsonValue(d) }

// Scan implements sql.Scanner (jsonb).
func (d *Duration) Scan(src any) error { return scanJSON(src, d) }

// Durations is the set of lock terms a product offers.
type Durations []Duration

// Contains reports whether d is structurally equal to one of ds.
func (ds Durations) Contains(d Duration) bool {
	for _, x := range ds {
		if x.Equal(d) {
			return true
		}
	}
	return false
}

// Validate requires at least one duration, all valid and distinct.
func (ds Durations) Validate() error {
	if len(ds) == 0 {
		return fmt.Errorf("%w: at least one duration is required", ErrInvalidProduct)
	}
	for i, d := range ds {
		if err := d.Validate(); err != nil {
			return err
		}
		if ds[:i].Contains(d) {
			return fmt.Errorf("%w: duplicate duration %s", ErrInvalidProduct, d)
		}
	}
	return nil
}

// Value implements driver.Valuer (jsonb).
func (ds Durations) Value() (driver.Value, error) { return jsonValue([]Duration(ds)) }

// Scan implements sql.Scanner (jsonb).
func (ds *Durations) Scan(src any) error { return scanJSON(src, (*[]Duration)(ds)) }

// ──────────────────────────────────────────────────────────────────────────────
// Product
// ──────────────────────────────────────────────────────────────────────────────

// Product is a named staking offer.
type Product struct {
	ID          ProductID `json:"id"                  db:"id"`
	Name        string    `json:"name"                db:"name"`
	Description string    `json:"description"         db:"description"`
	Durations   Durations `json:"available_durations" db:"available_durations"`
	IsActive    bool      `json:"is_active"           db:"is_active"`
	CreatedAt   time.Time `json:"created_at"          db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"          db:"updated_at"`
}

// Clone returns a deep copy.
func (p Product) Clone() Product {
	p.Durations = append(Durations(nil), p.Durations...)
	return p
}

// ProductInput is the admin payload for creating a product.
type ProductInput struct {
	Name        string    `json:"name"                binding:"required"`
	Description string    `json:"description"`
	Durations   Durations `json:"available_durations" binding:"required"`
	IsActive    *bool     `json:"is_active"`
}

// Validate checks name and durations.
func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	return in.Durations.Validate()
}

// ProductUpdate carries optional changes; nil means "leave unchanged".
type ProductUpdate struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Durations   *Durations `json:"available_durations"`
	IsActive    *bool      `json:"is_active"`
}

// ChangesTerms reports whether the update touches anything other than the
// active flag.
func (u ProductUpdate) ChangesTerms() bool {
	return u.Name != nil || u.Description != nil || u.Durations != nil
}

// Validate checks the fields that are present.
func (u ProductUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidProduct)
	}
	if u.Durations != nil {
		return u.Durations.Validate()
	}
	return nil
}

// Apply writes the present fields onto p.
func (p *Product) Apply(u ProductUpdate, now time.Time) {
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Durations != nil {
		p.Durations = append(Durations(nil), (*u.Durations)...)
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	p.UpdatedAt = now
}
