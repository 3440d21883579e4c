package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors. Compare with errors.Is().
// ──────────────────────────────────────────────────────────────────────────────

// Validation errors: the caller can correct the request and retry.
var (
	// ErrInvalidAmount is returned when an amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInvalidDuration is returned for Minutes(n) outside 1..MaxLockMinutes
	// or an unknown duration kind.
	ErrInvalidDuration = errors.New("invalid lock duration")

	// ErrDurationNotOffered is returned when a product does not list the
	// requested duration.
	ErrDurationNotOffered = errors.New("duration is not offered by this product")

	// ErrProductInactive is returned when locking into a deactivated product.
	ErrProductInactive = errors.New("product is not active")

	// ErrInvalidProduct is returned when a product definition is malformed.
	ErrInvalidProduct = errors.New("invalid product definition")

	// ErrInvalidInstrument is returned when an instrument definition is malformed.
	ErrInvalidInstrument = errors.New("invalid investment instrument definition")

	// ErrInvestmentOutOfRange is returned when an investment is below the
	// instrument minimum or above its maximum.
	ErrInvestmentOutOfRange = errors.New("investment amount outside instrument limits")

	// ErrUnsupportedExitMode is returned for exit modes other than Immediate.
	ErrUnsupportedExitMode = errors.New("unsupported exit mode")

	// ErrInvalidYieldType is returned when a yield type is unknown.
	ErrInvalidYieldType = errors.New("invalid yield type")

	// ErrInsufficientBalance is returned when the caller's token balance is
	// lower than the requested amount.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrInvalidPrincipal is returned for the nil principal.
	ErrInvalidPrincipal = errors.New("invalid principal")
)

// Not-found errors (a subset of validation errors).
var (
	ErrProductNotFound      = errors.New("product not found")
	ErrEntryNotFound        = errors.New("vault entry not found")
	ErrDistributionNotFound = errors.New("dividend distribution not found")
	ErrInstrumentNotFound   = errors.New("investment instrument not found")
	ErrInvestmentNotFound   = errors.New("instrument investment not found")
	ErrAdminNotFound        = errors.New("admin not found")
)

// Authorization errors.
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when a non-admin calls a privileged operation.
	ErrForbidden = errors.New("forbidden: caller is not an admin")

	// ErrNotOwner is returned when a caller unlocks an entry owned by someone else.
	ErrNotOwner = errors.New("caller does not own this vault entry")

	// ErrTokenInvalid is returned when a token cannot be parsed or its signature
	// does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// State conflicts: the request is well formed but not allowed right now.
var (
	ErrStillLocked               = errors.New("vault entry is still locked")
	ErrAlreadyUnlocked           = errors.New("vault entry is already unlocked")
	ErrAlreadyClaimed            = errors.New("dividend already claimed")
	ErrNotEligible               = errors.New("owner is not eligible for this distribution")
	ErrNoLockedTokens            = errors.New("no locked tokens to distribute against")
	ErrInsufficientPooledBalance = errors.New("insufficient pooled vault balance")
	ErrProductInUse              = errors.New("product is referenced by locked entries")
	ErrInstrumentInUse           = errors.New("instrument has active investments")
	ErrInstrumentNotActive       = errors.New("instrument is not active")
	ErrInvestmentNotActive       = errors.New("investment is not active")
	ErrAdminExists               = errors.New("principal is already an admin")
	ErrLastAdmin                 = errors.New("cannot remove the last admin")
	ErrFaucetCooldown            = errors.New("faucet cooldown has not elapsed")
	ErrFaucetDisabled            = errors.New("faucet is disabled")
)

// Upstream and internal errors.
var (
	// ErrUpstream marks a token ledger call that was rejected or unavailable.
	// Ledger errors are joined with it so the cause stays inspectable.
	ErrUpstream = errors.New("token ledger failure")

	// ErrInvariantViolation signals a programming error such as a negative
	// pooled balance. The offending operation is aborted.
	ErrInvariantViolation = errors.New("internal invariant violation")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrProductNotFound,
	ErrEntryNotFound,
	ErrDistributionNotFound,
	ErrInstrumentNotFound,
	ErrInvestmentNotFound,
	ErrAdminNotFound,
}

var validationErrors = []error{
	ErrInvalidAmount,
	ErrInvalidDuration,
	ErrDurationNotOffered,
	ErrProductInactive,
	ErrInvalidProduct,
	ErrInvalidInstrument,
	ErrInvestmentOutOfRange,
	ErrUnsupportedExitMode,
	ErrInvalidYieldType,
	ErrInsufficientBalance,
	ErrInvalidPrincipal,
}

var conflictErrors = []error{
	ErrStillLocked,
	ErrAlreadyUnlocked,
	ErrAlreadyClaimed,
	ErrNotEligible,
	ErrNoLockedTokens,
	ErrInsufficientPooledBalance,
	ErrProductInUse,
	ErrInstrumentInUse,
	ErrInstrumentNotActive,
	ErrInvestmentNotActive,
	ErrAdminExists,
	ErrLastAdmin,
	ErrFaucetCooldown,
	ErrFaucetDisabled,
}

var authErrors = []error{
	ErrUnauthorized,
	ErrForbidden,
	ErrNotOwner,
	ErrTokenInvalid,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors.
func IsNotFound(err error) bool {
	return isAny(err, notFoundErrors)
}

// IsValidation returns true for caller-correctable errors, including the
// not-found family.
func IsValidation(err error) bool {
	return isAny(err, validationErrors) || IsNotFound(err)
}

// IsConflict returns true for errors that describe a legitimate but currently
// disallowed state transition.
func IsConflict(err error) bool {
	return isAny(err, conflictErrors)
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	return isAny(err, authErrors)
}

// IsUpstream returns true when the token ledger rejected or failed a call.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsInvariant returns true for internal invariant violations.
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
