package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/neurovault/vault/internal/domain"
)

func TestErrorPredicates_SeeThroughWrapping(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("vault_service.Lock: %w", err) }

	cases := []struct {
		err                                     error
		notFound, validation, conflict, authErr bool
	}{
		{wrap(domain.ErrEntryNotFound), true, true, false, false},
		{wrap(domain.ErrInvalidAmount), false, true, false, false},
		{wrap(domain.ErrStillLocked), false, false, true, false},
		{wrap(domain.ErrNotOwner), false, false, false, true},
		{errors.New("boom"), false, false, false, false},
	}
	for _, tc := range cases {
		if got := domain.IsNotFound(tc.err); got != tc.notFound {
			t.Errorf("IsNotFound(%v) = %v", tc.err, got)
		}
		if got := domain.IsValidation(tc.err); got != tc.validation {
			t.Errorf("IsValidation(%v) = %v", tc.err, got)
		}
		if got := domain.IsConflict(tc.err); got != tc.conflict {
			t.Errorf("IsConflict(%v) = %v", tc.err, got)
		}
		if got := domain.IsAuthError(tc.err); got != tc.authErr {
			t.Errorf("IsAuthError(%v) = %v", tc.err, got)
		}
	}
}

func TestIsUpstream_Joined(t *testing.T) {
	err := errors.Join(domain.ErrUpstream, errors.New("connection refused"))
	if !domain.IsUpstream(fmt.Errorf("vault_service.Unlock: transfer: %w", err)) {
		t.Error("IsUpstream() = false for a joined ledger failure")
	}
	if domain.IsUpstream(domain.ErrInsufficientBalance) {
		t.Error("IsUpstream() = true for a validation error")
	}
	if !domain.IsInvariant(fmt.Errorf("%w: pooled balance negative", domain.ErrInvariantViolation)) {
		t.Error("IsInvariant() = false for a wrapped invariant violation")
	}
}
