package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/neurovault/vault/internal/domain"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestVaultEntry_FixedTermMaturity(t *testing.T) {
	e := domain.NewVaultEntry(1, uuid.New(), 1, 1000, domain.Minutes(60), t0)

	if e.UnlockTime == nil || !e.UnlockTime.Equal(t0.Add(time.Hour)) {
		t.Fatalf("UnlockTime = %v, want locked_at + 3600s", e.UnlockTime)
	}
	if e.CanUnlock(t0.Add(3000 * time.Second)) {
		t.Error("CanUnlock at +3000s = true, want false")
	}
	if !e.CanUnlock(t0.Add(time.Hour)) {
		t.Error("CanUnlock at exactly unlock_time = false, want true")
	}

	r := e.ToResponse(t0.Add(3000 * time.Second))
	if r.CanUnlock || r.SecondsRemaining != 600 {
		t.Errorf("ToResponse at +3000s = can_unlock %v, remaining %d; want false, 600", r.CanUnlock, r.SecondsRemaining)
	}
}

func TestVaultEntry_Flexible(t *testing.T) {
	e := domain.NewVaultEntry(1, uuid.New(), 1, 1000, domain.Flexible(), t0)
	if !e.IsFlexible || e.UnlockTime != nil {
		t.Fatalf("flexible entry = %+v", e)
	}
	if !e.CanUnlock(t0) {
		t.Error("flexible entry should be unlockable immediately")
	}
}

func TestVaultEntry_UnlockedCannotUnlock(t *testing.T) {
	e := domain.NewVaultEntry(1, uuid.New(), 1, 1000, domain.Flexible(), t0)
	e.Status = domain.EntryUnlocked
	if e.CanUnlock(t0.Add(time.Hour)) {
		t.Error("unlocked entry reports CanUnlock")
	}
	if e.ToResponse(t0).SecondsRemaining != 0 {
		t.Error("unlocked entry reports seconds remaining")
	}
}

func TestVaultEntry_CloneDoesNotAlias(t *testing.T) {
	e := domain.NewVaultEntry(1, uuid.New(), 1, 1000, domain.Minutes(60), t0)
	c := e.Clone()
	*c.UnlockTime = t0
	if e.UnlockTime.Equal(t0) {
		t.Error("Clone() shares UnlockTime with the original")
	}
}

func TestAccounts(t *testing.T) {
	p := uuid.New()
	if domain.UserAccount(p) == domain.UserAccount(uuid.New()) {
		t.Error("distinct principals share an account")
	}
	accounts := []domain.Account{domain.PoolAccount, domain.UserAccount(p), domain.EscrowAccount(1), domain.CustodyAccount(1)}
	seen := make(map[domain.Account]bool)
	for _, a := range accounts {
		if seen[a] {
			t.Errorf("account %q collides", a)
		}
		seen[a] = true
	}
}
