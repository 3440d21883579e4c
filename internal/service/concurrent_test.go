package service_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/service"
)

// TestConcurrentClaim fires the same claim from many goroutines: exactly one
// must pay out, the rest must see ErrAlreadyClaimed.
func TestConcurrentClaim(t *testing.T) {
	const workers = 20

	h := newHarness(t)
	alice := uuid.New()
	h.fund(t, alice, 100)
	h.fund(t, h.admin, 1000)
	p := h.product(t, "Flex", domain.Flexible())
	h.lock(t, alice, p, 100, domain.Flexible())
	dist, err := h.svc.Distribute(h.ctx, h.admin, 1000)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}

	var (
		wins, dupes, other int64
		wg                 sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Claim(h.ctx, alice, dist)
			switch {
			case err == nil:
				atomic.AddInt64(&wins, 1)
			case errors.Is(err, domain.ErrAlreadyClaimed):
				atomic.AddInt64(&dupes, 1)
			default:
				atomic.AddInt64(&other, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("exactly 1 claim should succeed, got %d", wins)
	}
	if dupes != workers-1 {
		t.Errorf("expected %d AlreadyClaimed, got %d (other errors: %d)", workers-1, dupes, other)
	}
	if bal := h.balance(t, domain.UserAccount(alice)); bal != 1000 {
		t.Errorf("alice should hold exactly one payout, got %d", bal)
	}
}

// TestConcurrentUnlock races owner unlocks against admin emergency
// withdrawals on one entry: only one release may happen.
func TestConcurrentUnlock(t *testing.T) {
	const workers = 20

	h := newHarness(t)
	alice := uuid.New()
	h.fund(t, alice, 100)
	p := h.product(t, "Flex", domain.Flexible())
	id := h.lock(t, alice, p, 100, domain.Flexible())

	var (
		wins, rejected int64
		wg             sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = h.svc.Unlock(h.ctx, alice, id)
			} else {
				_, err = h.svc.EmergencyWithdraw(h.ctx, h.admin, id)
			}
			if err == nil {
				atomic.AddInt64(&wins, 1)
				return
			}
			if errors.Is(err, domain.ErrAlreadyUnlocked) {
				atomic.AddInt64(&rejected, 1)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("exactly 1 release should succeed, got %d", wins)
	}
	if rejected != workers-1 {
		t.Errorf("expected %d AlreadyUnlocked, got %d", workers-1, rejected)
	}
	if bal := h.balance(t, domain.UserAccount(alice)); bal != 100 {
		t.Errorf("alice balance should be 100, got %d", bal)
	}
}

// TestConcurrentInvest checks that parallel investments never overdraw the
// pooled balance.
func TestConcurrentInvest(t *testing.T) {
	const workers = 30

	h := newHarness(t)
	alice := uuid.New()
	h.fund(t, alice, 1000)
	p := h.product(t, "Flex", domain.Flexible())
	h.lock(t, alice, p, 1000, domain.Flexible())
	inst := h.instrument(t, 0)

	var (
		wins int64
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.Invest(h.ctx, h.admin, inst, 100); err == nil {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 10 {
		t.Errorf("expected 10 investments of 100 to fit in 1000, got %d", wins)
	}
	if pooled := h.svc.VaultInfo(h.ctx).PooledBalance; pooled != 0 {
		t.Errorf("pooled balance should be 0, got %d", pooled)
	}
}

// TestConcurrentLockAndDistribute takes snapshots while locks land; every
// distribution must match the locked total at its instant.
func TestConcurrentLockAndDistribute(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, "Flex", domain.Flexible())
	h.fund(t, h.admin, 1_000_000)
	owners := make([]uuid.UUID, 10)
	for i := range owners {
		owners[i] = uuid.New()
		h.fund(t, owners[i], 100)
	}
	h.lock(t, owners[0], p, 1, domain.Flexible())

	var wg sync.WaitGroup
	for _, o := range owners {
		wg.Add(1)
		go func(o uuid.UUID) {
			defer wg.Done()
			flex := domain.Flexible()
			for j := 0; j < 5; j++ {
				if _, err := h.svc.Lock(h.ctx, o, service.LockRequest{Amount: 10, ProductID: p, Duration: &flex}); err != nil {
					t.Errorf("lock: %v", err)
				}
			}
		}(o)
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.svc.Distribute(h.ctx, h.admin, 1000)
		}()
	}
	wg.Wait()

	for _, d := range h.svc.History(h.ctx) {
		if d.SnapshotTotal != d.Snapshot.Total() {
			t.Errorf("distribution %d: snapshot total %d != sum %d", d.ID, d.SnapshotTotal, d.Snapshot.Total())
		}
		fromEntries := int64(len(d.Entries))
		// One seed entry of 1 plus some number of 10-unit entries.
		if (d.SnapshotTotal-1)%10 != 0 || (d.SnapshotTotal-1)/10 != fromEntries-1 {
			t.Errorf("distribution %d: snapshot %d inconsistent with %d entries", d.ID, d.SnapshotTotal, fromEntries)
		}
	}
}
