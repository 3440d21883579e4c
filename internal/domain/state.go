package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// VaultState
// ──────────────────────────────────────────────────────────────────────────────

// Sequences holds the last id handed out per entity kind.
type Sequences struct {
	Product      uint64
	Entry        uint64
	Distribution uint64
	Instrument   uint64
	Investment   uint64
	Activity     uint64
}

// VaultSettings is the singleton row of vault-wide scalars.
type VaultSettings struct {
	PooledBalance     int64 `json:"pooled_balance"      db:"pooled_balance"`
	LockPeriodMinutes int64 `json:"lock_period_minutes" db:"lock_period_minutes"`
}

// VaultState is every ledger the vault owns. It is not safe for concurrent
// use; the vault service serialises access to it.
type VaultState struct {
	Settings      VaultSettings
	Admins        map[uuid.UUID]struct{}
	Products      map[ProductID]*Product
	Entries       map[EntryID]*VaultEntry
	Distributions map[DistributionID]*DividendDistribution
	Claims        map[ClaimKey]ClaimRecord
	Instruments   map[InstrumentID]*Instrument
	Investments   map[InvestmentID]*Investment
	FaucetGrants  map[uuid.UUID]time.Time
	Activities    []Activity // oldest first
	Seq           Sequences
}

// NewVaultState returns an empty state with the given admins.
func NewVaultState(lockPeriodMinutes int64, admins ...uuid.UUID) *VaultState {
	s := &VaultState{
		Settings:      VaultSettings{LockPeriodMinutes: lockPeriodMinutes},
		Admins:        make(map[uuid.UUID]struct{}),
		Products:      make(map[ProductID]*Product),
		Entries:       make(map[EntryID]*VaultEntry),
		Distributions: make(map[DistributionID]*DividendDistribution),
		Claims:        make(map[ClaimKey]ClaimRecord),
		Instruments:   make(map[InstrumentID]*Instrument),
		Investments:   make(map[InvestmentID]*Investment),
		FaucetGrants:  make(map[uuid.UUID]time.Time),
	}
	for _, a := range admins {
		s.Admins[a] = struct{}{}
	}
	return s
}

// IsAdmin reports whether p is on the admin list.
func (s *VaultState) IsAdmin(p uuid.UUID) bool {
	_, ok := s.Admins[p]
	return ok
}

// AdminList returns the admins in a stable order.
func (s *VaultState) AdminList() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.Admins))
	for a := range s.Admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// TotalLocked sums all Locked entries.
func (s *VaultState) TotalLocked() int64 {
	var total int64
	for _, e := range s.Entries {
		if e.IsLocked() {
			total += e.Amount
		}
	}
	return total
}

// LockedSnapshot groups the Locked entries by owner.
func (s *VaultState) LockedSnapshot() (Snapshot, EntryIDs) {
	snap := make(Snapshot)
	var ids EntryIDs
	for _, e := range s.Entries {
		if !e.IsLocked() {
			continue
		}
		snap[e.Owner] += e.Amount
		ids = append(ids, e.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return snap, ids
}

// ProductInUse reports whether any Locked entry references the product.
func (s *VaultState) ProductInUse(id ProductID) bool {
	for _, e := range s.Entries {
		if e.ProductID == id && e.IsLocked() {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────────────────────────────────────
// Changeset
// ──────────────────────────────────────────────────────────────────────────────

// Changeset is the full set of row writes produced by one vault operation. It
// is persisted in a single transaction and then applied to the in-memory state.
type Changeset struct {
	Settings           *VaultSettings
	Products           []Product
	DeletedProducts    []ProductID
	Entries            []VaultEntry
	Distributions      []DividendDistribution
	Claims             []ClaimRecord
	Instruments        []Instrument
	DeletedInstruments []InstrumentID
	Investments        []Investment
	Activities         []Activity
	AddedAdmins        []uuid.UUID
	RemovedAdmins      []uuid.UUID
	FaucetGrants       []FaucetGrant
}

// Apply writes cs onto the state and keeps at most retain activities
// (retain <= 0 keeps everything).
func (s *VaultState) Apply(cs *Changeset, retain int) {
	if cs.Settings != nil {
		s.Settings = *cs.Settings
	}
	for _, p := range cs.Products {
		p := p.Clone()
		s.Products[p.ID] = &p
		s.Seq.Product = max(s.Seq.Product, uint64(p.ID))
	}
	for _, id := range cs.DeletedProducts {
		delete(s.Products, id)
	}
	for _, e := range cs.Entries {
		e := e.Clone()
		s.Entries[e.ID] = &e
		s.Seq.Entry = max(s.Seq.Entry, uint64(e.ID))
	}
	for _, d := range cs.Distributions {
		d := d.Clone()
		s.Distributions[d.ID] = &d
		s.Seq.Distribution = max(s.Seq.Distribution, uint64(d.ID))
	}
	for _, c := range cs.Claims {
		s.Claims[c.Key()] = c
	}
	for _, i := range cs.Instruments {
		i := i.Clone()
		s.Instruments[i.ID] = &i
		s.Seq.Instrument = max(s.Seq.Instrument, uint64(i.ID))
	}
	for _, id := range cs.DeletedInstruments {
		delete(s.Instruments, id)
	}
	for _, v := range cs.Investments {
		v := v.Clone()
		s.Investments[v.ID] = &v
		s.Seq.Investment = max(s.Seq.Investment, uint64(v.ID))
	}
	for _, a := range cs.AddedAdmins {
		s.Admins[a] = struct{}{}
	}
	for _, a := range cs.RemovedAdmins {
		delete(s.Admins, a)
	}
	for _, g := range cs.FaucetGrants {
		s.FaucetGrants[g.Principal] = g.GrantedAt
	}
	for _, a := range cs.Activities {
		s.Seq.Activity = max(s.Seq.Activity, uint64(a.ID))
	}
	s.Activities = append(s.Activities, cs.Activities...)
	if retain > 0 && len(s.Activities) > retain {
		s.Activities = append([]Activity(nil), s.Activities[len(s.Activities)-retain:]...)
	}
}

// Clone returns a deep copy for read-side projections.
func (s *VaultState) Clone() *VaultState {
	c := NewVaultState(s.Settings.LockPeriodMinutes)
	c.Settings = s.Settings
	c.Seq = s.Seq
	for a := range s.Admins {
		c.Admins[a] = struct{}{}
	}
	for id, p := range s.Products {
		v := p.Clone()
		c.Products[id] = &v
	}
	for id, e := range s.Entries {
		v := e.Clone()
		c.Entries[id] = &v
	}
	for id, d := range s.Distributions {
		v := d.Clone()
		c.Distributions[id] = &v
	}
	for k, r := range s.Claims {
		c.Claims[k] = r
	}
	for id, i := range s.Instruments {
		v := i.Clone()
		c.Instruments[id] = &v
	}
	for id, inv := range s.Investments {
		v := inv.Clone()
		c.Investments[id] = &v
	}
	for p, t := range s.FaucetGrants {
		c.FaucetGrants[p] = t
	}
	c.Activities = append([]Activity(nil), s.Activities...)
	return c
}
