package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Identifiers
// ──────────────────────────────────────────────────────────────────────────────

// Sequential identifiers, allocated by the vault service.
type (
	ProductID      uint64
	EntryID        uint64
	DistributionID uint64
	InstrumentID   uint64
	InvestmentID   uint64
	ActivityID     uint64
)

// ──────────────────────────────────────────────────────────────────────────────
// Ledger accounts
// ──────────────────────────────────────────────────────────────────────────────

// Account names a balance on the token ledger.
type Account string

// PoolAccount is the vault's custody account for all locked funds.
const PoolAccount Account = "vault:pool"

// UserAccount returns the ledger account of a principal.
func UserAccount(principal uuid.UUID) Account {
	return Account("user:" + principal.String())
}

// EscrowAccount returns the account holding the unclaimed funds of one
// dividend distribution.
func EscrowAccount(id DistributionID) Account {
	return Account(fmt.Sprintf("dividend:escrow:%d", id))
}

// CustodyAccount returns the account holding the capital of one instrument
// investment while it is deployed.
func CustodyAccount(id InvestmentID) Account {
	return Account(fmt.Sprintf("instrument:custody:%d", id))
}
