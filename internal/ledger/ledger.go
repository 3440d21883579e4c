// Package ledger defines the token ledger capability the vault consumes and
// provides an in-memory and a PostgreSQL implementation of it.
//
// The vault never reimplements settlement: it only asks the ledger for
// balances, transfers between accounts and mints. Every call either fully
// succeeds or leaves balances untouched.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/neurovault/vault/internal/domain"
)

// Ledger errors.
var (
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrBadAmount         = errors.New("ledger: amount must be positive")
	ErrSameAccount       = errors.New("ledger: source and destination are the same account")
)

// TokenLedger is the capability boundary of the fungible-token ledger.
type TokenLedger interface {
	// Metadata returns name, symbol, decimals and total supply.
	Metadata(ctx context.Context) (domain.TokenInfo, error)
	BalanceOf(ctx context.Context, account domain.Account) (int64, error)
	Transfer(ctx context.Context, args TransferArgs) error
	Mint(ctx context.Context, to domain.Account, amount int64, memo string) error
}

// TransferArgs describes one movement between accounts.
type TransferArgs struct {
	From   domain.Account
	To     domain.Account
	Amount int64
	Memo   string
}

// Validate checks the amount and the account pair.
func (a TransferArgs) Validate() error {
	if a.Amount <= 0 {
		return ErrBadAmount
	}
	if a.From == a.To {
		return ErrSameAccount
	}
	return nil
}

// Reverse returns the movement that undoes a.
func (a TransferArgs) Reverse(memo string) TransferArgs {
	return TransferArgs{From: a.To, To: a.From, Amount: a.Amount, Memo: memo}
}

// TransferKind distinguishes audit records.
type TransferKind string

const (
	KindTransfer TransferKind = "transfer"
	KindMint     TransferKind = "mint"
)

// Record is the immutable audit row written for every ledger movement.
type Record struct {
	ID        uuid.UUID      `json:"id"           db:"id"`
	Kind      TransferKind   `json:"kind"         db:"kind"`
	From      domain.Account `json:"from_account" db:"from_account"` // empty for mints
	To        domain.Account `json:"to_account"   db:"to_account"`
	Amount    int64          `json:"amount"       db:"amount"`
	Memo      string         `json:"memo"         db:"memo"`
	CreatedAt time.Time      `json:"created_at"   db:"created_at"`
}
