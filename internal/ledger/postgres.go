package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/neurovault/vault/internal/domain"
)

// Postgres keeps token balances in token_accounts and an audit trail in
// token_transfers. Every movement runs in its own transaction.
type Postgres struct {
	db       *sqlx.DB
	name     string
	symbol   string
	decimals uint8
}

// NewPostgres creates a ledger backed by db.
func NewPostgres(db *sqlx.DB, name, symbol string, decimals uint8) *Postgres {
	return &Postgres{db: db, name: name, symbol: symbol, decimals: decimals}
}

// Metadata returns the static token description plus the summed supply.
func (p *Postgres) Metadata(ctx context.Context) (domain.TokenInfo, error) {
	var supply int64
	err := p.db.GetContext(ctx, &supply, `SELECT COALESCE(SUM(balance), 0) FROM token_accounts`)
	if err != nil {
		return domain.TokenInfo{}, fmt.Errorf("ledger.Metadata: %w", err)
	}
	return domain.TokenInfo{Name: p.name, Symbol: p.symbol, Decimals: p.decimals, TotalSupply: supply}, nil
}

// BalanceOf returns 0 for accounts that have never been credited.
func (p *Postgres) BalanceOf(ctx context.Context, account domain.Account) (int64, error) {
	var bal int64
	err := p.db.GetContext(ctx, &bal, `SELECT balance FROM token_accounts WHERE account = $1`, account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("ledger.BalanceOf: %w", err)
	}
	return bal, nil
}

// Transfer moves args.Amount between two accounts. Both rows are locked in
// account order so concurrent opposite transfers cannot deadlock.
func (p *Postgres) Transfer(ctx context.Context, args TransferArgs) (err error) {
	if err := args.Validate(); err != nil {
		return err
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger.Transfer begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = ensureAccount(ctx, tx, args.To); err != nil {
		return err
	}

	locked := []domain.Account{args.From, args.To}
	sort.Slice(locked, func(i, j int) bool { return locked[i] < locked[j] })
	balances := make(map[domain.Account]int64, 2)
	for _, acct := range locked {
		var bal int64
		if gerr := tx.GetContext(ctx, &bal,
			`SELECT balance FROM token_accounts WHERE account = $1 FOR UPDATE`, acct); gerr != nil {
			if errors.Is(gerr, sql.ErrNoRows) {
				bal = 0
			} else {
				err = fmt.Errorf("ledger.Transfer lock: %w", gerr)
				return err
			}
		}
		balances[acct] = bal
	}

	if balances[args.From] < args.Amount {
		err = ErrInsufficientFunds
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance - $1, updated_at = now() WHERE account = $2`,
		args.Amount, args.From); err != nil {
		return fmt.Errorf("ledger.Transfer debit: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance + $1, updated_at = now() WHERE account = $2`,
		args.Amount, args.To); err != nil {
		return fmt.Errorf("ledger.Transfer credit: %w", err)
	}

	if err = logRecord(ctx, tx, Record{
		ID: uuid.New(), Kind: KindTransfer, From: args.From, To: args.To,
		Amount: args.Amount, Memo: args.Memo, CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ledger.Transfer commit: %w", err)
	}
	return nil
}

// Mint credits amount to an account, creating it if needed.
func (p *Postgres) Mint(ctx context.Context, to domain.Account, amount int64, memo string) (err error) {
	if amount <= 0 {
		return ErrBadAmount
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger.Mint begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO token_accounts (account, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account) DO UPDATE
		SET balance = token_accounts.balance + EXCLUDED.balance, updated_at = now()`,
		to, amount); err != nil {
		return fmt.Errorf("ledger.Mint credit: %w", err)
	}

	if err = logRecord(ctx, tx, Record{
		ID: uuid.New(), Kind: KindMint, To: to,
		Amount: amount, Memo: memo, CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ledger.Mint commit: %w", err)
	}
	return nil
}

func ensureAccount(ctx context.Context, tx *sqlx.Tx, account domain.Account) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO token_accounts (account, balance, updated_at)
		VALUES ($1, 0, now())
		ON CONFLICT (account) DO NOTHING`,
		account)
	if err != nil {
		return fmt.Errorf("ledger.ensureAccount: %w", err)
	}
	return nil
}

func logRecord(ctx context.Context, tx *sqlx.Tx, rec Record) error {
	query := `
		INSERT INTO token_transfers
			(id, kind, from_account, to_account, amount, memo, created_at)
		VALUES
			(:id, :kind, :from_account, :to_account, :amount, :memo, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("ledger.logRecord: %w", err)
	}
	return nil
}
