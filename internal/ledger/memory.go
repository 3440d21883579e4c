package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neurovault/vault/internal/domain"
)

// Memory is a process-local ledger used in development and tests.
type Memory struct {
	mu       sync.Mutex
	name     string
	symbol   string
	decimals uint8
	balances map[domain.Account]int64
	supply   int64
	records  []Record
}

// NewMemory creates an empty ledger for the given token.
func NewMemory(name, symbol string, decimals uint8) *Memory {
	return &Memory{
		name:     name,
		symbol:   symbol,
		decimals: decimals,
		balances: make(map[domain.Account]int64),
	}
}

func (m *Memory) Metadata(ctx context.Context) (domain.TokenInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.TokenInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.TokenInfo{Name: m.name, Symbol: m.symbol, Decimals: m.decimals, TotalSupply: m.supply}, nil
}

func (m *Memory) BalanceOf(ctx context.Context, account domain.Account) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account], nil
}

func (m *Memory) Transfer(ctx context.Context, args TransferArgs) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := args.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[args.From] < args.Amount {
		return ErrInsufficientFunds
	}
	m.balances[args.From] -= args.Amount
	m.balances[args.To] += args.Amount
	m.records = append(m.records, Record{
		ID: uuid.New(), Kind: KindTransfer, From: args.From, To: args.To,
		Amount: args.Amount, Memo: args.Memo, CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *Memory) Mint(ctx context.Context, to domain.Account, amount int64, memo string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrBadAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[to] += amount
	m.supply += amount
	m.records = append(m.records, Record{
		ID: uuid.New(), Kind: KindMint, To: to,
		Amount: amount, Memo: memo, CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Records returns a copy of the audit trail, oldest first.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}
