package domain

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// UserRole
// ──────────────────────────────────────────────────────────────────────────────

// UserRole is the role claim carried in access tokens. Admin authority for
// privileged vault calls comes from the vault's admin list, not from this claim.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// IsValid returns true for the known roles.
func (r UserRole) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ──────────────────────────────────────────────────────────────────────────────
// Faucet
// ──────────────────────────────────────────────────────────────────────────────

// FaucetGrant records the last time a principal received test tokens.
type FaucetGrant struct {
	Principal uuid.UUID `json:"principal"  db:"principal"`
	Amount    int64     `json:"amount"     db:"amount"`
	GrantedAt time.Time `json:"granted_at" db:"granted_at"`
}

// FaucetResult is returned to the caller of the faucet.
type FaucetResult struct {
	Amount        int64     `json:"amount"`
	NextAllowedAt time.Time `json:"next_allowed_at"`
}

// TokenInfo describes the token the vault custodies.
type TokenInfo struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply int64  `json:"total_supply"`
}
