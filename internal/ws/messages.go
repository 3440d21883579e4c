// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs pushed to connected clients.
package ws

import (
	"time"

	"github.com/neurovault/vault/internal/domain"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeActivity   MsgType = "activity"
	MsgTypeVaultStats MsgType = "vault_stats"
	MsgTypeError      MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// ActivityMessage: pushed after every recorded vault event.
// ──────────────────────────────────────────────────────────────────────────────

// ActivityMessage carries one lock, unlock, claim or distribution event.
type ActivityMessage struct {
	Type      MsgType         `json:"type"`
	Activity  domain.Activity `json:"activity"`
	Timestamp time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// VaultStatsMessage: pushed periodically by the stats loop.
// ──────────────────────────────────────────────────────────────────────────────

// VaultStatsMessage is a snapshot of the vault totals.
type VaultStatsMessage struct {
	Type      MsgType          `json:"type"`
	Vault     domain.VaultInfo `json:"vault"`
	Online    int              `json:"online"`
	Timestamp time.Time        `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage: sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
