package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurovault/vault/internal/clock"
	"github.com/neurovault/vault/internal/config"
	"github.com/neurovault/vault/internal/service"
	"github.com/neurovault/vault/internal/ws"
)

// DashboardHandler serves the /admin/dashboard endpoint.
type DashboardHandler struct {
	vault *service.VaultService
	hub   *ws.Hub
	clk   clock.Clock
	cfg   *config.Config
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(vault *service.VaultService, hub *ws.Hub, clk clock.Clock, cfg *config.Config) *DashboardHandler {
	return &DashboardHandler{vault: vault, hub: hub, clk: clk, cfg: cfg}
}

// Dashboard godoc
// GET /admin/dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	// ── Vault ────────────────────────────────────────────────────────────────
	info := h.vault.VaultInfo(ctx)

	// ── Token ────────────────────────────────────────────────────────────────
	var tokenData interface{}
	if token, err := h.vault.TokenInfo(ctx); err == nil {
		tokenData = token
	}

	// ── Pool reconciliation ──────────────────────────────────────────────────
	var driftData gin.H
	if drift, err := h.vault.Reconcile(ctx); err == nil {
		driftData = gin.H{
			"ledger_pool":    drift.LedgerPool,
			"pooled_balance": drift.PooledBalance,
			"delta":          drift.Delta(),
			"status":         driftStatus(drift.Delta()),
		}
	}

	// ── WS connections ───────────────────────────────────────────────────────
	var wsConnections int
	if h.hub != nil {
		wsConnections = h.hub.ConnectedCount()
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"timestamp":      h.clk.Now().UTC(),
		"vault":          info,
		"token":          tokenData,
		"pool":           driftData,
		"faucet_enabled": h.cfg.Faucet.Enabled,
		"ws_connections": wsConnections,
	})
}

// driftStatus returns GREEN when the pool matches the counter, YELLOW when
// the ledger holds more than accounted for and RED when it holds less.
func driftStatus(delta int64) string {
	switch {
	case delta < 0:
		return "RED"
	case delta > 0:
		return "YELLOW"
	default:
		return "GREEN"
	}
}
