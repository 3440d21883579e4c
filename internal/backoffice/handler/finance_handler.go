package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/neurovault/vault/internal/api/middleware"
	"github.com/neurovault/vault/internal/service"
)

// FinanceHandler serves /admin/reports and token movements made by admins.
type FinanceHandler struct {
	vault *service.VaultService
}

// NewFinanceHandler creates a FinanceHandler.
func NewFinanceHandler(vault *service.VaultService) *FinanceHandler {
	return &FinanceHandler{vault: vault}
}

// Report godoc
// GET /admin/reports
func (h *FinanceHandler) Report(c *gin.Context) {
	rep, err := h.vault.AdminReport(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, rep)
}

// UserReport godoc
// GET /admin/reports/users/:principal
func (h *FinanceHandler) UserReport(c *gin.Context) {
	p, ok := parsePrincipal(c, "principal")
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, h.vault.UserReport(c.Request.Context(), p))
}

// Transfer godoc
// POST /admin/tokens/transfer
// Body: {"to":"<uuid>","amount":1000000}
func (h *FinanceHandler) Transfer(c *gin.Context) {
	var body struct {
		To     uuid.UUID `json:"to"     binding:"required"`
		Amount int64     `json:"amount" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}

	if err := h.vault.AdminTransfer(c.Request.Context(), middleware.GetPrincipal(c), body.To, body.Amount); err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"to": body.To, "amount": body.Amount})
}

// Balance godoc
// GET /admin/tokens/balances/:principal
func (h *FinanceHandler) Balance(c *gin.Context) {
	p, ok := parsePrincipal(c, "principal")
	if !ok {
		return
	}

	bal, err := h.vault.Balance(c.Request.Context(), p)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"principal": p, "balance": bal})
}
