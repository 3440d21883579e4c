package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurovault/vault/internal/api/middleware"
	"github.com/neurovault/vault/internal/service"
)

// AccountHandler serves token introspection, the caller's balance and report,
// the faucet and admin lookups.
type AccountHandler struct {
	vault *service.VaultService
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(vault *service.VaultService) *AccountHandler {
	return &AccountHandler{vault: vault}
}

// Token godoc
// GET /api/token
func (h *AccountHandler) Token(c *gin.Context) {
	info, err := h.vault.TokenInfo(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, info)
}

// Balance godoc
// GET /api/token/balance [JWT]
func (h *AccountHandler) Balance(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	bal, err := h.vault.Balance(c.Request.Context(), p)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"principal": p, "balance": bal})
}

// Faucet godoc
// POST /api/faucet [JWT]
func (h *AccountHandler) Faucet(c *gin.Context) {
	res, err := h.vault.Faucet(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, res)
}

// Report godoc
// GET /api/reports/me [JWT]
func (h *AccountHandler) Report(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.vault.UserReport(c.Request.Context(), middleware.GetPrincipal(c)))
}

// IsAdmin godoc
// GET /api/admins/:principal
func (h *AccountHandler) IsAdmin(c *gin.Context) {
	p, ok := ParsePrincipal(c, "principal")
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"principal": p, "is_admin": h.vault.IsAdmin(p)})
}
