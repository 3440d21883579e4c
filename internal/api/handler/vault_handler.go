package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurovault/vault/internal/api/middleware"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/service"
)

// VaultHandler serves lock, unlock and vault read endpoints.
type VaultHandler struct {
	vault *service.VaultService
}

// NewVaultHandler creates a VaultHandler.
func NewVaultHandler(vault *service.VaultService) *VaultHandler {
	return &VaultHandler{vault: vault}
}

// Lock godoc
// POST /api/vault/lock [JWT]
// Body: {"amount":1000000,"product_id":1,"duration":{"kind":"minutes","minutes":60}}
func (h *VaultHandler) Lock(c *gin.Context) {
	var req service.LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	id, err := h.vault.Lock(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"entry_id": id})
}

// Unlock godoc
// POST /api/vault/entries/:id/unlock [JWT]
func (h *VaultHandler) Unlock(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	amount, err := h.vault.Unlock(c.Request.Context(), middleware.GetPrincipal(c), domain.EntryID(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"entry_id": id, "amount": amount})
}

// Info godoc
// GET /api/vault/info
func (h *VaultHandler) Info(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.vault.VaultInfo(c.Request.Context()))
}

// Entries godoc
// GET /api/vault/entries [JWT]
func (h *VaultHandler) Entries(c *gin.Context) {
	entries := h.vault.UserEntries(c.Request.Context(), middleware.GetPrincipal(c))
	respondList(c, entries, len(entries))
}

// Activity godoc
// GET /api/vault/activity?limit=20
func (h *VaultHandler) Activity(c *gin.Context) {
	var q struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	acts := h.vault.RecentActivity(c.Request.Context(), q.Limit)
	respondList(c, acts, len(acts))
}
