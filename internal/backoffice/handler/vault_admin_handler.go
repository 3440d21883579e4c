package handler

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurovault/vault/internal/api/middleware"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/service"
)

// VaultAdminHandler serves privileged vault operations: emergency
// withdrawals, dividend distribution, the default lock period and the
// activity log.
type VaultAdminHandler struct {
	vault *service.VaultService
}

// NewVaultAdminHandler creates a VaultAdminHandler.
func NewVaultAdminHandler(vault *service.VaultService) *VaultAdminHandler {
	return &VaultAdminHandler{vault: vault}
}

// EmergencyWithdraw godoc
// POST /admin/vault/entries/:id/emergency-withdraw
func (h *VaultAdminHandler) EmergencyWithdraw(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	amount, err := h.vault.EmergencyWithdraw(c.Request.Context(), middleware.GetPrincipal(c), domain.EntryID(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"entry_id": id, "amount": amount})
}

// Distribute godoc
// POST /admin/dividends
// Body: {"total_amount":300000000}
func (h *VaultAdminHandler) Distribute(c *gin.Context) {
	var body struct {
		TotalAmount int64 `json:"total_amount" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}

	id, err := h.vault.Distribute(c.Request.Context(), middleware.GetPrincipal(c), body.TotalAmount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"distribution_id": id})
}

// SetLockPeriod godoc
// PUT /admin/settings/lock-period
// Body: {"minutes":1440}
func (h *VaultAdminHandler) SetLockPeriod(c *gin.Context) {
	var body struct {
		Minutes int64 `json:"minutes" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}

	if err := h.vault.SetLockPeriod(c.Request.Context(), middleware.GetPrincipal(c), body.Minutes); err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"lock_period_minutes": body.Minutes})
}

// Activity godoc
// GET /admin/activity?page=1&limit=50
func (h *VaultAdminHandler) Activity(c *gin.Context) {
	page, limit := adminPagination(c)
	acts := h.vault.RecentActivity(c.Request.Context(), math.MaxInt32)
	respondList(c, paginate(acts, page, limit), len(acts), page, limit)
}
