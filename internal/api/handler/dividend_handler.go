package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurovault/vault/internal/api/middleware"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/service"
)

// DividendHandler serves dividend claim and history endpoints.
type DividendHandler struct {
	vault *service.VaultService
}

// NewDividendHandler creates a DividendHandler.
func NewDividendHandler(vault *service.VaultService) *DividendHandler {
	return &DividendHandler{vault: vault}
}

// Claim godoc
// POST /api/dividends/:id/claim [JWT]
func (h *DividendHandler) Claim(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	amount, err := h.vault.Claim(c.Request.Context(), middleware.GetPrincipal(c), domain.DistributionID(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"distribution_id": id, "amount": amount})
}

// Unclaimed godoc
// GET /api/dividends/unclaimed [JWT]
func (h *DividendHandler) Unclaimed(c *gin.Context) {
	items := h.vault.UnclaimedFor(c.Request.Context(), middleware.GetPrincipal(c))
	respondList(c, items, len(items))
}

// History godoc
// GET /api/dividends/history
func (h *DividendHandler) History(c *gin.Context) {
	items := h.vault.History(c.Request.Context())
	respondList(c, items, len(items))
}
