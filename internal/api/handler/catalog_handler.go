package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/service"
)

// CatalogHandler serves the public product and instrument listings.
type CatalogHandler struct {
	vault *service.VaultService
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(vault *service.VaultService) *CatalogHandler {
	return &CatalogHandler{vault: vault}
}

// ActiveProducts godoc
// GET /api/products
func (h *CatalogHandler) ActiveProducts(c *gin.Context) {
	items := h.vault.ActiveProducts(c.Request.Context())
	respondList(c, items, len(items))
}

// AllProducts godoc
// GET /api/products/all
func (h *CatalogHandler) AllProducts(c *gin.Context) {
	items := h.vault.AllProducts(c.Request.Context())
	respondList(c, items, len(items))
}

// Instruments godoc
// GET /api/instruments
func (h *CatalogHandler) Instruments(c *gin.Context) {
	items := h.vault.Instruments(c.Request.Context())
	respondList(c, items, len(items))
}

// Investments godoc
// GET /api/instruments/investments?instrument_id=1
func (h *CatalogHandler) Investments(c *gin.Context) {
	var q struct {
		InstrumentID uint64 `form:"instrument_id"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	items := h.vault.Investments(c.Request.Context(), domain.InstrumentID(q.InstrumentID))
	respondList(c, items, len(items))
}
