package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurovault/vault/internal/api/middleware"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/service"
)

// CatalogAdminHandler serves /admin/products and /admin/instruments.
type CatalogAdminHandler struct {
	vault *service.VaultService
}

// NewCatalogAdminHandler creates a CatalogAdminHandler.
func NewCatalogAdminHandler(vault *service.VaultService) *CatalogAdminHandler {
	return &CatalogAdminHandler{vault: vault}
}

// ── Products ──────────────────────────────────────────────────────────────────

// ListProducts godoc
// GET /admin/products
func (h *CatalogAdminHandler) ListProducts(c *gin.Context) {
	page, limit := adminPagination(c)
	products := h.vault.AllProducts(c.Request.Context())
	respondList(c, paginate(products, page, limit), len(products), page, limit)
}

// CreateProduct godoc
// POST /admin/products
// Body: {"name":"Flexible","available_durations":[{"kind":"flexible"}]}
func (h *CatalogAdminHandler) CreateProduct(c *gin.Context) {
	var in domain.ProductInput
	if !bindJSON(c, &in) {
		return
	}

	p, err := h.vault.CreateProduct(c.Request.Context(), middleware.GetPrincipal(c), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, p)
}

// UpdateProduct godoc
// PATCH /admin/products/:id
func (h *CatalogAdminHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var u domain.ProductUpdate
	if !bindJSON(c, &u) {
		return
	}

	p, err := h.vault.UpdateProduct(c.Request.Context(), middleware.GetPrincipal(c), domain.ProductID(id), u)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, p)
}

// DeleteProduct godoc
// DELETE /admin/products/:id
func (h *CatalogAdminHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.vault.DeleteProduct(c.Request.Context(), middleware.GetPrincipal(c), domain.ProductID(id)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"deleted": id})
}

// ── Instruments ───────────────────────────────────────────────────────────────

// CreateInstrument godoc
// POST /admin/instruments
func (h *CatalogAdminHandler) CreateInstrument(c *gin.Context) {
	var in domain.InstrumentInput
	if !bindJSON(c, &in) {
		return
	}

	inst, err := h.vault.CreateInstrument(c.Request.Context(), middleware.GetPrincipal(c), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, inst)
}

// UpdateInstrument godoc
// PATCH /admin/instruments/:id
func (h *CatalogAdminHandler) UpdateInstrument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var u domain.InstrumentUpdate
	if !bindJSON(c, &u) {
		return
	}

	inst, err := h.vault.UpdateInstrument(c.Request.Context(), middleware.GetPrincipal(c), domain.InstrumentID(id), u)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, inst)
}

// DeleteInstrument godoc
// DELETE /admin/instruments/:id
func (h *CatalogAdminHandler) DeleteInstrument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.vault.DeleteInstrument(c.Request.Context(), middleware.GetPrincipal(c), domain.InstrumentID(id)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"deleted": id})
}
