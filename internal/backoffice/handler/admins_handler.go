package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/neurovault/vault/internal/api/middleware"
	"github.com/neurovault/vault/internal/service"
)

// AdminsHandler serves /admin/admins.
type AdminsHandler struct {
	vault *service.VaultService
}

// NewAdminsHandler creates an AdminsHandler.
func NewAdminsHandler(vault *service.VaultService) *AdminsHandler {
	return &AdminsHandler{vault: vault}
}

// List godoc
// GET /admin/admins
func (h *AdminsHandler) List(c *gin.Context) {
	admins := h.vault.Admins(c.Request.Context())
	respondList(c, admins, len(admins), 1, len(admins))
}

// Add godoc
// POST /admin/admins
// Body: {"principal":"<uuid>"}
func (h *AdminsHandler) Add(c *gin.Context) {
	var body struct {
		Principal uuid.UUID `json:"principal" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	p := body.Principal
	if err := h.vault.AddAdmin(c.Request.Context(), middleware.GetPrincipal(c), p); err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"principal": p, "is_admin": true})
}

// Remove godoc
// DELETE /admin/admins/:principal
func (h *AdminsHandler) Remove(c *gin.Context) {
	p, ok := parsePrincipal(c, "principal")
	if !ok {
		return
	}
	if err := h.vault.RemoveAdmin(c.Request.Context(), middleware.GetPrincipal(c), p); err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"principal": p, "is_admin": false})
}
