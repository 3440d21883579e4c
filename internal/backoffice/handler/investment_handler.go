package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurovault/vault/internal/api/middleware"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/service"
)

// InvestmentHandler serves the pooled-capital endpoints: investing into an
// instrument, posting yield, exiting and the portfolio summary.
type InvestmentHandler struct {
	vault *service.VaultService
}

// NewInvestmentHandler creates an InvestmentHandler.
func NewInvestmentHandler(vault *service.VaultService) *InvestmentHandler {
	return &InvestmentHandler{vault: vault}
}

// Invest godoc
// POST /admin/instruments/:id/invest
// Body: {"amount":1000000}
func (h *InvestmentHandler) Invest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body struct {
		Amount int64 `json:"amount" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}

	invID, err := h.vault.Invest(c.Request.Context(), middleware.GetPrincipal(c), domain.InstrumentID(id), body.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"investment_id": invID})
}

// List godoc
// GET /admin/investments?instrument_id=1&page=1&limit=50
func (h *InvestmentHandler) List(c *gin.Context) {
	var q struct {
		InstrumentID uint64 `form:"instrument_id"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	page, limit := adminPagination(c)
	invs := h.vault.Investments(c.Request.Context(), domain.InstrumentID(q.InstrumentID))
	respondList(c, paginate(invs, page, limit), len(invs), page, limit)
}

// Yield godoc
// POST /admin/investments/:id/yield
// Body: {"amount":5000,"yield_type":{"kind":"staking_rewards"}}
func (h *InvestmentHandler) Yield(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body struct {
		Amount    int64            `json:"amount"     binding:"required"`
		YieldType domain.YieldType `json:"yield_type" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}

	inv, err := h.vault.PostYield(c.Request.Context(), middleware.GetPrincipal(c), domain.InvestmentID(id), body.Amount, body.YieldType)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, inv)
}

// Exit godoc
// POST /admin/investments/:id/exit
// Body: {"mode":"immediate"}; an empty body exits immediately.
func (h *InvestmentHandler) Exit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body struct {
		Mode domain.ExitMode `json:"mode"`
	}
	if c.Request.ContentLength > 0 && !bindJSON(c, &body) {
		return
	}
	if body.Mode == "" {
		body.Mode = domain.ExitImmediate
	}

	returned, err := h.vault.Exit(c.Request.Context(), middleware.GetPrincipal(c), domain.InvestmentID(id), body.Mode)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"investment_id": id, "returned": returned})
}

// Summary godoc
// GET /admin/investments/summary
func (h *InvestmentHandler) Summary(c *gin.Context) {
	sum, err := h.vault.InvestmentSummary(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, sum)
}
