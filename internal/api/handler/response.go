package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/neurovault/vault/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {"total": n}}.
func respondList(c *gin.Context, items interface{}, total int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta":    gin.H{"total": total},
	})
}

// respondServiceError maps a service error onto the envelope.
func respondServiceError(c *gin.Context, err error) {
	status, code := ErrorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	respondError(c, status, code, msg)
}

// ──────────────────────────────────────────────────────────────────────────────
// Error mapping
// ──────────────────────────────────────────────────────────────────────────────

var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrInvalidAmount, "ERR_INVALID_AMOUNT"},
	{domain.ErrInvalidDuration, "ERR_INVALID_DURATION"},
	{domain.ErrDurationNotOffered, "ERR_DURATION_NOT_OFFERED"},
	{domain.ErrProductInactive, "ERR_PRODUCT_INACTIVE"},
	{domain.ErrInvalidProduct, "ERR_INVALID_PRODUCT"},
	{domain.ErrInvalidInstrument, "ERR_INVALID_INSTRUMENT"},
	{domain.ErrInvestmentOutOfRange, "ERR_INVESTMENT_OUT_OF_RANGE"},
	{domain.ErrUnsupportedExitMode, "ERR_UNSUPPORTED_EXIT_MODE"},
	{domain.ErrInvalidYieldType, "ERR_INVALID_YIELD_TYPE"},
	{domain.ErrInsufficientBalance, "ERR_INSUFFICIENT_BALANCE"},
	{domain.ErrInvalidPrincipal, "ERR_INVALID_PRINCIPAL"},
	{domain.ErrProductNotFound, "ERR_PRODUCT_NOT_FOUND"},
	{domain.ErrEntryNotFound, "ERR_ENTRY_NOT_FOUND"},
	{domain.ErrDistributionNotFound, "ERR_DISTRIBUTION_NOT_FOUND"},
	{domain.ErrInstrumentNotFound, "ERR_INSTRUMENT_NOT_FOUND"},
	{domain.ErrInvestmentNotFound, "ERR_INVESTMENT_NOT_FOUND"},
	{domain.ErrAdminNotFound, "ERR_ADMIN_NOT_FOUND"},
	{domain.ErrUnauthorized, "ERR_UNAUTHORIZED"},
	{domain.ErrTokenInvalid, "ERR_TOKEN_INVALID"},
	{domain.ErrForbidden, "ERR_FORBIDDEN"},
	{domain.ErrNotOwner, "ERR_NOT_OWNER"},
	{domain.ErrStillLocked, "ERR_STILL_LOCKED"},
	{domain.ErrAlreadyUnlocked, "ERR_ALREADY_UNLOCKED"},
	{domain.ErrAlreadyClaimed, "ERR_ALREADY_CLAIMED"},
	{domain.ErrNotEligible, "ERR_NOT_ELIGIBLE"},
	{domain.ErrNoLockedTokens, "ERR_NO_LOCKED_TOKENS"},
	{domain.ErrInsufficientPooledBalance, "ERR_INSUFFICIENT_POOLED_BALANCE"},
	{domain.ErrProductInUse, "ERR_PRODUCT_IN_USE"},
	{domain.ErrInstrumentInUse, "ERR_INSTRUMENT_IN_USE"},
	{domain.ErrInstrumentNotActive, "ERR_INSTRUMENT_NOT_ACTIVE"},
	{domain.ErrInvestmentNotActive, "ERR_INVESTMENT_NOT_ACTIVE"},
	{domain.ErrAdminExists, "ERR_ADMIN_EXISTS"},
	{domain.ErrLastAdmin, "ERR_LAST_ADMIN"},
	{domain.ErrFaucetCooldown, "ERR_FAUCET_COOLDOWN"},
	{domain.ErrFaucetDisabled, "ERR_FAUCET_DISABLED"},
}

// ErrorStatus returns the HTTP status and envelope code for a service error.
// Invariant violations and upstream failures win over anything they wrap.
func ErrorStatus(err error) (int, string) {
	switch {
	case domain.IsInvariant(err):
		return http.StatusInternalServerError, "ERR_INTERNAL"
	case domain.IsUpstream(err):
		return http.StatusBadGateway, "ERR_UPSTREAM"
	}

	code := "ERR_INTERNAL"
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			code = ec.code
			break
		}
	}

	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrTokenInvalid):
		return http.StatusUnauthorized, code
	case domain.IsAuthError(err):
		return http.StatusForbidden, code
	case domain.IsNotFound(err):
		return http.StatusNotFound, code
	case domain.IsConflict(err):
		return http.StatusConflict, code
	case domain.IsValidation(err):
		return http.StatusBadRequest, code
	default:
		return http.StatusInternalServerError, "ERR_INTERNAL"
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Path params
// ──────────────────────────────────────────────────────────────────────────────

// ParseID reads a positive numeric path parameter.
func ParseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid "+name)
		return 0, false
	}
	return id, true
}

// ParsePrincipal reads a principal path parameter.
func ParsePrincipal(c *gin.Context, name string) (uuid.UUID, bool) {
	p, err := uuid.Parse(c.Param(name))
	if err != nil || p == uuid.Nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PRINCIPAL", "invalid "+name)
		return uuid.Nil, false
	}
	return p, true
}

// RespondServiceError is respondServiceError for sibling handler packages.
func RespondServiceError(c *gin.Context, err error) { respondServiceError(c, err) }
