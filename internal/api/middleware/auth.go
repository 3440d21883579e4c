package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/service"
)

// ContextKey constants for gin.Context values set by middleware.
const (
	CtxPrincipal = "principal"
	CtxRole      = "role"
)

// ──────────────────────────────────────────────────────────────────────────────
// JWTMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// JWTMiddleware validates the Bearer token in the Authorization header.
// On success it stores the principal (uuid.UUID) and role (string) in the gin
// context.
func JWTMiddleware(authSvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			abort(c, http.StatusUnauthorized, "ERR_UNAUTHORIZED", domain.ErrUnauthorized.Error())
			return
		}

		claims, err := authSvc.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abort(c, http.StatusUnauthorized, "ERR_TOKEN_INVALID", domain.ErrTokenInvalid.Error())
			return
		}
		principal, err := claims.Principal()
		if err != nil {
			abort(c, http.StatusUnauthorized, "ERR_TOKEN_INVALID", domain.ErrTokenInvalid.Error())
			return
		}

		c.Set(CtxPrincipal, principal)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// AdminMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// AdminChecker reports whether a principal is on the vault's admin list.
type AdminChecker interface {
	IsAdmin(p uuid.UUID) bool
}

// AdminMiddleware allows only principals on the admin list. The role claim is
// not trusted for this. Must be placed after JWTMiddleware in the chain.
func AdminMiddleware(admins AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !admins.IsAdmin(GetPrincipal(c)) {
			abort(c, http.StatusForbidden, "ERR_FORBIDDEN", domain.ErrForbidden.Error())
			return
		}
		c.Next()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetPrincipal retrieves the authenticated principal from the gin context.
// Returns uuid.Nil if the middleware was not applied or the value is missing.
func GetPrincipal(c *gin.Context) uuid.UUID {
	v, exists := c.Get(CtxPrincipal)
	if !exists {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}

// GetRole retrieves the authenticated caller's role claim from the gin context.
func GetRole(c *gin.Context) string {
	v, _ := c.Get(CtxRole)
	r, _ := v.(string)
	return r
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}
