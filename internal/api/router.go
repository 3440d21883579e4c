package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurovault/vault/internal/api/handler"
	"github.com/neurovault/vault/internal/api/middleware"
	"github.com/neurovault/vault/internal/config"
	"github.com/neurovault/vault/internal/service"
	"github.com/neurovault/vault/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	Ctx     context.Context // bounds background helpers such as limiter eviction
	AuthSvc *service.AuthService
	Vault   *service.VaultService
	Hub     *ws.Hub
	Cfg     *config.Config
}

// SetupRouter creates and configures the public Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	ctx := deps.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	vaultH := handler.NewVaultHandler(deps.Vault)
	divH := handler.NewDividendHandler(deps.Vault)
	catalogH := handler.NewCatalogHandler(deps.Vault)
	accountH := handler.NewAccountHandler(deps.Vault)

	// ── JWT middleware (shared) ──────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)

	// ── Rate limiters ────────────────────────────────────────────────────────
	publicRL := middleware.RateLimitMiddleware(ctx, float64(deps.Cfg.RateLimit.PublicRPS), 0)
	faucetRL := middleware.RateLimitMiddleware(ctx, float64(deps.Cfg.RateLimit.FaucetRPS), 1)

	api := r.Group("/api")
	api.Use(publicRL)
	{
		// ── Public reads ─────────────────────────────────────────────────────
		api.GET("/vault/info", vaultH.Info)
		api.GET("/vault/activity", vaultH.Activity)
		api.GET("/dividends/history", divH.History)
		api.GET("/products", catalogH.ActiveProducts)
		api.GET("/products/all", catalogH.AllProducts)
		api.GET("/instruments", catalogH.Instruments)
		api.GET("/instruments/investments", catalogH.Investments)
		api.GET("/token", accountH.Token)
		api.GET("/admins/:principal", accountH.IsAdmin)

		// ── Authenticated routes ─────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			authed.POST("/vault/lock", vaultH.Lock)
			authed.GET("/vault/entries", vaultH.Entries)
			authed.POST("/vault/entries/:id/unlock", vaultH.Unlock)

			authed.POST("/dividends/:id/claim", divH.Claim)
			authed.GET("/dividends/unclaimed", divH.Unclaimed)

			authed.GET("/token/balance", accountH.Balance)
			authed.GET("/reports/me", accountH.Report)
			authed.POST("/faucet", faucetRL, accountH.Faucet)
		}
	}

	// ── WebSocket ────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ──────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// Outside production all origins are allowed; in production only the
// configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	origins := cfg.Server.OriginList()
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
