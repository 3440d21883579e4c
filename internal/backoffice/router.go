package backoffice

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurovault/vault/internal/api/middleware"
	"github.com/neurovault/vault/internal/backoffice/handler"
	"github.com/neurovault/vault/internal/clock"
	"github.com/neurovault/vault/internal/config"
	"github.com/neurovault/vault/internal/service"
	"github.com/neurovault/vault/internal/ws"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	AuthSvc *service.AuthService
	Vault   *service.VaultService
	Hub     *ws.Hub
	Clock   clock.Clock
	Cfg     *config.Config
}

// SetupBackofficeRouter creates the admin Gin engine served on the
// backoffice port.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.AllowedIPList()))

	dashH := handler.NewDashboardHandler(deps.Vault, deps.Hub, clk, deps.Cfg)
	vaultH := handler.NewVaultAdminHandler(deps.Vault)
	catalogH := handler.NewCatalogAdminHandler(deps.Vault)
	invH := handler.NewInvestmentHandler(deps.Vault)
	financeH := handler.NewFinanceHandler(deps.Vault)
	adminsH := handler.NewAdminsHandler(deps.Vault)

	admin := r.Group("/admin")
	admin.Use(middleware.JWTMiddleware(deps.AuthSvc), middleware.AdminMiddleware(deps.Vault))
	{
		admin.GET("/dashboard", dashH.Dashboard)
		admin.GET("/activity", vaultH.Activity)

		// Vault
		admin.POST("/vault/entries/:id/emergency-withdraw", vaultH.EmergencyWithdraw)
		admin.POST("/dividends", vaultH.Distribute)
		admin.PUT("/settings/lock-period", vaultH.SetLockPeriod)

		// Products
		p := admin.Group("/products")
		{
			p.GET("", catalogH.ListProducts)
			p.POST("", catalogH.CreateProduct)
			p.PATCH("/:id", catalogH.UpdateProduct)
			p.DELETE("/:id", catalogH.DeleteProduct)
		}

		// Instruments
		i := admin.Group("/instruments")
		{
			i.POST("", catalogH.CreateInstrument)
			i.PATCH("/:id", catalogH.UpdateInstrument)
			i.DELETE("/:id", catalogH.DeleteInstrument)
			i.POST("/:id/invest", invH.Invest)
		}

		// Investments
		inv := admin.Group("/investments")
		{
			inv.GET("", invH.List)
			inv.GET("/summary", invH.Summary)
			inv.POST("/:id/yield", invH.Yield)
			inv.POST("/:id/exit", invH.Exit)
		}

		// Finance
		admin.GET("/reports", financeH.Report)
		admin.GET("/reports/users/:principal", financeH.UserReport)
		admin.POST("/tokens/transfer", financeH.Transfer)
		admin.GET("/tokens/balances/:principal", financeH.Balance)

		// Admin list
		a := admin.Group("/admins")
		{
			a.GET("", adminsH.List)
			a.POST("", adminsH.Add)
			a.DELETE("/:principal", adminsH.Remove)
		}
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// An empty allowlist means allow all.
func ipWhitelistMiddleware(allowedIPs []string) gin.HandlerFunc {
	if len(allowedIPs) == 0 {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool, len(allowedIPs))
	for _, ip := range allowedIPs {
		allowed[ip] = true
	}

	return func(c *gin.Context) {
		if !allowed[c.ClientIP()] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "access denied: your IP is not whitelisted",
				"code":    "ERR_IP_NOT_ALLOWED",
			})
			return
		}
		c.Next()
	}
}
