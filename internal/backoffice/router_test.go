package backoffice_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurovault/vault/internal/backoffice"
	"github.com/neurovault/vault/internal/clock"
	"github.com/neurovault/vault/internal/config"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/ledger"
	"github.com/neurovault/vault/internal/logging"
	"github.com/neurovault/vault/internal/repository"
	"github.com/neurovault/vault/internal/service"
)

type env struct {
	h     http.Handler
	vault *service.VaultService
	auth  *service.AuthService
	led   *ledger.Memory
	admin uuid.UUID
}

func newEnv(t *testing.T, allowedIPs string) *env {
	t.Helper()
	admin := uuid.New()
	cfg := &config.Config{
		Server: config.ServerConfig{Env: "development", BackofficeAllowedIPs: allowedIPs},
		JWT: config.JWTConfig{
			AccessSecret: "backoffice-test-secret-0123456789",
			AccessTTL:    15 * time.Minute,
			Issuer:       "neurovault-test",
		},
		Vault: config.VaultConfig{BootstrapAdmins: []uuid.UUID{admin}, DefaultLockMinutes: 60},
	}
	clk := clock.NewStub(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	led := ledger.NewMemory("USD Test", "USDX", 6)

	vault, err := service.NewVaultService(context.Background(), led, repository.NewMemoryStore(), clk, logging.Nop(), service.SettingsFromConfig(cfg))
	require.NoError(t, err)
	authSvc := service.NewAuthService(cfg.JWT, clk)

	h := backoffice.SetupBackofficeRouter(backoffice.BackofficeDeps{
		AuthSvc: authSvc,
		Vault:   vault,
		Clock:   clk,
		Cfg:     cfg,
	})
	return &env{h: h, vault: vault, auth: authSvc, led: led, admin: admin}
}

func (e *env) do(t *testing.T, who uuid.UUID, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if who != uuid.Nil {
		tok, err := e.auth.IssueAccessToken(who, domain.RoleAdmin)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	e.h.ServeHTTP(rr, req)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m), rr.Body.String())
	return rr.Code, m
}

func TestBackoffice_RequiresAdmin(t *testing.T) {
	e := newEnv(t, "")

	code, _ := e.do(t, uuid.Nil, http.MethodGet, "/admin/dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	// A valid token with an admin role claim is not enough; the admin list decides.
	code, body := e.do(t, uuid.New(), http.MethodGet, "/admin/dashboard", "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "ERR_FORBIDDEN", body["code"])

	code, body = e.do(t, e.admin, http.MethodGet, "/admin/dashboard", "")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "GREEN", data["pool"].(map[string]interface{})["status"])
}

func TestBackoffice_IPWhitelist(t *testing.T) {
	e := newEnv(t, "10.0.0.1")

	// httptest requests originate from 192.0.2.1
	code, body := e.do(t, e.admin, http.MethodGet, "/admin/dashboard", "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "ERR_IP_NOT_ALLOWED", body["code"])
}

func TestBackoffice_DividendFlow(t *testing.T) {
	e := newEnv(t, "")
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	code, body := e.do(t, e.admin, http.MethodPost, "/admin/products",
		`{"name":"Flexible","available_durations":[{"kind":"flexible"}]}`)
	require.Equal(t, http.StatusCreated, code, body)
	productID := domain.ProductID(body["data"].(map[string]interface{})["id"].(float64))

	code, body = e.do(t, e.admin, http.MethodPost, "/admin/dividends", `{"total_amount":300}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ERR_NO_LOCKED_TOKENS", body["code"])

	flex := domain.Flexible()
	for who, amount := range map[uuid.UUID]int64{alice: 100, bob: 200} {
		require.NoError(t, e.led.Mint(ctx, domain.UserAccount(who), amount, "test funding"))
		_, err := e.vault.Lock(ctx, who, service.LockRequest{Amount: amount, ProductID: productID, Duration: &flex})
		require.NoError(t, err)
	}
	require.NoError(t, e.led.Mint(ctx, domain.UserAccount(e.admin), 300, "test funding"))

	code, body = e.do(t, e.admin, http.MethodPost, "/admin/dividends", `{"total_amount":300}`)
	require.Equal(t, http.StatusCreated, code, body)

	code, body = e.do(t, e.admin, http.MethodGet, "/admin/reports/users/"+bob.String(), "")
	require.Equal(t, http.StatusOK, code)
	summary := body["data"].(map[string]interface{})["summary"].(map[string]interface{})
	assert.Equal(t, float64(200), summary["dividends_unclaimed"])

	code, body = e.do(t, e.admin, http.MethodGet, "/admin/activity?limit=2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 2)
	assert.Equal(t, float64(3), body["meta"].(map[string]interface{})["total"])

	code, body = e.do(t, e.admin, http.MethodDelete, fmt.Sprintf("/admin/products/%d", productID), "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ERR_PRODUCT_IN_USE", body["code"])
}

func TestBackoffice_AdminList(t *testing.T) {
	e := newEnv(t, "")
	carol := uuid.New()

	code, _ := e.do(t, e.admin, http.MethodPost, "/admin/admins", `{"principal":"`+carol.String()+`"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, e.vault.IsAdmin(carol))

	code, body := e.do(t, carol, http.MethodGet, "/admin/admins", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 2)

	code, _ = e.do(t, carol, http.MethodDelete, "/admin/admins/"+e.admin.String(), "")
	require.Equal(t, http.StatusOK, code)

	code, body = e.do(t, carol, http.MethodDelete, "/admin/admins/"+carol.String(), "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ERR_LAST_ADMIN", body["code"])
}

func TestBackoffice_LockPeriod(t *testing.T) {
	e := newEnv(t, "")

	code, _ := e.do(t, e.admin, http.MethodPut, "/admin/settings/lock-period", `{"minutes":1440}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1440), e.vault.VaultInfo(context.Background()).LockPeriodMinutes)

	code, body := e.do(t, e.admin, http.MethodPut, "/admin/settings/lock-period", `{"minutes":-1}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ERR_INVALID_DURATION", body["code"])
}
