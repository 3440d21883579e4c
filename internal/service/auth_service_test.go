package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurovault/vault/internal/clock"
	"github.com/neurovault/vault/internal/config"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/service"
)

func newAuth(clk clock.Clock, secret string) *service.AuthService {
	return service.NewAuthService(config.JWTConfig{
		AccessSecret: secret,
		AccessTTL:    15 * time.Minute,
		Issuer:       "neurovault",
	}, clk)
}

func TestAuth_IssueAndParse(t *testing.T) {
	clk := clock.NewStub(time.Now().UTC())
	auth := newAuth(clk, "s3cret")
	p := uuid.New()

	tok, err := auth.IssueAccessToken(p, domain.RoleUser)
	require.NoError(t, err)

	claims, err := auth.ParseAccessToken(tok)
	require.NoError(t, err)
	got, err := claims.Principal()
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "neurovault", claims.Issuer)
}

func TestAuth_Rejects(t *testing.T) {
	clk := clock.NewStub(time.Now().UTC())
	auth := newAuth(clk, "s3cret")
	p := uuid.New()

	tok, err := auth.IssueAccessToken(p, domain.RoleAdmin)
	require.NoError(t, err)

	_, err = newAuth(clk, "other").ParseAccessToken(tok)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = auth.ParseAccessToken("not-a-token")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	clk.Advance(16 * time.Minute)
	_, err = auth.ParseAccessToken(tok)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = auth.IssueAccessToken(uuid.Nil, domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrInvalidPrincipal)
	_, err = auth.IssueAccessToken(p, "root")
	assert.Error(t, err)
}
