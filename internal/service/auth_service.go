package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/neurovault/vault/internal/clock"
	"github.com/neurovault/vault/internal/config"
	"github.com/neurovault/vault/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// JWT claims
// ──────────────────────────────────────────────────────────────────────────────

// AppClaims extends jwt.RegisteredClaims with application-specific fields.
// Subject carries the caller's principal.
type AppClaims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TokenType string `json:"type"` // always "access"
}

// Principal parses the subject claim.
func (c *AppClaims) Principal() (uuid.UUID, error) {
	p, err := uuid.Parse(c.Subject)
	if err != nil || p == uuid.Nil {
		return uuid.Nil, domain.ErrTokenInvalid
	}
	return p, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthService
// ──────────────────────────────────────────────────────────────────────────────

// AuthService issues and verifies the signed tokens that carry a principal.
// Identity proofing happens upstream; the vault only trusts the signature.
type AuthService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

// NewAuthService creates an AuthService from the JWT config.
func NewAuthService(cfg config.JWTConfig, clk clock.Clock) *AuthService {
	return &AuthService{
		secret: []byte(cfg.AccessSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTTL,
		clock:  clk,
	}
}

// IssueAccessToken signs an access token for principal.
func (s *AuthService) IssueAccessToken(principal uuid.UUID, role domain.UserRole) (string, error) {
	if principal == uuid.Nil {
		return "", domain.ErrInvalidPrincipal
	}
	if !role.IsValid() {
		return "", fmt.Errorf("auth_service.IssueAccessToken: unknown role %q", role)
	}

	now := s.clock.Now().UTC()
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
		Role:      string(role),
		TokenType: "access",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth_service.IssueAccessToken: sign: %w", err)
	}
	return signed, nil
}

// parseToken validates the token signature, algorithm, issuer and expiry.
func (s *AuthService) parseToken(tokenString string) (*AppClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	tok, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return nil, domain.ErrTokenInvalid
	}
	claims, ok := tok.Claims.(*AppClaims)
	if !ok || claims.TokenType != "access" {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

// ParseAccessToken is exported for use by the JWT middleware and the WS hub.
func (s *AuthService) ParseAccessToken(tokenString string) (*AppClaims, error) {
	return s.parseToken(tokenString)
}
