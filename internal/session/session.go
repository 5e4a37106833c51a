// Package session issues and verifies signed session tokens. Revoked token
// ids are remembered in redis until the token would have expired anyway.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sawirricardo/remix-realworld/internal/cache"
	"github.com/sawirricardo/remix-realworld/pkg/config"
	"github.com/sawirricardo/remix-realworld/pkg/logging"
)

var (
	// ErrInvalidToken covers malformed, expired and wrongly signed tokens
	ErrInvalidToken = errors.New("invalid session token")
	// ErrRevoked is returned for tokens that were logged out
	ErrRevoked = errors.New("session revoked")
)

// Claims carried by a session token
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the subject as a user id
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}

// Manager issues, parses and revokes tokens
type Manager struct {
	secret      []byte
	ttl         time.Duration
	rememberTTL time.Duration
	cache       *cache.Cache
	logger      *zap.Logger
	now         func() time.Time
}

// NewManager creates a session manager. A nil cache disables revocation.
func NewManager(cfg *config.SessionConfig, c *cache.Cache) *Manager {
	return &Manager{
		secret:      []byte(cfg.Secret),
		ttl:         cfg.TTL,
		rememberTTL: cfg.RememberTTL,
		cache:       c,
		logger:      logging.WithComponent("session"),
		now:         time.Now,
	}
}

// Issue signs a token for userID. remember selects the long lifetime.
// The returned time is the token expiry.
func (m *Manager) Issue(userID int64, remember bool) (string, time.Time, error) {
	ttl := m.ttl
	if remember {
		ttl = m.rememberTTL
	}
	now := m.now()
	expires := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies token and checks revocation
func (m *Manager) Parse(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	revoked, err := m.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke blacklists the token id until the token expires
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	err := m.cache.Set(ctx, revokedKey(claims.ID), "1", ttl)
	if errors.Is(err, cache.ErrCacheDisabled) {
		m.logger.Debug("Revocation skipped, cache disabled", zap.String("jti", claims.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id was revoked
func (m *Manager) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ok, err := m.cache.Exists(ctx, revokedKey(jti))
	if errors.Is(err, cache.ErrCacheDisabled) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return ok, nil
}

func revokedKey(jti string) string {
	return "session:revoked:" + jti
}
