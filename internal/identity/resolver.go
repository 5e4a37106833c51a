// Package identity resolves an inbound request to the acting user.
package identity

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/internal/session"
	"github.com/sawirricardo/remix-realworld/pkg/logging"
)

// UserLookup loads users by id
type UserLookup interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
}

// Resolver finds the user behind a session cookie or bearer token
type Resolver struct {
	sessions   *session.Manager
	users      UserLookup
	cookieName string
	logger     *zap.Logger
}

// NewResolver creates a resolver
func NewResolver(sessions *session.Manager, users UserLookup, cookieName string) *Resolver {
	return &Resolver{
		sessions:   sessions,
		users:      users,
		cookieName: cookieName,
		logger:     logging.WithComponent("identity"),
	}
}

// Token extracts the raw session token from r, preferring the
// Authorization header over the cookie.
func (r *Resolver) Token(req *http.Request) string {
	if h := req.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := req.Cookie(r.cookieName); err == nil {
		return c.Value
	}
	return ""
}

// Claims returns the verified claims of the request, or nil
func (r *Resolver) Claims(req *http.Request) *session.Claims {
	token := r.Token(req)
	if token == "" {
		return nil
	}
	claims, err := r.sessions.Parse(req.Context(), token)
	if err != nil {
		r.logger.Debug("Ignoring session", zap.Error(err))
		return nil
	}
	return claims
}

// Resolve returns the acting user or nil. A missing, invalid or revoked
// session is not an error; only storage failures are.
func (r *Resolver) Resolve(req *http.Request) (*models.User, error) {
	claims := r.Claims(req)
	if claims == nil {
		return nil, nil
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, nil
	}
	return r.users.UserByID(req.Context(), id)
}
