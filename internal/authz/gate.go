// Package authz guards mutating operations. Anonymous callers are deferred
// to the login page with their destination preserved; self-referential
// actions are forbidden.
package authz

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sawirricardo/remix-realworld/internal/apperr"
	"github.com/sawirricardo/remix-realworld/internal/identity"
	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/pkg/logging"
)

const (
	actorKey      = "conduit.actor"
	identifiedKey = "conduit.identified"
)

// Gate consults the identity resolver before mutations
type Gate struct {
	resolver  *identity.Resolver
	loginPath string
	logger    *zap.Logger
}

// NewGate creates a gate redirecting anonymous callers to loginPath
func NewGate(resolver *identity.Resolver, loginPath string) *Gate {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &Gate{
		resolver:  resolver,
		loginPath: loginPath,
		logger:    logging.WithComponent("authz"),
	}
}

// LoginRedirect builds the login location that resumes at target
func (g *Gate) LoginRedirect(target string) string {
	if target == "" {
		return g.loginPath
	}
	return g.loginPath + "?" + url.Values{"redirectTo": {target}}.Encode()
}

// Authorize returns the acting user or a NotAuthenticatedError
func (g *Gate) Authorize(r *http.Request) (*models.User, error) {
	user, err := g.resolver.Resolve(r)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, g.deny(r)
	}
	return user, nil
}

func (g *Gate) deny(r *http.Request) error {
	target := r.URL.RequestURI()
	g.logger.Debug("Deferring anonymous request", zap.String("method", r.Method), zap.String("target", target))
	return &apperr.NotAuthenticatedError{RedirectTo: g.LoginRedirect(target)}
}

// Identify resolves the caller once per request and stores it on the
// gin context. Anonymous requests continue with no actor.
func (g *Gate) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := g.resolver.Resolve(c.Request)
		if err != nil {
			g.logger.Error("Failed to resolve identity", zap.Error(err))
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Set(identifiedKey, true)
		if user != nil {
			c.Set(actorKey, user)
		}
		c.Next()
	}
}

// Actor returns the user stored by Identify, or nil
func Actor(c *gin.Context) *models.User {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// Require returns the acting user for a gated handler
func (g *Gate) Require(c *gin.Context) (*models.User, error) {
	if !c.GetBool(identifiedKey) {
		return g.Authorize(c.Request)
	}
	if user := Actor(c); user != nil {
		return user, nil
	}
	return nil, g.deny(c.Request)
}

// ForbidSelf rejects actions whose target belongs to the actor
func ForbidSelf(actor *models.User, ownerID int64, reason string) error {
	if actor != nil && actor.ID == ownerID {
		return apperr.Forbidden(reason)
	}
	return nil
}
