package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sawirricardo/remix-realworld/internal/account"
	"github.com/sawirricardo/remix-realworld/internal/authz"
	"github.com/sawirricardo/remix-realworld/internal/cache"
	"github.com/sawirricardo/remix-realworld/internal/content"
	"github.com/sawirricardo/remix-realworld/internal/db"
	"github.com/sawirricardo/remix-realworld/internal/identity"
	"github.com/sawirricardo/remix-realworld/internal/session"
	"github.com/sawirricardo/remix-realworld/internal/social"
	"github.com/sawirricardo/remix-realworld/internal/storage"
	"github.com/sawirricardo/remix-realworld/pkg/config"
	"github.com/sawirricardo/remix-realworld/pkg/logging"
	"github.com/sawirricardo/remix-realworld/pkg/telemetry"
)

// Router sets up API routes
type Router struct {
	handler  *JSONRPCHandler
	db       *db.DB
	cache    *cache.Cache
	sessions *session.Manager
	resolver *identity.Resolver
	gate     *authz.Gate
	social   *social.Engine
	content  *content.Service
	account  *account.Service
	cookie   string
	logger   *zap.Logger
}

// NewRouter creates a new API router. database may be nil when store is
// not backed by SQL.
func NewRouter(store storage.Store, database *db.DB, redisCache *cache.Cache, cfg *config.Config) *Router {
	sessions := session.NewManager(&cfg.Session, redisCache)
	resolver := identity.NewResolver(sessions, store, cfg.Session.CookieName)
	contentSvc := content.NewService(store, redisCache, &cfg.Content)

	router := &Router{
		handler:  NewJSONRPCHandler(),
		db:       database,
		cache:    redisCache,
		sessions: sessions,
		resolver: resolver,
		gate:     authz.NewGate(resolver, cfg.Session.LoginPath),
		social:   social.NewEngine(store),
		content:  contentSvc,
		account:  account.NewService(store, sessions, contentSvc),
		cookie:   cfg.Session.CookieName,
		logger:   logging.WithComponent("api-router"),
	}

	router.registerMethods()

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(requestLogger())

	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)
	engine.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))

	app := engine.Group("/", r.gate.Identify())

	// JSON-RPC endpoint
	app.POST("/", r.handler.Handle)

	app.POST("/register", r.register)
	app.POST("/login", r.login)
	app.POST("/logout", r.logout)
	app.GET("/user", r.currentUser)
	app.PUT("/settings", r.updateSettings)

	app.GET("/tags", r.listTags)
	app.GET("/articles", r.listArticles)
	app.POST("/articles", r.createArticle)
	app.GET("/articles/:slug", r.getArticle)
	app.POST("/articles/:slug/comments", r.createComment)
	app.POST("/articles/:slug/favorites", r.toggleFavorite)

	app.GET("/profiles/:name", r.getProfile)
	app.GET("/profiles/:name/favorites", r.getProfileFavorites)
	app.POST("/profiles/:name/followers", r.toggleFollow)
}

// registerMethods registers all JSON-RPC methods
func (r *Router) registerMethods() {
	r.handler.RegisterMethod("conduit.register", r.rpcRegister)
	r.handler.RegisterMethod("conduit.login", r.rpcLogin)
	r.handler.RegisterMethod("conduit.update_settings", r.rpcUpdateSettings)

	r.handler.RegisterMethod("conduit.toggle_follow", r.rpcToggleFollow)
	r.handler.RegisterMethod("conduit.toggle_favorite", r.rpcToggleFavorite)
	r.handler.RegisterMethod("conduit.create_article", r.rpcCreateArticle)
	r.handler.RegisterMethod("conduit.create_comment", r.rpcCreateComment)

	r.handler.RegisterMethod("conduit.list_articles", r.rpcListArticles)
	r.handler.RegisterMethod("conduit.get_article", r.rpcGetArticle)
	r.handler.RegisterMethod("conduit.list_tags", r.rpcListTags)
	r.handler.RegisterMethod("conduit.get_profile", r.rpcGetProfile)
	r.handler.RegisterMethod("conduit.get_profile_favorites", r.rpcGetProfileFavorites)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}

	if r.db != nil {
		checks["database"] = "OK"
		if err := r.db.Health(ctx); err != nil {
			r.logger.Warn("Database health check failed", zap.Error(err))
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if r.cache != nil {
		checks["redis"] = "OK"
		if err := r.cache.Health(ctx); err != nil {
			r.logger.Warn("Redis health check failed", zap.Error(err))
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	label := "OK"
	if status != http.StatusOK {
		label = "DEGRADED"
	}
	c.JSON(status, gin.H{
		"status":  label,
		"service": "conduit-api",
		"checks":  checks,
	})
}
