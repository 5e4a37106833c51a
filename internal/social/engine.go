// Package social toggles follow and favorite edges.
package social

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sawirricardo/remix-realworld/internal/apperr"
	"github.com/sawirricardo/remix-realworld/internal/authz"
	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/internal/storage"
	"github.com/sawirricardo/remix-realworld/pkg/logging"
	"github.com/sawirricardo/remix-realworld/pkg/telemetry"
)

var toggles = telemetry.NewCounter("conduit.toggles", "Follow and favorite toggles by outcome")

// Store is the slice of storage the engine needs
type Store interface {
	storage.Users
	storage.Articles
	storage.Edges
}

// Result of a toggle. Applied is true when the edge now exists.
type Result struct {
	Applied bool `json:"applied"`
}

// Engine flips relationship edges
type Engine struct {
	store  Store
	logger *zap.Logger
}

// NewEngine creates a toggle engine
func NewEngine(store Store) *Engine {
	return &Engine{
		store:  store,
		logger: logging.WithComponent("social"),
	}
}

// ToggleFollow follows targetName, or unfollows when already following
func (e *Engine) ToggleFollow(ctx context.Context, actor *models.User, targetName string) (Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "social.toggle_follow",
		trace.WithAttributes(attribute.String("target", targetName)))
	defer span.End()

	if actor == nil {
		return Result{}, &apperr.NotAuthenticatedError{}
	}
	if actor.Name == targetName {
		return Result{}, e.reject(span, actor, models.EdgeFollow, targetName, apperr.Forbidden("you cannot follow yourself"))
	}

	target, err := e.store.UserByName(ctx, targetName)
	if err != nil {
		return Result{}, e.fail(span, fmt.Errorf("failed to load user %q: %w", targetName, err))
	}
	if target == nil {
		return Result{}, e.reject(span, actor, models.EdgeFollow, targetName, apperr.NotFound("user", targetName))
	}
	if err := authz.ForbidSelf(actor, target.ID, "you cannot follow yourself"); err != nil {
		return Result{}, e.reject(span, actor, models.EdgeFollow, targetName, err)
	}

	return e.toggle(ctx, span, models.EdgeFollow, actor.ID, target.ID)
}

// ToggleFavorite favorites the article, or unfavorites when already favorited
func (e *Engine) ToggleFavorite(ctx context.Context, actor *models.User, slug string) (Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "social.toggle_favorite",
		trace.WithAttributes(attribute.String("slug", slug)))
	defer span.End()

	if actor == nil {
		return Result{}, &apperr.NotAuthenticatedError{}
	}

	article, err := e.store.ArticleBySlug(ctx, slug)
	if err != nil {
		return Result{}, e.fail(span, fmt.Errorf("failed to load article %q: %w", slug, err))
	}
	if article == nil {
		return Result{}, e.reject(span, actor, models.EdgeFavorite, slug, apperr.NotFound("article", slug))
	}
	if err := authz.ForbidSelf(actor, article.UserID, "you cannot favorite your own article"); err != nil {
		return Result{}, e.reject(span, actor, models.EdgeFavorite, slug, err)
	}

	return e.toggle(ctx, span, models.EdgeFavorite, actor.ID, article.ID)
}

// toggle adds the edge when absent and removes it when present. A
// concurrent add that wins the race leaves the edge present, which is
// the state this call was trying to reach.
func (e *Engine) toggle(ctx context.Context, span trace.Span, kind models.EdgeKind, from, to int64) (Result, error) {
	present, err := e.store.HasEdge(ctx, kind, from, to)
	if err != nil {
		return Result{}, e.fail(span, fmt.Errorf("failed to check %s: %w", kind, err))
	}

	var (
		result  Result
		outcome string
	)
	if present {
		if err := e.store.RemoveEdge(ctx, kind, from, to); err != nil {
			return Result{}, e.fail(span, fmt.Errorf("failed to remove %s: %w", kind, err))
		}
		outcome = "reverted"
	} else {
		err := e.store.AddEdge(ctx, kind, from, to)
		switch {
		case storage.IsConflict(err):
			outcome = "raced"
			e.logger.Info("Edge already present, treating as applied",
				zap.Stringer("relation", kind), zap.Int64("from", from), zap.Int64("to", to))
		case err != nil:
			return Result{}, e.fail(span, fmt.Errorf("failed to add %s: %w", kind, err))
		default:
			outcome = "applied"
		}
		result.Applied = true
	}

	toggles.Add(ctx, 1,
		attribute.String("relation", kind.String()),
		attribute.String("outcome", outcome))
	span.SetAttributes(attribute.Bool("applied", result.Applied))

	e.logger.Debug("Toggled edge",
		zap.Stringer("relation", kind),
		zap.Int64("from", from),
		zap.Int64("to", to),
		zap.Bool("applied", result.Applied))

	return result, nil
}

func (e *Engine) reject(span trace.Span, actor *models.User, kind models.EdgeKind, target string, err error) error {
	toggles.Add(context.Background(), 1,
		attribute.String("relation", kind.String()),
		attribute.String("outcome", "rejected"))
	span.SetAttributes(attribute.String("rejected", err.Error()))
	e.logger.Debug("Toggle rejected",
		zap.Stringer("relation", kind),
		zap.Int64("user_id", actor.ID),
		zap.String("target", target),
		zap.Error(err))
	return err
}

func (e *Engine) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Error("Toggle failed", zap.Error(err))
	return err
}
