// Package content creates articles and comments and serves the article
// and tag read views.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sawirricardo/remix-realworld/internal/apperr"
	"github.com/sawirricardo/remix-realworld/internal/cache"
	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/internal/slug"
	"github.com/sawirricardo/remix-realworld/internal/storage"
	"github.com/sawirricardo/remix-realworld/pkg/config"
	"github.com/sawirricardo/remix-realworld/pkg/logging"
	"github.com/sawirricardo/remix-realworld/pkg/telemetry"
)

const tagsCacheKey = "tags"

// ArticleInput is the payload of CreateArticle
type ArticleInput struct {
	Title    string   `json:"title" form:"title" validate:"min=3,max=100"`
	Excerpt  string   `json:"excerpt" form:"excerpt" validate:"omitempty,min=3,max=100"`
	Content  string   `json:"content" form:"content" validate:"min=3,max=1000"`
	TagNames []string `json:"tags" form:"tags" validate:"dive,max=64"`
}

// CommentInput is the payload of CreateComment
type CommentInput struct {
	Content string `json:"content" form:"content" validate:"required"`
}

// Service implements content mutations and queries
type Service struct {
	store       storage.Store
	writer      storage.ArticleWriter
	slugs       *slug.Generator
	cache       *cache.Cache
	maxAttempts int
	tagTTL      time.Duration
	logger      *zap.Logger
}

// NewService creates a content service. c may be nil.
func NewService(store storage.Store, c *cache.Cache, cfg *config.ContentConfig) *Service {
	attempts := cfg.SlugMaxInsertAttempts
	if attempts <= 0 {
		attempts = 1
	}
	writer, _ := store.(storage.ArticleWriter)
	return &Service{
		store:       store,
		writer:      writer,
		slugs:       slug.NewGenerator(store, cfg.SlugSuffixMode),
		cache:       c,
		maxAttempts: attempts,
		tagTTL:      cfg.TagCacheTTL,
		logger:      logging.WithComponent("content"),
	}
}

// CleanTags trims names, drops empties and collapses duplicates keeping
// the first occurrence.
func CleanTags(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// CreateArticle validates in, assigns a unique slug, stores the article
// and attaches its tags. Nothing is written when validation fails.
func (s *Service) CreateArticle(ctx context.Context, actor *models.User, in ArticleInput) (*models.Article, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.create_article")
	defer span.End()

	if actor == nil {
		return nil, &apperr.NotAuthenticatedError{}
	}

	in.TagNames = CleanTags(in.TagNames)
	if err := apperr.Validate(in); err != nil {
		s.logger.Debug("Article rejected", zap.Int64("user_id", actor.ID), zap.Error(err))
		return nil, err
	}

	article, err := s.insertArticle(ctx, actor, in)
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("slug", article.Slug))

	if len(in.TagNames) > 0 {
		if s.writer == nil {
			if err := s.store.AttachTags(ctx, article.ID, in.TagNames); err != nil {
				return nil, s.fail(span, fmt.Errorf("failed to attach tags to %q: %w", article.Slug, err))
			}
		}
		s.invalidateTags(ctx)
	}

	s.logger.Info("Article created",
		zap.Int64("user_id", actor.ID),
		zap.String("slug", article.Slug),
		zap.Strings("tags", in.TagNames))

	created, err := s.store.ArticleBySlug(ctx, article.Slug)
	if err != nil || created == nil {
		article.Author = actor
		return article, nil
	}
	return created, nil
}

// insertArticle retries when another writer takes the slug between the
// lookup and the insert. Stores implementing storage.ArticleWriter get the
// tags in the same transaction.
func (s *Service) insertArticle(ctx context.Context, actor *models.User, in ArticleInput) (*models.Article, error) {
	for attempt := 1; ; attempt++ {
		candidate, err := s.slugs.Generate(ctx, in.Title)
		if err != nil {
			return nil, err
		}

		article := &models.Article{
			Slug:    candidate,
			Title:   in.Title,
			Excerpt: sql.NullString{String: in.Excerpt, Valid: in.Excerpt != ""},
			Content: in.Content,
			UserID:  actor.ID,
		}
		if s.writer != nil {
			err = s.writer.CreateArticleWithTags(ctx, article, in.TagNames)
		} else {
			err = s.store.CreateArticle(ctx, article)
		}
		if err == nil {
			return article, nil
		}
		if !storage.IsConflict(err) {
			return nil, fmt.Errorf("failed to create article: %w", err)
		}
		if attempt >= s.maxAttempts {
			return nil, fmt.Errorf("slug %q still taken after %d attempts: %w", candidate, attempt, apperr.ErrConflict)
		}
		s.logger.Warn("Slug taken at insert, retrying",
			zap.String("slug", candidate),
			zap.Int("attempt", attempt))
	}
}

// CreateComment adds a comment by actor to the article with slug
func (s *Service) CreateComment(ctx context.Context, actor *models.User, articleSlug string, in CommentInput) (*models.Comment, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.create_comment",
		trace.WithAttributes(attribute.String("slug", articleSlug)))
	defer span.End()

	if actor == nil {
		return nil, &apperr.NotAuthenticatedError{}
	}
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}

	article, err := s.store.ArticleBySlug(ctx, articleSlug)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("failed to load article %q: %w", articleSlug, err))
	}
	if article == nil {
		return nil, apperr.NotFound("article", articleSlug)
	}

	comment := &models.Comment{
		Content:   in.Content,
		UserID:    actor.ID,
		ArticleID: article.ID,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, s.fail(span, fmt.Errorf("failed to create comment: %w", err))
	}
	comment.Author = actor
	comment.Article = article

	s.logger.Info("Comment created",
		zap.Int64("user_id", actor.ID),
		zap.String("slug", articleSlug),
		zap.Int64("comment_id", comment.ID))

	return comment, nil
}

// ListArticles returns articles newest first as seen by viewer
func (s *Service) ListArticles(ctx context.Context, viewer *models.User, filter storage.ArticleFilter) ([]ArticleView, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.list_articles")
	defer span.End()

	articles, err := s.store.ListArticles(ctx, filter)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("failed to list articles: %w", err))
	}

	views := make([]ArticleView, 0, len(articles))
	for _, a := range articles {
		view, err := s.articleView(ctx, viewer, a)
		if err != nil {
			return nil, s.fail(span, err)
		}
		views = append(views, view)
	}
	return views, nil
}

// GetArticle returns the article page for slug
func (s *Service) GetArticle(ctx context.Context, viewer *models.User, articleSlug string) (*ArticleDetail, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.get_article")
	defer span.End()

	article, err := s.store.ArticleBySlug(ctx, articleSlug)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("failed to load article %q: %w", articleSlug, err))
	}
	if article == nil {
		return nil, apperr.NotFound("article", articleSlug)
	}

	view, err := s.articleView(ctx, viewer, article)
	if err != nil {
		return nil, s.fail(span, err)
	}

	comments, err := s.store.CommentsByArticle(ctx, article.ID)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("failed to load comments: %w", err))
	}

	detail := &ArticleDetail{ArticleView: view, Comments: make([]CommentView, 0, len(comments))}
	for _, c := range comments {
		cv := CommentView{ID: c.ID, Content: c.Content, CreatedAt: c.CreatedAt}
		if c.Author != nil {
			cv.Author = AuthorView{Name: c.Author.Name, Image: c.Author.Image.String}
		}
		detail.Comments = append(detail.Comments, cv)
	}
	return detail, nil
}

// ListTags returns every tag name, served from the cache when possible
func (s *Service) ListTags(ctx context.Context) ([]string, error) {
	var names []string
	err := s.cache.GetJSON(ctx, tagsCacheKey, &names)
	if err == nil {
		return names, nil
	}
	if !errors.Is(err, cache.ErrMiss) && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Tag cache read failed", zap.Error(err))
	}

	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	names = make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}

	if err := s.cache.SetJSON(ctx, tagsCacheKey, names, s.tagTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Tag cache write failed", zap.Error(err))
	}
	return names, nil
}

func (s *Service) invalidateTags(ctx context.Context) {
	if err := s.cache.Delete(ctx, tagsCacheKey); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Tag cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if apperr.KindOf(err) == apperr.KindInternal {
		s.logger.Error("Content operation failed", zap.Error(err))
	}
	return err
}
