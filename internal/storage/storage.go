// Package storage defines the persistence port consumed by the core
// services. Implementations live in internal/db (gorm) and
// internal/storage/memstore (in-memory).
//
// Lookups by key return (nil, nil) when the record does not exist.
// Writes that would violate a unique key return an error wrapping
// ErrConflict.
package storage

import (
	"context"
	"errors"

	"github.com/sawirricardo/remix-realworld/internal/models"
)

// ErrConflict is wrapped by writes rejected by a unique constraint.
var ErrConflict = errors.New("unique constraint conflict")

// Users provides user persistence
type Users interface {
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByName(ctx context.Context, name string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
}

// ArticleFilter narrows ListArticles. Zero values mean no filter.
type ArticleFilter struct {
	Tag         string
	AuthorID    int64
	FavoritedBy int64
}

// Articles provides article persistence. Returned articles have Author and
// Tags populated.
type Articles interface {
	CreateArticle(ctx context.Context, article *models.Article) error
	ArticleBySlug(ctx context.Context, slug string) (*models.Article, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]*models.Article, error)
}

// ArticleWriter is implemented by stores that can insert an article and
// attach its tags atomically. When the tags cannot be attached the article
// is not stored either.
type ArticleWriter interface {
	CreateArticleWithTags(ctx context.Context, article *models.Article, names []string) error
}

// Tags provides tag persistence
type Tags interface {
	// AttachTags connects each named tag to the article, creating tags
	// that do not exist yet. A name never produces more than one Tag.
	AttachTags(ctx context.Context, articleID int64, names []string) error
	ListTags(ctx context.Context) ([]*models.Tag, error)
}

// Comments provides comment persistence
type Comments interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	CommentsByArticle(ctx context.Context, articleID int64) ([]*models.Comment, error)
}

// Edges is a graph-shaped view over the follow and favorite relations.
type Edges interface {
	HasEdge(ctx context.Context, kind models.EdgeKind, from, to int64) (bool, error)
	// AddEdge returns an error wrapping ErrConflict when the edge exists.
	AddEdge(ctx context.Context, kind models.EdgeKind, from, to int64) error
	// RemoveEdge succeeds whether or not the edge exists.
	RemoveEdge(ctx context.Context, kind models.EdgeKind, from, to int64) error
	// CountEdgesTo counts edges pointing at the target.
	CountEdgesTo(ctx context.Context, kind models.EdgeKind, to int64) (int64, error)
}

// Store aggregates every port
type Store interface {
	Users
	Articles
	Tags
	Comments
	Edges
}

// IsConflict reports whether err was caused by a unique constraint.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
