package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/internal/storage"
	"github.com/sawirricardo/remix-realworld/pkg/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := New(&config.DatabaseConfig{
		Driver: "sqlite",
		URL:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	}, "ERROR")
	require.NoError(t, err)
	require.NoError(t, database.Migrate())
	t.Cleanup(func() { _ = database.Close() })
	return NewStore(database.DB)
}

func createUser(t *testing.T, s *Store, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Password: "x"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func createArticle(t *testing.T, s *Store, author *models.User, slug string) *models.Article {
	t.Helper()
	a := &models.Article{Slug: slug, Title: slug, Content: "content", UserID: author.ID}
	require.NoError(t, s.CreateArticle(context.Background(), a))
	return a
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	alice := createUser(t, s, "alice")
	assert.NotZero(t, alice.ID)

	got, err := s.UserByName(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)

	missing, err := s.UserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := &models.User{Name: "alice", Email: "other@example.com", Password: "x"}
	err = s.CreateUser(ctx, dup)
	assert.True(t, storage.IsConflict(err), "expected conflict, got %v", err)
}

func TestArticleRepository_SlugUnique(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := createUser(t, s, "alice")

	createArticle(t, s, alice, "hello-world")

	exists, err := s.SlugExists(ctx, "hello-world")
	require.NoError(t, err)
	assert.True(t, exists)

	err = s.CreateArticle(ctx, &models.Article{Slug: "hello-world", Title: "t", Content: "c", UserID: alice.ID})
	assert.True(t, storage.IsConflict(err))
}

func TestTagRepository_AttachTagsDedup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := createUser(t, s, "alice")

	first := createArticle(t, s, alice, "first")
	second := createArticle(t, s, alice, "second")

	require.NoError(t, s.AttachTags(ctx, first.ID, []string{"rust", "go"}))
	require.NoError(t, s.AttachTags(ctx, second.ID, []string{"rust"}))

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "go", tags[0].Name)
	assert.Equal(t, "rust", tags[1].Name)

	rust, err := s.ListArticles(ctx, storage.ArticleFilter{Tag: "rust"})
	require.NoError(t, err)
	assert.Len(t, rust, 2)

	got, err := s.ArticleBySlug(ctx, "first")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Tags, 2)
	require.NotNil(t, got.Author)
	assert.Equal(t, "alice", got.Author.Name)
}

func TestEdgeRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	article := createArticle(t, s, bob, "bobs-post")

	tests := []struct {
		name string
		kind models.EdgeKind
		from int64
		to   int64
	}{
		{"follow", models.EdgeFollow, alice.ID, bob.ID},
		{"favorite", models.EdgeFavorite, alice.ID, article.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			has, err := s.HasEdge(ctx, tt.kind, tt.from, tt.to)
			require.NoError(t, err)
			assert.False(t, has)

			require.NoError(t, s.AddEdge(ctx, tt.kind, tt.from, tt.to))
			err = s.AddEdge(ctx, tt.kind, tt.from, tt.to)
			assert.True(t, storage.IsConflict(err), "duplicate add should conflict, got %v", err)

			count, err := s.CountEdgesTo(ctx, tt.kind, tt.to)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			require.NoError(t, s.RemoveEdge(ctx, tt.kind, tt.from, tt.to))
			require.NoError(t, s.RemoveEdge(ctx, tt.kind, tt.from, tt.to))

			has, err = s.HasEdge(ctx, tt.kind, tt.from, tt.to)
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestArticleRepository_FavoritedBy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	liked := createArticle(t, s, bob, "liked")
	createArticle(t, s, bob, "ignored")

	require.NoError(t, s.AddEdge(ctx, models.EdgeFavorite, alice.ID, liked.ID))

	favs, err := s.ListArticles(ctx, storage.ArticleFilter{FavoritedBy: alice.ID})
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "liked", favs[0].Slug)

	byBob, err := s.ListArticles(ctx, storage.ArticleFilter{AuthorID: bob.ID})
	require.NoError(t, err)
	assert.Len(t, byBob, 2)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := createUser(t, s, "alice")
	article := createArticle(t, s, alice, "post")

	require.NoError(t, s.CreateComment(ctx, &models.Comment{Content: "first", UserID: alice.ID, ArticleID: article.ID}))
	require.NoError(t, s.CreateComment(ctx, &models.Comment{Content: "second", UserID: alice.ID, ArticleID: article.ID}))

	comments, err := s.CommentsByArticle(ctx, article.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Content)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "alice", comments[0].Author.Name)
}

func TestCreateArticleWithTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := createUser(t, s, "alice")

	article := &models.Article{Slug: "tagged", Title: "tagged", Content: "content", UserID: alice.ID}
	require.NoError(t, s.CreateArticleWithTags(ctx, article, []string{"go", "sql"}))

	got, err := s.ArticleBySlug(ctx, "tagged")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Tags, 2)

	dup := &models.Article{Slug: "tagged", Title: "t", Content: "c", UserID: alice.ID}
	err = s.CreateArticleWithTags(ctx, dup, []string{"other"})
	assert.True(t, storage.IsConflict(err), "expected conflict, got %v", err)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 2, "a rejected article must not leave tags behind")
}

func TestCreateArticleWithTags_RollsBackOnTagFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := createUser(t, s, "alice")

	err := s.ArticleRepository.db.Callback().Create().Before("gorm:create").
		Register("test:reject_tags", func(tx *gorm.DB) {
			if tx.Statement.Table == "tags" {
				_ = tx.AddError(errors.New("tags table unavailable"))
			}
		})
	require.NoError(t, err)

	article := &models.Article{Slug: "half-written", Title: "half", Content: "content", UserID: alice.ID}
	err = s.CreateArticleWithTags(ctx, article, []string{"go"})
	require.Error(t, err)

	exists, err := s.SlugExists(ctx, "half-written")
	require.NoError(t, err)
	assert.False(t, exists, "article insert must be rolled back with its tags")
}
