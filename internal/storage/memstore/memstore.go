// Package memstore is an in-memory implementation of storage.Store with the
// same uniqueness rules as the SQL schema.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/internal/storage"
)

type edgeKey struct {
	kind     models.EdgeKind
	from, to int64
}

// Store is safe for concurrent use
type Store struct {
	mu sync.RWMutex

	nextID      int64
	users       map[int64]*models.User
	articles    map[int64]*models.Article
	tags        map[int64]*models.Tag
	comments    map[int64]*models.Comment
	articleTags map[int64]map[int64]struct{}
	edges       map[edgeKey]time.Time

	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		users:       make(map[int64]*models.User),
		articles:    make(map[int64]*models.Article),
		tags:        make(map[int64]*models.Tag),
		comments:    make(map[int64]*models.Comment),
		articleTags: make(map[int64]map[int64]struct{}),
		edges:       make(map[edgeKey]time.Time),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func conflict(what string) error {
	return fmt.Errorf("%s: %w", what, storage.ErrConflict)
}

// CreateUser implements storage.Users
func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Name == user.Name {
			return conflict("users.name")
		}
		if u.Email == user.Email {
			return conflict("users.email")
		}
	}
	user.ID = s.id()
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

// UpdateUser implements storage.Users
func (s *Store) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("user %d does not exist", user.ID)
	}
	for _, u := range s.users {
		if u.ID == user.ID {
			continue
		}
		if u.Name == user.Name {
			return conflict("users.name")
		}
		if u.Email == user.Email {
			return conflict("users.email")
		}
	}
	user.UpdatedAt = s.now()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

// UserByID implements storage.Users
func (s *Store) UserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyUser(s.users[id]), nil
}

// UserByName implements storage.Users
func (s *Store) UserByName(_ context.Context, name string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Name == name {
			return s.copyUser(u), nil
		}
	}
	return nil, nil
}

// UserByEmail implements storage.Users
func (s *Store) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return s.copyUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// CreateArticle implements storage.Articles
func (s *Store) CreateArticle(_ context.Context, article *models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[article.UserID]; !ok {
		return fmt.Errorf("user %d does not exist", article.UserID)
	}
	for _, a := range s.articles {
		if a.Slug == article.Slug {
			return conflict("articles.slug")
		}
	}
	article.ID = s.id()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = s.now()
	}
	cp := *article
	cp.Author = nil
	cp.Tags = nil
	s.articles[article.ID] = &cp
	return nil
}

// ArticleBySlug implements storage.Articles
func (s *Store) ArticleBySlug(_ context.Context, slug string) (*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.articles {
		if a.Slug == slug {
			return s.hydrate(a), nil
		}
	}
	return nil, nil
}

// SlugExists implements storage.Articles
func (s *Store) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.articles {
		if a.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

// ListArticles implements storage.Articles
func (s *Store) ListArticles(_ context.Context, filter storage.ArticleFilter) ([]*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tagID int64 = -1
	if filter.Tag != "" {
		for _, t := range s.tags {
			if t.Name == filter.Tag {
				tagID = t.ID
			}
		}
		if tagID < 0 {
			return []*models.Article{}, nil
		}
	}

	result := make([]*models.Article, 0, len(s.articles))
	for _, a := range s.articles {
		if filter.AuthorID != 0 && a.UserID != filter.AuthorID {
			continue
		}
		if tagID >= 0 {
			if _, ok := s.articleTags[a.ID][tagID]; !ok {
				continue
			}
		}
		if filter.FavoritedBy != 0 {
			if _, ok := s.edges[edgeKey{models.EdgeFavorite, filter.FavoritedBy, a.ID}]; !ok {
				continue
			}
		}
		result = append(result, s.hydrate(a))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) hydrate(a *models.Article) *models.Article {
	cp := *a
	cp.Author = s.copyUser(s.users[a.UserID])
	cp.Tags = make([]models.Tag, 0, len(s.articleTags[a.ID]))
	for tagID := range s.articleTags[a.ID] {
		cp.Tags = append(cp.Tags, *s.tags[tagID])
	}
	sort.Slice(cp.Tags, func(i, j int) bool { return cp.Tags[i].Name < cp.Tags[j].Name })
	return &cp
}

// AttachTags implements storage.Tags
func (s *Store) AttachTags(_ context.Context, articleID int64, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[articleID]; !ok {
		return fmt.Errorf("article %d does not exist", articleID)
	}
	if s.articleTags[articleID] == nil {
		s.articleTags[articleID] = make(map[int64]struct{})
	}
	for _, name := range names {
		var tag *models.Tag
		for _, t := range s.tags {
			if t.Name == name {
				tag = t
				break
			}
		}
		if tag == nil {
			tag = &models.Tag{ID: s.id(), Name: name}
			s.tags[tag.ID] = tag
		}
		s.articleTags[articleID][tag.ID] = struct{}{}
	}
	return nil
}

// ListTags implements storage.Tags
func (s *Store) ListTags(_ context.Context) ([]*models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		cp := *t
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// CreateComment implements storage.Comments
func (s *Store) CreateComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[comment.ArticleID]; !ok {
		return fmt.Errorf("article %d does not exist", comment.ArticleID)
	}
	comment.ID = s.id()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}
	cp := *comment
	cp.Author = nil
	cp.Article = nil
	s.comments[comment.ID] = &cp
	return nil
}

// CommentsByArticle implements storage.Comments
func (s *Store) CommentsByArticle(_ context.Context, articleID int64) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Comment, 0)
	for _, c := range s.comments {
		if c.ArticleID != articleID {
			continue
		}
		cp := *c
		cp.Author = s.copyUser(s.users[c.UserID])
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// HasEdge implements storage.Edges
func (s *Store) HasEdge(_ context.Context, kind models.EdgeKind, from, to int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[edgeKey{kind, from, to}]
	return ok, nil
}

// AddEdge implements storage.Edges
func (s *Store) AddEdge(_ context.Context, kind models.EdgeKind, from, to int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{kind, from, to}
	if _, ok := s.edges[key]; ok {
		return conflict(kind.String())
	}
	s.edges[key] = s.now()
	return nil
}

// RemoveEdge implements storage.Edges
func (s *Store) RemoveEdge(_ context.Context, kind models.EdgeKind, from, to int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edges, edgeKey{kind, from, to})
	return nil
}

// CountEdgesTo implements storage.Edges
func (s *Store) CountEdgesTo(_ context.Context, kind models.EdgeKind, to int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for k := range s.edges {
		if k.kind == kind && k.to == to {
			n++
		}
	}
	return n, nil
}

// TagCount returns the number of distinct tags. Used by tests.
func (s *Store) TagCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tags)
}

// CommentCount returns the number of stored comments. Used by tests.
func (s *Store) CommentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.comments)
}

// ArticleCount returns the number of stored articles. Used by tests.
func (s *Store) ArticleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}
