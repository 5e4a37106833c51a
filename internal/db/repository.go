package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/internal/storage"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// translate maps unique violations onto storage.ErrConflict
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", what, storage.ErrConflict)
	}
	return err
}

// Store implements storage.Store on top of gorm
type Store struct {
	*UserRepository
	*ArticleRepository
	*TagRepository
	*CommentRepository
	*EdgeRepository
}

var (
	_ storage.Store         = (*Store)(nil)
	_ storage.ArticleWriter = (*Store)(nil)
)

// NewStore creates a gorm-backed store
func NewStore(db *gorm.DB) *Store {
	repo := NewRepository(db)
	return &Store{
		UserRepository:    NewUserRepository(repo),
		ArticleRepository: NewArticleRepository(repo),
		TagRepository:     NewTagRepository(repo),
		CommentRepository: NewCommentRepository(repo),
		EdgeRepository:    NewEdgeRepository(repo),
	}
}

// CreateArticleWithTags inserts the article and attaches its tags in one
// transaction
func (s *Store) CreateArticleWithTags(ctx context.Context, article *models.Article, names []string) error {
	return s.ArticleRepository.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Tags").Create(article).Error; err != nil {
			return translate(err, "create article")
		}
		if len(names) == 0 {
			return nil
		}
		return attachTags(tx, article.ID, names)
	})
}

// UserRepository provides user-related database operations
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(repo *Repository) *UserRepository {
	return &UserRepository{Repository: repo}
}

// CreateUser creates a new user
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error, "create user")
}

// UpdateUser saves every column of the user
func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error, "update user")
}

// UserByID retrieves a user by ID
func (r *UserRepository) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

// UserByName retrieves a user by name
func (r *UserRepository) UserByName(ctx context.Context, name string) (*models.User, error) {
	return r.first(ctx, "name = ?", name)
}

// UserByEmail retrieves a user by email
func (r *UserRepository) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ArticleRepository provides article-related database operations
type ArticleRepository struct {
	*Repository
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(repo *Repository) *ArticleRepository {
	return &ArticleRepository{Repository: repo}
}

// CreateArticle inserts the article row only; tags are attached separately
func (r *ArticleRepository) CreateArticle(ctx context.Context, article *models.Article) error {
	err := r.db.WithContext(ctx).Omit("Author", "Tags").Create(article).Error
	return translate(err, "create article")
}

// ArticleBySlug retrieves an article with author and tags
func (r *ArticleRepository) ArticleBySlug(ctx context.Context, slug string) (*models.Article, error) {
	var article models.Article
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Where("slug = ?", slug).
		First(&article).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &article, nil
}

// SlugExists reports whether an article already uses slug
func (r *ArticleRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Article{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListArticles returns articles newest first
func (r *ArticleRepository) ListArticles(ctx context.Context, filter storage.ArticleFilter) ([]*models.Article, error) {
	db := r.db.WithContext(ctx)
	query := db.Model(&models.Article{}).Preload("Author").Preload("Tags")

	if filter.Tag != "" {
		query = query.Where("articles.id IN (?)", db.Table("article_tags").
			Select("article_tags.article_id").
			Joins("JOIN tags ON tags.id = article_tags.tag_id").
			Where("tags.name = ?", filter.Tag))
	}
	if filter.AuthorID != 0 {
		query = query.Where("articles.user_id = ?", filter.AuthorID)
	}
	if filter.FavoritedBy != 0 {
		query = query.Where("articles.id IN (?)", db.Model(&models.Favorite{}).
			Select("article_id").
			Where("user_id = ?", filter.FavoritedBy))
	}

	var articles []*models.Article
	if err := query.Order("articles.created_at DESC, articles.id DESC").Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// TagRepository provides tag-related database operations
type TagRepository struct {
	*Repository
}

// NewTagRepository creates a new tag repository
func NewTagRepository(repo *Repository) *TagRepository {
	return &TagRepository{Repository: repo}
}

// AttachTags connects or creates each named tag on the article
func (r *TagRepository) AttachTags(ctx context.Context, articleID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return attachTags(tx, articleID, names)
	})
}

func attachTags(tx *gorm.DB, articleID int64, names []string) error {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag := models.Tag{Name: name}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&tag).Error
		if err != nil {
			return translate(err, "create tag")
		}
		// the insert is a no-op when another article already owns the name
		tag = models.Tag{}
		if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
			return fmt.Errorf("failed to load tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	if err := tx.Model(&models.Article{ID: articleID}).Association("Tags").Append(&tags); err != nil {
		return fmt.Errorf("failed to attach tags: %w", err)
	}
	return nil
}

// ListTags returns every tag ordered by name
func (r *TagRepository) ListTags(ctx context.Context) ([]*models.Tag, error) {
	var tags []*models.Tag
	if err := r.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// CreateComment creates a new comment
func (r *CommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Omit("Author", "Article").Create(comment).Error
}

// CommentsByArticle returns comments oldest first with authors
func (r *CommentRepository) CommentsByArticle(ctx context.Context, articleID int64) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("article_id = ?", articleID).
		Order("id").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// EdgeRepository maps edge kinds onto the follows and favorites tables
type EdgeRepository struct {
	*Repository
}

// NewEdgeRepository creates a new edge repository
func NewEdgeRepository(repo *Repository) *EdgeRepository {
	return &EdgeRepository{Repository: repo}
}

func edgeRow(kind models.EdgeKind, from, to int64) (interface{}, string, string, error) {
	switch kind {
	case models.EdgeFollow:
		return &models.Follow{FollowerID: from, FollowingID: to}, "follower_id", "following_id", nil
	case models.EdgeFavorite:
		return &models.Favorite{UserID: from, ArticleID: to}, "user_id", "article_id", nil
	default:
		return nil, "", "", fmt.Errorf("unknown edge kind %d", kind)
	}
}

// HasEdge reports whether the edge exists
func (r *EdgeRepository) HasEdge(ctx context.Context, kind models.EdgeKind, from, to int64) (bool, error) {
	row, fromCol, toCol, err := edgeRow(kind, from, to)
	if err != nil {
		return false, err
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(row).
		Where(fromCol+" = ? AND "+toCol+" = ?", from, to).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddEdge inserts the edge
func (r *EdgeRepository) AddEdge(ctx context.Context, kind models.EdgeKind, from, to int64) error {
	row, _, _, err := edgeRow(kind, from, to)
	if err != nil {
		return err
	}
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error, "add "+kind.String())
}

// RemoveEdge deletes the edge if present
func (r *EdgeRepository) RemoveEdge(ctx context.Context, kind models.EdgeKind, from, to int64) error {
	row, fromCol, toCol, err := edgeRow(kind, from, to)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where(fromCol+" = ? AND "+toCol+" = ?", from, to).
		Delete(row).Error
}

// CountEdgesTo counts edges pointing at the target
func (r *EdgeRepository) CountEdgesTo(ctx context.Context, kind models.EdgeKind, to int64) (int64, error) {
	row, _, toCol, err := edgeRow(kind, 0, to)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(row).Where(toCol+" = ?", to).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
