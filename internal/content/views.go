package content

import (
	"context"
	"fmt"
	"time"

	"github.com/sawirricardo/remix-realworld/internal/models"
)

// AuthorView is the public face of a user next to their content
type AuthorView struct {
	Name           string `json:"name"`
	Image          string `json:"image,omitempty"`
	Bio            string `json:"bio,omitempty"`
	FollowersCount int64  `json:"followersCount"`
	Following      bool   `json:"following"`
}

// ArticleView is an article as shown in lists
type ArticleView struct {
	Slug           string     `json:"slug"`
	Title          string     `json:"title"`
	Excerpt        string     `json:"excerpt,omitempty"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"createdAt"`
	Author         AuthorView `json:"author"`
	Tags           []string   `json:"tags"`
	FavoritesCount int64      `json:"favoritesCount"`
	Favorited      bool       `json:"favorited"`
}

// CommentView is a comment with its author
type CommentView struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	Author    AuthorView `json:"author"`
}

// ArticleDetail is a single article page
type ArticleDetail struct {
	ArticleView
	Comments []CommentView `json:"comments"`
}

// Author builds the author view of user as seen by viewer
func (s *Service) Author(ctx context.Context, viewer, user *models.User) (AuthorView, error) {
	view := AuthorView{
		Name:  user.Name,
		Image: user.Image.String,
		Bio:   user.Bio.String,
	}

	count, err := s.store.CountEdgesTo(ctx, models.EdgeFollow, user.ID)
	if err != nil {
		return AuthorView{}, fmt.Errorf("failed to count followers: %w", err)
	}
	view.FollowersCount = count

	if viewer != nil && viewer.ID != user.ID {
		view.Following, err = s.store.HasEdge(ctx, models.EdgeFollow, viewer.ID, user.ID)
		if err != nil {
			return AuthorView{}, fmt.Errorf("failed to check follow: %w", err)
		}
	}
	return view, nil
}

func (s *Service) articleView(ctx context.Context, viewer *models.User, a *models.Article) (ArticleView, error) {
	view := ArticleView{
		Slug:      a.Slug,
		Title:     a.Title,
		Excerpt:   a.Excerpt.String,
		Content:   a.Content,
		CreatedAt: a.CreatedAt,
		Tags:      make([]string, 0, len(a.Tags)),
	}
	for _, t := range a.Tags {
		view.Tags = append(view.Tags, t.Name)
	}

	if a.Author != nil {
		author, err := s.Author(ctx, viewer, a.Author)
		if err != nil {
			return ArticleView{}, err
		}
		view.Author = author
	}

	count, err := s.store.CountEdgesTo(ctx, models.EdgeFavorite, a.ID)
	if err != nil {
		return ArticleView{}, fmt.Errorf("failed to count favorites: %w", err)
	}
	view.FavoritesCount = count

	if viewer != nil {
		view.Favorited, err = s.store.HasEdge(ctx, models.EdgeFavorite, viewer.ID, a.ID)
		if err != nil {
			return ArticleView{}, fmt.Errorf("failed to check favorite: %w", err)
		}
	}
	return view, nil
}
