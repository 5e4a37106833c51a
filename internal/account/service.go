// Package account handles registration, sign-in, settings and profiles.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sawirricardo/remix-realworld/internal/apperr"
	"github.com/sawirricardo/remix-realworld/internal/content"
	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/internal/session"
	"github.com/sawirricardo/remix-realworld/internal/storage"
	"github.com/sawirricardo/remix-realworld/pkg/logging"
	"github.com/sawirricardo/remix-realworld/pkg/telemetry"
)

const hashCost = 10

// RegisterInput is the sign-up form
type RegisterInput struct {
	Name                 string `json:"name" form:"name" validate:"min=1,max=255"`
	Email                string `json:"email" form:"email" validate:"required,email,max=255"`
	Password             string `json:"password" form:"password" validate:"min=1,max=255"`
	PasswordConfirmation string `json:"passwordConfirmation" form:"passwordConfirmation" validate:"eqfield=Password"`
}

// LoginInput is the sign-in form
type LoginInput struct {
	Email      string `json:"email" form:"email" validate:"required,email"`
	Password   string `json:"password" form:"password" validate:"required,min=8"`
	Remember   bool   `json:"remember" form:"-"`
	RedirectTo string `json:"redirectTo" form:"redirectTo"`
}

// SettingsInput is the profile edit form. An empty Password keeps the
// current one.
type SettingsInput struct {
	Name     string `json:"name" form:"name" validate:"min=1,max=255"`
	Email    string `json:"email" form:"email" validate:"required,email,max=255"`
	Bio      string `json:"bio" form:"bio"`
	Image    string `json:"image" form:"image" validate:"omitempty,url,max=1024"`
	Password string `json:"password" form:"password" validate:"max=255"`
}

// Grant is an issued session
type Grant struct {
	User       *models.User
	Token      string
	ExpiresAt  time.Time
	RedirectTo string
}

// Profile is a user page
type Profile struct {
	content.AuthorView
	Articles []content.ArticleView `json:"articles"`
}

// Service implements account operations
type Service struct {
	store    storage.Users
	sessions *session.Manager
	content  *content.Service
	logger   *zap.Logger
}

// NewService creates an account service
func NewService(store storage.Users, sessions *session.Manager, contentSvc *content.Service) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		content:  contentSvc,
		logger:   logging.WithComponent("account"),
	}
}

// SafeRedirect returns to when it is a local path, otherwise def
func SafeRedirect(to, def string) string {
	if to == "" || !strings.HasPrefix(to, "/") || strings.HasPrefix(to, "//") || strings.HasPrefix(to, "/\\") {
		return def
	}
	return to
}

// Register creates a user and signs them in
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Grant, error) {
	ctx, span := telemetry.StartSpan(ctx, "account.register")
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	in.PasswordConfirmation = strings.TrimSpace(in.PasswordConfirmation)

	verr := apperr.NewValidationError()
	if err := apperr.Validate(in); err != nil {
		if !errors.As(err, &verr) {
			return nil, err
		}
	}
	if err := s.checkUnique(ctx, verr, 0, in.Name, in.Email); err != nil {
		return nil, err
	}
	if err := verr.ErrOrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Name: in.Name, Email: in.Email, Password: string(hash)}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if storage.IsConflict(err) {
			// lost a race with another sign-up
			verr.Add("name", "is already taken")
			return nil, verr
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("name", user.Name))
	return s.grant(user, false, "/")
}

// Login verifies credentials and issues a session
func (s *Service) Login(ctx context.Context, in LoginInput) (*Grant, error) {
	ctx, span := telemetry.StartSpan(ctx, "account.login")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}

	user, err := s.store.UserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		s.logger.Debug("Login failed", zap.String("email", in.Email))
		verr := apperr.NewValidationError()
		verr.Add("email", "Invalid email or password")
		return nil, verr
	}

	return s.grant(user, in.Remember, SafeRedirect(in.RedirectTo, "/"))
}

// Logout revokes the session described by claims
func (s *Service) Logout(ctx context.Context, claims *session.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, claims); err != nil {
		return err
	}
	s.logger.Debug("Session revoked", zap.String("jti", claims.ID))
	return nil
}

// UpdateSettings edits the actor's profile
func (s *Service) UpdateSettings(ctx context.Context, actor *models.User, in SettingsInput) (*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "account.update_settings")
	defer span.End()

	if actor == nil {
		return nil, &apperr.NotAuthenticatedError{}
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Image = strings.TrimSpace(in.Image)

	verr := apperr.NewValidationError()
	if err := apperr.Validate(in); err != nil {
		if !errors.As(err, &verr) {
			return nil, err
		}
	}
	if err := s.checkUnique(ctx, verr, actor.ID, in.Name, in.Email); err != nil {
		return nil, err
	}
	if err := verr.ErrOrNil(); err != nil {
		return nil, err
	}

	updated := *actor
	updated.Name = in.Name
	updated.Email = in.Email
	updated.Bio = sql.NullString{String: in.Bio, Valid: in.Bio != ""}
	updated.Image = sql.NullString{String: in.Image, Valid: in.Image != ""}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), hashCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		updated.Password = string(hash)
	}

	if err := s.store.UpdateUser(ctx, &updated); err != nil {
		if storage.IsConflict(err) {
			verr.Add("name", "is already taken")
			return nil, verr
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("Settings updated", zap.Int64("user_id", actor.ID))
	return &updated, nil
}

// Profile returns the user page with authored articles
func (s *Service) Profile(ctx context.Context, viewer *models.User, name string) (*Profile, error) {
	return s.profile(ctx, viewer, name, func(u *models.User) storage.ArticleFilter {
		return storage.ArticleFilter{AuthorID: u.ID}
	})
}

// Favorites returns the user page with favorited articles
func (s *Service) Favorites(ctx context.Context, viewer *models.User, name string) (*Profile, error) {
	return s.profile(ctx, viewer, name, func(u *models.User) storage.ArticleFilter {
		return storage.ArticleFilter{FavoritedBy: u.ID}
	})
}

func (s *Service) profile(ctx context.Context, viewer *models.User, name string, filter func(*models.User) storage.ArticleFilter) (*Profile, error) {
	user, err := s.store.UserByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %q: %w", name, err)
	}
	if user == nil {
		return nil, apperr.NotFound("user", name)
	}

	author, err := s.content.Author(ctx, viewer, user)
	if err != nil {
		return nil, err
	}
	articles, err := s.content.ListArticles(ctx, viewer, filter(user))
	if err != nil {
		return nil, err
	}
	return &Profile{AuthorView: author, Articles: articles}, nil
}

// checkUnique adds field errors for name or email held by a user other
// than selfID
func (s *Service) checkUnique(ctx context.Context, verr *apperr.ValidationError, selfID int64, name, email string) error {
	if name != "" {
		u, err := s.store.UserByName(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to check name: %w", err)
		}
		if u != nil && u.ID != selfID {
			verr.Add("name", "is already taken")
		}
	}
	if email != "" {
		u, err := s.store.UserByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if u != nil && u.ID != selfID {
			verr.Add("email", "is already taken")
		}
	}
	return nil
}

func (s *Service) grant(user *models.User, remember bool, redirectTo string) (*Grant, error) {
	token, expires, err := s.sessions.Issue(user.ID, remember)
	if err != nil {
		return nil, err
	}
	return &Grant{User: user, Token: token, ExpiresAt: expires, RedirectTo: redirectTo}, nil
}
