package account

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sawirricardo/remix-realworld/internal/apperr"
	"github.com/sawirricardo/remix-realworld/internal/content"
	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/internal/session"
	"github.com/sawirricardo/remix-realworld/internal/storage/memstore"
	"github.com/sawirricardo/remix-realworld/pkg/config"
)

type fixture struct {
	store    *memstore.Store
	sessions *session.Manager
	content  *content.Service
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	sessions := session.NewManager(&config.SessionConfig{
		Secret:      "0123456789abcdef0123456789abcdef",
		TTL:         time.Hour,
		RememberTTL: 24 * time.Hour,
	}, nil)
	contentSvc := content.NewService(store, nil, &config.ContentConfig{
		SlugSuffixMode:        config.SlugSuffixIncrement,
		SlugMaxInsertAttempts: 3,
	})
	return &fixture{
		store:    store,
		sessions: sessions,
		content:  contentSvc,
		svc:      NewService(store, sessions, contentSvc),
	}
}

func (f *fixture) register(t *testing.T, name, email, password string) *models.User {
	t.Helper()
	grant, err := f.svc.Register(context.Background(), RegisterInput{
		Name: name, Email: email, Password: password, PasswordConfirmation: password,
	})
	require.NoError(t, err)
	return grant.User
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/articles/x", "/articles/x"},
		{"//evil.example.com", "/"},
		{"/\\evil.example.com", "/"},
		{"https://evil.example.com", "/"},
		{"relative", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeRedirect(tt.in, "/"))
		})
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	grant, err := f.svc.Register(ctx, RegisterInput{
		Name:                 "  alice ",
		Email:                "alice@example.com",
		Password:             "correct horse",
		PasswordConfirmation: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", grant.User.Name)
	assert.Equal(t, "/", grant.RedirectTo)
	assert.NotEmpty(t, grant.Token)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(grant.User.Password), []byte("correct horse")))

	cost, err := bcrypt.Cost([]byte(grant.User.Password))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)

	claims, err := f.sessions.Parse(ctx, grant.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, grant.User.ID, id)
}

func TestRegister_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "password1")

	tests := []struct {
		name   string
		input  RegisterInput
		fields []string
	}{
		{"name taken", RegisterInput{Name: "alice", Email: "new@example.com", Password: "p", PasswordConfirmation: "p"}, []string{"name"}},
		{"email taken", RegisterInput{Name: "bob", Email: "alice@example.com", Password: "p", PasswordConfirmation: "p"}, []string{"email"}},
		{"mismatch", RegisterInput{Name: "bob", Email: "bob@example.com", Password: "p", PasswordConfirmation: "q"}, []string{"passwordConfirmation"}},
		{"blank", RegisterInput{Name: "  ", Email: "bad", Password: "", PasswordConfirmation: ""}, []string{"name", "email", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tt.input)
			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			for _, field := range tt.fields {
				assert.Contains(t, verr.Fields, field)
			}
		})
	}

	bob, err := f.store.UserByName(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, bob)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "password1")

	tests := []struct {
		name     string
		input    LoginInput
		field    string
		redirect string
	}{
		{"bad email", LoginInput{Email: "nope", Password: "password1"}, "email", ""},
		{"short password", LoginInput{Email: "alice@example.com", Password: "short"}, "password", ""},
		{"wrong password", LoginInput{Email: "alice@example.com", Password: "password2"}, "email", ""},
		{"unknown email", LoginInput{Email: "bob@example.com", Password: "password1"}, "email", ""},
		{"success", LoginInput{Email: "alice@example.com", Password: "password1", RedirectTo: "/settings"}, "", "/settings"},
		{"unsafe redirect", LoginInput{Email: "alice@example.com", Password: "password1", RedirectTo: "//evil"}, "", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant, err := f.svc.Login(ctx, tt.input)
			if tt.field != "" {
				var verr *apperr.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, tt.field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.redirect, grant.RedirectTo)
		})
	}
}

func TestLogin_Remember(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "password1")

	grant, err := f.svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "password1", Remember: true})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), grant.ExpiresAt, 5*time.Second)
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "alice@example.com", "password1")
	f.register(t, "bob", "bob@example.com", "password1")

	_, err := f.svc.UpdateSettings(ctx, nil, SettingsInput{Name: "x", Email: "x@example.com"})
	assert.Equal(t, apperr.KindNotAuthenticated, apperr.KindOf(err))

	_, err = f.svc.UpdateSettings(ctx, alice, SettingsInput{Name: "bob", Email: "alice@example.com", Image: "not a url"})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "image")

	updated, err := f.svc.UpdateSettings(ctx, alice, SettingsInput{
		Name:     "alice",
		Email:    "alice@example.org",
		Bio:      gofakeit.Sentence(8),
		Image:    "https://example.com/a.png",
		Password: "new password",
	})
	require.NoError(t, err)
	assert.True(t, updated.Bio.Valid)
	assert.Equal(t, "https://example.com/a.png", updated.Image.String)

	_, err = f.svc.Login(ctx, LoginInput{Email: "alice@example.org", Password: "new password"})
	assert.NoError(t, err)
}

func TestProfileAndFavorites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "alice@example.com", "password1")
	bob := f.register(t, "bob", "bob@example.com", "password1")

	article, err := f.content.CreateArticle(ctx, alice, content.ArticleInput{Title: "Hello", Content: "world"})
	require.NoError(t, err)
	require.NoError(t, f.store.AddEdge(ctx, models.EdgeFavorite, bob.ID, article.ID))
	require.NoError(t, f.store.AddEdge(ctx, models.EdgeFollow, bob.ID, alice.ID))

	profile, err := f.svc.Profile(ctx, bob, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Name)
	assert.True(t, profile.Following)
	assert.Equal(t, int64(1), profile.FollowersCount)
	require.Len(t, profile.Articles, 1)
	assert.True(t, profile.Articles[0].Favorited)

	favs, err := f.svc.Favorites(ctx, nil, "bob")
	require.NoError(t, err)
	require.Len(t, favs.Articles, 1)
	assert.Equal(t, "hello", favs.Articles[0].Slug)

	_, err = f.svc.Profile(ctx, nil, "nobody")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
