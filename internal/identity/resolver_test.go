package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/internal/session"
	"github.com/sawirricardo/remix-realworld/internal/storage/memstore"
	"github.com/sawirricardo/remix-realworld/pkg/config"
)

func TestResolver_Resolve(t *testing.T) {
	store := memstore.New()
	alice := &models.User{Name: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, store.CreateUser(context.Background(), alice))

	sessions := session.NewManager(&config.SessionConfig{
		Secret: "0123456789abcdef0123456789abcdef",
		TTL:    time.Hour,
	}, nil)
	resolver := NewResolver(sessions, store, "__session")

	token, _, err := sessions.Issue(alice.ID, false)
	require.NoError(t, err)
	ghost, _, err := sessions.Issue(9999, false)
	require.NoError(t, err)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		want    string
	}{
		{"anonymous", func(r *http.Request) {}, ""},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "__session", Value: token})
		}, "alice"},
		{"bearer", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		}, "alice"},
		{"garbage cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "__session", Value: "garbage"})
		}, ""},
		{"unknown user", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+ghost)
		}, ""},
		{"other scheme", func(r *http.Request) {
			r.Header.Set("Authorization", "Basic "+token)
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(req)

			user, err := resolver.Resolve(req)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, user)
				return
			}
			require.NotNil(t, user)
			assert.Equal(t, tt.want, user.Name)
		})
	}
}
