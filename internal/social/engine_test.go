package social

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawirricardo/remix-realworld/internal/apperr"
	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/internal/storage/memstore"
)

type fixture struct {
	store   *memstore.Store
	engine  *Engine
	alice   *models.User
	bob     *models.User
	article *models.Article // authored by bob
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	alice := &models.User{Name: "alice", Email: "alice@example.com", Password: "x"}
	bob := &models.User{Name: "bob", Email: "bob@example.com", Password: "x"}
	require.NoError(t, store.CreateUser(ctx, alice))
	require.NoError(t, store.CreateUser(ctx, bob))

	article := &models.Article{Slug: "bobs-post", Title: "Bob's post", Content: "hello", UserID: bob.ID}
	require.NoError(t, store.CreateArticle(ctx, article))

	return &fixture{store: store, engine: NewEngine(store), alice: alice, bob: bob, article: article}
}

func TestEngine_ToggleFavoriteTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	before, err := f.store.CountEdgesTo(ctx, models.EdgeFavorite, f.article.ID)
	require.NoError(t, err)

	first, err := f.engine.ToggleFavorite(ctx, f.alice, f.article.Slug)
	require.NoError(t, err)
	assert.True(t, first.Applied)

	mid, err := f.store.CountEdgesTo(ctx, models.EdgeFavorite, f.article.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, mid)

	second, err := f.engine.ToggleFavorite(ctx, f.alice, f.article.Slug)
	require.NoError(t, err)
	assert.False(t, second.Applied)

	after, err := f.store.CountEdgesTo(ctx, models.EdgeFavorite, f.article.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEngine_ToggleFollowTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.engine.ToggleFollow(ctx, f.alice, "bob")
	require.NoError(t, err)
	assert.True(t, first.Applied)

	following, err := f.store.HasEdge(ctx, models.EdgeFollow, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	second, err := f.engine.ToggleFollow(ctx, f.alice, "bob")
	require.NoError(t, err)
	assert.False(t, second.Applied)

	count, err := f.store.CountEdgesTo(ctx, models.EdgeFollow, f.bob.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEngine_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name string
		run  func() (Result, error)
		kind apperr.Kind
	}{
		{"self follow", func() (Result, error) { return f.engine.ToggleFollow(ctx, f.alice, "alice") }, apperr.KindForbidden},
		{"self favorite", func() (Result, error) { return f.engine.ToggleFavorite(ctx, f.bob, "bobs-post") }, apperr.KindForbidden},
		{"unknown user", func() (Result, error) { return f.engine.ToggleFollow(ctx, f.alice, "nobody") }, apperr.KindNotFound},
		{"unknown article", func() (Result, error) { return f.engine.ToggleFavorite(ctx, f.alice, "missing") }, apperr.KindNotFound},
		{"anonymous follow", func() (Result, error) { return f.engine.ToggleFollow(ctx, nil, "bob") }, apperr.KindNotAuthenticated},
		{"anonymous favorite", func() (Result, error) { return f.engine.ToggleFavorite(ctx, nil, "bobs-post") }, apperr.KindNotAuthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.run()
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.False(t, result.Applied)
		})
	}

	// nothing was written
	follows, err := f.store.CountEdgesTo(ctx, models.EdgeFollow, f.alice.ID)
	require.NoError(t, err)
	assert.Zero(t, follows)
	favs, err := f.store.CountEdgesTo(ctx, models.EdgeFavorite, f.article.ID)
	require.NoError(t, err)
	assert.Zero(t, favs)
}

// staleStore reports every edge as absent, simulating a concurrent toggle
// that added the edge between the check and the write.
type staleStore struct {
	*memstore.Store
}

func (staleStore) HasEdge(context.Context, models.EdgeKind, int64, int64) (bool, error) {
	return false, nil
}

func TestEngine_ConflictOnAddIsBenign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.AddEdge(ctx, models.EdgeFollow, f.alice.ID, f.bob.ID))

	engine := NewEngine(staleStore{f.store})
	result, err := engine.ToggleFollow(ctx, f.alice, "bob")
	require.NoError(t, err)
	assert.True(t, result.Applied)

	count, err := f.store.CountEdgesTo(ctx, models.EdgeFollow, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEngine_ConcurrentTogglesKeepEdgeSet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.ToggleFavorite(ctx, f.alice, f.article.Slug)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := f.store.CountEdgesTo(ctx, models.EdgeFavorite, f.article.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, count, int64(1))
}
