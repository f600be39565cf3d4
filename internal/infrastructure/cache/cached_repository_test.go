package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/workflow"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/cache"
)

type fakeAssistantRepo struct {
	findCalls int
	store     map[string]*workflow.Assistant
}

func newFakeAssistantRepo() *fakeAssistantRepo {
	return &fakeAssistantRepo{store: make(map[string]*workflow.Assistant)}
}

func (f *fakeAssistantRepo) Save(ctx context.Context, assistant *workflow.Assistant) error {
	f.store[assistant.ID()] = assistant
	return nil
}

func (f *fakeAssistantRepo) FindByID(ctx context.Context, id string) (*workflow.Assistant, error) {
	f.findCalls++
	a, ok := f.store[id]
	if !ok {
		return nil, assertNotFound{id}
	}
	return a, nil
}

func (f *fakeAssistantRepo) List(ctx context.Context, limit, offset int) ([]*workflow.Assistant, error) {
	out := make([]*workflow.Assistant, 0, len(f.store))
	for _, a := range f.store {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAssistantRepo) Update(ctx context.Context, assistant *workflow.Assistant) error {
	f.store[assistant.ID()] = assistant
	return nil
}

func (f *fakeAssistantRepo) Delete(ctx context.Context, id string) error {
	delete(f.store, id)
	return nil
}

type assertNotFound struct{ id string }

func (e assertNotFound) Error() string { return "not found: " + e.id }

func newTestAssistant(t *testing.T) *workflow.Assistant {
	t.Helper()
	a, err := workflow.NewAssistant("triage", "handles intake", "gpt-5", "be concise", nil, nil)
	require.NoError(t, err)
	return a
}

func TestCachedAssistantRepository_FindByIDServesFromCacheOnSecondCall(t *testing.T) {
	redisCache := newTestRedisCache(t)
	repo := newFakeAssistantRepo()
	assistant := newTestAssistant(t)
	require.NoError(t, repo.Save(context.Background(), assistant))

	cached := cache.NewCachedAssistantRepository(repo, redisCache, time.Minute)
	ctx := context.Background()

	first, err := cached.FindByID(ctx, assistant.ID())
	require.NoError(t, err)
	assert.Equal(t, assistant.Name(), first.Name())
	assert.Equal(t, 1, repo.findCalls)

	second, err := cached.FindByID(ctx, assistant.ID())
	require.NoError(t, err)
	assert.Equal(t, assistant.Name(), second.Name())
	assert.Equal(t, assistant.Model(), second.Model())
	assert.Equal(t, assistant.Instructions(), second.Instructions())
	assert.Equal(t, 1, repo.findCalls, "second lookup should be served from cache, not the wrapped repository")
}

func TestCachedAssistantRepository_UpdateInvalidatesCache(t *testing.T) {
	redisCache := newTestRedisCache(t)
	repo := newFakeAssistantRepo()
	assistant := newTestAssistant(t)
	require.NoError(t, repo.Save(context.Background(), assistant))

	cached := cache.NewCachedAssistantRepository(repo, redisCache, time.Minute)
	ctx := context.Background()

	_, err := cached.FindByID(ctx, assistant.ID())
	require.NoError(t, err)
	require.Equal(t, 1, repo.findCalls)

	newName := "triage-v2"
	require.NoError(t, assistant.Update(&newName, nil, nil, nil, nil))
	require.NoError(t, cached.Update(ctx, assistant))

	refreshed, err := cached.FindByID(ctx, assistant.ID())
	require.NoError(t, err)
	assert.Equal(t, "triage-v2", refreshed.Name())
	assert.Equal(t, 2, repo.findCalls, "cache entry must be invalidated by Update, forcing a fresh read")
}

func TestCachedAssistantRepository_DeleteInvalidatesCache(t *testing.T) {
	redisCache := newTestRedisCache(t)
	repo := newFakeAssistantRepo()
	assistant := newTestAssistant(t)
	require.NoError(t, repo.Save(context.Background(), assistant))

	cached := cache.NewCachedAssistantRepository(repo, redisCache, time.Minute)
	ctx := context.Background()

	_, err := cached.FindByID(ctx, assistant.ID())
	require.NoError(t, err)

	require.NoError(t, cached.Delete(ctx, assistant.ID()))

	_, err = cached.FindByID(ctx, assistant.ID())
	assert.Error(t, err, "deleted assistant must not be served from a stale cache entry")
}
