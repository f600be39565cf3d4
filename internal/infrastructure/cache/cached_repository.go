package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/workflow"
)

// assistantSnapshot is the JSON-serializable projection of an Assistant
// aggregate cached by CachedAssistantRepository. The aggregate itself
// carries unexported fields and an uncommitted-events slice that has no
// business surviving a cache round trip, so FindByID caches this snapshot
// and rebuilds the aggregate via workflow.ReconstructAssistant on a hit.
type assistantSnapshot struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	Description  string                   `json:"description"`
	Model        string                   `json:"model"`
	Instructions string                   `json:"instructions"`
	Tools        []map[string]interface{} `json:"tools"`
	Metadata     map[string]interface{}   `json:"metadata"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

func newAssistantSnapshot(a *workflow.Assistant) assistantSnapshot {
	return assistantSnapshot{
		ID:           a.ID(),
		Name:         a.Name(),
		Description:  a.Description(),
		Model:        a.Model(),
		Instructions: a.Instructions(),
		Tools:        a.Tools(),
		Metadata:     a.Metadata(),
		CreatedAt:    a.CreatedAt(),
		UpdatedAt:    a.UpdatedAt(),
	}
}

func (s assistantSnapshot) reconstruct() (*workflow.Assistant, error) {
	return workflow.ReconstructAssistant(
		s.ID, s.Name, s.Description, s.Model, s.Instructions,
		s.Tools, s.Metadata, s.CreatedAt, s.UpdatedAt,
	)
}

func assistantCacheKey(id string) string {
	return fmt.Sprintf("assistant:%s", id)
}

// CachedAssistantRepository wraps an AssistantRepository with a read-through
// Redis cache. Assistants change far less often than they're read (every
// run creation and chat turn looks one up), so a short TTL trades a little
// staleness after an edit for skipping the round trip on the common path.
type CachedAssistantRepository struct {
	repo  workflow.AssistantRepository
	cache *RedisCache
	ttl   time.Duration
}

// NewCachedAssistantRepository creates a cached assistant repository.
func NewCachedAssistantRepository(repo workflow.AssistantRepository, cache *RedisCache, ttl time.Duration) *CachedAssistantRepository {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	return &CachedAssistantRepository{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// FindByID serves from cache when possible, falling back to the wrapped
// repository on a miss or a corrupt/stale cache entry.
func (r *CachedAssistantRepository) FindByID(ctx context.Context, id string) (*workflow.Assistant, error) {
	if raw, err := r.cache.GetString(ctx, assistantCacheKey(id)); err == nil {
		var snap assistantSnapshot
		if jsonErr := json.Unmarshal([]byte(raw), &snap); jsonErr == nil {
			if assistant, reconErr := snap.reconstruct(); reconErr == nil {
				return assistant, nil
			}
		}
	}

	assistant, err := r.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.store(ctx, assistant)
	return assistant, nil
}

func (r *CachedAssistantRepository) store(ctx context.Context, assistant *workflow.Assistant) {
	data, err := json.Marshal(newAssistantSnapshot(assistant))
	if err != nil {
		return
	}
	_ = r.cache.client.Set(ctx, assistantCacheKey(assistant.ID()), data, r.ttl).Err()
}

// Save invalidates any cached copy; the wrapped repository is the source
// of truth for the newly-created aggregate's events.
func (r *CachedAssistantRepository) Save(ctx context.Context, assistant *workflow.Assistant) error {
	if err := r.repo.Save(ctx, assistant); err != nil {
		return err
	}
	return r.cache.Delete(ctx, assistantCacheKey(assistant.ID()))
}

// Update invalidates the cached copy rather than refreshing it in place,
// so the next FindByID re-reads the authoritative post-update state.
func (r *CachedAssistantRepository) Update(ctx context.Context, assistant *workflow.Assistant) error {
	if err := r.repo.Update(ctx, assistant); err != nil {
		return err
	}
	return r.cache.Delete(ctx, assistantCacheKey(assistant.ID()))
}

// List always delegates: caching a paginated listing would need
// invalidation on every write to any assistant, which isn't worth it for a
// query that's already index-backed.
func (r *CachedAssistantRepository) List(ctx context.Context, limit, offset int) ([]*workflow.Assistant, error) {
	return r.repo.List(ctx, limit, offset)
}

// Delete removes the aggregate and its cached copy.
func (r *CachedAssistantRepository) Delete(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	return r.cache.Delete(ctx, assistantCacheKey(id))
}
