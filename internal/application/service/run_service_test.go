package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/application/service"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/run"
)

// fakeRunRepository is a minimal in-memory run.Repository double that only
// backs the RunService methods under test here.
type fakeRunRepository struct {
	runs map[string]*run.Run
}

func newFakeRunRepository() *fakeRunRepository {
	return &fakeRunRepository{runs: make(map[string]*run.Run)}
}

func (f *fakeRunRepository) Save(ctx context.Context, r *run.Run) error {
	f.runs[r.ID()] = r
	return nil
}

func (f *fakeRunRepository) FindByID(ctx context.Context, id string) (*run.Run, error) {
	r, ok := f.runs[id]
	if !ok {
		return nil, assert.AnError
	}
	return r, nil
}

func (f *fakeRunRepository) FindByThreadID(ctx context.Context, threadID string, limit, offset int) ([]*run.Run, error) {
	return nil, nil
}

func (f *fakeRunRepository) FindByAssistantID(ctx context.Context, assistantID string, limit, offset int) ([]*run.Run, error) {
	return nil, nil
}

func (f *fakeRunRepository) FindByStatus(ctx context.Context, status run.Status, limit, offset int) ([]*run.Run, error) {
	return nil, nil
}

func (f *fakeRunRepository) FindActiveByThreadID(ctx context.Context, threadID string) ([]*run.Run, error) {
	return nil, nil
}

func (f *fakeRunRepository) Update(ctx context.Context, r *run.Run) error {
	f.runs[r.ID()] = r
	return nil
}

func (f *fakeRunRepository) Delete(ctx context.Context, id string) error {
	delete(f.runs, id)
	return nil
}

func (f *fakeRunRepository) LoadFromEvents(ctx context.Context, id string) (*run.Run, error) {
	return f.FindByID(ctx, id)
}

func newRequiresActionRun(t *testing.T, input map[string]interface{}) *run.Run {
	t.Helper()

	r, err := run.NewRun("thread-1", "assistant-1", input)
	require.NoError(t, err)
	require.NoError(t, r.Start())
	require.NoError(t, r.RequiresAction("interrupt-1", "needs approval", nil))
	r.ClearEvents()

	return r
}

func TestRunService_ApplyResumeStatePatch_AppliesPatchOntoStateUpdates(t *testing.T) {
	repo := newFakeRunRepository()
	r := newRequiresActionRun(t, map[string]interface{}{
		"state_updates": map[string]interface{}{
			"approved": false,
		},
	})
	require.NoError(t, repo.Save(context.Background(), r))

	svc := service.NewRunService(repo, nil, nil, nil, nil, nil)

	patch := []byte(`[{"op": "replace", "path": "/approved", "value": true}]`)
	err := svc.ApplyResumeStatePatch(context.Background(), r.ID(), patch)
	require.NoError(t, err)

	updated, err := repo.FindByID(context.Background(), r.ID())
	require.NoError(t, err)

	stateUpdates, ok := updated.Input()["state_updates"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, stateUpdates["approved"])
}

func TestRunService_ApplyResumeStatePatch_AddsNewFieldToEmptyStateUpdates(t *testing.T) {
	repo := newFakeRunRepository()
	r := newRequiresActionRun(t, map[string]interface{}{})
	require.NoError(t, repo.Save(context.Background(), r))

	svc := service.NewRunService(repo, nil, nil, nil, nil, nil)

	patch := []byte(`[{"op": "add", "path": "/reviewer", "value": "alice"}]`)
	err := svc.ApplyResumeStatePatch(context.Background(), r.ID(), patch)
	require.NoError(t, err)

	updated, err := repo.FindByID(context.Background(), r.ID())
	require.NoError(t, err)

	stateUpdates, ok := updated.Input()["state_updates"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice", stateUpdates["reviewer"])
}

func TestRunService_ApplyResumeStatePatch_RejectsWhenRunNotAwaitingAction(t *testing.T) {
	repo := newFakeRunRepository()
	r, err := run.NewRun("thread-1", "assistant-1", map[string]interface{}{})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), r))

	svc := service.NewRunService(repo, nil, nil, nil, nil, nil)

	patch := []byte(`[{"op": "add", "path": "/reviewer", "value": "alice"}]`)
	err = svc.ApplyResumeStatePatch(context.Background(), r.ID(), patch)
	assert.Error(t, err)
}

func TestRunService_ApplyResumeStatePatch_RejectsMalformedPatchDocument(t *testing.T) {
	repo := newFakeRunRepository()
	r := newRequiresActionRun(t, map[string]interface{}{
		"state_updates": map[string]interface{}{},
	})
	require.NoError(t, repo.Save(context.Background(), r))

	svc := service.NewRunService(repo, nil, nil, nil, nil, nil)

	err := svc.ApplyResumeStatePatch(context.Background(), r.ID(), []byte(`not-json`))
	assert.Error(t, err)
}

func TestRunService_ApplyResumeStatePatch_RejectsPatchThatCannotApply(t *testing.T) {
	repo := newFakeRunRepository()
	r := newRequiresActionRun(t, map[string]interface{}{
		"state_updates": map[string]interface{}{},
	})
	require.NoError(t, repo.Save(context.Background(), r))

	svc := service.NewRunService(repo, nil, nil, nil, nil, nil)

	// "replace" against a path that doesn't exist yet must fail to apply.
	patch := []byte(`[{"op": "replace", "path": "/missing", "value": true}]`)
	err := svc.ApplyResumeStatePatch(context.Background(), r.ID(), patch)
	assert.Error(t, err)
}
