//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tccore "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/checkpoint"
	domexec "github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/execution"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/humanloop"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/run"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/workflow"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/persistence/postgres"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/pkg/eventbus"
	pkguuid "github.com/dionsnoeijen/polysynergy-node-runner/internal/pkg/uuid"
)

// Exercises EventStore, Outbox, and ResultRecorder against a real schema.
// Run with: go test ./... -tags=integration
// Requires TEST_DATABASE_URL; absent that, spins up an ephemeral
// testcontainers Postgres and migrates it on the fly.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = startContainerDSN(t)
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// startContainerDSN boots a disposable Postgres container via
// testcontainers-go, applies the project's migrations against it, and
// returns its connection string. Used when no TEST_DATABASE_URL is
// provided, so integration tests run without a pre-existing database.
func startContainerDSN(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("appdb"),
		tcpostgres.WithUsername("appuser"),
		tcpostgres.WithPassword("apppass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = tccore.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, postgres.RunMigrations(
		"pgx5://"+dsn[len("postgres://"):],
		"../../../../migrations",
	))

	return dsn
}

type closureBody struct {
	val string
}

func (b *closureBody) ClassName() string                   { return "Test" }
func (b *closureBody) Execute(rc *domexec.RunContext) error { return nil }

func TestEventStore_SaveEventsAlsoEnqueuesOutboxRow(t *testing.T) {
	pool := testPool(t)
	store := postgres.NewEventStore(pool)
	outbox := postgres.NewOutbox(pool)
	ctx := context.Background()

	runID := "run-" + pkguuid.New()
	event := run.RunCreated{
		RunID:       runID,
		ThreadID:    "thread-1",
		AssistantID: "assistant-1",
		OccurredAt:  time.Now(),
	}

	err := store.SaveEvents(ctx, "stream-"+runID, "run", runID, []eventbus.Event{event})
	require.NoError(t, err)

	loaded, err := store.LoadEvents(ctx, "run", runID)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, run.EventTypeRunCreated, loaded[0]["event_type"])

	pending, err := outbox.GetUnpublished(ctx, 100)
	require.NoError(t, err)

	found := false
	for _, msg := range pending {
		if msg.AggregateID == runID && msg.EventType == run.EventTypeRunCreated {
			found = true
			require.NoError(t, outbox.MarkAsPublished(ctx, msg.ID))
		}
	}
	require.True(t, found, "SaveEvents must enqueue a matching outbox row in the same transaction")

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM events WHERE aggregate_id = $1`, runID)
		pool.Exec(ctx, `DELETE FROM event_streams WHERE aggregate_id = $1`, runID)
		pool.Exec(ctx, `DELETE FROM outbox WHERE aggregate_id = $1`, runID)
	})
}

func TestEventStore_SaveEventsAdvancesStreamVersionAcrossCalls(t *testing.T) {
	pool := testPool(t)
	store := postgres.NewEventStore(pool)
	ctx := context.Background()

	runID := "run-" + pkguuid.New()
	first := run.RunCreated{RunID: runID, ThreadID: "t", AssistantID: "a", OccurredAt: time.Now()}
	second := run.RunStarted{RunID: runID, OccurredAt: time.Now()}

	require.NoError(t, store.SaveEvents(ctx, "stream-"+runID, "run", runID, []eventbus.Event{first}))
	require.NoError(t, store.SaveEvents(ctx, "stream-"+runID, "run", runID, []eventbus.Event{second}))

	loaded, err := store.LoadEvents(ctx, "run", runID)
	require.NoError(t, err)
	require.Len(t, loaded, 2, "both calls' events must be persisted against an advancing version, not overwritten")

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM events WHERE aggregate_id = $1`, runID)
		pool.Exec(ctx, `DELETE FROM event_streams WHERE aggregate_id = $1`, runID)
		pool.Exec(ctx, `DELETE FROM outbox WHERE aggregate_id = $1`, runID)
	})
}

func TestResultRecorder_StoreAndClearPreviousExecution(t *testing.T) {
	pool := testPool(t)
	recorder := postgres.NewResultRecorder(pool)
	ctx := context.Background()

	flowID := "flow-" + pkguuid.New()

	makeNode := func(id string) *domexec.NodeInstance {
		return domexec.NewNodeInstance(id, "handle-"+id, &closureBody{val: id}, false)
	}

	// Exceed maxRunsToKeep (50) so the retention sweep has something to prune.
	var runIDs []string
	for i := 0; i < 55; i++ {
		runID := fmt.Sprintf("%s-run-%03d", flowID, i)
		runIDs = append(runIDs, runID)
		node := makeNode("n1")
		require.NoError(t, recorder.StoreNodeResult(ctx, flowID, runID, node, 0, "real", "", nil))
	}
	currentRun := runIDs[len(runIDs)-1]

	require.NoError(t, recorder.ClearPreviousExecution(ctx, flowID, currentRun))

	var remaining int
	err := pool.QueryRow(ctx, `SELECT COUNT(DISTINCT run_id) FROM node_results WHERE flow_id = $1`, flowID).Scan(&remaining)
	require.NoError(t, err)
	require.LessOrEqual(t, remaining, 50, "retention sweep must prune down to maxRunsToKeep")

	var currentStillPresent bool
	err = pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM node_results WHERE flow_id = $1 AND run_id = $2)`, flowID, currentRun).Scan(&currentStillPresent)
	require.NoError(t, err)
	require.True(t, currentStillPresent, "the current run must survive pruning regardless of age")

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM node_results WHERE flow_id = $1`, flowID)
		pool.Exec(ctx, `DELETE FROM connections_results WHERE run_id = ANY($1)`, runIDs)
		pool.Exec(ctx, `DELETE FROM mock_nodes_results WHERE run_id = ANY($1)`, runIDs)
	})
}

func TestResultRecorder_SweepAllFlowsPrunesEveryFlowWithoutACurrentRun(t *testing.T) {
	pool := testPool(t)
	recorder := postgres.NewResultRecorder(pool)
	ctx := context.Background()

	flowA := "flow-" + pkguuid.New()
	flowB := "flow-" + pkguuid.New()

	var allRunIDs []string
	for _, flowID := range []string{flowA, flowB} {
		for i := 0; i < 55; i++ {
			runID := fmt.Sprintf("%s-run-%03d", flowID, i)
			allRunIDs = append(allRunIDs, runID)
			node := domexec.NewNodeInstance("n1", "handle-n1", &closureBody{val: "n1"}, false)
			require.NoError(t, recorder.StoreNodeResult(ctx, flowID, runID, node, 0, "real", "", nil))
		}
	}

	require.NoError(t, recorder.SweepAllFlows(ctx))

	for _, flowID := range []string{flowA, flowB} {
		var remaining int
		err := pool.QueryRow(ctx, `SELECT COUNT(DISTINCT run_id) FROM node_results WHERE flow_id = $1`, flowID).Scan(&remaining)
		require.NoError(t, err)
		require.LessOrEqual(t, remaining, 50, "sweep must prune every flow down to maxRunsToKeep, not just the current one")
	}

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM node_results WHERE flow_id = ANY($1)`, []string{flowA, flowB})
		pool.Exec(ctx, `DELETE FROM connections_results WHERE run_id = ANY($1)`, allRunIDs)
		pool.Exec(ctx, `DELETE FROM mock_nodes_results WHERE run_id = ANY($1)`, allRunIDs)
	})
}

func TestSecretResolver_GetSecretReturnsStoredValue(t *testing.T) {
	pool := testPool(t)
	resolver := postgres.NewSecretResolver(pool)
	ctx := context.Background()

	projectID := "project-" + pkguuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO secrets (project_id, stage, key, value) VALUES ($1, $2, $3, $4)
	`, projectID, "production", "API_KEY", "sk-test-123")
	require.NoError(t, err)

	value, ok := resolver.GetSecret(ctx, projectID, "production", "API_KEY")
	require.True(t, ok)
	require.Equal(t, "sk-test-123", value)

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM secrets WHERE project_id = $1`, projectID)
	})
}

func TestSecretResolver_GetSecretMissingKeyReturnsFalse(t *testing.T) {
	pool := testPool(t)
	resolver := postgres.NewSecretResolver(pool)
	ctx := context.Background()

	value, ok := resolver.GetSecret(ctx, "project-"+pkguuid.New(), "production", "NOPE")
	require.False(t, ok)
	require.Empty(t, value)
}

func TestSecretResolver_GetEnvVarReturnsStoredValue(t *testing.T) {
	pool := testPool(t)
	resolver := postgres.NewSecretResolver(pool)
	ctx := context.Background()

	projectID := "project-" + pkguuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO environment_variables (project_id, stage, key, value) VALUES ($1, $2, $3, $4)
	`, projectID, "staging", "BASE_URL", "https://staging.example.com")
	require.NoError(t, err)

	value, ok := resolver.GetEnvVar(ctx, projectID, "staging", "BASE_URL")
	require.True(t, ok)
	require.Equal(t, "https://staging.example.com", value)

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM environment_variables WHERE project_id = $1`, projectID)
	})
}

func TestAssistantRepository_SaveAndFindByIDRoundTrips(t *testing.T) {
	pool := testPool(t)
	eventStore := postgres.NewEventStore(pool)
	repo := postgres.NewAssistantRepository(pool, eventStore)
	ctx := context.Background()

	assistant, err := workflow.NewAssistant("triage", "handles intake", "gpt-5", "be concise", nil, nil)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, assistant))
	require.Empty(t, assistant.Events(), "Save must clear uncommitted events once persisted")

	found, err := repo.FindByID(ctx, assistant.ID())
	require.NoError(t, err)
	require.Equal(t, assistant.ID(), found.ID())
	require.Equal(t, "triage", found.Name())
	require.Equal(t, "gpt-5", found.Model())

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM assistants WHERE id = $1`, assistant.ID())
		pool.Exec(ctx, `DELETE FROM events WHERE aggregate_id = $1`, assistant.ID())
		pool.Exec(ctx, `DELETE FROM event_streams WHERE aggregate_id = $1`, assistant.ID())
		pool.Exec(ctx, `DELETE FROM outbox WHERE aggregate_id = $1`, assistant.ID())
	})
}

func TestAssistantRepository_SetLatestVersionUpdatesGraphPointer(t *testing.T) {
	pool := testPool(t)
	eventStore := postgres.NewEventStore(pool)
	repo := postgres.NewAssistantRepository(pool, eventStore)
	ctx := context.Background()

	assistant, err := workflow.NewAssistant("triage", "handles intake", "gpt-5", "be concise", nil, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, assistant))

	graphID := "graph-" + pkguuid.New()
	require.NoError(t, repo.SaveVersion(ctx, workflow.AssistantVersionInfo{
		ID:          "version-" + pkguuid.New(),
		AssistantID: assistant.ID(),
		Version:     2,
		GraphID:     graphID,
		Config:      map[string]interface{}{"temperature": 0.2},
		CreatedAt:   time.Now(),
	}))

	require.NoError(t, repo.SetLatestVersion(ctx, assistant.ID(), 2))

	var storedVersion int
	var storedGraphID string
	err = pool.QueryRow(ctx, `SELECT version, graph_id FROM assistants WHERE id = $1`, assistant.ID()).Scan(&storedVersion, &storedGraphID)
	require.NoError(t, err)
	require.Equal(t, 2, storedVersion)
	require.Equal(t, graphID, storedGraphID)

	versions, err := repo.FindVersions(ctx, assistant.ID(), 10)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, graphID, versions[0].GraphID)

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM assistant_versions WHERE assistant_id = $1`, assistant.ID())
		pool.Exec(ctx, `DELETE FROM assistants WHERE id = $1`, assistant.ID())
		pool.Exec(ctx, `DELETE FROM events WHERE aggregate_id = $1`, assistant.ID())
		pool.Exec(ctx, `DELETE FROM event_streams WHERE aggregate_id = $1`, assistant.ID())
		pool.Exec(ctx, `DELETE FROM outbox WHERE aggregate_id = $1`, assistant.ID())
	})
}

func TestRunRepository_SaveFindUpdateRoundTrips(t *testing.T) {
	pool := testPool(t)
	eventStore := postgres.NewEventStore(pool)
	assistantRepo := postgres.NewAssistantRepository(pool, eventStore)
	threadRepo := postgres.NewThreadRepository(pool, eventStore)
	runRepo := postgres.NewRunRepository(pool, eventStore)
	ctx := context.Background()

	assistant, err := workflow.NewAssistant("triage", "handles intake", "gpt-5", "be concise", nil, nil)
	require.NoError(t, err)
	require.NoError(t, assistantRepo.Save(ctx, assistant))

	thread, err := workflow.NewThread(nil)
	require.NoError(t, err)
	require.NoError(t, threadRepo.Save(ctx, thread))

	runAgg, err := run.NewRun(thread.ID(), assistant.ID(), map[string]interface{}{"message": "hi"})
	require.NoError(t, err)
	require.NoError(t, runRepo.Save(ctx, runAgg))
	require.Empty(t, runAgg.Events(), "Save must clear uncommitted events once persisted")

	found, err := runRepo.FindByID(ctx, runAgg.ID())
	require.NoError(t, err)
	require.Equal(t, runAgg.ID(), found.ID())
	require.Equal(t, thread.ID(), found.ThreadID())
	require.True(t, found.Status().Normalize() == run.StatusPending)

	require.NoError(t, found.Start())
	require.NoError(t, runRepo.Update(ctx, found))

	reloaded, err := runRepo.FindByID(ctx, runAgg.ID())
	require.NoError(t, err)
	require.True(t, reloaded.Status().Normalize() == run.StatusRunning)
	require.NotNil(t, reloaded.StartedAt())

	active, err := runRepo.FindActiveByThreadID(ctx, thread.ID())
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, runAgg.ID(), active[0].ID())

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM runs WHERE id = $1`, runAgg.ID())
		pool.Exec(ctx, `DELETE FROM threads WHERE id = $1`, thread.ID())
		pool.Exec(ctx, `DELETE FROM assistants WHERE id = $1`, assistant.ID())
		pool.Exec(ctx, `DELETE FROM events WHERE aggregate_id IN ($1, $2, $3)`, runAgg.ID(), thread.ID(), assistant.ID())
		pool.Exec(ctx, `DELETE FROM event_streams WHERE aggregate_id IN ($1, $2, $3)`, runAgg.ID(), thread.ID(), assistant.ID())
		pool.Exec(ctx, `DELETE FROM outbox WHERE aggregate_id IN ($1, $2, $3)`, runAgg.ID(), thread.ID(), assistant.ID())
	})
}

func TestInterruptRepository_SaveFindUpdateLifecycle(t *testing.T) {
	pool := testPool(t)
	eventStore := postgres.NewEventStore(pool)
	assistantRepo := postgres.NewAssistantRepository(pool, eventStore)
	threadRepo := postgres.NewThreadRepository(pool, eventStore)
	runRepo := postgres.NewRunRepository(pool, eventStore)
	interruptRepo := postgres.NewInterruptRepository(pool, eventStore)
	ctx := context.Background()

	assistant, err := workflow.NewAssistant("triage", "handles intake", "gpt-5", "be concise", nil, nil)
	require.NoError(t, err)
	require.NoError(t, assistantRepo.Save(ctx, assistant))

	thread, err := workflow.NewThread(nil)
	require.NoError(t, err)
	require.NoError(t, threadRepo.Save(ctx, thread))

	runAgg, err := run.NewRun(thread.ID(), assistant.ID(), nil)
	require.NoError(t, err)
	require.NoError(t, runRepo.Save(ctx, runAgg))

	interrupt, err := humanloop.NewInterrupt(runAgg.ID(), "node-1", humanloop.ReasonApprovalRequired,
		map[string]interface{}{"step": 1}, nil)
	require.NoError(t, err)
	require.NoError(t, interruptRepo.Save(ctx, interrupt))
	require.Empty(t, interrupt.Events(), "Save must clear uncommitted events once persisted")

	found, err := interruptRepo.FindByID(ctx, interrupt.ID())
	require.NoError(t, err)
	require.Equal(t, runAgg.ID(), found.RunID())
	require.False(t, found.IsResolved())

	unresolved, err := interruptRepo.FindUnresolvedByRunID(ctx, runAgg.ID())
	require.NoError(t, err)
	require.Len(t, unresolved, 1)

	require.NoError(t, found.Resolve([]map[string]interface{}{{"output": "approved"}}))
	require.NoError(t, interruptRepo.Update(ctx, found))

	reloaded, err := interruptRepo.FindByID(ctx, interrupt.ID())
	require.NoError(t, err)
	require.True(t, reloaded.IsResolved())

	stillUnresolved, err := interruptRepo.FindUnresolvedByRunID(ctx, runAgg.ID())
	require.NoError(t, err)
	require.Empty(t, stillUnresolved, "a resolved interrupt must drop out of the unresolved set")

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM interrupts WHERE run_id = $1`, runAgg.ID())
		pool.Exec(ctx, `DELETE FROM runs WHERE id = $1`, runAgg.ID())
		pool.Exec(ctx, `DELETE FROM threads WHERE id = $1`, thread.ID())
		pool.Exec(ctx, `DELETE FROM assistants WHERE id = $1`, assistant.ID())
		pool.Exec(ctx, `DELETE FROM events WHERE aggregate_id IN ($1, $2, $3, $4)`, interrupt.ID(), runAgg.ID(), thread.ID(), assistant.ID())
		pool.Exec(ctx, `DELETE FROM event_streams WHERE aggregate_id IN ($1, $2, $3, $4)`, interrupt.ID(), runAgg.ID(), thread.ID(), assistant.ID())
		pool.Exec(ctx, `DELETE FROM outbox WHERE aggregate_id IN ($1, $2, $3, $4)`, interrupt.ID(), runAgg.ID(), thread.ID(), assistant.ID())
	})
}

func TestGraphRepository_SaveAndFindByIDRoundTrips(t *testing.T) {
	pool := testPool(t)
	eventStore := postgres.NewEventStore(pool)
	assistantRepo := postgres.NewAssistantRepository(pool, eventStore)
	graphRepo := postgres.NewGraphRepository(pool, eventStore)
	ctx := context.Background()

	assistant, err := workflow.NewAssistant("triage", "handles intake", "gpt-5", "be concise", nil, nil)
	require.NoError(t, err)
	require.NoError(t, assistantRepo.Save(ctx, assistant))

	nodes := []workflow.NodeDefinition{
		{ID: "start", Handle: "start", Type: "start"},
		{ID: "end", Handle: "end", Type: "end"},
	}
	edges := []workflow.ConnectionDefinition{
		{ID: "c1", SourceNodeID: "start", SourceHandle: "out", TargetNodeID: "end", TargetHandle: "in"},
	}

	graph, err := workflow.NewGraph(assistant.ID(), "triage-graph", "v1", "routes intake", nodes, edges, nil)
	require.NoError(t, err)
	require.NoError(t, graphRepo.Save(ctx, graph))
	require.Empty(t, graph.Events(), "Save must clear uncommitted events once persisted")

	found, err := graphRepo.FindByID(ctx, graph.ID())
	require.NoError(t, err)
	require.Equal(t, graph.ID(), found.ID())
	require.Equal(t, "triage-graph", found.Name())
	require.Len(t, found.Nodes(), 2)
	require.Len(t, found.Connections(), 1)

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM graphs WHERE id = $1`, graph.ID())
		pool.Exec(ctx, `DELETE FROM assistants WHERE id = $1`, assistant.ID())
		pool.Exec(ctx, `DELETE FROM events WHERE aggregate_id IN ($1, $2)`, graph.ID(), assistant.ID())
		pool.Exec(ctx, `DELETE FROM event_streams WHERE aggregate_id IN ($1, $2)`, graph.ID(), assistant.ID())
		pool.Exec(ctx, `DELETE FROM outbox WHERE aggregate_id IN ($1, $2)`, graph.ID(), assistant.ID())
	})
}

func TestCheckpointRepository_SaveFindAndWritesRoundTrip(t *testing.T) {
	pool := testPool(t)
	eventStore := postgres.NewEventStore(pool)
	threadRepo := postgres.NewThreadRepository(pool, eventStore)
	checkpointRepo := postgres.NewCheckpointRepository(pool)
	ctx := context.Background()

	thread, err := workflow.NewThread(nil)
	require.NoError(t, err)
	require.NoError(t, threadRepo.Save(ctx, thread))

	cp, err := checkpoint.NewCheckpoint(thread.ID(), "", "", "", map[string]interface{}{"step": 1})
	require.NoError(t, err)
	require.NoError(t, checkpointRepo.Save(ctx, cp))

	found, err := checkpointRepo.FindByID(ctx, cp.ID())
	require.NoError(t, err)
	require.Equal(t, thread.ID(), found.ThreadID())
	require.Equal(t, float64(1), found.ChannelValues()["step"])

	latest, err := checkpointRepo.FindLatest(ctx, thread.ID(), "")
	require.NoError(t, err)
	require.Equal(t, cp.CheckpointID(), latest.CheckpointID())

	write := checkpoint.NewCheckpointWrite(thread.ID(), "", cp.CheckpointID(), "task-1", 0, "messages", "json",
		map[string]interface{}{"content": "hi"})
	require.NoError(t, checkpointRepo.SaveWrite(ctx, write))

	writes, err := checkpointRepo.FindWritesByCheckpoint(ctx, thread.ID(), "", cp.CheckpointID())
	require.NoError(t, err)
	require.Len(t, writes, 1)
	require.Equal(t, "messages", writes[0].Channel())

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM checkpoint_writes WHERE thread_id = $1`, thread.ID())
		pool.Exec(ctx, `DELETE FROM checkpoints WHERE thread_id = $1`, thread.ID())
		pool.Exec(ctx, `DELETE FROM threads WHERE id = $1`, thread.ID())
	})
}

func TestSecretResolver_GetEnvVarMissingKeyReturnsFalse(t *testing.T) {
	pool := testPool(t)
	resolver := postgres.NewSecretResolver(pool)
	ctx := context.Background()

	value, ok := resolver.GetEnvVar(ctx, "project-"+pkguuid.New(), "staging", "NOPE")
	require.False(t, ok)
	require.Empty(t, value)
}
