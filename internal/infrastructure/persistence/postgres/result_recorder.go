package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/execution"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/pkg/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxRunsToKeep bounds how many distinct runs' stored results survive a
// clear sweep for a flow; the current run is always excluded from the
// deletion candidates regardless of age.
const maxRunsToKeep = 50

// retentionSweepConcurrency bounds how many flows' retention prunes run at
// once during a full sweep, so one slow flow can't serialize the rest.
const retentionSweepConcurrency = 4

// ResultRecorder persists node execution results, connection snapshots,
// and mock-node snapshots for a flow run, implementing
// execution.ResultRecorder against Postgres.
type ResultRecorder struct {
	pool *pgxpool.Pool
}

// NewResultRecorder creates a new result recorder.
func NewResultRecorder(pool *pgxpool.Pool) *ResultRecorder {
	return &ResultRecorder{pool: pool}
}

var _ execution.ResultRecorder = (*ResultRecorder)(nil)

// StoreNodeResult persists a single node's result for this run/order/
// stage, with large values truncated and resolved secrets redacted before
// the row ever reaches the table.
func (r *ResultRecorder) StoreNodeResult(ctx context.Context, flowID, runID string, node *execution.NodeInstance, order int, stage, subStage string, secretsByValue map[string]string) error {
	data := execution.TruncateLargeValues(node.ToDict())
	data = execution.RedactSecrets(data, secretsByValue)

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return errors.Internal("failed to marshal node result", err)
	}

	var errorText *string
	if exc := node.GetException(); exc != nil {
		msg := exc.Error()
		errorText = &msg
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO node_results (flow_id, run_id, node_id, node_order, stage, sub_stage, killed, processed, error, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id, node_id, node_order, stage, sub_stage)
		DO UPDATE SET killed = EXCLUDED.killed, processed = EXCLUDED.processed,
		              error = EXCLUDED.error, data = EXCLUDED.data
	`, flowID, runID, node.ID, order, stage, subStage, node.IsKilled(), node.IsProcessed(), errorText, dataJSON)
	if err != nil {
		return errors.Internal("failed to store node result", err)
	}
	return nil
}

// StoreConnectionsResult persists a snapshot of every connection's
// touched/killer bits for the run, keyed "{run_id}#connections" in spirit
// (one row per run here, replacing on conflict).
func (r *ResultRecorder) StoreConnectionsResult(ctx context.Context, runID string, conns []*execution.Connection) error {
	dicts := make([]map[string]interface{}, len(conns))
	for i, c := range conns {
		dicts[i] = c.ToDict()
	}
	dataJSON, err := json.Marshal(dicts)
	if err != nil {
		return errors.Internal("failed to marshal connections result", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO connections_results (run_id, data)
		VALUES ($1, $2)
		ON CONFLICT (run_id) DO UPDATE SET data = EXCLUDED.data
	`, runID, dataJSON)
	if err != nil {
		return errors.Internal("failed to store connections result", err)
	}
	return nil
}

// StoreMockNodesResult persists a snapshot of every node's attributes,
// keyed "{run_id}#mock_nodes" in spirit, used by the editor to recreate
// mock-stage node state in the UI without replaying the run.
func (r *ResultRecorder) StoreMockNodesResult(ctx context.Context, runID string, nodes []*execution.NodeInstance) error {
	dicts := make([]map[string]interface{}, len(nodes))
	for i, n := range nodes {
		dicts[i] = n.ToDict()
	}
	dataJSON, err := json.Marshal(dicts)
	if err != nil {
		return errors.Internal("failed to marshal mock nodes result", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO mock_nodes_results (run_id, data)
		VALUES ($1, $2)
		ON CONFLICT (run_id) DO UPDATE SET data = EXCLUDED.data
	`, runID, dataJSON)
	if err != nil {
		return errors.Internal("failed to store mock nodes result", err)
	}
	return nil
}

// ClearPreviousExecution prunes stored results for a flow down to the
// newest maxRunsToKeep runs, always excluding the current run, and falls
// back to clearing everything for the flow if the retention-aware sweep
// fails for any reason.
func (r *ResultRecorder) ClearPreviousExecution(ctx context.Context, flowID, currentRunID string) error {
	if err := r.pruneToRetention(ctx, flowID, currentRunID); err != nil {
		log.Printf("WARN: retention-aware prune failed for flow %s, falling back to full clear: %v", flowID, err)
		return r.clearAll(ctx, flowID, currentRunID)
	}
	return nil
}

func (r *ResultRecorder) pruneToRetention(ctx context.Context, flowID, currentRunID string) error {
	rows, err := r.pool.Query(ctx, `
		SELECT run_id FROM node_results WHERE flow_id = $1 AND run_id <> $2
		GROUP BY run_id
		ORDER BY MAX(created_at) DESC
	`, flowID, currentRunID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var runIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		runIDs = append(runIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(runIDs) <= maxRunsToKeep {
		return nil
	}
	toDelete := runIDs[maxRunsToKeep:]

	_, err = r.pool.Exec(ctx, `DELETE FROM node_results WHERE flow_id = $1 AND run_id = ANY($2)`, flowID, toDelete)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `DELETE FROM connections_results WHERE run_id = ANY($1)`, toDelete)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `DELETE FROM mock_nodes_results WHERE run_id = ANY($1)`, toDelete)
	return err
}

// SweepAllFlows prunes stored results down to retention for every flow
// that has any rows in node_results, pruning up to retentionSweepConcurrency
// flows concurrently. Unlike ClearPreviousExecution, which runs inline
// at the start of each run for that run's flow, this covers flows that haven't run
// recently and would otherwise never get swept.
func (r *ResultRecorder) SweepAllFlows(ctx context.Context) error {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT flow_id FROM node_results`)
	if err != nil {
		return errors.Internal("failed to list flows for retention sweep", err)
	}

	var flowIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return errors.Internal("failed to scan flow id for retention sweep", err)
		}
		flowIDs = append(flowIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Internal("failed to iterate flows for retention sweep", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(retentionSweepConcurrency)
	for _, flowID := range flowIDs {
		g.Go(func() error {
			if err := r.pruneToRetention(gctx, flowID, ""); err != nil {
				return fmt.Errorf("sweep flow %s: %w", flowID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *ResultRecorder) clearAll(ctx context.Context, flowID, currentRunID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM node_results WHERE flow_id = $1 AND run_id <> $2`, flowID, currentRunID)
	if err != nil {
		return errors.Internal("failed to clear node results", err)
	}
	return nil
}
