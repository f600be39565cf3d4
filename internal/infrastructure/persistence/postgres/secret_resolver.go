package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SecretResolver resolves <secret:KEY>/<environment:KEY> placeholders
// against per-project, per-stage tables, implementing
// execution.SecretResolver.
type SecretResolver struct {
	pool *pgxpool.Pool
}

// NewSecretResolver creates a new secret/environment variable resolver.
func NewSecretResolver(pool *pgxpool.Pool) *SecretResolver {
	return &SecretResolver{pool: pool}
}

// GetSecret looks up a secret's plaintext value for a project and stage.
func (r *SecretResolver) GetSecret(ctx context.Context, projectID, stage, key string) (string, bool) {
	var value string
	err := r.pool.QueryRow(ctx, `
		SELECT value FROM secrets WHERE project_id = $1 AND stage = $2 AND key = $3
	`, projectID, stage, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// GetEnvVar looks up an environment variable's value for a project and
// stage.
func (r *SecretResolver) GetEnvVar(ctx context.Context, projectID, stage, key string) (string, bool) {
	var value string
	err := r.pool.QueryRow(ctx, `
		SELECT value FROM environment_variables WHERE project_id = $1 AND stage = $2 AND key = $3
	`, projectID, stage, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}
