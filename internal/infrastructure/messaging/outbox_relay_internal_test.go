package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTopic(t *testing.T) {
	cases := []struct {
		name          string
		aggregateType string
		eventType     string
		want          string
	}{
		{"run aggregate", "run", "created", "polysynergy.runs.run.created"},
		{"execution aggregate", "execution", "node_started", "polysynergy.executions.execution.node_started"},
		{"everything else falls back to events", "assistant", "updated", "polysynergy.events.assistant.updated"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, buildTopic(tc.aggregateType, tc.eventType))
		})
	}
}
