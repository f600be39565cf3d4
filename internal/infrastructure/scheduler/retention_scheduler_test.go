package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/scheduler"
)

type countingSweeper struct {
	calls atomic.Int64
}

func (s *countingSweeper) SweepAllFlows(ctx context.Context) error {
	s.calls.Add(1)
	return nil
}

func TestNewRetentionScheduler_RejectsInvalidCronSpec(t *testing.T) {
	_, err := scheduler.NewRetentionScheduler(&countingSweeper{}, "not a cron spec")
	assert.Error(t, err)
}

func TestNewRetentionScheduler_StartAndStopDoNotPanic(t *testing.T) {
	sweeper := &countingSweeper{}
	s, err := scheduler.NewRetentionScheduler(sweeper, "@every 1h")
	require.NoError(t, err)

	s.Start()
	s.Stop()
}
