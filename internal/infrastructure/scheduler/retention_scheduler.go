package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Sweeper prunes stored execution results down to the retention window
// across every flow, not just the one that just finished running.
type Sweeper interface {
	SweepAllFlows(ctx context.Context) error
}

// RetentionScheduler runs the result recorder's retention sweep on a cron
// schedule, complementing the inline prune that runs at the start of each
// run, to cover flows that haven't run recently.
type RetentionScheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
}

// NewRetentionScheduler builds a scheduler that sweeps on the given
// standard 5-field cron spec (e.g. "0 * * * *" for hourly).
func NewRetentionScheduler(sweeper Sweeper, spec string) (*RetentionScheduler, error) {
	c := cron.New()
	s := &RetentionScheduler{cron: c, sweeper: sweeper}

	if _, err := c.AddFunc(spec, s.runSweep); err != nil {
		return nil, fmt.Errorf("scheduling retention sweep %q: %w", spec, err)
	}

	return s, nil
}

func (s *RetentionScheduler) runSweep() {
	if err := s.sweeper.SweepAllFlows(context.Background()); err != nil {
		fmt.Printf("retention sweep error: %v\n", err)
	}
}

// Start begins running the scheduled sweep in the background.
func (s *RetentionScheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for any in-flight sweep to finish.
func (s *RetentionScheduler) Stop() {
	<-s.cron.Stop().Done()
}
