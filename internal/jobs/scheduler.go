package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"cashcraft/api/internal/metrics"
)

// Probe checks one backing service.
type Probe func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	log     zerolog.Logger
	timeout time.Duration
}

func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		log:     log,
		timeout: 2 * time.Second,
	}
}

// AddProbe runs probe on the cron schedule and publishes the result as the
// dependency_up gauge for name.
func (s *Scheduler) AddProbe(schedule string, name string, probe Probe) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.runProbe(name, probe) }); err != nil {
		return fmt.Errorf("schedule %s probe: %w", name, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for running probes, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runProbe(name string, probe Probe) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := probe(ctx)
	metrics.SetDependencyUp(name, err == nil)
	if err != nil {
		s.log.Warn().Err(err).Str("dependency", name).Msg("dependency probe failed")
		return false
	}
	return true
}
