// Package scheduler runs the village pipelines on cron expressions inside the worker process.
// It is used when no Temporal cluster is configured.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

// Entry binds a five-field cron expression (UTC) to a pipeline type.
type Entry struct {
	Pipeline string
	Cron     string
}

// PipelineRunner is the subset of the jobs runtime the scheduler drives.
type PipelineRunner interface {
	Known(pipeline string) bool
	Trigger(pipeline, triggeredBy string) error
	Wait()
}

const TriggeredBy = "schedule"

type Scheduler struct {
	log    *logger.Logger
	runner PipelineRunner
	cron   *cron.Cron
}

// New validates every entry up front; a bad expression or unknown pipeline is a startup error.
func New(log *logger.Logger, runner PipelineRunner, entries []Entry) (*Scheduler, error) {
	s := &Scheduler{
		log:    log.With("service", "CronScheduler"),
		runner: runner,
		cron:   cron.New(cron.WithLocation(time.UTC)),
	}
	for _, e := range entries {
		if !runner.Known(e.Pipeline) {
			return nil, fmt.Errorf("schedule %q: unknown pipeline", e.Pipeline)
		}
		pipeline := e.Pipeline
		if _, err := s.cron.AddFunc(e.Cron, func() { s.fire(pipeline) }); err != nil {
			return nil, fmt.Errorf("schedule %q: bad cron %q: %w", e.Pipeline, e.Cron, err)
		}
		s.log.Info("Pipeline scheduled", "pipeline", e.Pipeline, "cron", e.Cron)
	}
	return s, nil
}

func (s *Scheduler) fire(pipeline string) {
	if err := s.runner.Trigger(pipeline, TriggeredBy); err != nil {
		s.log.Error("Scheduled trigger failed", "pipeline", pipeline, "error", err)
	}
}

// Next reports when each scheduled entry fires next, in insertion order.
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Schedule.Next(time.Now().UTC()))
	}
	return out
}

// Run blocks until ctx is done, then waits for in-flight runs to return.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.runner.Wait()
	s.log.Info("Scheduler stopped")
}
