package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/logging"
	"github.com/user/cyberpulse/pkg/runner"
)

// Scheduler re-runs a batch file on a cron schedule so a monitored control
// set is assessed continuously. Each run reads the file afresh.
type Scheduler struct {
	spec      string
	batchPath string
	policy    engine.FailurePolicy
	run       *runner.Runner
	crosswalk func() (engine.Crosswalk, string)
	log       *slog.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewScheduler validates spec (standard five-field cron syntax or
// descriptors such as "@hourly").
func NewScheduler(spec, batchPath string, policy engine.FailurePolicy, run *runner.Runner,
	crosswalk func() (engine.Crosswalk, string), log *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Scheduler{
		spec:      spec,
		batchPath: batchPath,
		policy:    policy,
		run:       run,
		crosswalk: crosswalk,
		log:       log.With("component", "scheduler"),
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}, nil
}

// Start schedules the job and stops it when ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule batch: %w", err)
	}
	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started", "schedule", s.spec, "batch", s.batchPath)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// RunOnce evaluates the batch file now
func (s *Scheduler) RunOnce(ctx context.Context) (runner.Report, error) {
	f, err := runner.LoadFile(s.batchPath)
	if err != nil {
		s.log.Error("scheduled batch unreadable", "error", err)
		return runner.Report{}, err
	}

	cw, source := s.crosswalk()
	rep, err := s.run.Run(ctx, runner.Batch{
		Items:           f.Items,
		Policy:          s.policy,
		CrosswalkURL:    f.CrosswalkURL,
		Crosswalk:       cw,
		CrosswalkSource: source,
	})
	if err != nil {
		s.log.Error("scheduled batch failed", "run_id", rep.RunID, "error", err)
		return rep, err
	}
	s.log.Info("scheduled batch done", "run_id", rep.RunID, "items", len(rep.Outputs))
	return rep, nil
}

// Stop waits for a running job to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.log.Info("scheduler stopped")
	}
}
