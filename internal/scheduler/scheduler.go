// Package scheduler runs the tag sync jobs on fixed intervals.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Jobs are the periodic tasks of the connector.
type Jobs interface {
	SyncNewIssues(ctx context.Context) error
	RefreshIssues(ctx context.Context) error
}

// Config sets how often each job runs.
type Config struct {
	ScanInterval    time.Duration
	RefreshInterval time.Duration
}

// Scheduler wraps a cron runner. A job that is still running when its next
// tick arrives skips that tick.
type Scheduler struct {
	c      *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the jobs. Nothing runs until Start.
func New(jobs Jobs, cfg Config) (*Scheduler, error) {
	if cfg.ScanInterval <= 0 || cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("scheduler intervals must be positive, got scan=%s refresh=%s", cfg.ScanInterval, cfg.RefreshInterval)
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{c: c, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(every(cfg.ScanInterval), func() { s.run("tag-scan", jobs.SyncNewIssues) }); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule tag scan: %w", err)
	}
	if _, err := c.AddFunc(every(cfg.RefreshInterval), func() { s.run("tag-refresh", jobs.RefreshIssues) }); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule tag refresh: %w", err)
	}
	return s, nil
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	log.Info().Int("jobs", len(s.c.Entries())).Msg("Scheduler started")
	s.c.Start()
}

// Stop cancels running jobs and waits for them to return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.c.Stop()
	select {
	case <-done.Done():
		log.Info().Msg("Scheduler stopped")
	case <-ctx.Done():
		log.Warn().Msg("Scheduler stop timed out with jobs still running")
	}
}

func (s *Scheduler) run(name string, job func(context.Context) error) {
	start := time.Now()
	if err := job(s.ctx); err != nil {
		log.Error().Err(err).Str("job", name).Dur("elapsed", time.Since(start)).Msg("Scheduled job failed")
		return
	}
	log.Debug().Str("job", name).Dur("elapsed", time.Since(start)).Msg("Scheduled job finished")
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
