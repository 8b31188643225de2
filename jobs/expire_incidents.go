package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/weak-excuse/api-go/config"
)

// ErrSweepInProgress is returned by RunOnce when the previous sweep has not
// finished yet.
var ErrSweepInProgress = errors.New("expiry sweep already running")

// Expirer moves overdue incidents to expired and reports how many moved.
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// ExpirySweeper periodically expires incidents nobody resolved in time.
// Failures are logged and retried on the next tick; they never stop the
// process.
type ExpirySweeper struct {
	expirer Expirer
	cfg     config.SweeperConfig
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	cron     *cron.Cron
	cancel   context.CancelFunc
	inFlight atomic.Bool
	// startup tracks the run-on-start sweep, which cron does not know about.
	startup sync.WaitGroup
}

func NewExpirySweeper(expirer Expirer, cfg config.SweeperConfig, logger *slog.Logger) *ExpirySweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpirySweeper{
		expirer: expirer,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "expiry_sweeper")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the sweep. It returns immediately; Stop ends it.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	if s == nil || !s.cfg.Enabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	clog := cronLogger{s.logger}
	recoverer := cron.Recover(clog)
	c := cron.New(cron.WithLogger(clog), cron.WithChain(recoverer, cron.SkipIfStillRunning(clog)))
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.tick(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule expiry sweep %q: %w", s.cfg.Schedule, err)
	}
	s.cron = c
	s.cancel = cancel
	c.Start()

	if s.cfg.RunOnStart {
		job := cron.NewChain(recoverer).Then(cron.FuncJob(func() { s.tick(runCtx) }))
		s.startup.Add(1)
		go func() {
			defer s.startup.Done()
			job.Run()
		}()
	}
	s.logger.Info("expiry sweeper started", slog.String("schedule", s.cfg.Schedule))
	return nil
}

// Stop unschedules the sweep and waits for running sweeps, scheduled or
// startup, to finish, or for ctx to end. On ctx expiry the running sweep's
// context is cancelled.
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	cronDone := c.Stop()
	defer cancel()
	finished := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.startup.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single sweep. Overlapping calls are refused with
// ErrSweepInProgress.
func (s *ExpirySweeper) RunOnce(ctx context.Context) (int64, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return 0, ErrSweepInProgress
	}
	defer s.inFlight.Store(false)

	count, err := s.expirer.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "expired incidents", slog.Int64("count", count))
	}
	return count, nil
}

func (s *ExpirySweeper) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := s.RunOnce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSweepInProgress):
		s.logger.DebugContext(ctx, "skipping expiry sweep, previous run still in flight")
	default:
		s.logger.ErrorContext(ctx, "expiry sweep failed", slog.Any("error", err))
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
