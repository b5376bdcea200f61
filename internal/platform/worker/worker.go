// Package worker runs poll-based background jobs such as the inbox watcher.
//
// A loop calls Process once per iteration, runs due periodic tasks first and
// waits PollInterval between iterations. Consecutive failures stretch the
// wait exponentially up to MaxBackoff, so a watcher pointed at an unreachable
// store does not spin on the same file.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/dupcheck/internal/platform/observability"
)

const (
	logFieldWorker = "worker"
	logFieldTask   = "task"
	logFieldWait   = "wait"

	outcomeOK    = "ok"
	outcomeError = "error"
	outcomePanic = "panic"

	// DefaultMaxBackoff caps the failure backoff when Config.MaxBackoff is zero.
	DefaultMaxBackoff = 5 * time.Minute
)

// ErrPanic wraps a panic raised by a ProcessFunc.
var ErrPanic = errors.New("worker process panicked")

// ProcessFunc is called each iteration to process work items.
// It should return quickly if no work is available.
type ProcessFunc func(ctx context.Context) error

// PeriodicTask represents a task that runs at regular intervals.
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
	lastRun  time.Time
}

// Config configures the worker loop behavior.
type Config struct {
	// Name identifies the worker for logging and metrics.
	Name string

	// PollInterval is the time between process iterations.
	PollInterval time.Duration

	// MaxBackoff caps the wait after consecutive failures.
	MaxBackoff time.Duration

	Process ProcessFunc

	PeriodicTasks []PeriodicTask

	// OnStop is called once when the loop exits.
	OnStop func()

	// OnError is called when Process returns an error or panics.
	// Return true to continue, false to exit the loop.
	OnError func(err error) bool

	Logger *zerolog.Logger
}

// Loop runs until ctx is canceled or OnError asks it to stop.
// Returns the wrapped context error on cancellation, or the error OnError rejected.
func Loop(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	logger.Info().Str(logFieldWorker, cfg.Name).Msg("starting worker loop")

	defer func() {
		if cfg.OnStop != nil {
			cfg.OnStop()
		}

		observability.WorkerBackoff.WithLabelValues(cfg.Name).Set(0)
		logger.Info().Str(logFieldWorker, cfg.Name).Msg("worker loop stopped")
	}()

	periodicTasks := make([]PeriodicTask, len(cfg.PeriodicTasks))
	copy(periodicTasks, cfg.PeriodicTasks)

	failures := 0

	for {
		if err := checkCanceled(ctx, cfg.Name); err != nil {
			return err
		}

		runPeriodicTasks(ctx, periodicTasks, logger)

		err := runProcessStep(ctx, cfg, logger)
		if err != nil && !errors.Is(err, errContinue) {
			return err
		}

		if err != nil {
			failures++
		} else {
			failures = 0
		}

		wait := Backoff(cfg.PollInterval, cfg.MaxBackoff, failures)
		observability.WorkerBackoff.WithLabelValues(cfg.Name).Set(wait.Seconds())

		if failures > 0 {
			logger.Debug().Str(logFieldWorker, cfg.Name).Dur(logFieldWait, wait).Msg("backing off after failure")
		}

		if err := Wait(ctx, wait); err != nil {
			return err
		}
	}
}

// Backoff returns the wait after the given number of consecutive failures:
// base doubled per failure, capped at maxWait.
func Backoff(base, maxWait time.Duration, failures int) time.Duration {
	if maxWait <= 0 {
		maxWait = DefaultMaxBackoff
	}

	if base <= 0 || failures <= 0 {
		return base
	}

	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxWait {
			return maxWait
		}
	}

	return wait
}

func runPeriodicTasks(ctx context.Context, tasks []PeriodicTask, logger *zerolog.Logger) {
	now := time.Now()

	for i := range tasks {
		task := &tasks[i]
		if task.Interval <= 0 || task.Run == nil {
			continue
		}

		if now.Sub(task.lastRun) >= task.Interval {
			logger.Debug().Str(logFieldTask, task.Name).Msg("running periodic task")
			runTask(ctx, task, logger)
			task.lastRun = now
		}
	}
}

func runTask(ctx context.Context, task *PeriodicTask, logger *zerolog.Logger) {
	defer RecoverPanic(logger, "periodic task "+task.Name)

	task.Run(ctx)
}

// errContinue marks a handled failure that keeps the loop running.
var errContinue = errors.New("continue after failure")

func runProcessStep(ctx context.Context, cfg Config, logger *zerolog.Logger) error {
	if cfg.Process == nil {
		return nil
	}

	err := safeProcess(ctx, cfg.Process)

	switch {
	case err == nil:
		observability.WorkerIterations.WithLabelValues(cfg.Name, outcomeOK).Inc()
		return nil
	case errors.Is(err, ErrPanic):
		observability.WorkerIterations.WithLabelValues(cfg.Name, outcomePanic).Inc()
	default:
		observability.WorkerIterations.WithLabelValues(cfg.Name, outcomeError).Inc()
	}

	if cfg.OnError != nil {
		if !cfg.OnError(err) {
			return err
		}

		return errContinue
	}

	logger.Error().Err(err).Str(logFieldWorker, cfg.Name).Msg("process error")

	return errContinue
}

func safeProcess(ctx context.Context, fn ProcessFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	return fn(ctx)
}

func checkCanceled(ctx context.Context, name string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("worker loop %s: %w", name, ctx.Err())
	default:
		return nil
	}
}

// Wait blocks until duration elapses or context is canceled.
// Returns a wrapped context error if context is canceled.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// RecoverPanic recovers from panics and logs them.
// Use as: defer worker.RecoverPanic(logger, "operation name")
func RecoverPanic(logger *zerolog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error().
			Interface("panic", r).
			Str("operation", operation).
			Msg("recovered from panic")
	}
}
