// Package monitor periodically builds the feed in the background and logs
// whether it is healthy. Only the latest result is kept; each check is a
// full build.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"steinbockcal/internal/ics"
)

// Builder produces the serialized feed.
type Builder interface {
	Build(ctx context.Context) (string, error)
}

// Logger is the logging capability the checker depends on.
type Logger interface {
	Info(msg string, kv ...any)
	Error(msg string, err error, kv ...any)
}

// Result is the outcome of one check.
type Result struct {
	At       time.Time
	Events   int
	Duration time.Duration
	Err      error
}

// Checker runs feed checks on a cron schedule.
type Checker struct {
	builder Builder
	logger  Logger
	timeout time.Duration

	mu   sync.Mutex
	last *Result
}

// New creates a Checker; timeout bounds a single check.
func New(b Builder, logger Logger, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Checker{builder: b, logger: logger, timeout: timeout}
}

// Start schedules checks on schedule (standard cron syntax or
// descriptors such as "@every 1h"). Checks stop when ctx is cancelled.
func (c *Checker) Start(ctx context.Context, schedule string) error {
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := sched.AddFunc(schedule, func() { c.Check(ctx) }); err != nil {
		return fmt.Errorf("monitor: invalid schedule %q: %w", schedule, err)
	}
	sched.Start()
	c.logger.Info("feed check scheduled", "schedule", schedule)

	go func() {
		<-ctx.Done()
		<-sched.Stop().Done()
	}()
	return nil
}

// Check builds the feed once, reads it back and logs the outcome.
func (c *Checker) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res := Result{At: start}

	text, err := c.builder.Build(ctx)
	if err == nil {
		var got ics.Inspection
		got, err = ics.Inspect(text)
		res.Events = len(got.Events)
	}
	res.Duration = time.Since(start)
	res.Err = err

	if err != nil {
		c.logger.Error("feed check failed", err, "elapsed", res.Duration.Round(time.Millisecond))
	} else {
		c.logger.Info("feed check ok", "events", res.Events, "elapsed", res.Duration.Round(time.Millisecond))
	}

	c.mu.Lock()
	c.last = &res
	c.mu.Unlock()
	return res
}

// Last returns the most recent result, if any.
func (c *Checker) Last() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}
