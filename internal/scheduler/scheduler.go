// Package scheduler runs a periodic task on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// Task is the work run on each tick that is due.
type Task func(ctx context.Context) error

// Status is a snapshot of the scheduler state.
type Status struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	NextRun   time.Time `json:"next_run"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
}

// Scheduler runs one named task whenever its schedule is due.
type Scheduler struct {
	name         string
	expr         string
	schedule     cron.Schedule
	task         Task
	logger       *slog.Logger
	now          func() time.Time
	tickInterval time.Duration

	mu        sync.Mutex
	started   bool
	running   bool
	nextRun   time.Time
	lastRun   time.Time
	lastError string
	runs      int
	wg        sync.WaitGroup
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithLogger configures the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTickInterval sets how often the schedule is checked.
func WithTickInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.tickInterval = interval
		}
	}
}

// ParseSchedule validates a cron expression. Five or six fields and
// descriptors such as "@hourly" or "@every 10m" are accepted.
func ParseSchedule(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("schedule is required")
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// New creates a scheduler for task.
func New(name, expr string, task Task, opts ...Option) (*Scheduler, error) {
	if task == nil {
		return nil, fmt.Errorf("task is required")
	}
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		name:         name,
		expr:         strings.TrimSpace(expr),
		schedule:     schedule,
		task:         task,
		logger:       slog.Default().With("component", "scheduler"),
		now:          time.Now,
		tickInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.nextRun = schedule.Next(s.now())
	return s, nil
}

// Start checks the schedule every tick until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("scheduler started", "task", s.name, "schedule", s.expr, "next_run", s.Status().NextRun)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runDue(ctx)
			}
		}
	}()
	return nil
}

// Stop waits for the scheduler loop to stop.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce runs the task if it is due and reports whether it ran.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if s == nil {
		return false
	}
	return s.runDue(ctx)
}

// Status returns a snapshot of the schedule state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Name:      s.name,
		Schedule:  s.expr,
		NextRun:   s.nextRun,
		LastRun:   s.lastRun,
		LastError: s.lastError,
		Runs:      s.runs,
	}
}

func (s *Scheduler) runDue(ctx context.Context) bool {
	now := s.now()
	s.mu.Lock()
	if s.running || s.nextRun.IsZero() || now.Before(s.nextRun) {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.lastRun = now
	s.mu.Unlock()

	err := s.task(ctx)
	if err != nil {
		s.logger.Warn("scheduled task failed", "task", s.name, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.runs++
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.nextRun = s.schedule.Next(now)
	return true
}
