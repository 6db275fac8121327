// Package janitor expires conversations that stopped answering. A cron
// sweep finds executions that have been waiting for input longer than the
// TTL and cancels them, releasing their conversations.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dialora/dialora/pkg/log"
	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/persistence"
)

const (
	// DefaultSchedule runs the sweep every five minutes.
	DefaultSchedule = "@every 5m"

	// DefaultTTL is how long a suspended execution may wait for input
	// before it is considered abandoned.
	DefaultTTL = 24 * time.Hour
)

// Canceller force-fails an execution. Implemented by engine.Engine.
type Canceller interface {
	CancelExecution(ctx context.Context, executionID, reason string) (*models.Execution, error)
}

// Janitor periodically cancels abandoned executions.
type Janitor struct {
	executions persistence.ExecutionRepository
	canceller  Canceller
	logger     *slog.Logger
	cron       *cron.Cron
	schedule   string
	ttl        time.Duration
}

// Option configures a Janitor.
type Option func(*Janitor)

// WithSchedule overrides the sweep schedule. Accepts standard cron
// expressions and @every descriptors.
func WithSchedule(schedule string) Option {
	return func(j *Janitor) {
		if schedule != "" {
			j.schedule = schedule
		}
	}
}

// WithTTL overrides how long executions may wait for input.
func WithTTL(ttl time.Duration) Option {
	return func(j *Janitor) {
		if ttl > 0 {
			j.ttl = ttl
		}
	}
}

// New creates a janitor sweeping the given repository through the given
// canceller.
func New(executions persistence.ExecutionRepository, canceller Canceller, opts ...Option) *Janitor {
	janitor := &Janitor{
		executions: executions,
		canceller:  canceller,
		logger:     log.WithModule("janitor"),
		schedule:   DefaultSchedule,
		ttl:        DefaultTTL,
	}

	for _, opt := range opts {
		opt(janitor)
	}

	return janitor
}

// Start schedules the sweep and returns immediately.
func (j *Janitor) Start(ctx context.Context) error {
	j.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.Sweep(ctx); err != nil {
			j.logger.ErrorContext(ctx, "Janitor sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.schedule, err)
	}

	j.cron.Start()
	j.logger.Info("Janitor started", "schedule", j.schedule, "ttl", j.ttl)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}

	j.logger.Info("Janitor stopped")
}

// Sweep cancels every execution that has been waiting for input longer
// than the TTL and returns how many it cancelled. Executions the user
// resumes mid-sweep are left alone.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	waiting, err := j.executions.ListByStatus(ctx, models.ExecutionStatusWaitingInput)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-j.ttl)
	reason := fmt.Sprintf("no user input received within %s", j.ttl)
	cancelled := 0

	for _, execution := range waiting {
		if execution.UpdatedAt.After(cutoff) {
			continue
		}

		result, err := j.canceller.CancelExecution(ctx, execution.ID, reason)
		if err != nil {
			// A concurrent resume or cancel won the revision race; the
			// conversation is live again and no longer ours to expire.
			if persistence.IsConcurrentModification(err) {
				continue
			}

			j.logger.ErrorContext(ctx, "Failed to cancel expired execution",
				"execution_id", execution.ID,
				"error", err)

			continue
		}

		if result.Error == nil || result.Error.Message != reason {
			continue
		}

		cancelled++

		j.logger.InfoContext(ctx, "Cancelled expired execution",
			"execution_id", execution.ID,
			"conversation_id", execution.ConversationID,
			"waited_since", execution.UpdatedAt)
	}

	return cancelled, nil
}
