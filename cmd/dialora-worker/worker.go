package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dialora/dialora/pkg/engine"
	"github.com/dialora/dialora/pkg/eventbus"
	"github.com/dialora/dialora/pkg/events"
	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/persistence"
)

// Worker consumes user replies from the event bus and resumes the waiting
// execution of each conversation.
type Worker struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *engine.Engine
	eventBus    eventbus.EventBus
}

func NewWorker(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	executionEngine *engine.Engine,
) *Worker {
	return &Worker{
		id:          id,
		logger:      logger.With("worker_id", id),
		persistence: persistence,
		engine:      executionEngine,
		eventBus:    eventBus,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker")

	err := w.eventBus.Handle(events.ConversationUserRepliedEvent, w.handleUserReplied)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		w.logger.InfoContext(ctx, "Shutting down worker...")
	case <-ctx.Done():
	}

	return nil
}

// handleUserReplied resumes the conversation's waiting execution with the
// reply text. Returning an error nacks the message for redelivery, so only
// infrastructure failures propagate; a reply that lost its execution is
// acked and dropped.
func (w *Worker) handleUserReplied(ctx context.Context, event any) error {
	replied, ok := event.(*events.ConversationUserReplied)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for ConversationUserReplied")

		return nil
	}

	logger := w.logger.With(
		"conversation_id", replied.ConversationID,
		"event_id", replied.ID,
	)

	execution, err := w.waitingExecution(ctx, replied)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to look up waiting execution", "error", err)

		return err
	}

	if execution == nil {
		logger.InfoContext(ctx, "No execution waiting for input, dropping reply")

		return nil
	}

	logger = logger.With("execution_id", execution.ID)
	logger.InfoContext(ctx, "Resuming execution with user reply")

	_, err = w.engine.ResumeExecution(ctx, execution.ID, replied.Text)

	switch {
	case err == nil:
		return nil
	case persistence.IsConcurrentModification(err):
		// Another worker applied this reply first.
		logger.InfoContext(ctx, "Execution already resumed elsewhere")

		return nil
	case errors.Is(err, engine.ErrNotWaitingForInput), persistence.IsExecutionNotFound(err):
		logger.InfoContext(ctx, "Execution no longer waiting for input", "error", err)

		return nil
	default:
		logger.ErrorContext(ctx, "Failed to resume execution", "error", err)

		return err
	}
}

// waitingExecution picks the execution the reply belongs to. The event names
// one directly when the producer knows it, otherwise the oldest waiting
// execution of the conversation wins.
func (w *Worker) waitingExecution(ctx context.Context, replied *events.ConversationUserReplied) (*models.Execution, error) {
	if replied.ExecutionID != "" {
		execution, err := w.persistence.ExecutionRepository().GetByID(ctx, replied.ExecutionID)
		if err != nil {
			if persistence.IsExecutionNotFound(err) {
				return nil, nil
			}

			return nil, err
		}

		return execution, nil
	}

	executions, err := w.persistence.ExecutionRepository().ListByConversation(ctx, replied.ConversationID)
	if err != nil {
		return nil, err
	}

	for _, execution := range executions {
		if execution.Status == models.ExecutionStatusWaitingInput {
			return execution, nil
		}
	}

	return nil, nil
}
