// Package engine drives workflow executions. The controller loads a
// workflow, walks the graph node by node through the handler registry,
// persists a snapshot after every step and stops at suspension, completion
// or failure. Node failures never surface as Go errors: they are recorded
// on the execution itself, so a caller always gets back an inspectable
// state. Errors returned by the engine are infrastructure problems
// (storage, conflicts, cancelled contexts).
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dialora/dialora/pkg/eventbus"
	"github.com/dialora/dialora/pkg/events"
	"github.com/dialora/dialora/pkg/interpolate"
	"github.com/dialora/dialora/pkg/log"
	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/otelhelper"
	"github.com/dialora/dialora/pkg/persistence"
	"github.com/dialora/dialora/pkg/protocol"
	"github.com/dialora/dialora/pkg/registry"
	"github.com/dialora/dialora/pkg/workflow"
)

// DefaultMaxHops bounds node transitions per execution. Jump nodes make
// cyclic graphs legal, so the ceiling is what turns an authoring mistake
// into a deterministic failure instead of a spinning worker.
const DefaultMaxHops = 1000

var (
	// ErrWorkflowNotFound is returned when the requested workflow does not exist.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// ErrExecutionNotFound is returned when the requested execution does not exist.
	ErrExecutionNotFound = persistence.ErrExecutionNotFound

	// ErrNotWaitingForInput rejects a resume on an execution that is not
	// suspended at an input node.
	ErrNotWaitingForInput = errors.New("execution is not waiting for input")
)

// StartRequest carries everything needed to begin a new execution.
type StartRequest struct {
	WorkflowID     string
	ChatbotID      string
	UserID         string
	ConversationID string
	Variables      map[string]any
}

// Engine is the execution controller. All mutable state lives inside the
// execution being driven; the engine itself is safe for concurrent use.
type Engine struct {
	workflows    persistence.WorkflowRepository
	executions   persistence.ExecutionRepository
	registry     *registry.Registry
	validator    *workflow.Validator
	interpolator *interpolate.Interpolator
	publisher    eventbus.EventPublisher
	tracer       trace.Tracer
	logger       *slog.Logger
	maxHops      int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxHops overrides the transition budget guarding against jump cycles.
func WithMaxHops(maxHops int) Option {
	return func(e *Engine) {
		if maxHops > 0 {
			e.maxHops = maxHops
		}
	}
}

// WithPublisher wires lifecycle event publishing. Without a publisher the
// engine runs silently, which is valid for tests and one-shot tooling.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

// WithTracer replaces the globally registered tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// New creates an execution controller on top of the given store and handler
// registry.
func New(store persistence.Persistence, reg *registry.Registry, validator *workflow.Validator, interpolator *interpolate.Interpolator, opts ...Option) *Engine {
	engine := &Engine{
		workflows:    store.WorkflowRepository(),
		executions:   store.ExecutionRepository(),
		registry:     reg,
		validator:    validator,
		interpolator: interpolator,
		tracer:       otel.Tracer("dialora.engine"),
		logger:       log.WithModule("engine"),
		maxHops:      DefaultMaxHops,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// StartExecution validates the workflow's latest version, creates an
// execution at its start node and drives it until it suspends, completes or
// fails. The returned execution reflects the persisted state; node failures
// come back as Status failed, not as an error.
func (e *Engine) StartExecution(ctx context.Context, req StartRequest) (*models.Execution, error) {
	wf, err := e.workflows.GetByID(ctx, req.WorkflowID)
	if err != nil {
		return nil, err
	}

	result := e.validator.Validate(wf)
	if !result.OK {
		return nil, models.NewEngineError(models.ErrorKindWorkflowInvalid, "", "workflow %s version %d: %s", wf.ID, wf.Version, result.Summary())
	}

	execution := models.NewExecution(wf, wf.StartNodes()[0].ID, req.UserID, req.ConversationID, req.Variables)
	if req.ChatbotID != "" {
		execution.ChatbotID = req.ChatbotID
	}

	if err := e.executions.Create(ctx, execution); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Execution started",
		"execution_id", execution.ID,
		"workflow_id", wf.ID,
		"workflow_version", wf.Version,
		"conversation_id", execution.ConversationID)

	e.publish(ctx, execution.ConversationID, events.ExecutionStarted{
		BaseEvent:       events.NewBaseEvent(events.ExecutionStartedEvent, execution),
		WorkflowVersion: execution.WorkflowVersion,
		UserID:          execution.UserID,
	})

	if err := e.drive(ctx, wf, execution, resumeInput{}); err != nil {
		return execution, err
	}

	return execution, nil
}

// ResumeExecution delivers user input to a suspended execution and drives
// it forward. Exactly one of two racing resumes wins; the loser gets an
// ErrConcurrentModification and must reload.
func (e *Engine) ResumeExecution(ctx context.Context, executionID string, input any) (*models.Execution, error) {
	execution, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status != models.ExecutionStatusWaitingInput {
		return execution, fmt.Errorf("execution %s is %s: %w", executionID, execution.Status, ErrNotWaitingForInput)
	}

	wf, err := e.workflows.GetByIDAndVersion(ctx, execution.WorkflowID, execution.WorkflowVersion)
	if err != nil {
		return nil, err
	}

	// The status flip is persisted together with the input node's result in
	// the first drive step, so delivering input is atomic: a racing resume
	// loses on that write and never half-applies.
	execution.Status = models.ExecutionStatusRunning

	if err := e.drive(ctx, wf, execution, resumeInput{value: input, has: true}); err != nil {
		return execution, err
	}

	return execution, nil
}

// CancelExecution force-fails a non-terminal execution. Already-terminal
// executions are left untouched, making the call idempotent. An in-flight
// drive step for the same execution loses its next optimistic save and
// discards its result.
func (e *Engine) CancelExecution(ctx context.Context, executionID, reason string) (*models.Execution, error) {
	execution, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status.Terminal() {
		return execution, nil
	}

	if reason == "" {
		reason = "cancelled by caller"
	}

	execution.ExitNode(time.Now().UTC())
	execution.Fail(models.ErrorKindCancelledByCaller, execution.CurrentNodeID, reason)

	if err := e.executions.Update(ctx, execution); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Execution cancelled",
		"execution_id", execution.ID,
		"reason", reason)

	e.publish(ctx, execution.ConversationID, events.ExecutionCancelled{
		BaseEvent: events.NewBaseEvent(events.ExecutionCancelledEvent, execution),
		Reason:    reason,
	})

	return execution, nil
}

// GetExecution returns the persisted state of one execution.
func (e *Engine) GetExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	return e.executions.GetByID(ctx, executionID)
}

// ListExecutionsByConversation returns every execution bound to the
// conversation, oldest first.
func (e *Engine) ListExecutionsByConversation(ctx context.Context, conversationID string) ([]*models.Execution, error) {
	return e.executions.ListByConversation(ctx, conversationID)
}

// resumeInput carries user input into the first drive step after a resume.
type resumeInput struct {
	value any
	has   bool
}

// drive advances the execution until it leaves the running state. Every
// step persists a snapshot before the loop continues, so a crash resumes at
// the last completed node. A concurrent modification aborts the loop
// without applying the step's result.
func (e *Engine) drive(ctx context.Context, wf *models.Workflow, execution *models.Execution, in resumeInput) error {
	for execution.Status == models.ExecutionStatusRunning {
		if err := ctx.Err(); err != nil {
			return err
		}

		if execution.HopCount >= e.maxHops {
			return e.failExecution(ctx, execution,
				models.NewEngineError(models.ErrorKindMaxHopsExceeded, execution.CurrentNodeID, "hop budget of %d exhausted", e.maxHops))
		}

		node := wf.NodeByID(execution.CurrentNodeID)
		if node == nil {
			return e.failExecution(ctx, execution,
				models.NewEngineError(models.ErrorKindWorkflowInvalid, execution.CurrentNodeID, "current node %q does not exist in workflow %s version %d", execution.CurrentNodeID, wf.ID, wf.Version))
		}

		handler, err := e.registry.HandlerFor(node.Type)
		if err != nil {
			return e.failExecution(ctx, execution, toEngineError(err, node.ID))
		}

		stepCtx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.step",
			attribute.String(otelhelper.ExecutionIDKey, execution.ID),
			attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
			attribute.String(otelhelper.ConversationIDKey, execution.ConversationID),
			attribute.String(otelhelper.NodeIDKey, node.ID),
			attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
		)

		interpolated := *node
		interpolated.Data = e.interpolator.Fields(node.Data, execution.Variables)

		e.enterNode(execution, node.ID)

		outcome, err := handler.Process(stepCtx, protocol.Request{
			Node:      &interpolated,
			Outgoing:  wf.OutgoingConnections(node.ID),
			Execution: execution,
			Input:     in.value,
			HasInput:  in.has,
		})
		if err != nil {
			otelhelper.SetError(span, err)
			span.End()

			return e.failExecution(ctx, execution, toEngineError(err, node.ID))
		}

		for name, value := range outcome.Updates {
			execution.SetVariable(name, value)
		}

		now := time.Now().UTC()

		switch outcome.Kind {
		case protocol.OutcomeAdvance:
			execution.ExitNode(now)
			execution.CurrentNodeID = outcome.NextNodeID
			execution.HopCount++
		case protocol.OutcomeSuspend:
			execution.Status = models.ExecutionStatusWaitingInput
		case protocol.OutcomeComplete:
			execution.ExitNode(now)
			execution.Complete()
		default:
			span.End()

			return e.failExecution(ctx, execution,
				models.NewEngineError(models.ErrorKindWorkflowInvalid, node.ID, "handler for %q returned no decision", node.Type))
		}

		span.End()

		if err := e.executions.Update(ctx, execution); err != nil {
			if persistence.IsConcurrentModification(err) {
				e.logger.WarnContext(ctx, "Execution modified concurrently, discarding step result",
					"execution_id", execution.ID,
					"node_id", node.ID)
			}

			return err
		}

		if in.has {
			e.publish(ctx, execution.ConversationID, events.ExecutionResumed{
				BaseEvent: events.NewBaseEvent(events.ExecutionResumedEvent, execution),
				NodeID:    node.ID,
				Input:     in.value,
			})

			in = resumeInput{}
		}

		switch execution.Status {
		case models.ExecutionStatusWaitingInput:
			question, _ := interpolated.DataString("question")

			e.logger.InfoContext(ctx, "Execution waiting for input",
				"execution_id", execution.ID,
				"node_id", node.ID)

			e.publish(ctx, execution.ConversationID, events.ExecutionWaitingInput{
				BaseEvent: events.NewBaseEvent(events.ExecutionWaitingInputEvent, execution),
				NodeID:    node.ID,
				Question:  question,
			})

			return nil
		case models.ExecutionStatusCompleted:
			e.logger.InfoContext(ctx, "Execution completed",
				"execution_id", execution.ID,
				"hop_count", execution.HopCount)

			e.publish(ctx, execution.ConversationID, events.ExecutionCompleted{
				BaseEvent: events.NewBaseEvent(events.ExecutionCompletedEvent, execution),
				Duration:  now.Sub(execution.CreatedAt),
				HopCount:  execution.HopCount,
			})

			return nil
		}
	}

	return nil
}

// enterNode opens a history entry unless the execution is re-entering the
// node it suspended on, which continues the existing visit.
func (e *Engine) enterNode(execution *models.Execution, nodeID string) {
	if n := len(execution.History); n > 0 {
		last := execution.History[n-1]
		if last.NodeID == nodeID && last.ExitedAt == nil {
			return
		}
	}

	execution.EnterNode(nodeID, time.Now().UTC())
}

// failExecution records a node failure on the execution and persists it.
// The failure itself is data, not an error: only persistence problems
// propagate to the caller.
func (e *Engine) failExecution(ctx context.Context, execution *models.Execution, engineErr *models.EngineError) error {
	execution.ExitNode(time.Now().UTC())

	nodeID := engineErr.NodeID
	if nodeID == "" {
		nodeID = execution.CurrentNodeID
	}

	execution.Fail(engineErr.Kind, nodeID, failureMessage(engineErr))

	if err := e.executions.Update(ctx, execution); err != nil {
		return err
	}

	e.logger.ErrorContext(ctx, "Execution failed",
		"execution_id", execution.ID,
		"kind", engineErr.Kind,
		"node_id", nodeID,
		"detail", execution.Error.Message)

	e.publish(ctx, execution.ConversationID, events.ExecutionFailed{
		BaseEvent: events.NewBaseEvent(events.ExecutionFailedEvent, execution),
		Kind:      engineErr.Kind,
		NodeID:    nodeID,
		Error:     execution.Error.Message,
	})

	return nil
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"error", err)
	}
}

// toEngineError normalizes a handler error. Handlers return engine errors;
// anything else leaked out of an external collaborator and is treated as an
// integration failure.
func toEngineError(err error, nodeID string) *models.EngineError {
	if engineErr, ok := models.AsEngineError(err); ok {
		if engineErr.NodeID == "" {
			engineErr.NodeID = nodeID
		}

		return engineErr
	}

	return &models.EngineError{Kind: models.ErrorKindIntegrationError, NodeID: nodeID, Err: err}
}

func failureMessage(engineErr *models.EngineError) string {
	message := engineErr.Detail

	if engineErr.Err != nil {
		if message != "" {
			message += ": "
		}

		message += engineErr.Err.Error()
	}

	return message
}
