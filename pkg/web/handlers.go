// Package web provides HTTP handlers and REST API endpoints for driving
// workflow executions.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dialora/dialora/pkg/engine"
	"github.com/dialora/dialora/pkg/persistence"
	"github.com/dialora/dialora/pkg/registry"
)

type APIHandlers struct {
	engine    *engine.Engine
	store     persistence.Persistence
	registry  *registry.Registry
	validator *validator.Validate
}

func NewAPIHandlers(
	executionEngine *engine.Engine,
	store persistence.Persistence,
	registry *registry.Registry,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		engine:    executionEngine,
		store:     store,
		registry:  registry,
		validator: validator,
	}
}

// StartExecution starts a workflow execution and drives it until it
// completes, suspends for input, or fails. The resulting execution is
// returned either way; node failures are recorded on it, not mapped to an
// error status.
func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	var req StartExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.engine.StartExecution(c.Context(), engine.StartRequest{
		WorkflowID:     req.WorkflowID,
		ChatbotID:      req.ChatbotID,
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Variables:      req.Variables,
	})
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

// ResumeExecution delivers the user's reply to an execution waiting for
// input and drives it forward.
func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	var req ResumeExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	execution, err := h.engine.ResumeExecution(c.Context(), id, req.Input)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(execution)
}

// CancelExecution cancels a non-terminal execution. The request body is
// optional.
func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	var req CancelExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.engine.CancelExecution(c.Context(), id, req.Reason)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.engine.GetExecution(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(execution)
}

// ListConversationExecutions returns a conversation's executions oldest
// first.
func (h *APIHandlers) ListConversationExecutions(c fiber.Ctx) error {
	conversationID := c.Params("conversationId")
	if conversationID == "" {
		return badRequest(c, "Conversation ID is required")
	}

	executions, err := h.engine.ListExecutionsByConversation(c.Context(), conversationID)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(ExecutionListResponse{
		Executions: executions,
		TotalCount: len(executions),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	storeCheck, storeOk := "Persistence layer is healthy", true
	if err := h.store.HealthCheck(c.Context()); err != nil {
		storeCheck, storeOk = "Persistence layer is unhealthy: "+err.Error(), false
	}

	status := "unhealthy"
	message := "Dialora API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && storeOk {
		status = "healthy"
		message = "Dialora API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
