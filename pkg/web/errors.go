package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/dialora/dialora/pkg/engine"
	"github.com/dialora/dialora/pkg/models"
	"github.com/dialora/dialora/pkg/persistence"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

// handleEngineError provides typed error handling for engine and persistence
// layer errors.
func handleEngineError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsWorkflowNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("workflow_not_found").
			WithDetail("workflow not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsExecutionNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("execution_not_found").
			WithDetail("execution not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, engine.ErrNotWaitingForInput):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("not_waiting_for_input").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case persistence.IsConcurrentModification(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("concurrent_modification").
			WithDetail("execution was modified concurrently, retry the request")

		return c.Status(fiber.StatusConflict).JSON(problem)

	default:
		if engineErr, ok := models.AsEngineError(err); ok && engineErr.Kind == models.ErrorKindWorkflowInvalid {
			problem := problems.NewStatusProblem(422).
				WithInstance(c.Path()).
				WithType("workflow_invalid").
				WithDetail(engineErr.Error())

			return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)
		}

		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
