// Package main provides the Dialora API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dialora/dialora/pkg/engine"
	"github.com/dialora/dialora/pkg/eventbus"
	"github.com/dialora/dialora/pkg/expression"
	"github.com/dialora/dialora/pkg/interpolate"
	"github.com/dialora/dialora/pkg/persistence"
	"github.com/dialora/dialora/pkg/registry"
	"github.com/dialora/dialora/pkg/web"
	"github.com/dialora/dialora/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	engine      *engine.Engine
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	evaluator *expression.Evaluator,
	engineOptions ...engine.Option,
) *API {
	engineOptions = append([]engine.Option{engine.WithPublisher(eventBus)}, engineOptions...)

	executionEngine := engine.New(
		persistence,
		registry,
		workflow.NewValidator(evaluator, registry),
		interpolate.New(evaluator.Evaluate),
		engineOptions...,
	)

	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		engine:      executionEngine,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Engine exposes the execution engine so the janitor can cancel expired
// executions through the same code path the handlers use.
func (a *API) Engine() *engine.Engine {
	return a.engine
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.engine, a.persistence, a.registry, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Dialora API")
	})

	e := app.Group("/executions")
	e.Post("/", handlers.StartExecution)
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/resume", handlers.ResumeExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)

	app.Get("/conversations/:conversationId/executions", handlers.ListConversationExecutions)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
