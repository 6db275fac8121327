package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dialora/dialora/pkg/cmd"
	"github.com/dialora/dialora/pkg/engine"
	"github.com/dialora/dialora/pkg/expression"
	"github.com/dialora/dialora/pkg/interpolate"
	"github.com/dialora/dialora/pkg/log"
	"github.com/dialora/dialora/pkg/registry"
	"github.com/dialora/dialora/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "dialora-worker",
		EnableShellCompletion: true,
		Usage:                 "Consume user replies and resume waiting executions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("DIALORA_WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DIALORA_DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus provider (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("DIALORA_EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "emitter",
				Usage:   "Conversation output emitter (bus, log)",
				Value:   "bus",
				Sources: cli.EnvVars("DIALORA_EMITTER"),
			},
			&cli.StringFlag{
				Name:    "context-store-url",
				Usage:   "Conversation context store URL (redis://... or empty for in-memory)",
				Sources: cli.EnvVars("DIALORA_CONTEXT_STORE_URL"),
			},
			&cli.DurationFlag{
				Name:    "context-ttl",
				Usage:   "Expiry for conversation context entries (0 keeps them forever)",
				Sources: cli.EnvVars("DIALORA_CONTEXT_TTL"),
			},
			&cli.StringFlag{
				Name:    "integration-url",
				Usage:   "Base URL of the integration gateway",
				Sources: cli.EnvVars("DIALORA_INTEGRATION_URL"),
			},
			&cli.DurationFlag{
				Name:    "integration-timeout",
				Usage:   "Default timeout for integration calls",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("DIALORA_INTEGRATION_TIMEOUT"),
			},
			&cli.IntFlag{
				Name:    "max-hops",
				Usage:   "Node transition ceiling per execution",
				Value:   engine.DefaultMaxHops,
				Sources: cli.EnvVars("DIALORA_MAX_HOPS"),
			},
			&cli.StringFlag{
				Name:    "telegram-token",
				Usage:   "Telegram bot token; enables the Telegram bridge when set",
				Sources: cli.EnvVars("DIALORA_TELEGRAM_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("DIALORA_LOG_LEVEL"),
			},
		},
		Action: runWorker,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func runWorker(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	workerID := command.String("worker-id")
	if workerID == "" {
		workerID = "worker-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("worker").With("worker_id", workerID)

	logger.InfoContext(ctx, "Initializing Dialora Worker")

	eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	evaluator := expression.NewEvaluator()

	reg := cmd.NewRegistry(registry.Collaborators{
		Emitter:            cmd.NewEmitter(command.String("emitter"), eventBus),
		Evaluator:          evaluator,
		Actions:            cmd.NewActionTable(),
		Integrations:       cmd.NewIntegrationInvoker(command.String("integration-url")),
		IntegrationTimeout: command.Duration("integration-timeout"),
		Context:            cmd.NewContextStore(ctx, command.String("context-store-url"), command.Duration("context-ttl")),
	})

	executionEngine := engine.New(
		persistence,
		reg,
		workflow.NewValidator(evaluator, reg),
		interpolate.New(evaluator.Evaluate),
		engine.WithPublisher(eventBus),
		engine.WithMaxHops(command.Int("max-hops")),
	)

	if token := command.String("telegram-token"); token != "" {
		if err := registerTelegramBridge(ctx, eventBus, token, logger); err != nil {
			return err
		}
	}

	worker := NewWorker(
		workerID,
		persistence,
		eventBus,
		logger,
		executionEngine,
	)

	err := worker.Start(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to start worker", "error", err)
	}

	return nil
}
