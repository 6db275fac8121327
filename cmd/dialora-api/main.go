package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/dialora/dialora/pkg/cmd"
	"github.com/dialora/dialora/pkg/engine"
	"github.com/dialora/dialora/pkg/expression"
	"github.com/dialora/dialora/pkg/janitor"
	"github.com/dialora/dialora/pkg/log"
	"github.com/dialora/dialora/pkg/registry"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "dialora-api",
		Usage:                 "Start, resume, cancel and inspect workflow executions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("DIALORA_PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DIALORA_DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("DIALORA_EVENT_BUS"),
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
			&cli.BoolFlag{
				Name:    "janitor",
				Usage:   "Cancel executions stuck waiting for input",
				Value:   true,
				Sources: cli.EnvVars("DIALORA_JANITOR"),
			},
			&cli.StringFlag{
				Name:    "janitor-schedule",
				Usage:   "Cron schedule for the janitor sweep",
				Value:   janitor.DefaultSchedule,
				Sources: cli.EnvVars("DIALORA_JANITOR_SCHEDULE"),
			},
			&cli.DurationFlag{
				Name:    "janitor-ttl",
				Usage:   "How long a waiting execution may sit before it is cancelled",
				Value:   janitor.DefaultTTL,
				Sources: cli.EnvVars("DIALORA_JANITOR_TTL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("DIALORA_LOG_LEVEL"),
			},
		},
		Action: runAPI,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func runAPI(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing Dialora API")

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

	api := NewAPI(
		logger,
		persistence,
		reg,
		eventBus,
		evaluator,
		engine.WithMaxHops(command.Int("max-hops")),
	)

	if command.Bool("janitor") {
		sweeper := janitor.New(
			persistence.ExecutionRepository(),
			api.Engine(),
			janitor.WithSchedule(command.String("janitor-schedule")),
			janitor.WithTTL(command.Duration("janitor-ttl")),
		)

		if err := sweeper.Start(ctx); err != nil {
			return err
		}

		defer sweeper.Stop()
	}

	if err := api.Start(command.Int("port")); err != nil {
		logger.ErrorContext(ctx, "Failed to start API server", "error", err)
	}

	return nil
}
