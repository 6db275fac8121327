package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dialora/dialora/pkg/persistence"
	"github.com/dialora/dialora/pkg/persistence/file"
	"github.com/dialora/dialora/pkg/persistence/memory"
	"github.com/dialora/dialora/pkg/persistence/postgresql"
)

var supportedPersistenceProviders = []string{"file", "memory", "postgres", "postgresql"}

// NewPersistence selects the persistence layer from the database URL scheme.
// Bare paths and unknown schemes fall back to the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return store
	case "memory":
		return memory.NewPersistence()
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
