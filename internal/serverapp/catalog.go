package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"modelgraph/internal/catalog"
	"modelgraph/internal/compiler"
	"modelgraph/internal/config"
	"modelgraph/internal/dbexec"
	"modelgraph/internal/logging"
	"modelgraph/internal/naming"
	"modelgraph/internal/registry"
	"modelgraph/internal/resolver"
	"modelgraph/internal/sqlutil"

	"github.com/graphql-go/graphql"
)

// prepareCatalog registers the catalog models under the configured naming
// rules, then creates and seeds their tables when asked to.
func prepareCatalog(ctx context.Context, cfg *config.Config, logger *logging.Logger, db *sql.DB, dialect sqlutil.Dialect) (*registry.Registry, error) {
	namer := naming.New(cfg.Schema.Naming())
	entities, err := catalog.Entities(namer)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(entities, registry.WithNamer(namer))
	if err != nil {
		return nil, err
	}

	exec := dbexec.NewStandardExecutor(db)
	if cfg.Database.Bootstrap {
		if err := catalog.Bootstrap(ctx, exec, dialect, entities); err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		logger.Info("catalog tables ready", slog.Int("tables", len(entities)))
	}
	if cfg.Database.Seed {
		if err := catalog.Seed(ctx, exec, dialect, entities); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
		logger.Info("catalog seed rows applied")
	}
	return reg, nil
}

func buildSchema(cfg *config.Config, logger *logging.Logger, reg *registry.Registry, dialect sqlutil.Dialect) (graphql.Schema, error) {
	strategy, err := compiler.ParseStrategy(cfg.Schema.EagerStrategy)
	if err != nil {
		return graphql.Schema{}, err
	}

	schema, err := resolver.NewResolver(reg,
		resolver.WithDialect(dialect),
		resolver.WithStrategy(strategy),
		resolver.WithBatchSize(cfg.Schema.BatchSize),
	).BuildGraphQLSchema()
	if err != nil {
		return graphql.Schema{}, err
	}

	logger.Info("GraphQL schema built",
		slog.Int("types", len(reg.Entities())),
		slog.String("eager_strategy", string(strategy)),
		slog.Int("batch_size", cfg.Schema.BatchSize),
	)
	return schema, nil
}
