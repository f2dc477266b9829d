package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/gin-gonic/gin"

	"github.com/ndrohith09/Zerobase/api_gateway/internal/graph"
	"github.com/ndrohith09/Zerobase/api_gateway/internal/handlers"
	"github.com/ndrohith09/Zerobase/api_gateway/internal/schema"
	"github.com/ndrohith09/Zerobase/api_gateway/internal/store"
	"github.com/ndrohith09/Zerobase/pkg/config"
	"github.com/ndrohith09/Zerobase/pkg/database"
	"github.com/ndrohith09/Zerobase/pkg/logging"
	"github.com/ndrohith09/Zerobase/pkg/monitoring"
	"github.com/ndrohith09/Zerobase/pkg/server"
	"github.com/ndrohith09/Zerobase/pkg/version"
)

const serviceName = "zerobase"

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService(serviceName)

	// Load environment variables
	config.LoadEnv(logger)

	logger.WithField("version", version.String()).Info("Starting Zerobase GraphQL service")

	family, err := schema.Resolve(
		config.GetEnv("ENTITY_SCHEMA_FILE", ""),
		config.GetEnv("ENTITY_FAMILY", schema.DefaultFamily),
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load entity family")
	}

	dbConfig, err := database.ConfigFromEnv()
	if err != nil {
		logger.WithError(err).Fatal("Invalid database configuration")
	}

	// Ctrl-C during the connect retries aborts startup
	startCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	db := database.MustConnect(startCtx, dbConfig, logger)
	if err := database.Provision(startCtx, db, family.DDL(), logger); err != nil {
		logger.WithError(err).Fatal("Failed to provision tables")
	}
	stop()

	app, err := newApp(logger, family, db)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build GraphQL schema")
	}

	// Use standard server startup with graceful shutdown
	serverConfig := server.DefaultConfig(serviceName, "8000")
	if err := server.Start(serverConfig, app, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	if err := db.Close(); err != nil {
		logger.WithError(err).Warn("Error closing database handle")
	}
}

// newApp wires the store, schema, monitoring and routes for one family over db.
func newApp(logger logging.Logger, family *schema.Family, db *sql.DB) (*gin.Engine, error) {
	healthChecker := monitoring.NewHealthChecker(serviceName, version.Version)
	metricsCollector := monitoring.NewMetricsCollector(serviceName, version.Version, version.GetShortCommit())

	dbQueries, dbDuration := metricsCollector.CreateDatabaseMetrics()
	st := store.NewStore(db, config.GetEnvDuration("DB_QUERY_TIMEOUT", 30*time.Second), &store.Metrics{
		Queries:  dbQueries,
		Duration: dbDuration,
	})

	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(st))
	healthChecker.AddCheck("pool", monitoring.PoolHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"ENTITY_FAMILY": family.Name,
	}))
	metricsCollector.RegisterDBStats(db, serviceName)

	gqlOps, gqlDuration := metricsCollector.CreateGraphQLMetrics()
	resolver := graph.NewResolver(st, logger, &graph.GraphQLMetrics{
		Operations: gqlOps,
		Duration:   gqlDuration,
	})
	executable, err := graph.NewSchema(family, resolver)
	if err != nil {
		return nil, err
	}

	maxDepth := config.GetEnvInt("GRAPHQL_MAX_DEPTH", 10)
	if maxDepth > 0 {
		logger.WithField("max_depth", maxDepth).Info("GraphQL depth limit enabled")
	}
	gqlHandler := handlers.NewGraphQLHandler(executable, logger, maxDepth)

	app := server.SetupServiceRouter(logger, serviceName, healthChecker, metricsCollector)

	app.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": serviceName,
			"status":  "ready",
			"family":  family.Name,
			"version": version.GetInfo(),
		})
	})
	app.GET("/schema", handlers.SchemaHandler(family))

	app.POST("/graphql", gqlHandler.Post())
	app.GET("/graphql", gqlHandler.Get())

	// Enable playground based on explicit config or GIN_MODE (default: enabled in non-release mode)
	playgroundEnabled := config.GetEnvBool("GRAPHQL_PLAYGROUND_ENABLED", config.GetEnv("GIN_MODE", "debug") != "release")
	if playgroundEnabled {
		app.GET("/graphql/playground", gin.WrapH(playground.Handler("Zerobase Playground", "/graphql")))
		logger.Info("GraphQL Playground enabled at /graphql/playground")
	}

	logger.WithFields(logging.Fields{
		"family":   family.Name,
		"entities": len(family.Entities),
	}).Info("GraphQL schema ready")

	return app, nil
}
