// Package httpd runs the sitewatch service: the scheduler, the HTTP API,
// and their shared dependencies.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitewatch/sitewatch/internal/api"
	"github.com/sitewatch/sitewatch/internal/changes"
	"github.com/sitewatch/sitewatch/internal/config"
	"github.com/sitewatch/sitewatch/internal/database"
	"github.com/sitewatch/sitewatch/internal/indexing"
	"github.com/sitewatch/sitewatch/internal/logger"
	"github.com/sitewatch/sitewatch/internal/scheduler"
	"github.com/sitewatch/sitewatch/internal/secrets"
)

const (
	errorChannelBufferSize = 1
	defaultShutdownTimeout = 30 * time.Second
)

// Command returns the httpd cobra command.
func Command(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Run the sitewatch server",
		Long:  `Start the scheduler and the HTTP API, running until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Start(cmd.Context(), *cfgFile)
		},
	}
}

// Start runs the server until interrupted, then shuts down gracefully.
func Start(ctx context.Context, cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if validateErr := cfg.Validate(); validateErr != nil {
		return fmt.Errorf("invalid config: %w", validateErr)
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if migrateErr := database.Migrate(ctx, db); migrateErr != nil {
		return fmt.Errorf("failed to run migrations: %w", migrateErr)
	}

	cipher, err := secrets.NewCipher(cfg.Secrets.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}

	jobRepo := database.NewJobRepository(db)
	runRepo := database.NewRunRepository(db)
	credRepo := database.NewCredentialRepository(db)
	docRepo := database.NewDocumentRepository(db)
	changeRepo := database.NewChangeRepository(db)

	versioner := changes.NewVersioner(docRepo, changeRepo, changes.NewDetector(0))

	indexer, err := indexing.NewElasticIndexer(cfg.Elasticsearch, nil, log)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}

	orch := scheduler.New(scheduler.Deps{
		Logger:      log,
		Jobs:        jobRepo,
		Runs:        runRepo,
		Credentials: credRepo,
		Versioner:   versioner,
		Indexer:     indexer,
		Cipher:      cipher,
	})
	if startErr := orch.Start(ctx); startErr != nil {
		return fmt.Errorf("failed to start scheduler: %w", startErr)
	}

	tenant := cfg.Crawler.Tenant
	router := api.SetupRouter(log, api.Handlers{
		Jobs:        api.NewJobsHandler(jobRepo, runRepo, orch, tenant),
		Documents:   api.NewDocumentsHandler(docRepo, changeRepo, tenant),
		Credentials: api.NewCredentialsHandler(credRepo, cipher, tenant),
		Templates:   api.NewTemplatesHandler(),
	})

	server := api.NewHTTPServer(api.ServerConfig{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, router)

	errChan := make(chan error, errorChannelBufferSize)
	go func() {
		log.Info("HTTP server listening", "address", cfg.Server.Address)
		if serveErr := server.ListenAndServe(); serveErr != nil &&
			!errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	return waitForShutdown(ctx, log, server, orch, errChan)
}

// waitForShutdown blocks until a signal or server error, then stops the
// server and the scheduler.
func waitForShutdown(
	ctx context.Context,
	log logger.Interface,
	server *http.Server,
	orch *scheduler.Orchestrator,
	errChan <-chan error,
) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info("Shutdown signal received", "signal", sig.String())
	case serveErr := <-errChan:
		log.Error("HTTP server error", "error", serveErr.Error())
	case <-ctx.Done():
		log.Info("Context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("HTTP server shutdown failed", "error", shutdownErr.Error())
	}
	orch.Shutdown()

	log.Info("Server stopped")
	return nil
}
