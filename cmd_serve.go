package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"adei_backend/agent"
	"adei_backend/charts"
	"adei_backend/core"
	"adei_backend/core/validation"
	"adei_backend/db"
	"adei_backend/logging"
	"adei_backend/metrics"
	"adei_backend/shutdown"
	"adei_backend/webui"
	"adei_backend/webui/auth"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Start the dashboard and chat web application",
		UsageText: "adei serve [--host HOST] [--port PORT]",
		Description: "Runs startup validation, opens the database, and serves the\n" +
			"dashboard, the REST API, and the WebSocket chat agent until\n" +
			"SIGINT or SIGTERM. On Windows the same server can run under the\n" +
			"service manager; see 'adei service --help'.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "listen `HOST` (default from configuration)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "listen `PORT` (default from configuration)",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer syncLogger(log)

	if host := c.String("host"); host != "" {
		cfg.Host = host
	}
	if port := c.Int("port"); port != 0 {
		cfg.Port = port
	}

	// Full validation before binding the port: serve needs the database,
	// the dataset, and a reachable LLM endpoint.
	suite := validation.NewValidationSuite(cfg)
	result := suite.Validate(c.Context)
	if !result.OK(false) {
		log.Errorw("Startup validation failed", "summary", result.Summary())
		return fmt.Errorf("startup validation failed: %s", result.Summary())
	}

	log.Infow("Configuration loaded",
		"addr", cfg.ListenAddr(),
		"model", cfg.Model,
		"llm_url", cfg.BaseLLMURL,
		"database", cfg.DatabasePath,
		"shutdown_timeout", cfg.ShutdownTimeout(),
		"development", cfg.Development,
	)

	return runServer(c.Context, cfg, log)
}

// runServer wires every component and blocks until shutdown completes.
// It is shared by the serve command and the Windows service entry point,
// which differ only in where the parent context comes from.
func runServer(parent context.Context, cfg *core.Config, log *logging.Logger) error {
	manager := shutdown.NewManager(log, shutdown.WithTimeout(cfg.ShutdownTimeout()))

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	manager.Register("database", 30, func(context.Context) error {
		return database.Close()
	})

	// Reads go straight to the pool; chat history writes funnel through
	// the async writer so request handling never blocks on SQLite.
	base := db.NewRepository(database, nil)
	writer := db.NewAsyncWriter(base.CreateAsyncWriteHandler())
	writer.Start()
	repo := db.NewRepository(database, writer)
	manager.Register("async-writer", 20, func(context.Context) error {
		writer.Close()
		return nil
	})

	client := core.NewAIClient(cfg, log)
	sqlAgent := agent.New(agent.ConfigFromCore(cfg), client, repo, log)
	chartExtractor := charts.NewChartExtractor(charts.DefaultChartExtractorConfig(), client, log)
	store := metrics.NewMetricsStore(metrics.DefaultStoreConfig(), time.Now())

	deps := webui.ServerDeps{
		Config:    cfg,
		Database:  database,
		Repo:      repo,
		Agent:     sqlAgent,
		Extractor: chartExtractor,
		Store:     store,
		Manager:   manager,
		Logger:    log,
	}

	if cfg.WebUIPassword != "" {
		authMw, err := auth.NewAuthMiddleware(cfg.WebUIPassword, log)
		if err != nil {
			_ = manager.Shutdown()
			return fmt.Errorf("configuring authentication: %w", err)
		}
		authMw.StartCleanup(manager.Context())
		deps.Auth = authMw
	} else {
		log.Warnw("Web UI password not set, serving without authentication")
	}

	server, err := webui.NewServer(deps)
	if err != nil {
		_ = manager.Shutdown()
		return fmt.Errorf("building web server: %w", err)
	}
	manager.Register("http-server", 5, func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})

	// Interrupted dataset writes leave temp files next to the outputs
	manager.Register("temp-files", 40, shutdown.CleanupTempFiles(log, cfg.DataDir, "*.tmp*"))

	manager.Start()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(manager.Context())
	}()

	log.Infow("ADEI Explorer ready",
		"addr", cfg.ListenAddr(),
		"version", core.GetVersion(),
		"auth_enabled", cfg.WebUIPassword != "",
	)

	var runErr error
	select {
	case err := <-serverErr:
		// Listener failed before any shutdown signal
		runErr = err
	case <-manager.Context().Done():
	case <-parent.Done():
		log.Infow("Parent context cancelled, shutting down")
	}

	if err := manager.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	// Conventional 128+N exit code so process managers see which signal
	// ended the server
	if sig := manager.Signal(); sig != nil {
		return cli.Exit("", core.ExitCodeForSignal(sig))
	}
	return nil
}
