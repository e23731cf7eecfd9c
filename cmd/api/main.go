package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // IANA zones for dispatch on hosts without zoneinfo

	_ "github.com/redmonkez12/diary-api/docs" // Swagger docs (generated)
	"github.com/redmonkez12/diary-api/internal/app"
	"github.com/redmonkez12/diary-api/internal/config"
	"github.com/redmonkez12/diary-api/internal/email"
	httpServer "github.com/redmonkez12/diary-api/internal/http"
	"github.com/redmonkez12/diary-api/internal/logging"
	"github.com/redmonkez12/diary-api/internal/scheduler"
)

// @title           Diary API
// @version         1.0
// @description     Personal diary API with AI recommendations and scheduled recommendation emails.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a federated access token or a personal access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logging.SetDefault(logger)
	slog.SetDefault(logger.Logger)
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"auth_strategy", cfg.Auth.Strategy,
		"pat_store", cfg.PAT.Store,
		"email_transport", cfg.Email.Transport,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	router, err := application.Router()
	if err != nil {
		return err
	}

	// A bad interval is a configuration error and stops startup
	loop, err := application.NewLoop()
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	var housekeeping *scheduler.Housekeeping
	if cfg.Housekeeping.Enabled {
		housekeeping = application.NewHousekeeping()
		if err := housekeeping.Start(cfg.Housekeeping.Schedule); err != nil {
			return err
		}
	}

	background := make(chan struct{})
	go func() {
		defer close(background)
		loop.Run(ctx)
	}()

	workerDone := make(chan struct{})
	if application.Queue != nil && cfg.Email.RunWorker {
		deliveries, err := application.Queue.Consume("diary-api")
		if err != nil {
			return err
		}
		worker := email.NewWorker(application.SMTP, logger)
		go func() {
			defer close(workerDone)
			if err := worker.Run(ctx, deliveries); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("email worker stopped", "error", err)
			}
		}()
	} else {
		close(workerDone)
	}

	// Initialize HTTP server
	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		stop()
		<-background
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	if housekeeping != nil {
		select {
		case <-housekeeping.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn("housekeeping still running at shutdown")
		}
	}

	for _, done := range []chan struct{}{background, workerDone} {
		select {
		case <-done:
		case <-shutdownCtx.Done():
			logger.Warn("background work still running at shutdown")
		}
	}

	return nil
}
