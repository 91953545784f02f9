package main

//
//  @title           rollupd API
//  @version         1.0
//  @description     Declarative CRM rollup computation service.
//  @termsOfService  https://github.com/fundpulse/rollupd
//  @contact.name    API Support
//  @contact.url     https://github.com/fundpulse/rollupd
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        rollups
//  @tag.description Endpoints for executing and inspecting rollup runs
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fundpulse/rollupd/config"
	_ "github.com/fundpulse/rollupd/docs" // swagger docs
	"github.com/fundpulse/rollupd/internal/app"
	"github.com/fundpulse/rollupd/internal/domain/models"
	"github.com/fundpulse/rollupd/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up
// resources when an OS interrupt signal (SIGINT, SIGTERM) is received.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// readTriggerPayload loads the trigger payload for a one-shot run. An empty
// path or "-" reads stdin; an empty input means a nil trigger (full
// targeted scan finds nothing, so this is a noop unless the configuration
// is empty).
func readTriggerPayload(path string) (any, error) {
	var data []byte
	var err error

	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read trigger payload: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var trigger any
	if err := json.Unmarshal(data, &trigger); err != nil {
		return nil, fmt.Errorf("parse trigger payload: %w", err)
	}
	return trigger, nil
}

// main is the entry point of the rollupd application.
//
// Modes (selected via --mode flag):
//   - run:   Executes one rollup run for a trigger payload and prints the result.
//   - serve: Starts the REST API exposing the run endpoint and probes.
//
// Flags:
//   - --mode:    Execution mode ("run" or "serve"). Default: "run".
//   - --payload: Trigger payload JSON file for run mode ("-" = stdin).
//   - --port:    Port for the API server. Defaults to value from config (SERVER_PORT).
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	mode := flag.String("mode", "run", "Mode: run or serve")
	payload := flag.String("payload", "-", "Trigger payload JSON file (- = stdin)")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for serve mode")
	flag.Parse()

	switch *mode {
	case "run":
		logger.L().Info().Msg("running rollup computation")

		trigger, err := readTriggerPayload(*payload)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("invalid trigger payload")
		}

		deps, err := app.InitializeDeps()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("engine init error")
		}
		defer deps.Cleanup()

		result := deps.Engine.Run(ctx, trigger)

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.L().Fatal().Err(err).Msg("encode result")
		}
		fmt.Println(string(out))

		if result.Status == models.StatusError {
			deps.Cleanup()
			os.Exit(1)
		}

	case "serve":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
