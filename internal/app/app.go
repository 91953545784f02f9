package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/fundpulse/rollupd/config"
	"github.com/fundpulse/rollupd/internal/api"
	"github.com/fundpulse/rollupd/internal/crm"
	"github.com/fundpulse/rollupd/internal/rollup"
	"github.com/fundpulse/rollupd/internal/storage"
)

// crm.Client must satisfy the engine's record-store surface.
var _ rollup.DataClient = (*crm.Client)(nil)

// Deps bundles the initialized application dependencies.
type Deps struct {
	Engine  *rollup.Engine
	RunLog  storage.RunLogRepository // nil when the run log is disabled
	Ready   func() error             // readiness check; nil means always ready
	Cleanup func()                   // releases resources on shutdown
}

// InitializeDeps builds the rollup engine (and, when enabled, the run-log
// repository) from the global configuration.
func InitializeDeps() (*Deps, error) {
	cfg := config.AppConfig

	client := crm.NewClient(cfg.CRM.APIKey, cfg.CRM.BaseURL, cfg.CRM.PageSize)

	deps := &Deps{Cleanup: func() {}}

	if cfg.RunLog.Enabled {
		db, err := postgresOpener(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		deps.RunLog = storage.NewRunLogRepository(db)
		deps.Ready = db.Ping
		deps.Cleanup = func() { _ = db.Close() }
	}

	var recorder rollup.RunRecorder
	if deps.RunLog != nil {
		recorder = deps.RunLog
	}
	deps.Engine = rollup.NewEngine(client, recorder, rollup.Options{
		APIKey:         cfg.CRM.APIKey,
		ConfigOverride: cfg.Rollup.Override,
	})

	return deps, nil
}

// InitializeApp sets up all application dependencies and returns a fully
// configured Gin router, a cleanup function for graceful shutdown, and any
// error encountered during initialization.
//
// Responsibilities:
//   - Builds the record-store client and rollup engine.
//   - Optionally connects to PostgreSQL for the run log.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
func InitializeApp() (*gin.Engine, func(), error) {
	deps, err := InitializeDeps()
	if err != nil {
		return nil, nil, err
	}

	handler := api.NewHandler(deps.Engine, deps.RunLog)
	router := api.NewRouter(handler)

	healthHandler := api.NewHealthHandler(deps.Ready)
	healthHandler.Register(router)

	return router, deps.Cleanup, nil
}
