package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/94faddy/dz-wrokshop/internal/archive"
	"github.com/94faddy/dz-wrokshop/internal/authtoken"
	"github.com/94faddy/dz-wrokshop/internal/config"
	"github.com/94faddy/dz-wrokshop/internal/logbus"
	"github.com/94faddy/dz-wrokshop/internal/logging"
	"github.com/94faddy/dz-wrokshop/internal/metadata"
	"github.com/94faddy/dz-wrokshop/internal/orchestrator"
	"github.com/94faddy/dz-wrokshop/internal/registry"
	"github.com/94faddy/dz-wrokshop/internal/server"
	"github.com/94faddy/dz-wrokshop/internal/steamclient"
	"github.com/94faddy/dz-wrokshop/internal/workspace"
)

// App holds every wired component of one running process (§9 Design
// Notes: dependency injection over globals).
type App struct {
	Config *config.Config
	Logger arbor.ILogger

	Adapter      *steamclient.Adapter
	Workspace    *workspace.Manager
	Builder      *archive.Builder
	Registry     *registry.Registry
	LogBus       *logbus.Bus
	Metadata     *metadata.Fetcher
	Verifier     *authtoken.Verifier
	Orchestrator *orchestrator.Orchestrator
	Sweeper      *orchestrator.Sweeper
	Server       *server.Server
}

// New wires every component from Config, following the leaves-first order
// of SPEC_FULL §2: leaf components are constructed before the
// Orchestrator that depends on all of them, and the Server last.
func New(cfg *config.Config) (*App, error) {
	logger := logging.New(cfg.Logging)
	logging.PrintBanner(config.GetVersion())

	a := &App{Config: cfg, Logger: logger}

	a.Workspace = workspace.New(cfg.Workspace.Root, cfg.Orchestrator.StaleDeadline)
	if removed, err := a.Workspace.SweepAllUnconditional(); err != nil {
		logger.Warn().Err(err).Msg("startup workspace sweep failed")
	} else if removed > 0 {
		logger.Info().Int("removed", removed).Msg("removed pre-existing workspaces at startup")
	}

	a.Builder = archive.New(logger)
	a.Registry = registry.New()
	a.LogBus = logbus.New(cfg.LogRing.Capacity)
	a.Metadata = metadata.New()

	a.Adapter = steamclient.New(steamclient.Options{
		BinaryPath:      cfg.Steam.BinaryPath,
		AppID:           cfg.Steam.AppID,
		Username:        cfg.Steam.Username,
		Password:        cfg.Steam.Password,
		FetchTimeout:    cfg.Steam.FetchTimeout,
		VerifyTimeout:   cfg.Steam.VerifyTimeout,
		SessionCacheTTL: cfg.Steam.SessionCacheTTL,
	}, a.Workspace)

	if cfg.Auth.ObserverSecret != "" {
		a.Verifier = authtoken.NewVerifier(cfg.Auth.ObserverSecret)
	}

	// §4.1: "authenticateWithSecondFactor(code) -> ok ... used once per
	// session bootstrap." When an out-of-band code is configured, spend it
	// here so every job afterward finds an already-verified session
	// instead of failing on the first SecondFactorRequired.
	if cfg.Steam.Username != "" && cfg.Steam.SecondFactor != "" {
		bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), cfg.Steam.VerifyTimeout)
		err := a.Adapter.AuthenticateWithSecondFactor(bootstrapCtx, cfg.Steam.Username, cfg.Steam.Password, cfg.Steam.SecondFactor)
		bootstrapCancel()
		if err != nil {
			logger.Warn().Err(err).Msg("second-factor session bootstrap failed")
		} else {
			logger.Info().Msg("second-factor session bootstrap succeeded")
		}
	}

	orchCfg := orchestrator.Config{
		AppID:           cfg.Steam.AppID,
		Anonymous:       cfg.Steam.Username == "",
		Username:        cfg.Steam.Username,
		Password:        cfg.Steam.Password,
		MaxConcurrent:   cfg.Orchestrator.MaxConcurrent,
		MaxAttempts:     cfg.Steam.MaxAttempts,
		RetryBaseDelay:  cfg.Steam.RetryBaseDelay,
		FetchTimeout:    cfg.Steam.FetchTimeout,
		ArchiveRoot:     cfg.Archive.Root,
		ArchiveMinBytes: cfg.Archive.MinBytes,
		BuildDeadline:   cfg.Archive.BuildDeadline,
		StaleDeadline:   cfg.Orchestrator.StaleDeadline,
	}
	a.Orchestrator = orchestrator.New(orchCfg, a.Adapter, a.Builder, a.Workspace, a.Registry, a.LogBus, a.Metadata, logger)

	sweeper, err := orchestrator.NewSweeper(cfg.Orchestrator.SweepInterval, cfg.Orchestrator.StaleDeadline, a.Workspace, a.Registry, a.Orchestrator, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize sweeper: %w", err)
	}
	a.Sweeper = sweeper

	a.Server = server.New(server.Options{Host: cfg.Server.Host, Port: cfg.Server.Port}, a.Orchestrator, a.Registry, a.LogBus, a.Verifier, logger)

	return a, nil
}

// Start begins background workers. The HTTP server itself is started by
// the caller via App.Server.Start so main can select on signals.
func (a *App) Start() {
	a.Sweeper.Start()
	a.Logger.Info().Msg("workspace sweeper started")
}

// Close performs an orderly shutdown of every started background
// component.
func (a *App) Close(ctx context.Context) error {
	a.Logger.Info().Msg("shutting down")

	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.Adapter != nil {
		a.Adapter.Close()
	}
	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	time.Sleep(50 * time.Millisecond)
	return nil
}
