package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/plumline/gatekeeper/internal/api"
	"github.com/plumline/gatekeeper/internal/approval"
	"github.com/plumline/gatekeeper/internal/authz"
	"github.com/plumline/gatekeeper/internal/config"
	"github.com/plumline/gatekeeper/internal/directory"
	"github.com/plumline/gatekeeper/internal/health"
	"github.com/plumline/gatekeeper/internal/metrics"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Float64("approval_threshold", cfg.ApprovalThreshold).
		Bool("department_scoping", cfg.DepartmentScopingEnforced).
		Msg("starting gatekeeper")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Stores and engines
	dir := directory.New(cfg.DepartmentList(), nil, logger)
	grants := authz.NewGrantStore(nil, logger)
	pdp := authz.NewPDP(grants, cfg.DepartmentScopingEnforced, logger)
	approvals := approval.NewEngine(cfg.ApprovalThreshold, nil, logger)

	hours, err := cfg.WorkingHours()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid working hours")
	}
	clock := authz.NewContextProvider(hours, nil)

	if cfg.SeedDemoData || cfg.Development() {
		if err := directory.SeedDemoData(dir); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed demo data")
		}
		logger.Info().Msg("demo inventory seeded")
	}

	// Health checks: the stores are in-memory, so readiness is a cheap probe.
	checker := health.NewChecker(logger)
	checker.Register("directory", func(ctx context.Context) health.Status {
		return health.StatusOK
	})
	checker.Register("approvals", func(ctx context.Context) health.Status {
		return health.StatusOK
	})

	m := metrics.New()

	departments := make([]string, 0)
	for _, d := range cfg.DepartmentList() {
		departments = append(departments, string(d))
	}

	handlers := api.NewHandlers(dir, grants, pdp, clock, approvals, checker, m, api.ConfigResponse{
		Environment:               cfg.Environment,
		ApprovalThreshold:         cfg.ApprovalThreshold,
		WorkingHoursStart:         cfg.WorkingHoursStart,
		WorkingHoursEnd:           cfg.WorkingHoursEnd,
		DepartmentScopingEnforced: cfg.DepartmentScopingEnforced,
		Departments:               departments,
	}, logger)

	server := api.NewServer(api.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		AuthConfig: api.AuthConfig{
			Mode:      cfg.AuthMode,
			APIKey:    cfg.APIKey,
			JWTSecret: cfg.JWTSecret,
		},
		RateLimit: api.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
	}, handlers, m, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}

	shutdownDone := make(chan struct{})
	go func() {
		if err := server.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("API server shutdown error")
		}
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("gatekeeper stopped")
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}
}
