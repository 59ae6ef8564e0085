// Package main is the entry point for the QVar gradient estimation
// service. QVar evaluates analytic and numeric gradients of Pauli-sum
// expectation values over parametric quantum circuits, and drives
// variational optimization runs against them.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/qvarlab/qvar/internal/clients/backend"
	"github.com/qvarlab/qvar/internal/config"
	"github.com/qvarlab/qvar/internal/database"
	"github.com/qvarlab/qvar/internal/events"
	"github.com/qvarlab/qvar/internal/modules/gradient"
	gradienthandlers "github.com/qvarlab/qvar/internal/modules/gradient/handlers"
	"github.com/qvarlab/qvar/internal/modules/simulator"
	"github.com/qvarlab/qvar/internal/modules/vqe"
	vqehandlers "github.com/qvarlab/qvar/internal/modules/vqe/handlers"
	"github.com/qvarlab/qvar/internal/scheduler"
	"github.com/qvarlab/qvar/internal/server"
	"github.com/qvarlab/qvar/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting QVar")

	// Database
	db, err := database.New(filepath.Join(cfg.DataDir, "qvar.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	runRepo := vqe.NewRunRepository(db.Conn(), log)
	if err := runRepo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database schema")
	}

	// Event bus
	eventBus := events.NewBus(log)

	// Expectation oracle and gradient estimators
	oracle := simulator.NewService(cfg.SimulatorWorkers, log)
	parameterShift := gradient.NewParameterShift(oracle, log)
	finiteDiff, err := gradient.NewFiniteDifference(oracle, cfg.FiniteDiffDelta, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid finite-difference configuration")
	}

	// Optimization run service
	vqeService := vqe.NewService(oracle, map[vqe.EstimatorKind]gradient.Estimator{
		vqe.EstimatorParameterShift:   parameterShift,
		vqe.EstimatorFiniteDifference: finiteDiff,
	}, runRepo, eventBus, log)

	// Optional remote backend status feed
	var backendStatus *backend.StatusClient
	if cfg.BackendWSURL != "" {
		backendStatus = backend.NewStatusClient(cfg.BackendWSURL, eventBus, log)
		if err := backendStatus.Start(); err != nil {
			log.Warn().Err(err).Msg("Backend status feed unavailable, continuing without it")
		}
	}

	// Background jobs
	sched := scheduler.New(log)
	if err := sched.AddJob("@daily", scheduler.NewRetentionJob(runRepo, cfg.RunRetentionDays, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register retention job")
	}
	sched.Start()

	// HTTP server
	srv := server.New(server.Config{
		Log:              log,
		Cfg:              cfg,
		DB:               db,
		EventBus:         eventBus,
		BackendStatus:    backendStatus,
		GradientHandlers: gradienthandlers.NewHandler(parameterShift, finiteDiff, eventBus, log),
		VQEHandlers:      vqehandlers.NewHandler(vqeService, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	if backendStatus != nil {
		if err := backendStatus.Stop(); err != nil {
			log.Error().Err(err).Msg("Error stopping backend status client")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
