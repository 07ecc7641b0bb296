package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"pharmpos/m/internal/api"
	"pharmpos/m/internal/config"
	"pharmpos/m/internal/database"
	"pharmpos/m/internal/events"
	"pharmpos/m/internal/logging"
	"pharmpos/m/internal/metrics"
	"pharmpos/m/internal/migrations"
	"pharmpos/m/internal/sales"
	"pharmpos/m/internal/seed"
	"pharmpos/m/internal/store"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		return err
	}

	logger, err := logging.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dialect, err := database.Connect(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("database_connect_failed", zap.Error(err))
		return err
	}
	defer db.Close()

	if err := migrations.Run(ctx, db, dialect); err != nil {
		logger.Error("migrations_failed", zap.Error(err))
		return err
	}
	st := store.New(db, dialect)

	if cfg.CatalogCSV != "" {
		if _, err := seed.LoadCatalogFile(ctx, st, cfg.CatalogCSV, logger); err != nil {
			logger.Error("catalog_seed_failed", zap.Error(err))
			return err
		}
	}
	if _, err := seed.EnsureAdmin(ctx, st, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
		logger.Error("admin_seed_failed", zap.Error(err))
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("pharmpos", reg)

	bus := events.NewBus(logger)
	events.RegisterAuditLog(bus)
	bus.Start(ctx)

	processor := sales.NewProcessor(st,
		sales.WithPublisher(bus),
		sales.WithRecorder(m),
		sales.WithLogger(logger),
		sales.WithConflictRetries(cfg.ConflictRetries),
		sales.WithTimeout(cfg.SalesTimeout),
	)

	handler := api.New(processor, st, st, cfg.Secret, api.Options{
		Logger:      logger,
		Metrics:     m,
		CORSOrigins: cfg.CORSOrigins,
		Ready:       st.Ping,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_starting", zap.String("addr", srv.Addr), zap.String("dialect", string(dialect)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server_error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server_shutdown_failed", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		logger.Warn("event_bus_stop_failed", zap.Error(err))
	}
	return nil
}
