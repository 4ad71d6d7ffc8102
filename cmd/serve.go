package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "power_schedule/docs"
	"power_schedule/internal/config"
	"power_schedule/internal/handlers"
	"power_schedule/internal/logger"
	"power_schedule/internal/metrics"
	"power_schedule/internal/repository"
	"power_schedule/internal/repository/db"
	"power_schedule/internal/server"
	"power_schedule/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, live editor and power monitor",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port")
	_ = v.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.SigningKey == "" {
		return errors.New("auth.signing_key is required")
	}

	log := logger.Get(cfg.LogLevel)
	defer func() { _ = log.Sync() }()
	if cfg.LogLevel != logger.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.InitDB(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			log.Errorw("db_close_failed", "err", cerr)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	services := service.NewService(repository.NewRepository(database), authConfig(cfg), m, log)
	if err := services.TimeZones.Seed(ctx, cfg.TimeZones); err != nil {
		return err
	}

	go services.Monitor.Run(ctx, cfg.Monitor.Tick)

	srv := server.New(cfg.Port, handlers.NewHandler(services, log, m).InitRoutes())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()
	log.Infow("server_started", "addr", srv.Addr(), "db", cfg.DB.Path)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infow("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func authConfig(cfg *config.Config) service.AuthConfig {
	return service.AuthConfig{
		SigningKey:   cfg.Auth.SigningKey,
		TokenTTL:     cfg.Auth.TokenTTL,
		Editors:      cfg.Auth.Editors,
		SpecialUsers: cfg.Auth.SpecialUsers,
	}
}
