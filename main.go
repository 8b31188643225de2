package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weak-excuse/api-go/config"
	"github.com/weak-excuse/api-go/jobs"
	"github.com/weak-excuse/api-go/routes"
	"github.com/weak-excuse/api-go/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}

	logger := config.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	// Initialize database
	db, err := config.InitDB(cfg.Database)
	if err != nil {
		logger.Error("failed to initialize database", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	incidents := services.NewIncidentService(db, cfg.Incidents.Rules(), logger)

	sweeper := jobs.NewExpirySweeper(incidents, cfg.Sweeper, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Error("failed to start expiry sweeper", slog.Any("error", err))
		os.Exit(1)
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithWriter(os.Stdout))

	routes.SetupRoutes(r, incidents, cfg.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("starting server", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		logger.Error("sweeper shutdown", slog.Any("error", err))
	}
}
