package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BloggingApp/megablog/internal/bootstrap"
	"github.com/BloggingApp/megablog/internal/config"
	"github.com/BloggingApp/megablog/internal/handler"
	"github.com/BloggingApp/megablog/internal/server"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(".")
	if err != nil {
		logger.Sugar().Panicf("failed to load config: %s", err.Error())
	}

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Sugar().Panicf("failed to initialize %s backend: %s", cfg.Store.Backend, err.Error())
	}
	defer app.Close()

	handlers := handler.New(app.Services, cfg.Origins, cfg.Media.MaxUploadBytes)

	srv := server.New(config.ServerConfig{
		Port:           cfg.Port,
		Handler:        handlers.InitRoutes(),
		MaxHeaderBytes: 1 << 20,
		ReadTimeout:    time.Second * 10,
		WriteTimeout:   time.Second * 10,
	})
	go func() {
		if err := srv.Run(); err != nil {
			logger.Sugar().Panicf("failed to run http server: %s", err.Error())
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("backend", cfg.Store.Backend),
		zap.String("media", cfg.Media.Driver),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Server shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("failed to shut down http server: %s", err.Error())
	}
}
