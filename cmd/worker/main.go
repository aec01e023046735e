package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duuta/ocr-flavors/internal/bootstrap"
	"github.com/duuta/ocr-flavors/internal/config"
	"github.com/duuta/ocr-flavors/internal/core/usecase"
	"github.com/duuta/ocr-flavors/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.Setup(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{WithQueue: true})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.Metrics.Handler(),
	}
	go func() {
		logger.Info("metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, storageKey string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		f, err := app.Storage.Open(processCtx, storageKey)
		if err != nil {
			return err
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return err
		}

		_, err = app.ProcessUC.Process(processCtx, usecase.Request{
			Filename: storageKey,
			Data:     data,
		})
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
