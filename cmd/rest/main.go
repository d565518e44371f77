package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"ai-medchat-be/internal/bootstrap"
	"ai-medchat-be/internal/config"
	"ai-medchat-be/internal/server"
	"ai-medchat-be/internal/tracer"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	defer container.Close()

	// 3. Tracing
	shutdownTracer := tracer.InitTracer(cfg.Tracing, container.Logger)
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, container)
	g, gctx := errgroup.WithContext(ctx)

	// 4. Background ingestion
	g.Go(func() error {
		container.Logger.Info("main", "Starting consumer service", nil)
		return container.ConsumerService.Consume(gctx)
	})

	// 5. HTTP
	g.Go(func() error {
		return srv.Run()
	})

	g.Go(func() error {
		<-gctx.Done()
		container.Logger.Info("main", "Shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		container.Logger.Error("main", "Server stopped with error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
