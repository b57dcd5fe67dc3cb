package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"nous-core/internal/bootstrap"
	"nous-core/internal/config"
	"nous-core/internal/pkg/logger"
	"nous-core/internal/server"
	"nous-core/internal/tracer"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Tracing, sysLogger)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, cfg, sysLogger)
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	defer container.Close()

	// 4. Start Background Services
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Fatalf("Failed to start cleanup consumer: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.ProgressHub.Run(gctx) })
	g.Go(func() error { return container.ChatHub.Run(gctx) })
	g.Go(func() error { return container.GenerationService.RunSweeper(gctx) })
	g.Go(func() error { return container.ChatbotService.RunCleanup(gctx, cfg.Pipeline.ChatCleanupInterval) })

	// 5. Initialize Server
	srv := server.New(cfg, container)
	g.Go(func() error { return srv.Run(gctx) })

	if err := g.Wait(); err != nil {
		sysLogger.Error("MAIN", "Shutting down with error", map[string]interface{}{"error": err.Error()})
	}

	// In-flight generation runs finish before the process exits.
	container.GenerationService.Wait()
	sysLogger.Info("MAIN", "Shutdown complete", nil)
}
