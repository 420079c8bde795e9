package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/region-insights/internal/api"
	"github.com/ignite/region-insights/internal/app"
	"github.com/ignite/region-insights/internal/config"
	"github.com/ignite/region-insights/internal/pkg/distlock"
	"github.com/ignite/region-insights/internal/worker"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %v", addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	log.Println("Starting Region Insights server...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	addr := cfg.Server.Addr()
	if err := checkPortAvailable(addr); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()
	log.Printf("Tracking %d regions", len(cfg.TrackedRegions))

	// The server can also run the publisher; the lock keeps it to one host
	// when cmd/worker runs alongside.
	var scheduler *worker.ReportScheduler
	if cfg.Schedule.Enabled {
		lock := distlock.NewLock(a.Redis, a.DB, worker.ReportLockKey, cfg.Schedule.LockTTL())
		scheduler = worker.NewReportScheduler(a.Reports, lock, cfg.Schedule.Interval(), cfg.Schedule.WindowDays)
		if err := scheduler.Start(ctx); err != nil {
			log.Fatalf("Failed to start report scheduler: %v", err)
		}
	}

	handlers := api.NewHandlers(a.Reports, a.Storage, cfg.Schedule.WindowDays)
	var health *api.HealthChecker
	if a.S3 != nil {
		health = api.NewHealthChecker(a.DB, a.Redis, a.S3, cfg.Storage.S3Bucket)
	} else {
		health = api.NewHealthChecker(a.DB, a.Redis, nil, "")
	}
	server := api.NewServer(cfg.Server, handlers, health)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	cancel()
	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
