package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/region-insights/internal/app"
	"github.com/ignite/region-insights/internal/config"
	"github.com/ignite/region-insights/internal/pkg/distlock"
	"github.com/ignite/region-insights/internal/worker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	once := flag.Bool("once", false, "publish a single report and exit")
	flag.Parse()

	log.Println("Starting Region Insights report worker...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	lock := distlock.NewLock(a.Redis, a.DB, worker.ReportLockKey, cfg.Schedule.LockTTL())
	scheduler := worker.NewReportScheduler(a.Reports, lock, cfg.Schedule.Interval(), cfg.Schedule.WindowDays)

	if *once {
		if !scheduler.RunOnce(ctx) {
			log.Println("Report not published (lock held elsewhere)")
		}
		if _, _, failures := scheduler.Stats(); failures > 0 {
			a.Close()
			os.Exit(1)
		}
		return
	}

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start report scheduler: %v", err)
	}
	log.Println("Worker running...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down worker...")
	cancel()
	scheduler.Stop()
	log.Println("Worker stopped")
}
