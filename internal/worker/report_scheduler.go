package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignite/region-insights/internal/pkg/distlock"
	"github.com/ignite/region-insights/internal/service/report"
)

// =============================================================================
// REPORT SCHEDULER WORKER
// =============================================================================
// Builds the overview for the trailing window and publishes it (archive plus
// digest) on a fixed interval. A distributed lock keeps a fleet of workers to
// one publication per tick.

const (
	// DefaultReportInterval is how often a report is published.
	DefaultReportInterval = time.Hour

	// ReportLockKey names the lock shared by every scheduler instance.
	ReportLockKey = "region-insights:report-scheduler"

	reportRunTimeout = 5 * time.Minute
)

// ReportPublisher builds and publishes one report.
type ReportPublisher interface {
	GenerateAndPublish(ctx context.Context, days int) (*report.Report, error)
}

// ReportScheduler publishes reports periodically.
type ReportScheduler struct {
	publisher  ReportPublisher
	lock       distlock.DistLock
	interval   time.Duration
	windowDays int

	// Stats
	runs     int64
	skipped  int64
	failures int64

	// Control
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewReportScheduler creates a scheduler. A nil lock means the scheduler
// always runs.
func NewReportScheduler(publisher ReportPublisher, lock distlock.DistLock, interval time.Duration, windowDays int) *ReportScheduler {
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	if lock == nil {
		lock = distlock.NewLock(nil, nil, ReportLockKey, 0)
	}
	return &ReportScheduler{
		publisher:  publisher,
		lock:       lock,
		interval:   interval,
		windowDays: windowDays,
	}
}

// Start publishes once right away and then on every tick until ctx is done
// or Stop is called.
func (rs *ReportScheduler) Start(ctx context.Context) error {
	rs.mu.Lock()
	if rs.running {
		rs.mu.Unlock()
		return fmt.Errorf("report scheduler already running")
	}
	rs.running = true
	ctx, rs.cancel = context.WithCancel(ctx)
	rs.mu.Unlock()

	log.Printf("[ReportScheduler] Starting with interval %v, window %d days", rs.interval, rs.windowDays)

	rs.wg.Add(1)
	go rs.loop(ctx)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (rs *ReportScheduler) Stop() {
	rs.mu.Lock()
	if !rs.running {
		rs.mu.Unlock()
		return
	}
	rs.running = false
	rs.mu.Unlock()

	log.Printf("[ReportScheduler] Stopping...")
	rs.cancel()
	rs.wg.Wait()
	log.Printf("[ReportScheduler] Stopped. Runs: %d, skipped: %d, failures: %d",
		atomic.LoadInt64(&rs.runs), atomic.LoadInt64(&rs.skipped), atomic.LoadInt64(&rs.failures))
}

func (rs *ReportScheduler) loop(ctx context.Context) {
	defer rs.wg.Done()

	rs.RunOnce(ctx)

	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rs.RunOnce(ctx)
		}
	}
}

// RunOnce publishes a report if this instance wins the lock. It reports
// whether a publication was attempted.
func (rs *ReportScheduler) RunOnce(ctx context.Context) bool {
	runCtx, cancel := context.WithTimeout(ctx, reportRunTimeout)
	defer cancel()

	ran, err := distlock.Run(runCtx, rs.lock, func(ctx context.Context) error {
		start := time.Now()
		r, err := rs.publisher.GenerateAndPublish(ctx, rs.windowDays)
		if r != nil {
			log.Printf("[ReportScheduler] Report %s: %d regions, %d alerts (%v)",
				r.ID, len(r.Overview.Regions), len(r.Alerts), time.Since(start).Round(time.Millisecond))
		}
		return err
	})

	switch {
	case err != nil:
		atomic.AddInt64(&rs.failures, 1)
		log.Printf("[ReportScheduler] Error: %v", err)
	case !ran:
		atomic.AddInt64(&rs.skipped, 1)
		log.Printf("[ReportScheduler] Lock held by another instance, skipping")
		return false
	}
	if ran {
		atomic.AddInt64(&rs.runs, 1)
	}
	return ran
}

// Stats returns counters since construction.
func (rs *ReportScheduler) Stats() (runs, skipped, failures int64) {
	return atomic.LoadInt64(&rs.runs), atomic.LoadInt64(&rs.skipped), atomic.LoadInt64(&rs.failures)
}
