// Package app wires configuration into the report service and its
// collaborators for the server and worker binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/region-insights/internal/cache"
	"github.com/ignite/region-insights/internal/config"
	"github.com/ignite/region-insights/internal/digest"
	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/pkg/logger"
	"github.com/ignite/region-insights/internal/repository/postgres"
	"github.com/ignite/region-insights/internal/service/report"
	"github.com/ignite/region-insights/internal/snowflake"
	"github.com/ignite/region-insights/internal/storage"
)

// App holds every long-lived dependency.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	Redis   *redis.Client
	S3      *s3.Client
	Storage *storage.Storage
	Reports *report.Service

	closers []func() error
}

// New connects to the configured backends and builds the report service.
// Redis and the digest are optional; the campaign source and storage are not.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if level, ok := logger.ParseLevel(cfg.Log.Level); ok {
		logger.SetLevel(level)
	}
	logger.SetRedactPII(true)

	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if cfg.Database.URL != "" {
		db, err := openPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)
	}

	source, err := a.campaignSource(cfg)
	if err != nil {
		return nil, err
	}

	opts := []report.Option{}

	if cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			// The cache is an optimisation; run uncached rather than not at all.
			log.Printf("[App] Warning: Redis unavailable, reports will not be cached: %v", err)
		} else {
			a.Redis = client
			a.closers = append(a.closers, client.Close)
			opts = append(opts, report.WithCache(cache.NewReportCache(client, cfg.Redis.KeyPrefix, cfg.Redis.ReportTTL())))
		}
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	a.Storage = store
	opts = append(opts, report.WithArchiver(store))

	if cfg.Storage.Type == "aws" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.AWSRegion))
		if err == nil {
			a.S3 = s3.NewFromConfig(awsCfg)
		}
	}

	if cfg.Digest.Enabled {
		renderer, err := digest.NewRenderer(cfg.Digest.DashboardURL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, report.WithNotifier(digest.NewSESSender(ctx, cfg.Digest, renderer)))
		if cfg.Digest.WebhookURL != "" {
			opts = append(opts, report.WithNotifier(digest.NewWebhookSender(cfg.Digest.WebhookURL, nil, renderer, cfg.Digest.SendWhenQuiet)))
		}
	}

	svc, err := report.NewService(source, cfg.TrackedRegions, cfg.Insights, opts...)
	if err != nil {
		return nil, fmt.Errorf("building report service: %w", err)
	}
	a.Reports = svc

	ok = true
	return a, nil
}

// Close releases every connection opened by New, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) campaignSource(cfg *config.Config) (report.CampaignSource, error) {
	var source report.CampaignSource
	switch cfg.Source.Type {
	case config.SourceSnowflake:
		sfCfg := cfg.Snowflake
		client, err := snowflake.NewClient(snowflake.Config{
			Account:   sfCfg.Account,
			User:      sfCfg.User,
			Password:  sfCfg.Password,
			Database:  sfCfg.Database,
			Schema:    sfCfg.Schema,
			Warehouse: sfCfg.Warehouse,
			Role:      sfCfg.Role,
			Table:     sfCfg.Table,
		}, sfCfg.ConnectionString)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		log.Printf("[App] Reading campaigns from Snowflake")
		source = client
	default:
		if a.DB == nil {
			return nil, fmt.Errorf("database.url is required for the %s campaign source", config.SourcePostgres)
		}
		log.Printf("[App] Reading campaigns from PostgreSQL")
		source = postgres.NewCampaignRepo(a.DB)
	}
	return WithTimeout(source, cfg.Source.Timeout()), nil
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("[App] Connected to database")
	return db, nil
}

// timeoutSource bounds every source call.
type timeoutSource struct {
	next    report.CampaignSource
	timeout time.Duration
}

// WithTimeout wraps source so each call gets its own deadline. A
// non-positive timeout returns source unchanged.
func WithTimeout(source report.CampaignSource, timeout time.Duration) report.CampaignSource {
	if timeout <= 0 {
		return source
	}
	return &timeoutSource{next: source, timeout: timeout}
}

func (s *timeoutSource) CampaignsByRegion(ctx context.Context, q report.Query) (map[domain.Region][]domain.CampaignRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.CampaignsByRegion(ctx, q)
}

func (s *timeoutSource) LastActivity(ctx context.Context, regions []domain.Region) (map[domain.Region]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.LastActivity(ctx, regions)
}
