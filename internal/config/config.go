package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/insights"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Log        LogConfig       `yaml:"log"`
	Database   DatabaseConfig  `yaml:"database"`
	Source     SourceConfig    `yaml:"source"`
	Snowflake  SnowflakeConfig `yaml:"snowflake"`
	Redis      RedisConfig     `yaml:"redis"`
	Storage    StorageConfig   `yaml:"storage"`
	Digest     DigestConfig    `yaml:"digest"`
	Schedule   ScheduleConfig  `yaml:"schedule"`
	Regions    []string        `yaml:"regions"`
	Thresholds ThresholdConfig `yaml:"thresholds"`

	// Resolved by Load.
	TrackedRegions []domain.Region     `yaml:"-"`
	Insights       insights.Thresholds `yaml:"-"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                   int      `yaml:"port"`
	Host                   string   `yaml:"host"`
	ReadTimeoutSeconds     int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int      `yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds"`
	AllowedOrigins         []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for the listener.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the pool connection lifetime.
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// Campaign record source types.
const (
	SourcePostgres  = "postgres"
	SourceSnowflake = "snowflake"
)

// SourceConfig selects where campaign records are read from.
type SourceConfig struct {
	Type           string `yaml:"type"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-query timeout.
func (c SourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SnowflakeConfig holds Snowflake data warehouse configuration
type SnowflakeConfig struct {
	ConnectionString string `yaml:"connection_string"`
	Account          string `yaml:"account"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	Database         string `yaml:"database"`
	Schema           string `yaml:"schema"`
	Warehouse        string `yaml:"warehouse"`
	Role             string `yaml:"role"`
	Table            string `yaml:"table"`
}

// RedisConfig holds the report cache and lock settings.
type RedisConfig struct {
	URL              string `yaml:"url"`
	KeyPrefix        string `yaml:"key_prefix"`
	ReportTTLSeconds int    `yaml:"report_ttl_seconds"`
}

// ReportTTL returns how long cached reports live.
func (c RedisConfig) ReportTTL() time.Duration {
	return time.Duration(c.ReportTTLSeconds) * time.Second
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type          string `yaml:"type"`
	LocalPath     string `yaml:"local_path"`
	S3Bucket      string `yaml:"s3_bucket"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
	AlertTTLDays  int    `yaml:"alert_ttl_days"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// DigestConfig holds the management alert digest settings.
type DigestConfig struct {
	Enabled       bool     `yaml:"enabled"`
	From          string   `yaml:"from"`
	Recipients    []string `yaml:"recipients"`
	SESRegion     string   `yaml:"ses_region"`
	AccessKey     string   `yaml:"access_key"`
	SecretKey     string   `yaml:"secret_key"`
	SendWhenQuiet bool     `yaml:"send_when_quiet"`
	DashboardURL  string   `yaml:"dashboard_url"`
	WebhookURL    string   `yaml:"webhook_url"`
}

// ScheduleConfig drives the report publisher and the default API window.
type ScheduleConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes"`
	WindowDays      int  `yaml:"window_days"`
	LockTTLSeconds  int  `yaml:"lock_ttl_seconds"`
}

// Interval returns the publishing interval as a duration
func (c ScheduleConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Window returns the default reporting window length.
func (c ScheduleConfig) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

// LockTTL returns the distributed lock lifetime.
func (c ScheduleConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 60
	}
	if cfg.Server.ShutdownTimeoutSeconds == 0 {
		cfg.Server.ShutdownTimeoutSeconds = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 5
	}
	if cfg.Source.Type == "" {
		cfg.Source.Type = SourcePostgres
	}
	if cfg.Source.TimeoutSeconds == 0 {
		cfg.Source.TimeoutSeconds = 30
	}
	// Snowflake defaults
	if cfg.Snowflake.Database == "" {
		cfg.Snowflake.Database = "IGNITE_DATA_LAKE"
	}
	if cfg.Snowflake.Schema == "" {
		cfg.Snowflake.Schema = "REFINEDEMAILS"
	}
	if cfg.Snowflake.Table == "" {
		cfg.Snowflake.Table = "CAMPAIGN_METRICS"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "region-insights"
	}
	if cfg.Redis.ReportTTLSeconds == 0 {
		cfg.Redis.ReportTTLSeconds = 300
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-west-2"
	}
	if cfg.Storage.AlertTTLDays == 0 {
		cfg.Storage.AlertTTLDays = 90
	}
	if cfg.Digest.SESRegion == "" {
		cfg.Digest.SESRegion = cfg.Storage.AWSRegion
	}
	if cfg.Schedule.IntervalMinutes == 0 {
		cfg.Schedule.IntervalMinutes = 60
	}
	if cfg.Schedule.WindowDays == 0 {
		cfg.Schedule.WindowDays = 90
	}
	if cfg.Schedule.LockTTLSeconds == 0 {
		cfg.Schedule.LockTTLSeconds = 300
	}
}

// resolve validates the tracked regions and the alerting thresholds.
func (cfg *Config) resolve() error {
	cfg.TrackedRegions = nil
	switch cfg.Source.Type {
	case SourcePostgres, SourceSnowflake:
	default:
		return fmt.Errorf("source.type must be %q or %q, got %q", SourcePostgres, SourceSnowflake, cfg.Source.Type)
	}

	if len(cfg.Regions) == 0 {
		for _, info := range domain.AllRegions() {
			cfg.TrackedRegions = append(cfg.TrackedRegions, info.Code)
		}
	} else {
		regions, err := domain.ParseRegions(cfg.Regions)
		if err != nil {
			return fmt.Errorf("regions: %w", err)
		}
		cfg.TrackedRegions = regions
	}

	t, err := cfg.Thresholds.Resolve()
	if err != nil {
		return err
	}
	cfg.Insights = t
	return nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("CAMPAIGN_SOURCE"); v != "" {
		cfg.Source.Type = strings.ToLower(v)
	}
	if v := os.Getenv("SNOWFLAKE_CONNECTION_STRING"); v != "" {
		cfg.Snowflake.ConnectionString = v
	}
	if v := os.Getenv("SNOWFLAKE_ACCOUNT"); v != "" {
		cfg.Snowflake.Account = v
	}
	if v := os.Getenv("SNOWFLAKE_USER"); v != "" {
		cfg.Snowflake.User = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Snowflake.Password = v
	}
	if v := os.Getenv("SNOWFLAKE_WAREHOUSE"); v != "" {
		cfg.Snowflake.Warehouse = v
	}
	if v := os.Getenv("REPORT_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}
	if v := os.Getenv("REPORT_DYNAMODB_TABLE"); v != "" {
		cfg.Storage.DynamoDBTable = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Digest.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Digest.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Digest.SESRegion = v
	}
	if v := os.Getenv("DIGEST_WEBHOOK_URL"); v != "" {
		cfg.Digest.WebhookURL = v
	}
	if v := os.Getenv("DIGEST_RECIPIENTS"); v != "" {
		cfg.Digest.Recipients = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// The source type may have changed.
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
