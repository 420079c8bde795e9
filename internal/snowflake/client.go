package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/service/report"
)

const defaultTable = "CAMPAIGN_METRICS"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$.]*$`)

// Client reads campaign metrics from the data lake. It implements
// report.CampaignSource.
type Client struct {
	config Config
	db     *sql.DB
	table  string
}

// NewClient opens a Snowflake connection. A connection string, when given,
// supplies any field cfg leaves empty.
func NewClient(cfg Config, connectionString string) (*Client, error) {
	if connectionString != "" {
		cfg = cfg.merge(ParseConnectionString(connectionString))
	}
	if cfg.Account == "" || cfg.User == "" {
		return nil, fmt.Errorf("snowflake: account and user are required")
	}

	dsn, err := sf.DSN(&sf.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("build snowflake dsn: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewClientFromDB(db, cfg)
}

// NewClientFromDB wraps an existing handle.
func NewClientFromDB(db *sql.DB, cfg Config) (*Client, error) {
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("snowflake: invalid table name %q", table)
	}
	return &Client{config: cfg, db: db, table: table}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping tests the database connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) CampaignsByRegion(ctx context.Context, q report.Query) (map[domain.Region][]domain.CampaignRecord, error) {
	query := fmt.Sprintf(`
		SELECT CAMPAIGN_ID, LOWER(REGION), TITLE, SENT_AT, COALESCE(ARCHIVE_URL, ''),
		       COALESCE(EMAILS_SENT, 0), COALESCE(OPENS, 0), COALESCE(UNIQUE_OPENS, 0),
		       COALESCE(CLICKS, 0), COALESCE(UNIQUE_CLICKS, 0), COALESCE(BOUNCES, 0),
		       COALESCE(UNSUBSCRIBED, 0),
		       IFF(OPEN_RATE IS NULL OR OPEN_RATE < 0, 0, OPEN_RATE),
		       IFF(CLICK_RATE IS NULL OR CLICK_RATE < 0, 0, CLICK_RATE),
		       COALESCE(AUDIENCE, ''), COALESCE(SEGMENT, '')
		FROM %s
		WHERE SENT_AT >= ? AND SENT_AT <= ?`, c.table)
	args := []interface{}{q.From, q.To}
	if len(q.Regions) > 0 {
		in, inArgs := inClause(q.Regions)
		query += " AND LOWER(REGION) IN (" + in + ")"
		args = append(args, inArgs...)
	}
	query += " ORDER BY REGION, SENT_AT, CAMPAIGN_ID"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.table, err)
	}
	defer rows.Close()

	out := make(map[domain.Region][]domain.CampaignRecord)
	for rows.Next() {
		var (
			rec   domain.CampaignRecord
			title sql.NullString
		)
		if err := rows.Scan(
			&rec.ID, &rec.Region, &title, &rec.SentAt, &rec.ArchiveURL,
			&rec.EmailsSent, &rec.Opens, &rec.UniqueOpens,
			&rec.Clicks, &rec.UniqueClicks, &rec.Bounces,
			&rec.Unsubscribed, &rec.OpenRate, &rec.ClickRate,
			&rec.Audience, &rec.Segment,
		); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.table, err)
		}
		if title.Valid {
			t := title.String
			rec.Title = &t
		}
		out[rec.Region] = append(out[rec.Region], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c.table, err)
	}
	return out, nil
}

func (c *Client) LastActivity(ctx context.Context, regions []domain.Region) (map[domain.Region]time.Time, error) {
	out := make(map[domain.Region]time.Time)
	if len(regions) == 0 {
		return out, nil
	}

	in, args := inClause(regions)
	query := fmt.Sprintf(`
		SELECT LOWER(REGION), MAX(SENT_AT)
		FROM %s
		WHERE LOWER(REGION) IN (%s)
		GROUP BY LOWER(REGION)`, c.table, in)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query last activity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			region domain.Region
			last   sql.NullTime
		)
		if err := rows.Scan(&region, &last); err != nil {
			return nil, fmt.Errorf("scan last activity: %w", err)
		}
		if last.Valid {
			out[region] = last.Time
		}
	}
	return out, rows.Err()
}

func inClause(regions []domain.Region) (string, []interface{}) {
	marks := make([]string, len(regions))
	args := make([]interface{}, len(regions))
	for i, r := range regions {
		marks[i] = "?"
		args[i] = string(r)
	}
	return strings.Join(marks, ", "), args
}
