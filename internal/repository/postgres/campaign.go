package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/service/report"
)

// CampaignRepo implements report.CampaignSource against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign metrics source.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

// Missing counts and rates read as zero.
const campaignColumns = `
	id, region, title, sent_at, COALESCE(archive_url, ''),
	COALESCE(emails_sent, 0), COALESCE(opens, 0), COALESCE(unique_opens, 0),
	COALESCE(clicks, 0), COALESCE(unique_clicks, 0), COALESCE(bounces, 0),
	COALESCE(unsubscribed, 0), COALESCE(open_rate, 0), COALESCE(click_rate, 0),
	COALESCE(audience, ''), COALESCE(segment, '')`

func (r *CampaignRepo) CampaignsByRegion(ctx context.Context, q report.Query) (map[domain.Region][]domain.CampaignRecord, error) {
	query := `SELECT ` + campaignColumns + `
		FROM campaign_metrics
		WHERE sent_at >= $1 AND sent_at <= $2`
	args := []interface{}{q.From, q.To}
	if len(q.Regions) > 0 {
		query += ` AND region = ANY($3)`
		args = append(args, pq.Array(regionCodes(q.Regions)))
	}
	query += ` ORDER BY region, sent_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query campaign metrics: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Region][]domain.CampaignRecord)
	for rows.Next() {
		var (
			c     domain.CampaignRecord
			title sql.NullString
		)
		if err := rows.Scan(
			&c.ID, &c.Region, &title, &c.SentAt, &c.ArchiveURL,
			&c.EmailsSent, &c.Opens, &c.UniqueOpens,
			&c.Clicks, &c.UniqueClicks, &c.Bounces,
			&c.Unsubscribed, &c.OpenRate, &c.ClickRate,
			&c.Audience, &c.Segment,
		); err != nil {
			return nil, fmt.Errorf("scan campaign metrics: %w", err)
		}
		if title.Valid {
			t := title.String
			c.Title = &t
		}
		out[c.Region] = append(out[c.Region], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign metrics: %w", err)
	}
	return out, nil
}

func (r *CampaignRepo) LastActivity(ctx context.Context, regions []domain.Region) (map[domain.Region]time.Time, error) {
	out := make(map[domain.Region]time.Time)
	if len(regions) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT region, MAX(sent_at)
		FROM campaign_metrics
		WHERE region = ANY($1)
		GROUP BY region
	`, pq.Array(regionCodes(regions)))
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

// Upsert writes campaign metrics, replacing rows with the same id.
func (r *CampaignRepo) Upsert(ctx context.Context, records []domain.CampaignRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO campaign_metrics (
			id, region, title, sent_at, archive_url,
			emails_sent, opens, unique_opens, clicks, unique_clicks,
			bounces, unsubscribed, open_rate, click_rate, audience, segment
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			region = EXCLUDED.region, title = EXCLUDED.title, sent_at = EXCLUDED.sent_at,
			archive_url = EXCLUDED.archive_url, emails_sent = EXCLUDED.emails_sent,
			opens = EXCLUDED.opens, unique_opens = EXCLUDED.unique_opens,
			clicks = EXCLUDED.clicks, unique_clicks = EXCLUDED.unique_clicks,
			bounces = EXCLUDED.bounces, unsubscribed = EXCLUDED.unsubscribed,
			open_rate = EXCLUDED.open_rate, click_rate = EXCLUDED.click_rate,
			audience = EXCLUDED.audience, segment = EXCLUDED.segment,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range records {
		if _, err := stmt.ExecContext(ctx,
			c.ID, string(c.Region), c.Title, c.SentAt, c.ArchiveURL,
			c.EmailsSent, c.Opens, c.UniqueOpens, c.Clicks, c.UniqueClicks,
			c.Bounces, c.Unsubscribed, c.OpenRate, c.ClickRate, c.Audience, c.Segment,
		); err != nil {
			return fmt.Errorf("upsert campaign %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func regionCodes(regions []domain.Region) []string {
	out := make([]string, len(regions))
	for i, r := range regions {
		out[i] = string(r)
	}
	return out
}
