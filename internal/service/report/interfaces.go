package report

import (
	"context"
	"time"

	"github.com/ignite/region-insights/internal/domain"
)

// CampaignSource reads campaign metrics. Implementations must be safe for
// concurrent use.
type CampaignSource interface {
	// CampaignsByRegion returns every campaign sent inside the query window
	// for the query's regions, grouped by region. Regions without campaigns
	// may be absent from the map.
	CampaignsByRegion(ctx context.Context, q Query) (map[domain.Region][]domain.CampaignRecord, error)

	// LastActivity returns the most recent send time per region, looking
	// outside any window. Regions that never sent are absent.
	LastActivity(ctx context.Context, regions []domain.Region) (map[domain.Region]time.Time, error)
}

// Cache stores computed reports. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*Report, error)
	Set(ctx context.Context, key string, r *Report) error
}

// Archiver keeps a durable copy of published reports.
type Archiver interface {
	Archive(ctx context.Context, r *Report) error
}

// Notifier delivers a published report to people.
type Notifier interface {
	Notify(ctx context.Context, r *Report) error
}
