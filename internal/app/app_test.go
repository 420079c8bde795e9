package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/region-insights/internal/config"
	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/insights"
	"github.com/ignite/region-insights/internal/service/report"
)

type deadlineSource struct {
	deadline time.Time
	had      bool
}

func (s *deadlineSource) CampaignsByRegion(ctx context.Context, _ report.Query) (map[domain.Region][]domain.CampaignRecord, error) {
	s.deadline, s.had = ctx.Deadline()
	return nil, nil
}

func (s *deadlineSource) LastActivity(ctx context.Context, _ []domain.Region) (map[domain.Region]time.Time, error) {
	s.deadline, s.had = ctx.Deadline()
	return nil, nil
}

func TestWithTimeout(t *testing.T) {
	src := &deadlineSource{}
	assert.Same(t, src, WithTimeout(src, 0))

	wrapped := WithTimeout(src, time.Minute)
	_, err := wrapped.CampaignsByRegion(context.Background(), report.Query{})
	require.NoError(t, err)
	assert.True(t, src.had)
	assert.WithinDuration(t, time.Now().Add(time.Minute), src.deadline, 5*time.Second)

	src.had = false
	_, err = wrapped.LastActivity(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, src.had)
}

func TestNewWithoutDatabaseFails(t *testing.T) {
	cfg := &config.Config{
		Source:         config.SourceConfig{Type: config.SourcePostgres},
		Storage:        config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		TrackedRegions: []domain.Region{domain.RegionUS},
		Insights:       insights.DefaultThresholds(),
	}
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url")
}

func TestNewSnowflakeLocalStorage(t *testing.T) {
	cfg := &config.Config{
		Source: config.SourceConfig{Type: config.SourceSnowflake, TimeoutSeconds: 30},
		Snowflake: config.SnowflakeConfig{
			Account: "acme-xy12345",
			User:    "REPORTER",
			Table:   "CAMPAIGN_METRICS",
		},
		Storage:        config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Digest:         config.DigestConfig{Enabled: true},
		TrackedRegions: []domain.Region{domain.RegionUS, domain.RegionUK},
		Insights:       insights.DefaultThresholds(),
	}

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.NotNil(t, a.Storage)
	require.NotNil(t, a.Reports)
	assert.Len(t, a.Reports.Regions(), 2)
}
