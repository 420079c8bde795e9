package report_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/region-insights/internal/config"
	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/insights"
	"github.com/ignite/region-insights/internal/service/report"
	"github.com/ignite/region-insights/internal/storage"
)

var fixedNow = time.Date(2026, 4, 15, 9, 30, 0, 0, time.UTC)

// memSource is an in-memory campaign source for unit testing.
type memSource struct {
	mu      sync.Mutex
	records []domain.CampaignRecord
	last    map[domain.Region]time.Time
	calls   int
	err     error
	lastErr error
}

func (m *memSource) CampaignsByRegion(_ context.Context, q report.Query) (map[domain.Region][]domain.CampaignRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[domain.Region]bool)
	for _, r := range q.Regions {
		want[r] = true
	}
	out := make(map[domain.Region][]domain.CampaignRecord)
	for _, rec := range m.records {
		if want[rec.Region] && q.Contains(rec.SentAt) {
			out[rec.Region] = append(out[rec.Region], rec)
		}
	}
	return out, nil
}

func (m *memSource) LastActivity(_ context.Context, regions []domain.Region) (map[domain.Region]time.Time, error) {
	if m.lastErr != nil {
		return nil, m.lastErr
	}
	out := make(map[domain.Region]time.Time)
	for _, r := range regions {
		if t, ok := m.last[r]; ok {
			out[r] = t
		}
	}
	return out, nil
}

type memCache struct {
	mu      sync.Mutex
	reports map[string]*report.Report
}

func (c *memCache) Get(_ context.Context, key string) (*report.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reports[key], nil
}

func (c *memCache) Set(_ context.Context, key string, r *report.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[key] = r
	return nil
}

type recorder struct {
	mu   sync.Mutex
	ids  []string
	fail error
}

func (r *recorder) Archive(_ context.Context, rep *report.Report) error { return r.record(rep) }
func (r *recorder) Notify(_ context.Context, rep *report.Report) error  { return r.record(rep) }

func (r *recorder) record(rep *report.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.ids = append(r.ids, rep.ID)
	return nil
}

func rec(id string, region domain.Region, sent, bounces int64, open, click float64, daysAgo int) domain.CampaignRecord {
	title := "Campaign " + id
	return domain.CampaignRecord{
		ID: id, Region: region, Title: &title,
		SentAt:     fixedNow.Add(-time.Duration(daysAgo) * 24 * time.Hour),
		EmailsSent: sent, Bounces: bounces, OpenRate: open, ClickRate: click,
	}
}

func seed() *memSource {
	return &memSource{
		records: []domain.CampaignRecord{
			rec("us-1", domain.RegionUS, 5000, 100, 0.32, 0.05, 2),
			rec("us-2", domain.RegionUS, 5000, 150, 0.28, 0.04, 9),
			rec("us-3", domain.RegionUS, 5000, 100, 0.30, 0.04, 20),
			rec("uk-1", domain.RegionUK, 2000, 200, 0.12, 0.01, 3),
			rec("uk-2", domain.RegionUK, 2000, 180, 0.14, 0.01, 12),
			rec("old", domain.RegionDE, 3000, 10, 0.5, 0.1, 200),
		},
		last: map[domain.Region]time.Time{
			domain.RegionDE: fixedNow.Add(-200 * 24 * time.Hour),
		},
	}
}

func newService(t *testing.T, src report.CampaignSource, opts ...report.Option) *report.Service {
	t.Helper()
	opts = append([]report.Option{report.WithClock(func() time.Time { return fixedNow })}, opts...)
	svc, err := report.NewService(src,
		[]domain.Region{domain.RegionUS, domain.RegionUK, domain.RegionDE},
		insights.DefaultThresholds(), opts...)
	require.NoError(t, err)
	return svc
}

func TestNewService_RejectsInvalidThresholds(t *testing.T) {
	th := insights.DefaultThresholds()
	th.UnsubAlertRate = -1
	_, err := report.NewService(seed(), []domain.Region{domain.RegionUS}, th)
	assert.ErrorIs(t, err, insights.ErrInvalidThresholds)
}

func TestOverview(t *testing.T) {
	svc := newService(t, seed())

	r, err := svc.Overview(context.Background(), svc.DefaultQuery(90))
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, fixedNow, r.GeneratedAt)
	assert.Equal(t, []domain.Region{domain.RegionUS, domain.RegionUK, domain.RegionDE}, r.Regions)

	require.NotNil(t, r.Overview.TopRegion)
	assert.Equal(t, domain.RegionUS, r.Overview.TopRegion.Region)
	require.NotNil(t, r.Overview.NeedsAttention)
	assert.Equal(t, domain.RegionUK, r.Overview.NeedsAttention.Region)

	// DE sent nothing in the window and was last active 200 days ago.
	require.Len(t, r.Inactive, 1)
	assert.Equal(t, domain.RegionDE, r.Inactive[0].Region)

	require.NotEmpty(t, r.Alerts)
	assert.Equal(t, domain.SeverityHigh, r.Alerts[0].Severity)
	assert.Equal(t, domain.RegionUK, r.Alerts[0].Region)
	assert.Equal(t, domain.AlertBounce, r.Alerts[0].Type)
	assert.False(t, r.Quiet())
}

func TestOverview_UsesCache(t *testing.T) {
	src := seed()
	cache := &memCache{reports: map[string]*report.Report{}}
	svc := newService(t, src, report.WithCache(cache))
	q := svc.DefaultQuery(30)

	first, err := svc.Overview(context.Background(), q)
	require.NoError(t, err)
	second, err := svc.Overview(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, src.calls)
}

func TestGenerateAndPublish_BypassesCache(t *testing.T) {
	ctx := context.Background()
	src := seed()
	cache := &memCache{reports: map[string]*report.Report{}}
	store, err := storage.New(ctx, config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	notify := &recorder{}
	svc := newService(t, src, report.WithCache(cache), report.WithArchiver(store), report.WithNotifier(notify))

	cached, err := svc.Overview(ctx, svc.DefaultQuery(30))
	require.NoError(t, err)

	published, err := svc.GenerateAndPublish(ctx, 30)
	require.NoError(t, err)
	assert.NotEqual(t, cached.ID, published.ID)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, []string{published.ID}, notify.ids)

	// The fresh report replaced the cached one.
	again, err := svc.Overview(ctx, svc.DefaultQuery(30))
	require.NoError(t, err)
	assert.Equal(t, published.ID, again.ID)

	var ukAlerts int
	for _, a := range published.Alerts {
		if a.Region == domain.RegionUK {
			ukAlerts++
		}
	}
	require.NotZero(t, ukAlerts)
	hist, err := store.AlertHistory(ctx, domain.RegionUK, fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, hist, ukAlerts)
	for _, h := range hist {
		assert.Equal(t, published.ID, h.ReportID)
	}
}

func TestOverview_RegionFilter(t *testing.T) {
	svc := newService(t, seed())
	q := svc.DefaultQuery(30)

	q.Regions = []domain.Region{domain.RegionUK, domain.RegionUK}
	r, err := svc.Overview(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []domain.Region{domain.RegionUK}, r.Regions)
	require.Len(t, r.Overview.Regions, 1)
	// A single sufficient region has nothing to be compared against.
	assert.Nil(t, r.Overview.NeedsAttention)

	q.Regions = []domain.Region{domain.RegionJP}
	_, err = svc.Overview(context.Background(), q)
	assert.ErrorIs(t, err, report.ErrUnknownRegion)
}

func TestOverview_InvalidWindow(t *testing.T) {
	svc := newService(t, seed())
	_, err := svc.Overview(context.Background(), report.Query{From: fixedNow, To: fixedNow.Add(-time.Hour)})
	assert.ErrorIs(t, err, report.ErrInvalidWindow)

	_, err = svc.Overview(context.Background(), report.Query{})
	assert.ErrorIs(t, err, report.ErrInvalidWindow)
}

func TestOverview_NoData(t *testing.T) {
	svc := newService(t, &memSource{})
	r, err := svc.Overview(context.Background(), svc.DefaultQuery(30))
	require.NoError(t, err)
	assert.True(t, r.Overview.NoData)
	assert.Empty(t, r.Alerts)
	assert.True(t, r.Quiet())
}

func TestOverview_SourceError(t *testing.T) {
	boom := errors.New("connection refused")
	svc := newService(t, &memSource{err: boom})
	_, err := svc.Overview(context.Background(), svc.DefaultQuery(30))
	assert.ErrorIs(t, err, boom)
}

func TestOverview_LastActivityFailureDegrades(t *testing.T) {
	src := seed()
	src.lastErr = errors.New("timeout")
	svc := newService(t, src)
	r, err := svc.Overview(context.Background(), svc.DefaultQuery(30))
	require.NoError(t, err)
	assert.Empty(t, r.Inactive)
}

func TestReview(t *testing.T) {
	svc := newService(t, seed())

	rv, err := svc.Review(context.Background(), domain.RegionUK, svc.DefaultQuery(30))
	require.NoError(t, err)
	assert.Equal(t, domain.RegionUK, rv.Region)
	assert.Equal(t, insights.Found, rv.NeedsReview.Kind)
	require.NotNil(t, rv.NeedsReview.Campaign)
	assert.Equal(t, "uk-1", rv.NeedsReview.Campaign.ID)
	assert.Len(t, rv.HighBounce, 2)

	_, err = svc.Review(context.Background(), domain.RegionBR, svc.DefaultQuery(30))
	assert.ErrorIs(t, err, report.ErrUnknownRegion)
}

func TestReviewAll(t *testing.T) {
	svc := newService(t, seed(), report.WithMaxParallel(2))

	reviews, err := svc.ReviewAll(context.Background(), svc.DefaultQuery(30))
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	assert.Equal(t, domain.RegionUS, reviews[0].Region)
	assert.Equal(t, domain.RegionUK, reviews[1].Region)
	assert.Equal(t, domain.RegionDE, reviews[2].Region)
	assert.True(t, reviews[2].NoData)
	assert.Equal(t, insights.AllPassing, reviews[0].NeedsReview.Kind)
}

func TestReviewAll_PropagatesErrors(t *testing.T) {
	svc := newService(t, &memSource{err: errors.New("down")})
	_, err := svc.ReviewAll(context.Background(), svc.DefaultQuery(30))
	assert.Error(t, err)
}

func TestPublish(t *testing.T) {
	archive := &recorder{}
	notify := &recorder{}
	svc := newService(t, seed(), report.WithArchiver(archive), report.WithNotifier(notify))

	r, err := svc.GenerateAndPublish(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, []string{r.ID}, archive.ids)
	assert.Equal(t, []string{r.ID}, notify.ids)
}

func TestPublish_AttemptsEveryStep(t *testing.T) {
	archive := &recorder{fail: errors.New("s3 unavailable")}
	notify := &recorder{}
	svc := newService(t, seed(), report.WithArchiver(archive), report.WithNotifier(notify))

	r, err := svc.Overview(context.Background(), svc.DefaultQuery(30))
	require.NoError(t, err)

	err = svc.Publish(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 unavailable")
	assert.Equal(t, []string{r.ID}, notify.ids)
}

func TestRegions(t *testing.T) {
	svc := newService(t, seed())
	infos := svc.Regions()
	require.Len(t, infos, 3)
	assert.Equal(t, "United Kingdom", infos[1].Name)
}

func TestDayWindow(t *testing.T) {
	q := report.DayWindow(fixedNow, 7)
	assert.Equal(t, time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC), q.From)
	assert.Equal(t, time.Date(2026, 4, 15, 23, 59, 59, 999999999, time.UTC), q.To)
	assert.True(t, q.Contains(fixedNow))
	assert.NoError(t, q.Validate())

	days := q.To.Add(time.Nanosecond).Sub(q.From) / (24 * time.Hour)
	assert.EqualValues(t, 7, days)

	one := report.DayWindow(fixedNow, 1)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), one.From)
}
