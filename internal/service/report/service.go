package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/insights"
	"github.com/ignite/region-insights/internal/pkg/logger"
	"github.com/ignite/region-insights/internal/pkg/metrics"
)

const defaultMaxParallel = 4

// Service turns campaign records into reports. All public methods are safe
// for concurrent use if the collaborators are.
type Service struct {
	source     CampaignSource
	regions    []domain.Region
	tracked    map[domain.Region]bool
	thresholds insights.Thresholds

	cache       Cache
	archiver    Archiver
	notifiers   []Notifier
	now         func() time.Time
	maxParallel int
	log         *logger.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithCache enables report caching.
func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

// WithArchiver enables report archiving on Publish.
func WithArchiver(a Archiver) Option { return func(s *Service) { s.archiver = a } }

// WithNotifier adds a digest channel used on Publish.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithMaxParallel bounds concurrent per-region reviews.
func WithMaxParallel(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxParallel = n
		}
	}
}

// NewService creates a report service for the tracked regions. Thresholds
// are validated up front so a misconfigured service never starts.
func NewService(source CampaignSource, regions []domain.Region, t insights.Thresholds, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, errors.New("report: campaign source is required")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, errors.New("report: at least one tracked region is required")
	}

	s := &Service{
		source:      source,
		tracked:     make(map[domain.Region]bool, len(regions)),
		thresholds:  t,
		now:         time.Now,
		maxParallel: defaultMaxParallel,
		log:         logger.Default().With("report"),
	}
	for _, r := range regions {
		if !s.tracked[r] {
			s.tracked[r] = true
			s.regions = append(s.regions, r)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Regions returns registry metadata for the tracked regions, in tracked order.
func (s *Service) Regions() []domain.RegionInfo {
	out := make([]domain.RegionInfo, 0, len(s.regions))
	for _, r := range s.regions {
		if info, ok := domain.Info(r); ok {
			out = append(out, info)
		} else {
			out = append(out, domain.RegionInfo{Code: r, Name: r.Name()})
		}
	}
	return out
}

// Thresholds returns the thresholds the service evaluates with.
func (s *Service) Thresholds() insights.Thresholds { return s.thresholds }

// DefaultQuery is the window of the given number of days ending today.
func (s *Service) DefaultQuery(days int) Query {
	return DayWindow(s.now(), days)
}

// Overview builds the cross-region report for q, or returns the cached one
// for the same window and regions.
func (s *Service) Overview(ctx context.Context, q Query) (*Report, error) {
	q, err := s.resolve(q)
	if err != nil {
		return nil, err
	}

	key := q.CacheKey()
	if cached := s.cached(ctx, key); cached != nil {
		return cached, nil
	}
	return s.build(ctx, q, key)
}

// Generate builds a new report for q without consulting the cache, then
// refreshes the cached entry. Publishing goes through Generate so every
// archived report has its own ID.
func (s *Service) Generate(ctx context.Context, q Query) (*Report, error) {
	q, err := s.resolve(q)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, q, q.CacheKey())
}

// build expects a resolved query.
func (s *Service) build(ctx context.Context, q Query, key string) (*Report, error) {
	start := time.Now()
	records, err := s.source.CampaignsByRegion(ctx, q)
	if err != nil {
		metrics.SourceErrors.WithLabelValues("campaigns").Inc()
		return nil, fmt.Errorf("fetch campaigns: %w", err)
	}

	now := s.now()
	lastActivity := s.lastActivity(ctx, insights.MissingRegions(q.Regions, records))

	analysis, err := insights.Analyze(insights.AnalyzeInput{
		Records:      records,
		Regions:      q.Regions,
		LastActivity: lastActivity,
		Thresholds:   s.thresholds,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}

	r := &Report{
		ID:          uuid.New().String(),
		GeneratedAt: now,
		From:        q.From,
		To:          q.To,
		Regions:     q.Regions,
		Overview:    analysis.Overview,
		Alerts:      analysis.Alerts,
		Inactive:    analysis.Inactive,
	}

	metrics.ReportsGenerated.WithLabelValues("overview").Inc()
	metrics.ReportDuration.WithLabelValues("overview").Observe(time.Since(start).Seconds())
	metrics.InsufficientRegions.Set(float64(len(r.Overview.InsufficientRegions)))
	for _, a := range r.Alerts {
		metrics.AlertsRaised.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, r); err != nil {
			s.log.Warn("cache store failed", "key", key, "error", err)
		}
	}
	return r, nil
}

// Review evaluates a single tracked region over q's window. Any region
// filter on q is replaced by region.
func (s *Service) Review(ctx context.Context, region domain.Region, q Query) (*insights.Review, error) {
	q.Regions = []domain.Region{region}
	q, err := s.resolve(q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	records, err := s.source.CampaignsByRegion(ctx, q)
	if err != nil {
		metrics.SourceErrors.WithLabelValues("campaigns").Inc()
		return nil, fmt.Errorf("fetch campaigns for %s: %w", region, err)
	}

	rv, err := insights.ReviewRegion(insights.ReviewInput{
		Region:     region,
		Records:    records[region],
		Thresholds: s.thresholds,
		Now:        s.now(),
	})
	if err != nil {
		return nil, err
	}

	metrics.ReportsGenerated.WithLabelValues("review").Inc()
	metrics.ReportDuration.WithLabelValues("review").Observe(time.Since(start).Seconds())
	return &rv, nil
}

// ReviewAll reviews every requested region concurrently. Results keep the
// request order; the first failure cancels the rest.
func (s *Service) ReviewAll(ctx context.Context, q Query) ([]insights.Review, error) {
	q, err := s.resolve(q)
	if err != nil {
		return nil, err
	}

	out := make([]insights.Review, len(q.Regions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for i, region := range q.Regions {
		g.Go(func() error {
			rv, err := s.Review(gctx, region, q)
			if err != nil {
				return err
			}
			out[i] = *rv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Publish archives r and sends it to every notifier. Every step is
// attempted; failures are joined.
func (s *Service) Publish(ctx context.Context, r *Report) error {
	var errs []error

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, r); err != nil {
			metrics.Publishes.WithLabelValues("archive", "error").Inc()
			errs = append(errs, fmt.Errorf("archive report %s: %w", r.ID, err))
		} else {
			metrics.Publishes.WithLabelValues("archive", "ok").Inc()
		}
	}

	for _, n := range s.notifiers {
		if err := n.Notify(ctx, r); err != nil {
			metrics.Publishes.WithLabelValues("notify", "error").Inc()
			errs = append(errs, fmt.Errorf("notify report %s: %w", r.ID, err))
		} else {
			metrics.Publishes.WithLabelValues("notify", "ok").Inc()
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.log.Info("report published", "id", r.ID, "alerts", len(r.Alerts), "regions", len(r.Overview.Regions))
	return nil
}

// GenerateAndPublish builds the overview for the trailing window and
// publishes it.
func (s *Service) GenerateAndPublish(ctx context.Context, days int) (*Report, error) {
	r, err := s.Generate(ctx, s.DefaultQuery(days))
	if err != nil {
		return nil, err
	}
	return r, s.Publish(ctx, r)
}

// resolve validates the window and narrows the region filter to tracked
// regions. An empty filter means every tracked region.
func (s *Service) resolve(q Query) (Query, error) {
	if err := q.Validate(); err != nil {
		return q, err
	}
	if len(q.Regions) == 0 {
		q.Regions = append([]domain.Region(nil), s.regions...)
		return q, nil
	}

	seen := make(map[domain.Region]bool, len(q.Regions))
	var regions []domain.Region
	for _, r := range q.Regions {
		if !s.tracked[r] {
			return q, fmt.Errorf("%w: %q", ErrUnknownRegion, r)
		}
		if !seen[r] {
			seen[r] = true
			regions = append(regions, r)
		}
	}
	q.Regions = regions
	return q, nil
}

func (s *Service) cached(ctx context.Context, key string) *Report {
	if s.cache == nil {
		return nil
	}
	r, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		s.log.Warn("cache lookup failed", "key", key, "error", err)
		return nil
	case r == nil:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	default:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return r
	}
}

// lastActivity is best effort: without it inactive regions simply go
// unreported.
func (s *Service) lastActivity(ctx context.Context, regions []domain.Region) map[domain.Region]time.Time {
	if len(regions) == 0 {
		return nil
	}
	last, err := s.source.LastActivity(ctx, regions)
	if err != nil {
		metrics.SourceErrors.WithLabelValues("last_activity").Inc()
		s.log.Warn("last activity lookup failed", "regions", len(regions), "error", err)
		return nil
	}
	return last
}
