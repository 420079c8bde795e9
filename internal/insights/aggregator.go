package insights

import (
	"sort"
	"time"

	"github.com/ignite/region-insights/internal/domain"
)

// RecentWindow is the horizon for "campaigns in the last 30 days" and for
// flagging regions as inactive.
const RecentWindow = 30 * 24 * time.Hour

// RegionSummary is the per-region rollup used for ranking and alerting.
type RegionSummary struct {
	Region                domain.Region       `json:"region"`
	CampaignCount         int                 `json:"campaign_count"`
	CampaignsLast30Days   int                 `json:"campaigns_last_30_days"`
	TotalSent             int64               `json:"total_sent"`
	TotalBounces          int64               `json:"total_bounces"`
	TotalUnsubscribed     int64               `json:"total_unsubscribed"`
	AvgOpenRate           float64             `json:"avg_open_rate"`
	AvgClickRate          float64             `json:"avg_click_rate"`
	DeliveryRate          float64             `json:"delivery_rate"`
	BounceRate            float64             `json:"bounce_rate"`
	UnsubscribeRate       float64             `json:"unsubscribe_rate"`
	Score                 float64             `json:"score"`
	BestCampaign          *domain.CampaignRef `json:"best_campaign,omitempty"`
	LastCampaignAt        *time.Time          `json:"last_campaign_at,omitempty"`
	DaysSinceLastCampaign int                 `json:"days_since_last_campaign"`

	// Sufficient is false when the region fails the significance gate. Such
	// regions stay in the ranking but never become top or needs-attention.
	Sufficient bool `json:"sufficient"`
}

// AggregateInput is everything Aggregate needs.
type AggregateInput struct {
	Records    map[domain.Region][]domain.CampaignRecord
	Regions    []domain.Region // tracked regions; derived from Records when empty
	Thresholds Thresholds
	Now        time.Time
}

// Overview is the cross-region result.
type Overview struct {
	// NoData is set when no tracked region has a single record. It is a
	// terminal "nothing to show" state, not a failure.
	NoData bool `json:"no_data"`

	Regions             []RegionSummary `json:"regions"`
	TopRegion           *RegionSummary  `json:"top_region,omitempty"`
	NeedsAttention      *RegionSummary  `json:"needs_attention,omitempty"`
	InsufficientRegions []domain.Region `json:"insufficient_regions"`

	TopCampaign *domain.CampaignRef `json:"top_campaign,omitempty"`

	TotalCampaigns int     `json:"total_campaigns"`
	TotalSent      int64   `json:"total_sent"`
	AvgOpenRate    float64 `json:"avg_open_rate"`
	AvgClickRate   float64 `json:"avg_click_rate"`
}

// Aggregate summarises each tracked region, ranks the summaries by composite
// score, and selects the top and needs-attention regions among those that
// pass the significance gate.
func Aggregate(in AggregateInput) (Overview, error) {
	if err := in.Thresholds.Validate(); err != nil {
		return Overview{}, err
	}

	out := Overview{
		Regions:             []RegionSummary{},
		InsufficientRegions: []domain.Region{},
	}

	var (
		openSum, clickSum float64
		topCampaign       *domain.CampaignRecord
	)

	for _, region := range trackedRegions(in.Regions, in.Records) {
		records := normalized(in.Records[region])
		if len(records) == 0 {
			continue
		}

		out.Regions = append(out.Regions, summarize(region, records, in.Thresholds, in.Now))

		for i := range records {
			rec := records[i]
			out.TotalCampaigns++
			out.TotalSent += rec.EmailsSent
			openSum += rec.OpenRate
			clickSum += rec.ClickRate

			if !CampaignSufficient(rec.EmailsSent, in.Thresholds) {
				continue
			}
			if topCampaign == nil || rec.OpenRate > topCampaign.OpenRate {
				topCampaign = &records[i]
			}
		}
	}

	if len(out.Regions) == 0 {
		out.NoData = true
		return out, nil
	}

	out.AvgOpenRate = openSum / float64(out.TotalCampaigns)
	out.AvgClickRate = clickSum / float64(out.TotalCampaigns)
	if topCampaign != nil {
		ref := topCampaign.Ref()
		out.TopCampaign = &ref
	}

	RankRegions(out.Regions)

	var qualified []int
	for i := range out.Regions {
		if out.Regions[i].Sufficient {
			qualified = append(qualified, i)
		} else {
			out.InsufficientRegions = append(out.InsufficientRegions, out.Regions[i].Region)
		}
	}
	if len(qualified) > 0 {
		top := out.Regions[qualified[0]]
		out.TopRegion = &top
	}
	// A region cannot be compared only to itself.
	if len(qualified) >= 2 {
		worst := out.Regions[qualified[len(qualified)-1]]
		out.NeedsAttention = &worst
	}

	return out, nil
}

// RankRegions sorts summaries by composite score, highest first. Equal scores
// keep their relative order.
func RankRegions(summaries []RegionSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Score > summaries[j].Score
	})
}

// summarize expects normalized, non-empty records.
func summarize(region domain.Region, records []domain.CampaignRecord, t Thresholds, now time.Time) RegionSummary {
	s := RegionSummary{
		Region:        region,
		CampaignCount: len(records),
	}

	var (
		openSum, clickSum float64
		best              *domain.CampaignRecord
		last              time.Time
	)
	cutoff := now.Add(-RecentWindow)

	for i := range records {
		rec := records[i]
		s.TotalSent += rec.EmailsSent
		s.TotalBounces += rec.Bounces
		s.TotalUnsubscribed += rec.Unsubscribed
		openSum += rec.OpenRate
		clickSum += rec.ClickRate

		if !rec.SentAt.Before(cutoff) {
			s.CampaignsLast30Days++
		}
		if best == nil || rec.OpenRate > best.OpenRate {
			best = &records[i]
		}
		if rec.SentAt.After(last) {
			last = rec.SentAt
		}
	}

	n := float64(len(records))
	s.AvgOpenRate = openSum / n
	s.AvgClickRate = clickSum / n
	s.DeliveryRate = domain.DeliveryRate(s.TotalSent, s.TotalBounces)
	s.BounceRate = domain.Ratio(s.TotalBounces, s.TotalSent)
	s.UnsubscribeRate = domain.Ratio(s.TotalUnsubscribed, s.TotalSent)
	s.Score = Score(s.AvgOpenRate, s.AvgClickRate, s.DeliveryRate)
	s.Sufficient = RegionSufficient(s.TotalSent, s.CampaignCount, t)

	if best != nil {
		ref := best.Ref()
		s.BestCampaign = &ref
	}
	if !last.IsZero() {
		lastCopy := last
		s.LastCampaignAt = &lastCopy
		s.DaysSinceLastCampaign = DaysSince(last, now)
	}
	return s
}

// DaysSince returns whole days elapsed from t to now, never negative.
func DaysSince(t, now time.Time) int {
	d := now.Sub(t)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func normalized(records []domain.CampaignRecord) []domain.CampaignRecord {
	out := make([]domain.CampaignRecord, len(records))
	for i, r := range records {
		out[i] = r.Normalize()
	}
	return out
}

// trackedRegions returns the de-duplicated tracked list, or, when none was
// given, the regions present in records: registry order first, then any
// unregistered codes alphabetically.
func trackedRegions(tracked []domain.Region, records map[domain.Region][]domain.CampaignRecord) []domain.Region {
	seen := make(map[domain.Region]bool)
	var out []domain.Region

	if len(tracked) > 0 {
		for _, r := range tracked {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
		return out
	}

	for _, info := range domain.AllRegions() {
		if _, ok := records[info.Code]; ok {
			seen[info.Code] = true
			out = append(out, info.Code)
		}
	}
	var extra []domain.Region
	for r := range records {
		if !seen[r] {
			extra = append(extra, r)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
