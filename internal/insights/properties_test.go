package insights_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/insights"
)

func TestProperties_Score(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	unit := gen.Float64Range(0, 1)

	properties.Property("score stays in [0,1]", prop.ForAll(
		func(o, c, d float64) bool {
			s := insights.Score(o, c, d)
			return s >= 0 && s <= 1+1e-12
		},
		unit, unit, unit,
	))

	properties.Property("delivery is 1 when nothing was sent", prop.ForAll(
		func(bounces int64) bool {
			return domain.DeliveryRate(0, bounces) == 1.0
		},
		gen.Int64Range(0, 1_000_000),
	))

	properties.Property("delivery is within [0,1]", prop.ForAll(
		func(sent, bounces int64) bool {
			d := domain.DeliveryRate(sent, bounces)
			return d >= 0 && d <= 1
		},
		gen.Int64Range(1, 1_000_000), gen.Int64Range(0, 2_000_000),
	))

	properties.TestingRun(t)
}

func TestProperties_Gate(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	th := insights.DefaultThresholds()

	properties.Property("either signal is sufficient", prop.ForAll(
		func(sent int64, campaigns int) bool {
			want := sent >= th.RegionMinSent || campaigns >= th.RegionMinCampaigns
			return insights.RegionSufficient(sent, campaigns, th) == want
		},
		gen.Int64Range(0, 500), gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}

var propertyRegions = []domain.Region{domain.RegionUS, domain.RegionUK, domain.RegionDE, domain.RegionJP}

// summariesFrom spreads generated rates over a handful of regions so the
// classifier sees a mix of healthy and failing rollups.
func summariesFrom(rates []float64) []insights.RegionSummary {
	out := make([]insights.RegionSummary, 0, len(rates))
	for i, r := range rates {
		out = append(out, insights.RegionSummary{
			Region:              propertyRegions[i%len(propertyRegions)],
			Score:               r,
			BounceRate:          r * 0.2,
			UnsubscribeRate:     (1 - r) * 0.05,
			AvgOpenRate:         r * 0.6,
			AvgClickRate:        (1 - r) * 0.1,
			CampaignsLast30Days: i % 5,
		})
	}
	return out
}

func TestProperties_RankAndAlerts(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	th := insights.DefaultThresholds()
	rates := gen.SliceOf(gen.Float64Range(0, 1))

	properties.Property("ranking is descending and idempotent", prop.ForAll(
		func(rs []float64) bool {
			in := summariesFrom(rs)
			insights.RankRegions(in)
			for i := 1; i < len(in); i++ {
				if in[i-1].Score < in[i].Score {
					return false
				}
			}
			again := append([]insights.RegionSummary(nil), in...)
			insights.RankRegions(again)
			for i := range in {
				if in[i].Region != again[i].Region || in[i].Score != again[i].Score {
					return false
				}
			}
			return true
		},
		rates,
	))

	properties.Property("high severity alerts precede medium", prop.ForAll(
		func(rs []float64) bool {
			alerts := insights.ClassifyAlerts(summariesFrom(rs), th)
			for i := 1; i < len(alerts); i++ {
				if alerts[i-1].Severity.Rank() > alerts[i].Severity.Rank() {
					return false
				}
			}
			return true
		},
		rates,
	))

	properties.TestingRun(t)
}

func TestProperties_NeedsReviewRespectsFloor(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	th := insights.DefaultThresholds()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	properties.Property("selected campaigns meet the campaign floor", prop.ForAll(
		func(sends []int64) bool {
			recs := make([]domain.CampaignRecord, 0, len(sends))
			for i, sent := range sends {
				recs = append(recs, domain.CampaignRecord{
					ID:         fmt.Sprintf("c%d", i),
					Region:     domain.RegionUS,
					SentAt:     at.Add(-time.Duration(i) * time.Hour),
					EmailsSent: sent,
					Bounces:    sent / int64(i%7+2),
					OpenRate:   float64(i%10) / 20,
					ClickRate:  float64(i%4) / 50,
				})
			}
			rv, err := insights.ReviewRegion(insights.ReviewInput{
				Region: domain.RegionUS, Records: recs, Thresholds: th, Now: at,
			})
			if err != nil {
				return false
			}
			if rv.NeedsReview.Campaign != nil && rv.NeedsReview.Campaign.EmailsSent < th.CampaignMinSent {
				return false
			}
			if rv.TopPerformer != nil && rv.TopPerformer.EmailsSent < th.CampaignMinSent {
				return false
			}
			return rv.NeedsReview.Kind != insights.Found || rv.NeedsReview.Campaign != nil
		},
		gen.SliceOf(gen.Int64Range(0, 400)),
	))

	properties.TestingRun(t)
}
