package insights

import (
	"sort"
	"time"

	"github.com/ignite/region-insights/internal/domain"
)

// maxOutliers caps the high-bounce and high-unsubscribe lists.
const maxOutliers = 3

// NeedsReviewKind tells callers which of the three needs-review outcomes
// they are looking at.
type NeedsReviewKind string

const (
	// NoQualifyingCampaigns: no campaign met the campaign-level sent floor.
	NoQualifyingCampaigns NeedsReviewKind = "no_qualifying_campaigns"
	// AllPassing: every qualifying campaign met all review criteria.
	AllPassing NeedsReviewKind = "all_passing"
	// Found: at least one qualifying campaign failed a criterion.
	Found NeedsReviewKind = "found"
)

// Criterion names an absolute review criterion a campaign can fail.
type Criterion string

const (
	CriterionOpenRate     Criterion = "open_rate"
	CriterionClickRate    Criterion = "click_rate"
	CriterionDeliveryRate Criterion = "delivery_rate"
)

// NeedsReview is the tagged needs-review result. Campaign is only set when
// Kind is Found.
type NeedsReview struct {
	Kind            NeedsReviewKind `json:"kind"`
	Campaign        *CampaignScore  `json:"campaign,omitempty"`
	FailedCriteria  []Criterion     `json:"failed_criteria,omitempty"`
	QualifyingCount int             `json:"qualifying_count"`
	CandidateCount  int             `json:"candidate_count"`
}

// ReviewInput is one region's campaign list plus the thresholds to judge it by.
type ReviewInput struct {
	Region     domain.Region
	Records    []domain.CampaignRecord
	Thresholds Thresholds
	Now        time.Time
}

// Review is the single-region result.
type Review struct {
	Region domain.Region `json:"region"`
	NoData bool          `json:"no_data"`

	// Summary holds the same rate statistics Aggregate computes, for this
	// region in isolation.
	Summary RegionSummary `json:"summary"`

	TopPerformer    *CampaignScore  `json:"top_performer,omitempty"`
	NeedsReview     NeedsReview     `json:"needs_review"`
	HighBounce      []CampaignScore `json:"high_bounce"`
	HighUnsubscribe []CampaignScore `json:"high_unsubscribe"`

	DaysSinceLastCampaign *int `json:"days_since_last_campaign,omitempty"`
}

// ReviewRegion picks the top performer and the campaign most in need of
// review among campaigns meeting the campaign-level sent floor, and lists the
// worst bounce and unsubscribe offenders.
func ReviewRegion(in ReviewInput) (Review, error) {
	if err := in.Thresholds.Validate(); err != nil {
		return Review{}, err
	}
	t := in.Thresholds

	out := Review{
		Region:          in.Region,
		Summary:         RegionSummary{Region: in.Region},
		NeedsReview:     NeedsReview{Kind: NoQualifyingCampaigns},
		HighBounce:      []CampaignScore{},
		HighUnsubscribe: []CampaignScore{},
	}

	records := normalized(in.Records)
	if len(records) == 0 {
		out.NoData = true
		return out, nil
	}

	out.Summary = summarize(in.Region, records, t, in.Now)
	if out.Summary.LastCampaignAt != nil {
		days := out.Summary.DaysSinceLastCampaign
		out.DaysSinceLastCampaign = &days
	}

	var (
		qualifying []CampaignScore
		worst      *CampaignScore
		worstFails []Criterion
		candidates int
	)
	for _, rec := range records {
		if !CampaignSufficient(rec.EmailsSent, t) {
			continue
		}
		cs := scoreCampaign(rec)
		qualifying = append(qualifying, cs)

		if out.TopPerformer == nil || cs.Score > out.TopPerformer.Score {
			top := cs
			out.TopPerformer = &top
		}

		fails := failedCriteria(cs, t)
		if len(fails) == 0 {
			continue
		}
		candidates++
		if worst == nil || cs.Score < worst.Score {
			w := cs
			worst = &w
			worstFails = fails
		}
	}

	out.NeedsReview.QualifyingCount = len(qualifying)
	out.NeedsReview.CandidateCount = candidates
	switch {
	case len(qualifying) == 0:
		out.NeedsReview.Kind = NoQualifyingCampaigns
	case worst == nil:
		out.NeedsReview.Kind = AllPassing
	default:
		out.NeedsReview.Kind = Found
		out.NeedsReview.Campaign = worst
		out.NeedsReview.FailedCriteria = worstFails
	}

	out.HighBounce = topOutliers(qualifying, t.BounceAlertRate, func(c CampaignScore) float64 { return c.BounceRate })
	out.HighUnsubscribe = topOutliers(qualifying, t.UnsubAlertRate, func(c CampaignScore) float64 { return c.UnsubscribeRate })

	return out, nil
}

func failedCriteria(c CampaignScore, t Thresholds) []Criterion {
	var fails []Criterion
	if c.OpenRate < t.ReviewMinOpenRate {
		fails = append(fails, CriterionOpenRate)
	}
	if c.ClickRate < t.ReviewMinClickRate {
		fails = append(fails, CriterionClickRate)
	}
	if c.DeliveryRate < t.ReviewMinDeliveryRate {
		fails = append(fails, CriterionDeliveryRate)
	}
	return fails
}

// topOutliers returns up to maxOutliers campaigns whose metric exceeds limit,
// highest first.
func topOutliers(campaigns []CampaignScore, limit float64, metric func(CampaignScore) float64) []CampaignScore {
	out := []CampaignScore{}
	for _, c := range campaigns {
		if metric(c) > limit {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return metric(out[i]) > metric(out[j]) })
	if len(out) > maxOutliers {
		out = out[:maxOutliers]
	}
	return out
}
