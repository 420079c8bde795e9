package insights

import (
	"fmt"
	"strings"
)

// Thresholds holds every tunable used by the significance gate, the reviewer
// and the alert classifier. Rates are fractions in [0,1].
type Thresholds struct {
	// Alert classifier.
	BounceAlertRate      float64 `json:"bounce_alert_rate" yaml:"bounce_alert_rate"`
	UnsubAlertRate       float64 `json:"unsub_alert_rate" yaml:"unsub_alert_rate"`
	LowActivityCampaigns int     `json:"low_activity_campaigns" yaml:"low_activity_campaigns"`
	LowOpenRate          float64 `json:"low_open_rate" yaml:"low_open_rate"`
	LowClickRate         float64 `json:"low_click_rate" yaml:"low_click_rate"`

	// Needs-review criteria.
	ReviewMinOpenRate     float64 `json:"review_min_open_rate" yaml:"review_min_open_rate"`
	ReviewMinClickRate    float64 `json:"review_min_click_rate" yaml:"review_min_click_rate"`
	ReviewMinDeliveryRate float64 `json:"review_min_delivery_rate" yaml:"review_min_delivery_rate"`

	// Significance gate.
	RegionMinSent      int64 `json:"region_min_sent" yaml:"region_min_sent"`
	RegionMinCampaigns int   `json:"region_min_campaigns" yaml:"region_min_campaigns"`
	CampaignMinSent    int64 `json:"campaign_min_sent" yaml:"campaign_min_sent"`
}

// Documented fallback constants. They are only applied when a caller asks
// for them explicitly through DefaultThresholds.
const (
	DefaultBounceAlertRate       = 0.05
	DefaultUnsubAlertRate        = 0.01
	DefaultLowActivityCampaigns  = 2
	DefaultLowOpenRate           = 0.15
	DefaultLowClickRate          = 0.015
	DefaultReviewMinOpenRate     = 0.20
	DefaultReviewMinClickRate    = 0.02
	DefaultReviewMinDeliveryRate = 0.90
	DefaultRegionMinSent         = 100
	DefaultRegionMinCampaigns    = 3
	DefaultCampaignMinSent       = 50
)

// DefaultThresholds returns the documented fallback thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BounceAlertRate:       DefaultBounceAlertRate,
		UnsubAlertRate:        DefaultUnsubAlertRate,
		LowActivityCampaigns:  DefaultLowActivityCampaigns,
		LowOpenRate:           DefaultLowOpenRate,
		LowClickRate:          DefaultLowClickRate,
		ReviewMinOpenRate:     DefaultReviewMinOpenRate,
		ReviewMinClickRate:    DefaultReviewMinClickRate,
		ReviewMinDeliveryRate: DefaultReviewMinDeliveryRate,
		RegionMinSent:         DefaultRegionMinSent,
		RegionMinCampaigns:    DefaultRegionMinCampaigns,
		CampaignMinSent:       DefaultCampaignMinSent,
	}
}

// Validate reports every out-of-range value at once.
func (t Thresholds) Validate() error {
	var problems []string

	rates := []struct {
		name string
		v    float64
	}{
		{"bounce_alert_rate", t.BounceAlertRate},
		{"unsub_alert_rate", t.UnsubAlertRate},
		{"low_open_rate", t.LowOpenRate},
		{"low_click_rate", t.LowClickRate},
		{"review_min_open_rate", t.ReviewMinOpenRate},
		{"review_min_click_rate", t.ReviewMinClickRate},
		{"review_min_delivery_rate", t.ReviewMinDeliveryRate},
	}
	for _, r := range rates {
		if r.v != r.v || r.v < 0 || r.v > 1 {
			problems = append(problems, fmt.Sprintf("%s must be within [0,1], got %v", r.name, r.v))
		}
	}

	if t.LowActivityCampaigns < 0 {
		problems = append(problems, fmt.Sprintf("low_activity_campaigns must be >= 0, got %d", t.LowActivityCampaigns))
	}
	if t.RegionMinSent < 0 {
		problems = append(problems, fmt.Sprintf("region_min_sent must be >= 0, got %d", t.RegionMinSent))
	}
	if t.RegionMinCampaigns < 0 {
		problems = append(problems, fmt.Sprintf("region_min_campaigns must be >= 0, got %d", t.RegionMinCampaigns))
	}
	if t.CampaignMinSent < 0 {
		problems = append(problems, fmt.Sprintf("campaign_min_sent must be >= 0, got %d", t.CampaignMinSent))
	}
	if t.CampaignMinSent > t.RegionMinSent {
		problems = append(problems, fmt.Sprintf("campaign_min_sent (%d) must not exceed region_min_sent (%d)",
			t.CampaignMinSent, t.RegionMinSent))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidThresholds, strings.Join(problems, "; "))
	}
	return nil
}
