package config

import (
	"fmt"
	"strings"

	"github.com/ignite/region-insights/internal/insights"
)

// ThresholdConfig is the thresholds block as written in YAML. Every key is
// required unless UseDocumentedDefaults is set, in which case missing keys
// fall back to insights.DefaultThresholds.
type ThresholdConfig struct {
	UseDocumentedDefaults bool `yaml:"use_documented_defaults"`

	BounceAlertRate      *float64 `yaml:"bounce_alert_rate"`
	UnsubAlertRate       *float64 `yaml:"unsub_alert_rate"`
	LowActivityCampaigns *int     `yaml:"low_activity_campaigns"`
	LowOpenRate          *float64 `yaml:"low_open_rate"`
	LowClickRate         *float64 `yaml:"low_click_rate"`

	ReviewMinOpenRate     *float64 `yaml:"review_min_open_rate"`
	ReviewMinClickRate    *float64 `yaml:"review_min_click_rate"`
	ReviewMinDeliveryRate *float64 `yaml:"review_min_delivery_rate"`

	RegionMinSent      *int64 `yaml:"region_min_sent"`
	RegionMinCampaigns *int   `yaml:"region_min_campaigns"`
	CampaignMinSent    *int64 `yaml:"campaign_min_sent"`
}

// Resolve turns the YAML block into validated insights thresholds.
func (c ThresholdConfig) Resolve() (insights.Thresholds, error) {
	var t insights.Thresholds
	if c.UseDocumentedDefaults {
		t = insights.DefaultThresholds()
	}

	var missing []string
	setFloat := func(name string, src *float64, dst *float64) {
		if src != nil {
			*dst = *src
		} else if !c.UseDocumentedDefaults {
			missing = append(missing, name)
		}
	}
	setInt := func(name string, src *int, dst *int) {
		if src != nil {
			*dst = *src
		} else if !c.UseDocumentedDefaults {
			missing = append(missing, name)
		}
	}
	setInt64 := func(name string, src *int64, dst *int64) {
		if src != nil {
			*dst = *src
		} else if !c.UseDocumentedDefaults {
			missing = append(missing, name)
		}
	}

	setFloat("bounce_alert_rate", c.BounceAlertRate, &t.BounceAlertRate)
	setFloat("unsub_alert_rate", c.UnsubAlertRate, &t.UnsubAlertRate)
	setInt("low_activity_campaigns", c.LowActivityCampaigns, &t.LowActivityCampaigns)
	setFloat("low_open_rate", c.LowOpenRate, &t.LowOpenRate)
	setFloat("low_click_rate", c.LowClickRate, &t.LowClickRate)
	setFloat("review_min_open_rate", c.ReviewMinOpenRate, &t.ReviewMinOpenRate)
	setFloat("review_min_click_rate", c.ReviewMinClickRate, &t.ReviewMinClickRate)
	setFloat("review_min_delivery_rate", c.ReviewMinDeliveryRate, &t.ReviewMinDeliveryRate)
	setInt64("region_min_sent", c.RegionMinSent, &t.RegionMinSent)
	setInt("region_min_campaigns", c.RegionMinCampaigns, &t.RegionMinCampaigns)
	setInt64("campaign_min_sent", c.CampaignMinSent, &t.CampaignMinSent)

	if len(missing) > 0 {
		return insights.Thresholds{}, fmt.Errorf("%w: thresholds missing %s (set them or use_documented_defaults: true)",
			insights.ErrInvalidThresholds, strings.Join(missing, ", "))
	}
	if err := t.Validate(); err != nil {
		return insights.Thresholds{}, fmt.Errorf("thresholds: %w", err)
	}
	return t, nil
}
