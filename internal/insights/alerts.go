package insights

import (
	"sort"
	"time"

	"github.com/ignite/region-insights/internal/domain"
)

// InactiveRegion is a tracked region with no records in the current window
// whose last known campaign is older than RecentWindow.
type InactiveRegion struct {
	Region         domain.Region `json:"region"`
	LastCampaignAt time.Time     `json:"last_campaign_at"`
	DaysSince      int           `json:"days_since"`
}

// ClassifyAlerts evaluates every summary in a fixed precedence: bounce,
// unsubscribe, low activity, then low engagement (open before click). A region
// may raise several alerts. The result is severity ordered.
func ClassifyAlerts(summaries []RegionSummary, t Thresholds) []domain.Alert {
	alerts := []domain.Alert{}
	for _, s := range summaries {
		alerts = append(alerts, classifyRegion(s, t)...)
	}
	SortAlerts(alerts)
	return alerts
}

func classifyRegion(s RegionSummary, t Thresholds) []domain.Alert {
	var out []domain.Alert

	if s.BounceRate > t.BounceAlertRate {
		out = append(out, domain.Alert{
			Region: s.Region, Type: domain.AlertBounce, Severity: domain.SeverityHigh,
			Metric: domain.MetricBounceRate, Value: s.BounceRate, Threshold: t.BounceAlertRate,
		})
	}
	if s.UnsubscribeRate > t.UnsubAlertRate {
		out = append(out, domain.Alert{
			Region: s.Region, Type: domain.AlertUnsubscribe, Severity: domain.SeverityHigh,
			Metric: domain.MetricUnsubscribeRate, Value: s.UnsubscribeRate, Threshold: t.UnsubAlertRate,
		})
	}
	if s.CampaignsLast30Days < t.LowActivityCampaigns {
		out = append(out, domain.Alert{
			Region: s.Region, Type: domain.AlertLowActivity, Severity: domain.SeverityMedium,
			Metric: domain.MetricCampaigns30d, Value: float64(s.CampaignsLast30Days),
			Threshold: float64(t.LowActivityCampaigns),
		})
	}
	switch {
	case s.AvgOpenRate < t.LowOpenRate:
		out = append(out, domain.Alert{
			Region: s.Region, Type: domain.AlertLowEngagement, Severity: domain.SeverityMedium,
			Metric: domain.MetricAverageOpenRate, Value: s.AvgOpenRate, Threshold: t.LowOpenRate,
		})
	case s.AvgClickRate < t.LowClickRate:
		out = append(out, domain.Alert{
			Region: s.Region, Type: domain.AlertLowEngagement, Severity: domain.SeverityMedium,
			Metric: domain.MetricAverageClickRate, Value: s.AvgClickRate, Threshold: t.LowClickRate,
		})
	}
	return out
}

// InactiveRegions picks, from candidates with no records in the current
// window, those whose last known campaign is older than RecentWindow. Regions
// with no known activity are skipped. The most stale region comes first.
func InactiveRegions(candidates []domain.Region, lastActivity map[domain.Region]time.Time, now time.Time) []InactiveRegion {
	out := []InactiveRegion{}
	seen := make(map[domain.Region]bool, len(candidates))
	for _, r := range candidates {
		if seen[r] {
			continue
		}
		seen[r] = true

		last, ok := lastActivity[r]
		if !ok || last.IsZero() {
			continue
		}
		if now.Sub(last) <= RecentWindow {
			continue
		}
		out = append(out, InactiveRegion{Region: r, LastCampaignAt: last, DaysSince: DaysSince(last, now)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastCampaignAt.Before(out[j].LastCampaignAt)
	})
	return out
}

// InactivityAlerts turns inactive regions into medium low-activity alerts.
func InactivityAlerts(inactive []InactiveRegion) []domain.Alert {
	out := make([]domain.Alert, 0, len(inactive))
	for _, r := range inactive {
		out = append(out, domain.Alert{
			Region:    r.Region,
			Type:      domain.AlertLowActivity,
			Severity:  domain.SeverityMedium,
			Metric:    domain.MetricDaysSinceLast,
			Value:     float64(r.DaysSince),
			Threshold: RecentWindow.Hours() / 24,
		})
	}
	return out
}

// SortAlerts puts high severity ahead of medium, keeping the relative order
// of alerts that share a severity.
func SortAlerts(alerts []domain.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
}
