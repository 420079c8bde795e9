package domain

// AlertType enumerates the conditions the alert classifier reports.
type AlertType string

const (
	AlertBounce        AlertType = "bounce"
	AlertUnsubscribe   AlertType = "unsub"
	AlertLowActivity   AlertType = "lowActivity"
	AlertLowEngagement AlertType = "lowEngagement"
)

// Severity ranks alerts for the management view.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Rank orders severities; lower ranks sort first.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// Metric names carried on alerts so consumers know what Value measures.
const (
	MetricBounceRate       = "bounce_rate"
	MetricUnsubscribeRate  = "unsubscribe_rate"
	MetricCampaigns30d     = "campaigns_last_30_days"
	MetricDaysSinceLast    = "days_since_last_campaign"
	MetricAverageOpenRate  = "avg_open_rate"
	MetricAverageClickRate = "avg_click_rate"
)

// Alert is a single threshold breach for a region.
type Alert struct {
	Region    Region    `json:"region"`
	Type      AlertType `json:"type"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Severity  Severity  `json:"severity"`
}
