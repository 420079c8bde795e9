package insights

import (
	"time"

	"github.com/ignite/region-insights/internal/domain"
)

// AnalyzeInput combines the aggregator input with the last-activity lookup
// for regions that have no records in the window.
type AnalyzeInput struct {
	Records      map[domain.Region][]domain.CampaignRecord
	Regions      []domain.Region
	LastActivity map[domain.Region]time.Time
	Thresholds   Thresholds
	Now          time.Time
}

// Analysis is the full management summary: ranking, alerts and inactivity.
type Analysis struct {
	Overview Overview         `json:"overview"`
	Alerts   []domain.Alert   `json:"alerts"`
	Inactive []InactiveRegion `json:"inactive_regions"`
}

// Analyze runs the aggregator, then classifies alerts for every summary and
// appends inactivity alerts for tracked regions absent from the window.
func Analyze(in AnalyzeInput) (Analysis, error) {
	ov, err := Aggregate(AggregateInput{
		Records:    in.Records,
		Regions:    in.Regions,
		Thresholds: in.Thresholds,
		Now:        in.Now,
	})
	if err != nil {
		return Analysis{}, err
	}

	absent := MissingRegions(trackedRegions(in.Regions, in.Records), in.Records)
	inactive := InactiveRegions(absent, in.LastActivity, in.Now)

	alerts := []domain.Alert{}
	for _, s := range ov.Regions {
		alerts = append(alerts, classifyRegion(s, in.Thresholds)...)
	}
	alerts = append(alerts, InactivityAlerts(inactive)...)
	SortAlerts(alerts)

	return Analysis{Overview: ov, Alerts: alerts, Inactive: inactive}, nil
}

// MissingRegions returns the tracked regions that have no records.
func MissingRegions(tracked []domain.Region, records map[domain.Region][]domain.CampaignRecord) []domain.Region {
	var out []domain.Region
	for _, r := range tracked {
		if len(records[r]) == 0 {
			out = append(out, r)
		}
	}
	return out
}
