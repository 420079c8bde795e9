package report

import (
	"time"

	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/insights"
)

// Report is a stamped management summary for one window.
type Report struct {
	ID          string          `json:"id"`
	GeneratedAt time.Time       `json:"generated_at"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Regions     []domain.Region `json:"regions"`

	Overview insights.Overview         `json:"overview"`
	Alerts   []domain.Alert            `json:"alerts"`
	Inactive []insights.InactiveRegion `json:"inactive_regions"`
}

// AlertsBySeverity returns the alerts carrying the given severity, in order.
func (r *Report) AlertsBySeverity(sev domain.Severity) []domain.Alert {
	var out []domain.Alert
	for _, a := range r.Alerts {
		if a.Severity == sev {
			out = append(out, a)
		}
	}
	return out
}

// Quiet reports whether there is nothing to alert anyone about.
func (r *Report) Quiet() bool {
	return len(r.Alerts) == 0
}
