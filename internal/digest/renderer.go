package digest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/osteele/liquid"

	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/insights"
	"github.com/ignite/region-insights/internal/service/report"
)

const subjectTemplate = `Regional campaign digest {{ to }}: {% if alert_count == 0 %}no alerts{% else %}{{ high_count }} high, {{ medium_count }} medium{% endif %}`

const bodyTemplate = `Regional Campaign Digest
========================

Window:    {{ from }} to {{ to }}
Generated: {{ generated }}
{% if no_data %}
No campaigns were sent in any tracked region during this window.
{% else %}
{% if top %}Top region:      {{ top.name }} (score {{ top.score | percent }}, open {{ top.open_rate | percent }}, click {{ top.click_rate | percent }})
{% endif %}
{% if attention %}Needs attention: {{ attention.name }} (score {{ attention.score | percent }}, open {{ attention.open_rate | percent }}, click {{ attention.click_rate | percent }})
{% endif %}
Ranking:
{% for r in ranking %}  {{ forloop.index }}. {{ r.name }}  {{ r.score | percent }}{% unless r.sufficient %}  (insufficient data){% endunless %}
{% endfor %}
{% endif %}
{% if high_alerts.size > 0 %}
High severity:
{% for a in high_alerts %}  - {{ a.region }}: {{ a.label }} {{ a.value }} (threshold {{ a.threshold }})
{% endfor %}
{% endif %}
{% if medium_alerts.size > 0 %}
Medium severity:
{% for a in medium_alerts %}  - {{ a.region }}: {{ a.label }} {{ a.value }} (threshold {{ a.threshold }})
{% endfor %}
{% endif %}
{% if inactive.size > 0 %}
Inactive regions:
{% for r in inactive %}  - {{ r.name }}: last campaign {{ r.days }} days ago
{% endfor %}
{% endif %}
{% if insufficient.size > 0 %}
Not ranked (too little volume): {{ insufficient | join: ", " }}
{% endif %}
{% if dashboard_url != "" %}
Dashboard: {{ dashboard_url }}
{% endif %}
---
Report {{ report_id }}
`

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Digest is a rendered report.
type Digest struct {
	Subject string
	Body    string
}

// Renderer turns reports into digests using Liquid templates.
type Renderer struct {
	subject      *liquid.Template
	body         *liquid.Template
	dashboardURL string
}

// NewRenderer parses the digest templates.
func NewRenderer(dashboardURL string) (*Renderer, error) {
	engine := liquid.NewEngine()
	engine.RegisterFilter("percent", func(value interface{}) string {
		switch v := value.(type) {
		case float64:
			return formatPercent(v)
		case int:
			return formatPercent(float64(v))
		default:
			return fmt.Sprintf("%v", value)
		}
	})

	subject, err := engine.ParseString(subjectTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing subject template: %w", err)
	}
	body, err := engine.ParseString(bodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing body template: %w", err)
	}
	return &Renderer{subject: subject, body: body, dashboardURL: dashboardURL}, nil
}

// Render produces the digest for r.
func (rn *Renderer) Render(r *report.Report) (Digest, error) {
	bindings := rn.bindings(r)

	subject, err := rn.subject.RenderString(bindings)
	if err != nil {
		return Digest{}, fmt.Errorf("rendering subject: %w", err)
	}
	body, err := rn.body.RenderString(bindings)
	if err != nil {
		return Digest{}, fmt.Errorf("rendering body: %w", err)
	}
	return Digest{
		Subject: strings.TrimSpace(subject),
		Body:    blankRuns.ReplaceAllString(body, "\n\n"),
	}, nil
}

func (rn *Renderer) bindings(r *report.Report) map[string]interface{} {
	ov := r.Overview

	ranking := make([]map[string]interface{}, 0, len(ov.Regions))
	for _, s := range ov.Regions {
		ranking = append(ranking, map[string]interface{}{
			"name":       s.Region.Name(),
			"score":      s.Score,
			"sufficient": s.Sufficient,
		})
	}

	insufficient := make([]string, 0, len(ov.InsufficientRegions))
	for _, region := range ov.InsufficientRegions {
		insufficient = append(insufficient, region.Name())
	}

	inactive := make([]map[string]interface{}, 0, len(r.Inactive))
	for _, ir := range r.Inactive {
		inactive = append(inactive, map[string]interface{}{
			"name": ir.Region.Name(),
			"days": ir.DaysSince,
		})
	}

	high := r.AlertsBySeverity(domain.SeverityHigh)
	medium := r.AlertsBySeverity(domain.SeverityMedium)

	return map[string]interface{}{
		"report_id":     r.ID,
		"from":          r.From.Format("2006-01-02"),
		"to":            r.To.Format("2006-01-02"),
		"generated":     r.GeneratedAt.UTC().Format(time.RFC1123),
		"no_data":       ov.NoData,
		"top":           regionBinding(ov.TopRegion),
		"attention":     regionBinding(ov.NeedsAttention),
		"ranking":       ranking,
		"insufficient":  insufficient,
		"inactive":      inactive,
		"alert_count":   len(r.Alerts),
		"high_count":    len(high),
		"medium_count":  len(medium),
		"high_alerts":   alertBindings(high),
		"medium_alerts": alertBindings(medium),
		"dashboard_url": rn.dashboardURL,
	}
}

// regionBinding returns an untyped nil for a missing region so Liquid treats
// it as false.
func regionBinding(s *insights.RegionSummary) interface{} {
	if s == nil {
		return nil
	}
	return map[string]interface{}{
		"name":       s.Region.Name(),
		"score":      s.Score,
		"open_rate":  s.AvgOpenRate,
		"click_rate": s.AvgClickRate,
	}
}

func alertBindings(alerts []domain.Alert) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, map[string]interface{}{
			"region":    a.Region.Name(),
			"label":     alertLabel(a),
			"value":     formatMetric(a.Metric, a.Value),
			"threshold": formatMetric(a.Metric, a.Threshold),
		})
	}
	return out
}

func alertLabel(a domain.Alert) string {
	switch a.Metric {
	case domain.MetricBounceRate:
		return "bounce rate"
	case domain.MetricUnsubscribeRate:
		return "unsubscribe rate"
	case domain.MetricCampaigns30d:
		return "campaigns in the last 30 days"
	case domain.MetricDaysSinceLast:
		return "days since last campaign"
	case domain.MetricAverageOpenRate:
		return "average open rate"
	case domain.MetricAverageClickRate:
		return "average click rate"
	default:
		return string(a.Type)
	}
}

func formatMetric(metric string, v float64) string {
	switch metric {
	case domain.MetricCampaigns30d, domain.MetricDaysSinceLast:
		return fmt.Sprintf("%.0f", v)
	default:
		return formatPercent(v)
	}
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
