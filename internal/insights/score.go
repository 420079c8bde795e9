package insights

import "github.com/ignite/region-insights/internal/domain"

// Composite score weights. Open rate carries slightly more weight as the
// primary funnel signal; delivery and click share the remainder.
const (
	OpenWeight     = 0.4
	ClickWeight    = 0.3
	DeliveryWeight = 0.3
)

// Score blends open, click and delivery rates into a single value in [0,1]
// when each input is in [0,1].
func Score(openRate, clickRate, deliveryRate float64) float64 {
	return openRate*OpenWeight + clickRate*ClickWeight + deliveryRate*DeliveryWeight
}

// CampaignScore is a campaign reference annotated with its derived rates.
type CampaignScore struct {
	domain.CampaignRef
	DeliveryRate    float64 `json:"delivery_rate"`
	BounceRate      float64 `json:"bounce_rate"`
	UnsubscribeRate float64 `json:"unsubscribe_rate"`
	Score           float64 `json:"score"`
}

func scoreCampaign(c domain.CampaignRecord) CampaignScore {
	delivery := c.DeliveryRate()
	return CampaignScore{
		CampaignRef:     c.Ref(),
		DeliveryRate:    delivery,
		BounceRate:      c.BounceRate(),
		UnsubscribeRate: c.UnsubscribeRate(),
		Score:           Score(c.OpenRate, c.ClickRate, delivery),
	}
}
