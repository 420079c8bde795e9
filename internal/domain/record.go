package domain

import (
	"time"
)

// CampaignRecord is the per-campaign metrics row the insights engine consumes.
// Counts default to zero and rates to 0.0 when the upstream source omits them.
// OpenRate and ClickRate are authoritative as supplied; they are not
// recomputed from the counts.
type CampaignRecord struct {
	ID         string    `json:"id" db:"id"`
	Region     Region    `json:"region" db:"region"`
	Title      *string   `json:"title,omitempty" db:"title"`
	SentAt     time.Time `json:"sent_at" db:"sent_at"`
	ArchiveURL string    `json:"archive_url,omitempty" db:"archive_url"`

	EmailsSent   int64 `json:"emails_sent" db:"emails_sent"`
	Opens        int64 `json:"opens" db:"opens"`
	UniqueOpens  int64 `json:"unique_opens" db:"unique_opens"`
	Clicks       int64 `json:"clicks" db:"clicks"`
	UniqueClicks int64 `json:"unique_clicks" db:"unique_clicks"`
	Bounces      int64 `json:"bounces" db:"bounces"`
	Unsubscribed int64 `json:"unsubscribed" db:"unsubscribed"`

	OpenRate  float64 `json:"open_rate" db:"open_rate"`
	ClickRate float64 `json:"click_rate" db:"click_rate"`

	// Display-only descriptors.
	Audience string `json:"audience,omitempty" db:"audience"`
	Segment  string `json:"segment,omitempty" db:"segment"`
}

// Normalize clamps negative counts to zero and rates into [0,1].
func (c CampaignRecord) Normalize() CampaignRecord {
	c.EmailsSent = nonNegative(c.EmailsSent)
	c.Opens = nonNegative(c.Opens)
	c.UniqueOpens = nonNegative(c.UniqueOpens)
	c.Clicks = nonNegative(c.Clicks)
	c.UniqueClicks = nonNegative(c.UniqueClicks)
	c.Bounces = nonNegative(c.Bounces)
	c.Unsubscribed = nonNegative(c.Unsubscribed)
	c.OpenRate = unitInterval(c.OpenRate)
	c.ClickRate = unitInterval(c.ClickRate)
	return c
}

// DisplayTitle returns the subject line or a placeholder when it is missing.
func (c CampaignRecord) DisplayTitle() string {
	if c.Title == nil || *c.Title == "" {
		return "(untitled campaign)"
	}
	return *c.Title
}

// DeliveryRate is (sent-bounces)/sent, or 1.0 when nothing was sent.
func (c CampaignRecord) DeliveryRate() float64 {
	return DeliveryRate(c.EmailsSent, c.Bounces)
}

// BounceRate is bounces/sent, or 0 when nothing was sent.
func (c CampaignRecord) BounceRate() float64 {
	return Ratio(c.Bounces, c.EmailsSent)
}

// UnsubscribeRate is unsubscribed/sent, or 0 when nothing was sent.
func (c CampaignRecord) UnsubscribeRate() float64 {
	return Ratio(c.Unsubscribed, c.EmailsSent)
}

// DeliveryRate computes the delivered fraction of sent mail. A zero send
// count is treated as fully delivered.
func DeliveryRate(sent, bounces int64) float64 {
	if sent <= 0 {
		return 1.0
	}
	delivered := sent - bounces
	if delivered < 0 {
		delivered = 0
	}
	return float64(delivered) / float64(sent)
}

// Ratio returns num/den, or 0 when den is not positive.
func Ratio(num, den int64) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// CampaignRef is the compact reference to a campaign used inside summaries.
type CampaignRef struct {
	ID         string    `json:"id"`
	Region     Region    `json:"region"`
	Title      string    `json:"title"`
	SentAt     time.Time `json:"sent_at"`
	ArchiveURL string    `json:"archive_url,omitempty"`
	EmailsSent int64     `json:"emails_sent"`
	OpenRate   float64   `json:"open_rate"`
	ClickRate  float64   `json:"click_rate"`
}

// Ref builds a CampaignRef for c.
func (c CampaignRecord) Ref() CampaignRef {
	return CampaignRef{
		ID:         c.ID,
		Region:     c.Region,
		Title:      c.DisplayTitle(),
		SentAt:     c.SentAt,
		ArchiveURL: c.ArchiveURL,
		EmailsSent: c.EmailsSent,
		OpenRate:   c.OpenRate,
		ClickRate:  c.ClickRate,
	}
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func unitInterval(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
