package insights

// RegionSufficient reports whether a region carries enough data to be ranked.
// Either signal alone is adequate: total sends at or above the region sent
// floor, or a campaign count at or above the region campaign floor.
func RegionSufficient(totalSent int64, campaigns int, t Thresholds) bool {
	return totalSent >= t.RegionMinSent || campaigns >= t.RegionMinCampaigns
}

// CampaignSufficient reports whether a single campaign is large enough to be
// compared against its peers.
func CampaignSufficient(emailsSent int64, t Thresholds) bool {
	return emailsSent >= t.CampaignMinSent
}
