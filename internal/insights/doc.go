// Package insights is the regional campaign aggregation and alerting engine.
//
// Every exported function is a pure computation over the records and
// thresholds it is handed: no I/O, no shared state, no caching. Results are
// rebuilt from scratch on every call, so callers may evaluate different
// regions concurrently without coordination.
//
// The engine is split into four parts:
//   - Aggregate ranks regions by composite score and picks the top and
//     needs-attention regions among those passing the significance gate.
//   - ReviewRegion inspects one region's campaigns and picks a top performer,
//     a needs-review campaign, and the worst bounce/unsubscribe offenders.
//   - RegionSufficient and CampaignSufficient implement the minimum-sample gate.
//   - ClassifyAlerts and InactiveRegions turn summaries into severity-ordered alerts.
package insights
