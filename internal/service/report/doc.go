// Package report orchestrates the insights engine for callers.
//
// The service fetches campaign records from a CampaignSource, runs the pure
// engine in internal/insights, stamps the result as a Report, and hands it to
// optional collaborators: a Cache for repeat reads, an Archiver for history,
// and Notifiers for the management digest. It depends only on interfaces
// defined here; implementations live in repository/postgres, snowflake,
// cache, storage and digest.
package report
