// Package domain holds the value types shared by every layer of the region
// insights engine: campaign records, the region registry and alerts.
//
// Nothing here touches a database, a network or another internal package.
// Methods are limited to rate derivation (Normalize, DeliveryRate, Ratio),
// parsing (ParseRegion, ParseRegions) and small helpers on Alert. Record
// sources, the insights engine and the API all speak in these types.
package domain
