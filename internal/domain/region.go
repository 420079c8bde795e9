package domain

import (
	"fmt"
	"strings"
)

// Region identifies one of the supported geographic send regions.
type Region string

const (
	RegionUS Region = "us"
	RegionCA Region = "ca"
	RegionMX Region = "mx"
	RegionBR Region = "br"
	RegionUK Region = "uk"
	RegionIE Region = "ie"
	RegionDE Region = "de"
	RegionFR Region = "fr"
	RegionES Region = "es"
	RegionIT Region = "it"
	RegionNL Region = "nl"
	RegionAU Region = "au"
	RegionNZ Region = "nz"
	RegionJP Region = "jp"
	RegionSG Region = "sg"
	RegionIN Region = "in"
)

// RegionInfo holds display metadata for a region. None of it takes part in
// scoring or alerting.
type RegionInfo struct {
	Code  Region `json:"code"`
	Name  string `json:"name"`
	Flag  string `json:"flag"`
	Color string `json:"color"`
}

// registry is kept in display order.
var registry = []RegionInfo{
	{Code: RegionUS, Name: "United States", Flag: "🇺🇸", Color: "#1f77b4"},
	{Code: RegionCA, Name: "Canada", Flag: "🇨🇦", Color: "#d62728"},
	{Code: RegionMX, Name: "Mexico", Flag: "🇲🇽", Color: "#2ca02c"},
	{Code: RegionBR, Name: "Brazil", Flag: "🇧🇷", Color: "#bcbd22"},
	{Code: RegionUK, Name: "United Kingdom", Flag: "🇬🇧", Color: "#9467bd"},
	{Code: RegionIE, Name: "Ireland", Flag: "🇮🇪", Color: "#17becf"},
	{Code: RegionDE, Name: "Germany", Flag: "🇩🇪", Color: "#8c564b"},
	{Code: RegionFR, Name: "France", Flag: "🇫🇷", Color: "#e377c2"},
	{Code: RegionES, Name: "Spain", Flag: "🇪🇸", Color: "#ff7f0e"},
	{Code: RegionIT, Name: "Italy", Flag: "🇮🇹", Color: "#7f7f7f"},
	{Code: RegionNL, Name: "Netherlands", Flag: "🇳🇱", Color: "#f4a261"},
	{Code: RegionAU, Name: "Australia", Flag: "🇦🇺", Color: "#264653"},
	{Code: RegionNZ, Name: "New Zealand", Flag: "🇳🇿", Color: "#2a9d8f"},
	{Code: RegionJP, Name: "Japan", Flag: "🇯🇵", Color: "#e76f51"},
	{Code: RegionSG, Name: "Singapore", Flag: "🇸🇬", Color: "#e9c46a"},
	{Code: RegionIN, Name: "India", Flag: "🇮🇳", Color: "#6a4c93"},
}

var registryIndex = func() map[Region]RegionInfo {
	m := make(map[Region]RegionInfo, len(registry))
	for _, info := range registry {
		m[info.Code] = info
	}
	return m
}()

// aliases maps common alternate spellings onto registry codes.
var aliases = map[string]Region{
	"gb":  RegionUK,
	"usa": RegionUS,
}

// AllRegions returns metadata for every supported region in display order.
func AllRegions() []RegionInfo {
	out := make([]RegionInfo, len(registry))
	copy(out, registry)
	return out
}

// Info returns the display metadata for a region.
func Info(r Region) (RegionInfo, bool) {
	info, ok := registryIndex[r]
	return info, ok
}

// Valid reports whether r is a registered region code.
func (r Region) Valid() bool {
	_, ok := registryIndex[r]
	return ok
}

// Name returns the display name, falling back to the upper-cased code.
func (r Region) Name() string {
	if info, ok := registryIndex[r]; ok {
		return info.Name
	}
	return strings.ToUpper(string(r))
}

// ParseRegion normalises s and validates it against the registry.
func ParseRegion(s string) (Region, error) {
	code := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := aliases[code]; ok {
		return alias, nil
	}
	r := Region(code)
	if !r.Valid() {
		return "", fmt.Errorf("unknown region %q", s)
	}
	return r, nil
}

// ParseRegions parses a list of codes, dropping duplicates while keeping
// first-seen order.
func ParseRegions(codes []string) ([]Region, error) {
	seen := make(map[Region]bool, len(codes))
	out := make([]Region, 0, len(codes))
	for _, c := range codes {
		if strings.TrimSpace(c) == "" {
			continue
		}
		r, err := ParseRegion(c)
		if err != nil {
			return nil, err
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out, nil
}
