package report

import "errors"

// Sentinel errors for the report service layer.
var (
	ErrUnknownRegion = errors.New("region is not tracked")
	ErrInvalidWindow = errors.New("invalid reporting window")
)
