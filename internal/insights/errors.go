package insights

import "errors"

// ErrInvalidThresholds is wrapped by every threshold validation failure.
var ErrInvalidThresholds = errors.New("invalid threshold configuration")
