package marlin

import "github.com/ehrlich-b/virtualmarlin/internal/constants"

// Re-exported defaults, public so a caller can reference them in Params
// without importing the internal package directly.
const (
	DefaultReadTimeout    = constants.DefaultReadTimeout
	DefaultWriteTimeout   = constants.DefaultWriteTimeout
	DefaultRxBuffer       = constants.DefaultRxBuffer
	DefaultCommandBuffer  = constants.DefaultCommandBuffer
	DefaultExtruders      = constants.DefaultExtruders
	DefaultThrottle       = constants.DefaultThrottle
	DefaultWaitInterval   = constants.DefaultWaitInterval
	DefaultHeatupDelta    = constants.DefaultHeatupDelta
	DefaultHeatupInterval = constants.DefaultHeatupInterval
	DefaultVersionString  = constants.DefaultVersionString
)

// DefaultSpeeds re-exports the per-axis default feedrate table.
var DefaultSpeeds = constants.DefaultSpeeds
