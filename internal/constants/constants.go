// Package constants holds the default values and protocol literals shared
// across the virtual printer's subsystems, mirroring the option table in the
// spec's configuration section.
package constants

import "time"

// Timeout and buffer defaults (spec §6 configuration table).
const (
	DefaultReadTimeout    = 5 * time.Second
	DefaultWriteTimeout   = 10 * time.Second
	DefaultRxBuffer       = 64
	DefaultCommandBuffer  = 4
	DefaultExtruders      = 1
	DefaultThrottle       = 100 * time.Millisecond
	DefaultWaitInterval   = time.Second
	DefaultHeatupDelta    = 1.0
	DefaultHeatupInterval = time.Second
)

// DefaultSpeeds holds the mm/min feedrate per axis used when no override is
// configured.
var DefaultSpeeds = map[byte]float64{
	'x': 6000,
	'y': 6000,
	'z': 300,
	'e': 200,
}

// Reader loop polling intervals.
const (
	RxPollInterval   = 10 * time.Millisecond
	MoveQueuePoll    = 500 * time.Millisecond
	SDPrintLineDelay = 100 * time.Millisecond
)

// Boot banner, emitted in order on construction (spec §6).
var BootBanner = []string{
	"start",
	"Marlin: Virtual Marlin!",
	"\x80",
	"SD card ok",
}

// ForcedResendAtLine is the test-harness hook: the checksummed-line counter
// value that triggers a synthetic resend request once per boot (spec §4.3,
// §9 "current_line == 101").
const ForcedResendAtLine = 101

// DefaultVersionString is returned by the default version provider when the
// host sends the bare "version" meta-command.
const DefaultVersionString = "VirtualMarlin 1.0.0"
