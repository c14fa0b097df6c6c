package marlin

import (
	"time"

	"github.com/ehrlich-b/virtualmarlin/internal/constants"
	"github.com/ehrlich-b/virtualmarlin/internal/interfaces"
	"github.com/ehrlich-b/virtualmarlin/internal/version"
)

// Params holds every configurable knob of a Printer, mirroring the
// firmware's configuration table.
type Params struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RxBuffer     int
	CommandBuffer int
	Extruders    int
	Speeds       map[byte]float64
	HeatupDelta  float64

	WaitInterval time.Duration // 0 disables auto-wait emission
	OkBefore     bool
	SupportM112  bool
	SupportF     bool
	EchoM117     bool
	Throttle     time.Duration
	OkWithLineno bool
	ForceChecksums  bool
	RepetierResends bool

	VirtualSD       string
	VersionProvider version.Provider

	Logger     interfaces.Logger
	Observer   interfaces.Observer
	FileSystem interfaces.FileSystem
}

// DefaultParams returns the firmware's documented defaults.
func DefaultParams() Params {
	speeds := make(map[byte]float64, len(constants.DefaultSpeeds))
	for k, v := range constants.DefaultSpeeds {
		speeds[k] = v
	}
	return Params{
		ReadTimeout:   constants.DefaultReadTimeout,
		WriteTimeout:  constants.DefaultWriteTimeout,
		RxBuffer:      constants.DefaultRxBuffer,
		CommandBuffer: constants.DefaultCommandBuffer,
		Extruders:     constants.DefaultExtruders,
		Speeds:        speeds,
		HeatupDelta:   constants.DefaultHeatupDelta,

		WaitInterval: 0,
		OkBefore:     false,
		SupportM112:  true,
		SupportF:     true,
		EchoM117:     true,
		Throttle:     constants.DefaultThrottle,

		VersionProvider: version.DefaultProvider,
	}
}

// Option mutates a Params during construction, the functional-options
// pattern used throughout this module's constructors.
type Option func(*Params)

func WithReadTimeout(d time.Duration) Option  { return func(p *Params) { p.ReadTimeout = d } }
func WithWriteTimeout(d time.Duration) Option { return func(p *Params) { p.WriteTimeout = d } }
func WithRxBuffer(n int) Option               { return func(p *Params) { p.RxBuffer = n } }
func WithCommandBuffer(n int) Option          { return func(p *Params) { p.CommandBuffer = n } }
func WithExtruders(n int) Option              { return func(p *Params) { p.Extruders = n } }
func WithSpeeds(speeds map[byte]float64) Option {
	return func(p *Params) { p.Speeds = speeds }
}
func WithWaitInterval(d time.Duration) Option { return func(p *Params) { p.WaitInterval = d } }
func WithOkBefore(v bool) Option              { return func(p *Params) { p.OkBefore = v } }
func WithSupportM112(v bool) Option           { return func(p *Params) { p.SupportM112 = v } }
func WithSupportF(v bool) Option              { return func(p *Params) { p.SupportF = v } }
func WithEchoM117(v bool) Option              { return func(p *Params) { p.EchoM117 = v } }
func WithThrottle(d time.Duration) Option     { return func(p *Params) { p.Throttle = d } }
func WithOkWithLineno(v bool) Option          { return func(p *Params) { p.OkWithLineno = v } }
func WithForceChecksums(v bool) Option        { return func(p *Params) { p.ForceChecksums = v } }
func WithRepetierResends(v bool) Option       { return func(p *Params) { p.RepetierResends = v } }
func WithVirtualSD(path string) Option        { return func(p *Params) { p.VirtualSD = path } }
func WithVersionProvider(v version.Provider) Option {
	return func(p *Params) { p.VersionProvider = v }
}
func WithLogger(l interfaces.Logger) Option         { return func(p *Params) { p.Logger = l } }
func WithObserver(o interfaces.Observer) Option     { return func(p *Params) { p.Observer = o } }
func WithFileSystem(fs interfaces.FileSystem) Option { return func(p *Params) { p.FileSystem = fs } }

// WithParams replaces the entire Params, for callers (such as the command
// line tools) that load a complete configuration up front instead of
// composing individual options.
func WithParams(params Params) Option { return func(p *Params) { *p = params } }

// Apply returns a copy of DefaultParams with every opt applied in order.
func Apply(opts ...Option) Params {
	p := DefaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	return p
}
