package marlin

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML-facing shape of Params. Durations are expressed in
// seconds (matching the spec's configuration table) rather than Go's
// time.Duration string syntax, and boolean defaults-to-true options use
// pointers so an absent key leaves DefaultParams' value untouched.
type fileConfig struct {
	ReadTimeoutSeconds  *float64 `yaml:"read_timeout"`
	WriteTimeoutSeconds *float64 `yaml:"write_timeout"`
	RxBuffer            *int     `yaml:"rx_buffer"`
	CommandBuffer       *int     `yaml:"command_buffer"`
	Extruders           *int     `yaml:"extruders"`
	WaitIntervalSeconds *float64 `yaml:"wait_interval"`
	OkBefore            *bool    `yaml:"ok_before"`
	SupportM112         *bool    `yaml:"support_m112"`
	SupportF            *bool    `yaml:"support_f"`
	EchoM117            *bool    `yaml:"echo_m117"`
	VirtualSD           *string  `yaml:"virtual_sd"`
	ThrottleSeconds     *float64 `yaml:"throttle"`
	OkWithLineno        *bool    `yaml:"ok_with_lineno"`
	ForceChecksums      *bool    `yaml:"force_checksums"`
	RepetierResends     *bool    `yaml:"repetier_resends"`
}

// LoadParams reads a YAML config file and overlays it onto DefaultParams,
// for operators who want to run the emulator from a file instead of flags.
func LoadParams(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, WrapError("LoadParams", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Params{}, WrapError("LoadParams", err)
	}

	p := DefaultParams()
	applyFileConfig(&p, fc)
	return p, nil
}

func applyFileConfig(p *Params, fc fileConfig) {
	if fc.ReadTimeoutSeconds != nil {
		p.ReadTimeout = seconds(*fc.ReadTimeoutSeconds)
	}
	if fc.WriteTimeoutSeconds != nil {
		p.WriteTimeout = seconds(*fc.WriteTimeoutSeconds)
	}
	if fc.RxBuffer != nil {
		p.RxBuffer = *fc.RxBuffer
	}
	if fc.CommandBuffer != nil {
		p.CommandBuffer = *fc.CommandBuffer
	}
	if fc.Extruders != nil {
		p.Extruders = *fc.Extruders
	}
	if fc.WaitIntervalSeconds != nil {
		p.WaitInterval = seconds(*fc.WaitIntervalSeconds)
	}
	if fc.OkBefore != nil {
		p.OkBefore = *fc.OkBefore
	}
	if fc.SupportM112 != nil {
		p.SupportM112 = *fc.SupportM112
	}
	if fc.SupportF != nil {
		p.SupportF = *fc.SupportF
	}
	if fc.EchoM117 != nil {
		p.EchoM117 = *fc.EchoM117
	}
	if fc.VirtualSD != nil {
		p.VirtualSD = *fc.VirtualSD
	}
	if fc.ThrottleSeconds != nil {
		p.Throttle = seconds(*fc.ThrottleSeconds)
	}
	if fc.OkWithLineno != nil {
		p.OkWithLineno = *fc.OkWithLineno
	}
	if fc.ForceChecksums != nil {
		p.ForceChecksums = *fc.ForceChecksums
	}
	if fc.RepetierResends != nil {
		p.RepetierResends = *fc.RepetierResends
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
