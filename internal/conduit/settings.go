// Package conduit holds the domain model for a managed Conduit proxy node:
// user-tunable settings, deployment state decisions, node identity derivation
// and proxy stats extraction from container log output.
package conduit

import (
	"fmt"

	"github.com/docker/go-units"
)

const (
	// UnlimitedBandwidth disables the egress limit when set as BandwidthMbps.
	UnlimitedBandwidth = -1

	MinClients = 1
	MaxClients = 1000

	MinBandwidthMbps = 1
	MaxBandwidthMbps = 10000

	maxCPULimit = 16.0
)

// DefaultSettings are applied when no config file exists yet.
var DefaultSettings = Settings{
	MaxClients:    250,
	BandwidthMbps: UnlimitedBandwidth,
	MemoryLimit:   "512m",
	CPULimit:      1.0,
}

// Settings are the user-tunable knobs applied to the conduit container.
type Settings struct {
	MaxClients    int     `yaml:"max_clients"`
	BandwidthMbps int     `yaml:"bandwidth_mbps"`
	MemoryLimit   string  `yaml:"memory_limit"`
	CPULimit      float64 `yaml:"cpu_limit"`
}

// Validate checks every field and returns the first violation found.
// BandwidthMbps accepts the unlimited sentinel; MaxClients does not.
func (s Settings) Validate() error {
	if s.MaxClients < MinClients || s.MaxClients > MaxClients {
		return fmt.Errorf("max clients must be between %d and %d, got %d", MinClients, MaxClients, s.MaxClients)
	}
	if s.BandwidthMbps != UnlimitedBandwidth &&
		(s.BandwidthMbps < MinBandwidthMbps || s.BandwidthMbps > MaxBandwidthMbps) {
		return fmt.Errorf("bandwidth must be between %d and %d Mbps or %d for unlimited, got %d",
			MinBandwidthMbps, MaxBandwidthMbps, UnlimitedBandwidth, s.BandwidthMbps)
	}
	if _, err := s.MemoryBytes(); err != nil {
		return err
	}
	if s.CPULimit <= 0 || s.CPULimit > maxCPULimit {
		return fmt.Errorf("cpu limit must be greater than 0 and at most %.0f, got %g", maxCPULimit, s.CPULimit)
	}
	return nil
}

// MemoryBytes parses the memory limit ("512m", "1g") into bytes.
func (s Settings) MemoryBytes() (int64, error) {
	bytes, err := units.RAMInBytes(s.MemoryLimit)
	if err != nil {
		return 0, fmt.Errorf("parse memory limit %q: %w", s.MemoryLimit, err)
	}
	if bytes < units.MiB*64 {
		return 0, fmt.Errorf("memory limit %q below 64m minimum", s.MemoryLimit)
	}
	return bytes, nil
}

// NanoCPUs converts the CPU limit into the engine's NanoCPUs unit.
func (s Settings) NanoCPUs() int64 {
	return int64(s.CPULimit * 1e9)
}

// BandwidthLabel renders the bandwidth limit for display.
func (s Settings) BandwidthLabel() string {
	if s.BandwidthMbps == UnlimitedBandwidth {
		return "unlimited"
	}
	return fmt.Sprintf("%d Mbps", s.BandwidthMbps)
}
