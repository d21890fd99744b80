// Package profile loads named strategy profiles from YAML. A profile is the
// full parameter set of one engine variant; the historical zoo of
// copy-pasted strategy scripts collapses into entries in one file.
package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"strategy-core/internal/risk"
	"strategy-core/internal/signal"
)

// Profile bundles every tunable of a strategy variant.
type Profile struct {
	Name string `yaml:"name"`

	WindowSize     int  `yaml:"window_size"`
	MinWindow      int  `yaml:"min_window"` // 0 means the window must be full
	RSIPeriod      int  `yaml:"rsi_period"`
	WithRegression bool `yaml:"with_regression"`
	StaleTicks     int  `yaml:"stale_ticks"` // idle ticks before a flat symbol's window is evicted

	Signal signal.Config `yaml:"signal"`
	Risk   risk.Config   `yaml:"risk"`
}

// File is the top-level YAML document.
type File struct {
	Profiles []Profile `yaml:"profiles"`
}

// Load reads all profiles from a YAML file.
func Load(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	for i := range file.Profiles {
		if err := file.Profiles[i].Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", file.Profiles[i].Name, err)
		}
	}
	return file.Profiles, nil
}

// Select finds a profile by name.
func Select(profiles []Profile, name string) (Profile, error) {
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("profile %q not found", name)
}

// Validate checks internal consistency and fills derivable defaults.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive")
	}
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = 14
	}
	if p.WindowSize < p.RSIPeriod+1 {
		return fmt.Errorf("window_size %d too small for rsi_period %d", p.WindowSize, p.RSIPeriod)
	}
	if p.MinWindow <= 0 || p.MinWindow > p.WindowSize {
		p.MinWindow = p.WindowSize
	}
	if p.Signal.ZEntry >= 0 {
		return fmt.Errorf("signal.z_entry must be negative")
	}
	if p.Signal.DCAEnabled && p.Signal.DCALevelWiden < 1 {
		return fmt.Errorf("signal.dca_level_widen must be >= 1")
	}
	if p.Risk.MaxPositions <= 0 {
		return fmt.Errorf("risk.max_positions must be positive")
	}
	if p.Risk.AllocationFrac <= 0 || p.Risk.AllocationFrac > 1 {
		return fmt.Errorf("risk.allocation_frac must be in (0, 1]")
	}
	return nil
}

// Default returns the baseline mean-reversion profile used when no YAML file
// is configured.
func Default() Profile {
	return Profile{
		Name:       "meanrev-baseline",
		WindowSize: 40,
		RSIPeriod:  14,
		StaleTicks: 200,
		Signal: signal.Config{
			ZEntry:             -2.0,
			RSIEntry:           35,
			MinVolatility:      0.001,
			KnifeGuard:         true,
			StopLossPct:        0.05,
			AllowLossExit:      true,
			TargetROI:          0.02,
			TrailingArmROI:     0.015,
			TrailingDistance:   0.01,
			ZExit:              0,
			ZExitRequireProfit: true,
			MaxHoldTicks:       50,
			TimeExitMinROI:     0,
			DCAEnabled:         true,
			MaxDCALevels:       3,
			DCABaseDrop:        0.03,
			DCALevelWiden:      1.5,
			DCAVolWiden:        0.5,
		},
		Risk: risk.DefaultConfig(),
	}
}
