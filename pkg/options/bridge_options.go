package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*BridgeOptions)(nil)

// BridgeOptions carries the per-installation bridge behavior: which vehicles
// to poll and how the adaptive polling schedule is shaped.
type BridgeOptions struct {
	// VINs lists the vehicles to bridge. At least one is required.
	VINs []string `json:"vins" mapstructure:"vins"`

	// Experimental enables the engine start/stop commands.
	Experimental bool `json:"experimental" mapstructure:"experimental"`

	// RefreshCooldown coalesces closely-spaced manual refresh requests
	// into a single fetch.
	RefreshCooldown time.Duration `json:"refresh-cooldown" mapstructure:"refresh-cooldown"`

	// SmartPollingEnabled selects the adaptive schedule; false falls back
	// to the fixed legacy scan interval.
	SmartPollingEnabled bool `json:"smart-polling-enabled" mapstructure:"smart-polling-enabled"`

	// ActiveStartHour/ActiveEndHour bound the daily active polling window.
	ActiveStartHour int `json:"active-start-hour" mapstructure:"active-start-hour"`
	ActiveEndHour   int `json:"active-end-hour" mapstructure:"active-end-hour"`

	// Normal polling interval bounds (minutes) inside the active window.
	NormalIntervalMin int `json:"normal-interval-min" mapstructure:"normal-interval-min"`
	NormalIntervalMax int `json:"normal-interval-max" mapstructure:"normal-interval-max"`

	// Charging polling interval bounds (minutes) while usefully charging.
	ChargingIntervalMin int `json:"charging-interval-min" mapstructure:"charging-interval-min"`
	ChargingIntervalMax int `json:"charging-interval-max" mapstructure:"charging-interval-max"`

	// ChargingTargetPercent is the battery level above which charging no
	// longer warrants fast polling.
	ChargingTargetPercent int `json:"charging-target-percent" mapstructure:"charging-target-percent"`

	// LegacyScanIntervalMinutes is the fixed interval used when smart
	// polling is disabled.
	LegacyScanIntervalMinutes int `json:"legacy-scan-interval-minutes" mapstructure:"legacy-scan-interval-minutes"`

	// DarkHoursStart/DarkHoursEnd bound the legacy-mode no-poll window.
	// The window may wrap midnight (start 22, end 4).
	DarkHoursStart int `json:"dark-hours-start" mapstructure:"dark-hours-start"`
	DarkHoursEnd   int `json:"dark-hours-end" mapstructure:"dark-hours-end"`
}

// NewBridgeOptions creates a BridgeOptions object with default parameters.
// The defaults mirror a typical daily driving pattern: active 10:00-22:00,
// relaxed polling overnight.
func NewBridgeOptions() *BridgeOptions {
	return &BridgeOptions{
		RefreshCooldown:           10 * time.Second,
		SmartPollingEnabled:       true,
		ActiveStartHour:           10,
		ActiveEndHour:             22,
		NormalIntervalMin:         20,
		NormalIntervalMax:         40,
		ChargingIntervalMin:       8,
		ChargingIntervalMax:       12,
		ChargingTargetPercent:     90,
		LegacyScanIntervalMinutes: 120,
		DarkHoursStart:            1,
		DarkHoursEnd:              5,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *BridgeOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if len(o.VINs) == 0 {
		errs = append(errs, errors.New("at least one VIN is required"))
	}

	for name, h := range map[string]int{
		"active-start-hour": o.ActiveStartHour,
		"active-end-hour":   o.ActiveEndHour,
		"dark-hours-start":  o.DarkHoursStart,
		"dark-hours-end":    o.DarkHoursEnd,
	} {
		if h < 0 || h > 23 {
			errs = append(errs, fmt.Errorf("%s must be in [0,23], got %d", name, h))
		}
	}

	if o.ChargingTargetPercent < 0 || o.ChargingTargetPercent > 100 {
		errs = append(errs, fmt.Errorf("charging-target-percent must be in [0,100], got %d", o.ChargingTargetPercent))
	}

	if o.NormalIntervalMin > o.NormalIntervalMax {
		errs = append(errs, fmt.Errorf("normal-interval-min %d > normal-interval-max %d", o.NormalIntervalMin, o.NormalIntervalMax))
	}
	if o.ChargingIntervalMin > o.ChargingIntervalMax {
		errs = append(errs, fmt.Errorf("charging-interval-min %d > charging-interval-max %d", o.ChargingIntervalMin, o.ChargingIntervalMax))
	}

	return errs
}

// AddFlags adds flags for BridgeOptions to the specified FlagSet.
func (o *BridgeOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.VINs, "bridge.vins", o.VINs, "VINs of the vehicles to bridge.")
	fs.BoolVar(&o.Experimental, "bridge.experimental", o.Experimental, "Enable experimental commands (engine start/stop).")
	fs.DurationVar(&o.RefreshCooldown, "bridge.refresh-cooldown", o.RefreshCooldown, "Cooldown coalescing manual refresh requests.")

	fs.BoolVar(&o.SmartPollingEnabled, "bridge.smart-polling-enabled", o.SmartPollingEnabled, "Use the adaptive polling schedule.")
	fs.IntVar(&o.ActiveStartHour, "bridge.active-start-hour", o.ActiveStartHour, "Hour the daily active polling window opens.")
	fs.IntVar(&o.ActiveEndHour, "bridge.active-end-hour", o.ActiveEndHour, "Hour the daily active polling window closes.")
	fs.IntVar(&o.NormalIntervalMin, "bridge.normal-interval-min", o.NormalIntervalMin, "Minimum normal polling interval in minutes.")
	fs.IntVar(&o.NormalIntervalMax, "bridge.normal-interval-max", o.NormalIntervalMax, "Maximum normal polling interval in minutes.")
	fs.IntVar(&o.ChargingIntervalMin, "bridge.charging-interval-min", o.ChargingIntervalMin, "Minimum polling interval in minutes while charging.")
	fs.IntVar(&o.ChargingIntervalMax, "bridge.charging-interval-max", o.ChargingIntervalMax, "Maximum polling interval in minutes while charging.")
	fs.IntVar(&o.ChargingTargetPercent, "bridge.charging-target-percent", o.ChargingTargetPercent, "Battery percentage at which fast charging polling stops.")
	fs.IntVar(&o.LegacyScanIntervalMinutes, "bridge.legacy-scan-interval-minutes", o.LegacyScanIntervalMinutes, "Fixed polling interval in minutes for legacy mode.")
	fs.IntVar(&o.DarkHoursStart, "bridge.dark-hours-start", o.DarkHoursStart, "Hour the legacy no-poll window opens.")
	fs.IntVar(&o.DarkHoursEnd, "bridge.dark-hours-end", o.DarkHoursEnd, "Hour the legacy no-poll window closes.")
}
