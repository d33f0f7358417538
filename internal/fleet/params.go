// Package fleet runs the tick-based coordination of agents over a shared
// navigation graph: command intake, movement, battery accounting, automatic
// charging and snapshot publishing.
package fleet

import (
	"errors"
	"fmt"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

// Params tunes agent kinematics and battery behaviour.
type Params struct {
	Speed          float64 // Distance covered per tick
	DrainPerUnit   float64 // Battery percent used per unit of distance
	ChargePerTick  float64 // Battery percent gained per tick on a charger
	LowBattery     float64 // Below this level an agent heads for a charger
	InitialBattery float64 // Level of a freshly spawned agent
}

// DefaultParams returns the standard tuning.
func DefaultParams() Params {
	return Params{
		Speed:          0.25,
		DrainPerUnit:   4.0,
		ChargePerTick:  10.0,
		LowBattery:     core.DefaultLowBattery,
		InitialBattery: core.BatteryFull,
	}
}

// Validate checks that the parameters describe a runnable fleet.
func (p Params) Validate() error {
	var errs []error
	if p.Speed <= 0 {
		errs = append(errs, fmt.Errorf("speed must be positive, got %v", p.Speed))
	}
	if p.DrainPerUnit < 0 {
		errs = append(errs, fmt.Errorf("drain must not be negative, got %v", p.DrainPerUnit))
	}
	if p.ChargePerTick <= 0 {
		errs = append(errs, fmt.Errorf("charge rate must be positive, got %v", p.ChargePerTick))
	}
	if p.LowBattery < 0 || p.LowBattery > core.BatteryFull {
		errs = append(errs, fmt.Errorf("low battery threshold out of range: %v", p.LowBattery))
	}
	if p.InitialBattery <= 0 || p.InitialBattery > core.BatteryFull {
		errs = append(errs, fmt.Errorf("initial battery out of range: %v", p.InitialBattery))
	}
	return errors.Join(errs...)
}
