package core

import "math"

// Battery limits, in percent.
const (
	BatteryEmpty = 0.0
	BatteryFull  = 100.0
)

// DefaultLowBattery is the level below which an agent heads for a charger.
const DefaultLowBattery = 20.0

// Battery is a charge level in percent, kept within [0, 100].
type Battery float64

// IsLow returns true if the level is below threshold.
func (b Battery) IsLow(threshold float64) bool {
	return float64(b) < threshold
}

// IsEmpty returns true once the battery is depleted.
func (b Battery) IsEmpty() bool {
	return float64(b) <= BatteryEmpty
}

// IsFull returns true at full charge.
func (b Battery) IsFull() bool {
	return float64(b) >= BatteryFull
}

// Consume reduces the level, clamping at empty.
func (b Battery) Consume(amount float64) Battery {
	return clampBattery(float64(b) - math.Max(amount, 0))
}

// Recharge raises the level, clamping at full.
func (b Battery) Recharge(amount float64) Battery {
	return clampBattery(float64(b) + math.Max(amount, 0))
}

// ClampBattery converts a raw level into a valid Battery.
func ClampBattery(level float64) Battery {
	return clampBattery(level)
}

func clampBattery(level float64) Battery {
	switch {
	case math.IsNaN(level), level < BatteryEmpty:
		return BatteryEmpty
	case level > BatteryFull:
		return BatteryFull
	default:
		return Battery(level)
	}
}
