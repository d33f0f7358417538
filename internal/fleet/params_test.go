package fleet

import (
	"errors"
	"testing"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

func TestDefaultParamsValid(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("Default params invalid: %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"zero speed", func(p *Params) { p.Speed = 0 }},
		{"negative drain", func(p *Params) { p.DrainPerUnit = -1 }},
		{"zero charge", func(p *Params) { p.ChargePerTick = 0 }},
		{"threshold above full", func(p *Params) { p.LowBattery = 120 }},
		{"empty start", func(p *Params) { p.InitialBattery = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			if err := p.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestPaletteCycles(t *testing.T) {
	if ColorFor(0) != ColorFor(8) {
		t.Error("Palette should repeat every 8 agents")
	}
	if ColorFor(0) == ColorFor(1) {
		t.Error("Neighbouring agents should differ in colour")
	}
	if LabelFor(core.AgentID(3)) != "R3" {
		t.Errorf("Unexpected label %q", LabelFor(3))
	}
}

func TestNewRejectsInvalidParams(t *testing.T) {
	params := DefaultParams()
	params.Speed = 0
	f := New(createLine(2), params, WithLogger(discardLogger()))

	if err := f.Err(); !errors.Is(err, ErrFatal) {
		t.Fatalf("Expected ErrFatal, got %v", err)
	}
	if err := f.Spawn(1); !errors.Is(err, ErrFatal) {
		t.Errorf("Expected Submit to fail, got %v", err)
	}
	if _, err := f.Tick(); !errors.Is(err, ErrFatal) {
		t.Errorf("Expected Tick to fail, got %v", err)
	}
}
