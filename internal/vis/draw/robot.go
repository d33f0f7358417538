package draw

import (
	"fmt"
	"image/color"

	"gioui.org/layout"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
	"github.com/elektrokombinacija/fleet-traffic/internal/vis/interact"
)

// Agent status ring colors
var (
	ColorStateIdle     = color.NRGBA{R: 150, G: 150, B: 150, A: 255}
	ColorStateMoving   = color.NRGBA{R: 80, G: 200, B: 90, A: 255}
	ColorStateWaiting  = color.NRGBA{R: 255, G: 150, B: 40, A: 255}
	ColorStateCharging = color.NRGBA{R: 255, G: 220, B: 40, A: 255}
	ColorStateComplete = color.NRGBA{R: 60, G: 210, B: 230, A: 255}
	ColorStateDead     = color.NRGBA{R: 220, G: 40, B: 40, A: 255}
	ColorSelected      = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	ColorBatteryBack   = color.NRGBA{R: 40, G: 40, B: 40, A: 220}
)

// LowBatteryDisplay is the level below which the battery bar is shown.
const LowBatteryDisplay = 30.0

// StateColor returns the status ring color for a state.
func StateColor(s core.AgentState) color.NRGBA {
	switch s {
	case core.StateMoving:
		return ColorStateMoving
	case core.StateWaiting:
		return ColorStateWaiting
	case core.StateCharging:
		return ColorStateCharging
	case core.StateTaskComplete:
		return ColorStateComplete
	case core.StateBatteryDead:
		return ColorStateDead
	default:
		return ColorStateIdle
	}
}

// AgentColor converts the palette color of an agent.
func AgentColor(c fleet.Color) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// BatteryColor shades the battery bar from red to green.
func BatteryColor(level float64) color.NRGBA {
	switch {
	case level < 10:
		return ColorStateDead
	case level < 20:
		return ColorStateWaiting
	case level < LowBatteryDisplay:
		return ColorStateCharging
	default:
		return ColorStateMoving
	}
}

// DrawAgent draws one agent at its interpolated position.
func DrawAgent(gtx layout.Context, th *material.Theme, a fleet.AgentView, camera *interact.Camera, selected bool) {
	x, y := camera.WorldToScreen(a.Pos)
	r := Scale(camera, AgentRadius, 6)

	if selected {
		DrawCircleOutline(gtx, x, y, r+6, ColorSelected, 2)
	}
	DrawCircleOutline(gtx, x, y, r+3, StateColor(a.State), 3)

	body := AgentColor(a.Color)
	if a.State == core.StateBatteryDead {
		body.A = 110
	}
	drawFilledCircle(gtx, x, y, r, body)

	DrawText(gtx, th, x-r, y-r-16, 11, ColorSelected, a.Label)

	if a.Battery < LowBatteryDisplay {
		drawBatteryBar(gtx, x-r, y+r+5, 2*r, a.Battery)
	}
}

func drawBatteryBar(gtx layout.Context, x, y, width float32, level float64) {
	const height = 4
	fillRect(gtx, x, y, x+width, y+height, ColorBatteryBack)
	w := width * float32(level/core.BatteryFull)
	if w > 0 {
		fillRect(gtx, x, y, x+w, y+height, BatteryColor(level))
	}
}

// DrawAgents draws all agents, the selected one highlighted.
func DrawAgents(gtx layout.Context, th *material.Theme, agents []fleet.AgentView, camera *interact.Camera, selected core.AgentID) {
	for _, a := range agents {
		DrawAgent(gtx, th, a, camera, a.ID == selected)
	}
}

// BatteryText formats a battery level for labels.
func BatteryText(level float64) string {
	return fmt.Sprintf("%.0f%%", level)
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
