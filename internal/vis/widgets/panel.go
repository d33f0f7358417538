package widgets

import (
	"fmt"
	"image"
	"image/color"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/vis/draw"
	"github.com/elektrokombinacija/fleet-traffic/internal/vis/state"
)

// PanelWidth is the width of the status panel in dp.
const PanelWidth = 260

var (
	colorPanelText  = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	colorPanelMuted = color.NRGBA{R: 140, G: 145, B: 150, A: 255}
	colorNoteInfo   = color.NRGBA{R: 150, G: 180, B: 200, A: 255}
	colorNoteError  = color.NRGBA{R: 255, G: 120, B: 110, A: 255}
)

// Panel lists the tick, agent states and recent notifications.
type Panel struct {
	state *state.State
	list  widget.List
}

// NewPanel creates a new status panel.
func NewPanel(st *state.State) *Panel {
	p := &Panel{state: st}
	p.list.Axis = layout.Vertical
	return p
}

// Layout renders the panel.
func (p *Panel) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	width := gtx.Dp(unit.Dp(PanelWidth))
	gtx.Constraints.Min.X = width
	gtx.Constraints.Max.X = width

	rect := image.Rect(0, 0, width, gtx.Constraints.Max.Y)
	paint.FillShape(gtx.Ops, color.NRGBA{R: 35, G: 38, B: 42, A: 255}, clip.Rect(rect).Op())

	snap := p.state.Snapshot
	rows := []layout.Widget{
		p.label(th, 14, colorPanelText, p.header()),
		p.label(th, 12, colorPanelMuted, stateSummary(snap.CountStates())),
	}
	for _, a := range snap.Agents {
		txt := fmt.Sprintf("%s  %-13s %s", a.Label, a.State, draw.BatteryText(a.Battery))
		if a.Destination != nil {
			txt += fmt.Sprintf("  -> %d", *a.Destination)
		}
		col := draw.StateColor(a.State)
		if a.ID == p.state.Selected {
			col = draw.ColorSelected
		}
		rows = append(rows, p.label(th, 12, col, txt))
	}
	rows = append(rows, layout.Spacer{Height: unit.Dp(12)}.Layout)
	for _, n := range p.state.Notifications() {
		col := colorNoteInfo
		if n.Error {
			col = colorNoteError
		}
		rows = append(rows, p.label(th, 12, col, n.Text))
	}

	return layout.UniformInset(unit.Dp(10)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return material.List(th, &p.list).Layout(gtx, len(rows), func(gtx layout.Context, i int) layout.Dimensions {
			return layout.Inset{Bottom: unit.Dp(4)}.Layout(gtx, rows[i])
		})
	})
}

func (p *Panel) header() string {
	mode := "running"
	if p.state.Paused() {
		mode = "paused"
	}
	if p.state.Override {
		mode += ", override"
	}
	return fmt.Sprintf("Tick %d (%s)", p.state.Snapshot.Tick, mode)
}

func (p *Panel) label(th *material.Theme, size unit.Sp, col color.NRGBA, txt string) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		l := material.Label(th, size, txt)
		l.Color = col
		return l.Layout(gtx)
	}
}

// stateSummary formats non-zero state counts in state order.
func stateSummary(counts map[core.AgentState]int) string {
	out := ""
	for _, s := range core.AllStates() {
		if counts[s] == 0 {
			continue
		}
		if out != "" {
			out += "  "
		}
		out += fmt.Sprintf("%s %d", s, counts[s])
	}
	if out == "" {
		return "No robots. Click a vertex to spawn one."
	}
	return out
}
