// Package widgets provides Gio UI widgets for the visualizer.
package widgets

import (
	"image"
	"image/color"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/vis/draw"
	"github.com/elektrokombinacija/fleet-traffic/internal/vis/interact"
	"github.com/elektrokombinacija/fleet-traffic/internal/vis/state"
)

// Pixels kept clear around the graph when fitting the view
const fitMargin = 40

// Workspace is the main 2D visualization area.
type Workspace struct {
	state  *state.State
	camera *interact.Camera

	// Grid spacing in world units, 0 hides the grid
	GridSize float64
}

// NewWorkspace creates a new workspace widget.
func NewWorkspace(st *state.State, camera *interact.Camera) *Workspace {
	return &Workspace{
		state:    st,
		camera:   camera,
		GridSize: 1,
	}
}

// Layout renders the workspace.
func (w *Workspace) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	bounds := gtx.Constraints.Max
	defer clip.Rect(image.Rect(0, 0, bounds.X, bounds.Y)).Push(gtx.Ops).Pop()

	paint.Fill(gtx.Ops, color.NRGBA{R: 25, G: 28, B: 32, A: 255})

	g := w.state.Fleet.Graph()
	if !w.camera.Fitted && g.NumVertices() > 0 {
		lo, hi := g.Bounds()
		w.camera.FitBounds(lo, hi, float32(bounds.X), float32(bounds.Y), fitMargin)
	}

	w.handlePointerEvents(gtx)

	draw.DrawGrid(gtx, w.camera, w.GridSize, color.NRGBA{R: 35, G: 40, B: 45, A: 255})

	snap := w.state.Snapshot
	style := draw.GraphStyle{
		Blocked:    core.NewEdgeSet(snap.BlockedEdges...),
		Highlight:  make(map[core.VertexID]bool),
		ShowLabels: w.camera.Zoom >= 40,
	}

	// Routes under agents, the selected one highlighted
	for _, a := range snap.Agents {
		route := w.state.Route(a)
		if len(route) == 0 {
			continue
		}
		col := draw.AgentColor(a.Color)
		if a.ID != w.state.Selected {
			col.A = 140
		}
		draw.DrawRoute(gtx, route, w.camera, col)
	}
	if a, ok := snap.Agent(w.state.Selected); ok && a.Destination != nil {
		style.Highlight[*a.Destination] = true
	}

	draw.DrawGraph(gtx, th, g, w.camera, style)
	draw.DrawAgents(gtx, th, snap.Agents, w.camera, w.state.Selected)

	return layout.Dimensions{Size: bounds}
}

func (w *Workspace) handlePointerEvents(gtx layout.Context) {
	area := clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, gtx.Constraints.Max.Y)).Push(gtx.Ops)
	event.Op(gtx.Ops, w)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  w,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -100, Max: 100},
		})
		if !ok {
			break
		}
		if pe, ok := ev.(pointer.Event); ok {
			w.handlePointerEvent(pe)
		}
	}
}

func (w *Workspace) handlePointerEvent(ev pointer.Event) {
	// Camera handles pan and zoom
	w.camera.HandleEvent(ev)

	if ev.Kind == pointer.Press && ev.Buttons.Contain(pointer.ButtonPrimary) {
		w.handleClick(ev.Position.X, ev.Position.Y)
	}
}

func (w *Workspace) handleClick(screenX, screenY float32) {
	p := w.camera.ScreenToWorld(screenX, screenY)
	agentR := float64(draw.Scale(w.camera, draw.AgentRadius, 8) / w.camera.Zoom)
	vertexR := float64(draw.Scale(w.camera, 2*draw.VertexRadius, 10) / w.camera.Zoom)
	w.state.Click(p, agentR, vertexR)
}
