// Package draw provides rendering functions for visualization.
package draw

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/vis/interact"
)

// World-space sizes, scaled by the camera zoom
const (
	VertexRadius = 0.08
	AgentRadius  = 0.18
	EdgeWidth    = 0.03
)

// Colors for the navigation graph
var (
	ColorVertexDefault  = color.NRGBA{R: 100, G: 120, B: 140, A: 255}
	ColorVertexCharger  = color.NRGBA{R: 255, G: 200, B: 40, A: 255}
	ColorVertexSelected = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	ColorEdgeDefault    = color.NRGBA{R: 80, G: 90, B: 100, A: 180}
	ColorEdgeBlocked    = color.NRGBA{R: 230, G: 70, B: 60, A: 220}
	ColorLabel          = color.NRGBA{R: 170, G: 175, B: 180, A: 255}
)

// GraphStyle selects what DrawGraph highlights.
type GraphStyle struct {
	Blocked    core.EdgeSet
	Highlight  map[core.VertexID]bool
	ShowLabels bool
}

// Scale converts a world length to pixels, never below min.
func Scale(camera *interact.Camera, world float64, min float32) float32 {
	r := float32(world) * camera.Zoom
	if r < min {
		return min
	}
	return r
}

// DrawGraph renders the navigation graph.
func DrawGraph(gtx layout.Context, th *material.Theme, g *core.Graph, camera *interact.Camera, style GraphStyle) {
	width := Scale(camera, EdgeWidth, 1.5)

	// Edges first, underneath vertices
	for _, e := range g.Edges() {
		col := ColorEdgeDefault
		w := width
		if style.Blocked.Has(e.Key) {
			col = ColorEdgeBlocked
			w = width * 2
		}
		DrawEdge(gtx, g.MustVertex(e.Key.A).Pos, g.MustVertex(e.Key.B).Pos, camera, col, w)
	}

	r := Scale(camera, VertexRadius, 3)
	for _, id := range g.VertexIDs() {
		v := g.MustVertex(id)
		col := ColorVertexDefault
		radius := r
		if v.IsCharger {
			col = ColorVertexCharger
			radius = r * 1.4
		}
		DrawVertex(gtx, v.Pos, camera, col, radius)
		if style.Highlight[id] {
			x, y := camera.WorldToScreen(v.Pos)
			DrawCircleOutline(gtx, x, y, radius+4, ColorVertexSelected, 2)
		}
		if style.ShowLabels {
			x, y := camera.WorldToScreen(v.Pos)
			DrawText(gtx, th, x+radius+2, y+radius, 10, ColorLabel, vertexLabel(v))
		}
	}
}

func vertexLabel(v *core.Vertex) string {
	if v.Name != "" {
		return v.Name
	}
	return itoa(int(v.ID))
}

// DrawVertex draws a vertex as a filled circle.
func DrawVertex(gtx layout.Context, pos core.Point, camera *interact.Camera, col color.NRGBA, radius float32) {
	x, y := camera.WorldToScreen(pos)
	drawFilledCircle(gtx, x, y, radius, col)
}

// DrawEdge draws an edge as a line between two positions.
func DrawEdge(gtx layout.Context, p1, p2 core.Point, camera *interact.Camera, col color.NRGBA, width float32) {
	x1, y1 := camera.WorldToScreen(p1)
	x2, y2 := camera.WorldToScreen(p2)
	drawLine(gtx, x1, y1, x2, y2, width, col)
}

// DrawCircleOutline draws a circle outline.
func DrawCircleOutline(gtx layout.Context, centerX, centerY float32, radius float32, col color.NRGBA, strokeWidth float32) {
	var outerPath clip.Path
	outerPath.Begin(gtx.Ops)
	outerPath.Move(f32.Pt(centerX+radius, centerY))

	segments := 24
	for i := 1; i <= segments; i++ {
		angle := float64(i) * 2 * math.Pi / float64(segments)
		x := centerX + radius*float32(math.Cos(angle))
		y := centerY + radius*float32(math.Sin(angle))
		outerPath.Line(f32.Pt(x-outerPath.Pos().X, y-outerPath.Pos().Y))
	}
	outerPath.Close()

	// Inner circle (hole)
	innerR := radius - strokeWidth
	if innerR < 0 {
		innerR = 0
	}
	outerPath.Move(f32.Pt(centerX+innerR-outerPath.Pos().X, centerY-outerPath.Pos().Y))
	for i := 1; i <= segments; i++ {
		angle := float64(i) * 2 * math.Pi / float64(segments)
		x := centerX + innerR*float32(math.Cos(angle))
		y := centerY + innerR*float32(math.Sin(angle))
		outerPath.Line(f32.Pt(x-outerPath.Pos().X, y-outerPath.Pos().Y))
	}
	outerPath.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: outerPath.End()}.Op())
}

// DrawText draws a small label with its top-left corner at x, y.
func DrawText(gtx layout.Context, th *material.Theme, x, y float32, size unit.Sp, col color.NRGBA, txt string) {
	if th == nil {
		return
	}
	defer op.Offset(image.Pt(int(x), int(y))).Push(gtx.Ops).Pop()
	gtx.Constraints.Min = image.Point{}
	l := material.Label(th, size, txt)
	l.Color = col
	l.Layout(gtx)
}

// DrawGrid draws a background grid with spacing in world units.
func DrawGrid(gtx layout.Context, camera *interact.Camera, gridSize float64, col color.NRGBA) {
	bounds := gtx.Constraints.Max
	if gridSize <= 0 || float32(gridSize)*camera.Zoom < 8 {
		return
	}

	lo := camera.ScreenToWorld(0, 0)
	hi := camera.ScreenToWorld(float32(bounds.X), float32(bounds.Y))

	// Snap to grid
	startX := math.Floor(lo.X/gridSize) * gridSize
	startY := math.Floor(lo.Y/gridSize) * gridSize

	for x := startX; x <= hi.X; x += gridSize {
		sx, _ := camera.WorldToScreen(core.Point{X: x})
		if sx >= 0 && sx <= float32(bounds.X) {
			rect := image.Rect(int(sx), 0, int(sx)+1, bounds.Y)
			paint.FillShape(gtx.Ops, col, clip.Rect(rect).Op())
		}
	}

	for y := startY; y <= hi.Y; y += gridSize {
		_, sy := camera.WorldToScreen(core.Point{Y: y})
		if sy >= 0 && sy <= float32(bounds.Y) {
			rect := image.Rect(0, int(sy), bounds.X, int(sy)+1)
			paint.FillShape(gtx.Ops, col, clip.Rect(rect).Op())
		}
	}
}

func drawLine(gtx layout.Context, x1, y1, x2, y2, width float32, col color.NRGBA) {
	dx := x2 - x1
	dy := y2 - y1
	length := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	if length < 0.1 {
		return
	}

	dx /= length
	dy /= length
	px := -dy * width / 2
	py := dx * width / 2

	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(x1+px, y1+py))
	path.LineTo(f32.Pt(x2+px, y2+py))
	path.LineTo(f32.Pt(x2-px, y2-py))
	path.LineTo(f32.Pt(x1-px, y1-py))
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

func drawFilledCircle(gtx layout.Context, cx, cy, radius float32, col color.NRGBA) {
	var path clip.Path
	path.Begin(gtx.Ops)
	path.Move(f32.Pt(cx+radius, cy))

	segments := 16
	for i := 1; i <= segments; i++ {
		angle := float64(i) * 2 * math.Pi / float64(segments)
		x := cx + radius*float32(math.Cos(angle))
		y := cy + radius*float32(math.Sin(angle))
		path.Line(f32.Pt(x-path.Pos().X, y-path.Pos().Y))
	}
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

func fillRect(gtx layout.Context, x0, y0, x1, y1 float32, col color.NRGBA) {
	rect := image.Rect(int(x0), int(y0), int(x1), int(y1))
	paint.FillShape(gtx.Ops, col, clip.Rect(rect).Op())
}
