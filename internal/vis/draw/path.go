package draw

import (
	"image/color"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/vis/interact"
)

// DrawPath draws a polyline through world points.
func DrawPath(gtx layout.Context, path []core.Point, camera *interact.Camera, col color.NRGBA, width float32) {
	if len(path) < 2 {
		return
	}
	for i := 0; i < len(path)-1; i++ {
		x1, y1 := camera.WorldToScreen(path[i])
		x2, y2 := camera.WorldToScreen(path[i+1])
		drawLine(gtx, x1, y1, x2, y2, width, col)
	}
}

// DrawRoute draws an agent's remaining route in a dimmed agent color,
// with direction arrows and a marker on the destination.
func DrawRoute(gtx layout.Context, route []core.Point, camera *interact.Camera, col color.NRGBA) {
	if len(route) < 2 {
		return
	}
	dim := col
	dim.A = 110
	DrawPathWithArrows(gtx, route, camera, dim, Scale(camera, EdgeWidth*1.5, 2))

	x, y := camera.WorldToScreen(route[len(route)-1])
	DrawCircleOutline(gtx, x, y, Scale(camera, VertexRadius*2, 6), col, 2)
}

// DrawPathWithArrows draws a path with direction arrows.
func DrawPathWithArrows(gtx layout.Context, positions []core.Point, camera *interact.Camera, col color.NRGBA, width float32) {
	if len(positions) < 2 {
		return
	}

	DrawPath(gtx, positions, camera, col, width)

	size := Scale(camera, 0.08, 5)
	for i := 0; i < len(positions)-1; i++ {
		a, b := positions[i], positions[i+1]
		length := a.Dist(b)
		// Skip arrows where they would not fit
		if float32(length)*camera.Zoom < 4*size {
			continue
		}
		mid := a.Lerp(b, 0.5)
		drawArrow(gtx, mid, (b.X-a.X)/length, (b.Y-a.Y)/length, camera, size, col)
	}
}

func drawArrow(gtx layout.Context, at core.Point, dirX, dirY float64, camera *interact.Camera, size float32, col color.NRGBA) {
	screenX, screenY := camera.WorldToScreen(at)

	// Arrow head points
	tipX := screenX + float32(dirX)*size
	tipY := screenY + float32(dirY)*size

	// Perpendicular
	perpX := -float32(dirY) * size * 0.5
	perpY := float32(dirX) * size * 0.5

	baseX := screenX - float32(dirX)*size*0.3
	baseY := screenY - float32(dirY)*size*0.3

	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(tipX, tipY))
	path.LineTo(f32.Pt(baseX+perpX, baseY+perpY))
	path.LineTo(f32.Pt(baseX-perpX, baseY-perpY))
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

