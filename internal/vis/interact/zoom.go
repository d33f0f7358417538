// Package interact handles user interactions like pan, zoom, and selection.
package interact

import (
	"gioui.org/io/pointer"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

// Zoom limits in pixels per world unit.
const (
	MinZoom = 2
	MaxZoom = 2000
)

// Camera manages view transformation (pan and zoom).
type Camera struct {
	// View transform
	OffsetX float32 // Pan offset in screen pixels
	OffsetY float32
	Zoom    float32 // Pixels per world unit

	// Set once the view has been fitted to a graph
	Fitted bool

	// Interaction state
	dragging bool
	lastX    float32
	lastY    float32
}

// NewCamera creates a new camera with default settings.
func NewCamera() *Camera {
	return &Camera{
		OffsetX: 100,
		OffsetY: 100,
		Zoom:    80,
	}
}

// Reset drops the fitted view so the next frame refits.
func (c *Camera) Reset() {
	c.Fitted = false
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(p core.Point) (screenX, screenY float32) {
	screenX = float32(p.X)*c.Zoom + c.OffsetX
	screenY = float32(p.Y)*c.Zoom + c.OffsetY
	return
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(screenX, screenY float32) core.Point {
	return core.Point{
		X: float64((screenX - c.OffsetX) / c.Zoom),
		Y: float64((screenY - c.OffsetY) / c.Zoom),
	}
}

// HandleEvent pans on secondary/tertiary drag and zooms on scroll.
func (c *Camera) HandleEvent(ev pointer.Event) {
	switch ev.Kind {
	case pointer.Press:
		if ev.Buttons.Contain(pointer.ButtonSecondary) || ev.Buttons.Contain(pointer.ButtonTertiary) {
			c.dragging = true
		}
		c.lastX = ev.Position.X
		c.lastY = ev.Position.Y

	case pointer.Drag:
		if c.dragging {
			c.Pan(ev.Position.X-c.lastX, ev.Position.Y-c.lastY)
		}
		c.lastX = ev.Position.X
		c.lastY = ev.Position.Y

	case pointer.Release, pointer.Cancel:
		c.dragging = false

	case pointer.Scroll:
		if ev.Scroll.Y > 0 {
			c.ZoomBy(1/1.1, ev.Position.X, ev.Position.Y)
		} else if ev.Scroll.Y < 0 {
			c.ZoomBy(1.1, ev.Position.X, ev.Position.Y)
		}
	}
}

// Pan pans the camera by the given screen delta.
func (c *Camera) Pan(dx, dy float32) {
	c.OffsetX += dx
	c.OffsetY += dy
}

// ZoomBy zooms by a factor, keeping the world point under the center fixed.
func (c *Camera) ZoomBy(factor float32, centerX, centerY float32) {
	world := c.ScreenToWorld(centerX, centerY)

	c.Zoom = clampZoom(c.Zoom * factor)

	newScreenX, newScreenY := c.WorldToScreen(world)
	c.OffsetX += centerX - newScreenX
	c.OffsetY += centerY - newScreenY
}

// CenterOn centers the camera on a world position.
func (c *Camera) CenterOn(p core.Point, screenWidth, screenHeight float32) {
	c.OffsetX = screenWidth/2 - float32(p.X)*c.Zoom
	c.OffsetY = screenHeight/2 - float32(p.Y)*c.Zoom
}

// FitBounds adjusts camera to fit the given world bounds.
func (c *Camera) FitBounds(lo, hi core.Point, screenWidth, screenHeight float32, margin float32) {
	worldW := hi.X - lo.X
	worldH := hi.Y - lo.Y

	availW := screenWidth - 2*margin
	availH := screenHeight - 2*margin
	if availW <= 0 || availH <= 0 {
		return
	}

	switch {
	case worldW <= 0 && worldH <= 0:
		// Single vertex: keep the zoom
	case worldW <= 0:
		c.Zoom = availH / float32(worldH)
	case worldH <= 0:
		c.Zoom = availW / float32(worldW)
	default:
		c.Zoom = min(availW/float32(worldW), availH/float32(worldH))
	}
	c.Zoom = clampZoom(c.Zoom)

	c.CenterOn(lo.Lerp(hi, 0.5), screenWidth, screenHeight)
	c.Fitted = true
}

func clampZoom(z float32) float32 {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
