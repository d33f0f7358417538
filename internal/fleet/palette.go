package fleet

import (
	"fmt"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

// Color is an RGB agent colour.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var palette = [...]Color{
	{239, 83, 80},
	{66, 165, 245},
	{102, 187, 106},
	{255, 167, 38},
	{171, 71, 188},
	{38, 166, 154},
	{255, 138, 128},
	{92, 107, 192},
}

// ColorFor returns the palette colour of an agent.
func ColorFor(id core.AgentID) Color {
	return palette[int(id)%len(palette)]
}

// LabelFor returns the display label of an agent.
func LabelFor(id core.AgentID) string {
	return fmt.Sprintf("R%d", id)
}
