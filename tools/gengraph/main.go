// Command gengraph generates deterministic warehouse graph files for the
// fleet simulator.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/elektrokombinacija/fleet-traffic/internal/navgraph"
)

func main() {
	seed := flag.Int64("seed", 42, "Random seed for deterministic generation")
	width := flag.Int("width", 10, "Grid width")
	height := flag.Int("height", 10, "Grid height")
	spacing := flag.Float64("spacing", 1, "Distance between neighbouring vertices")
	charging := flag.Float64("charging", 0.05, "Charger density (0-1)")
	remove := flag.Float64("remove", 0.15, "Fraction of lanes to try removing (0-1)")
	numAgents := flag.Int("agents", 0, "Startup agents")
	withTasks := flag.Bool("tasks", false, "Give startup agents a destination")
	format := flag.String("format", "json", "Output format: json, yaml or toml")
	outputDir := flag.String("output", "testdata", "Output directory")
	scalingMode := flag.Bool("scaling", false, "Generate scaling graphs (5, 10, 25, 50, 100 agents)")

	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	base := GraphParams{
		Seed:            *seed,
		Width:           *width,
		Height:          *height,
		Spacing:         *spacing,
		ChargingDensity: *charging,
		RemoveRatio:     *remove,
		NumAgents:       *numAgents,
		WithTasks:       *withTasks,
	}

	var params []GraphParams
	if *scalingMode {
		for _, size := range []int{5, 10, 25, 50, 100} {
			// Side grows with sqrt of agents, keeping density low
			side := max(int(math.Ceil(math.Sqrt(float64(size))*3)), 6)
			p := base
			p.NumAgents = size
			p.Width, p.Height = side, side
			params = append(params, p)
		}
	} else {
		params = append(params, base)
	}

	failed := false
	for _, p := range params {
		file, err := Generate(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s: %v\n", p.Name(), err)
			failed = true
			continue
		}
		path := filepath.Join(*outputDir, p.Name()+"."+*format)
		if err := navgraph.SaveFile(path, file); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("Generated: %s (%d vertices, %d lanes, %d agents)\n",
			path, len(file.Vertices), len(file.Lanes), len(file.Agents))
	}
	if failed {
		os.Exit(1)
	}
}
