// Package navgraph reads and writes navigation graph files.
//
// A graph file lists vertices and lanes:
//
//	vertices:
//	  - {id: 1, coordinates: [0, 0], name: dock, is_charger: true}
//	  - {id: 2, coordinates: [1, 0], name: aisle}
//	lanes:
//	  - [1, 2]       # cost is the Euclidean distance
//	  - [2, 3, 1.5]  # explicit cost
//	agents:          # optional, placed when a run starts
//	  - {start: 1, destination: 3}
//
// JSON, YAML and TOML encodings share the same layout.
package navgraph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

// ErrFormat reports a malformed graph file.
var ErrFormat = errors.New("navgraph: malformed graph")

// Format names a file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("navgraph: unsupported extension %q", filepath.Ext(path))
}

// VertexRecord is one vertex as stored on disk.
type VertexRecord struct {
	ID          int       `json:"id" yaml:"id" toml:"id"`
	Coordinates []float64 `json:"coordinates" yaml:"coordinates,flow" toml:"coordinates"`
	Name        string    `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	IsCharger   bool      `json:"is_charger,omitempty" yaml:"is_charger,omitempty" toml:"is_charger,omitempty"`
}

// AgentRecord is an agent placed at startup.
type AgentRecord struct {
	Start       int  `json:"start" yaml:"start" toml:"start"`
	Destination *int `json:"destination,omitempty" yaml:"destination,omitempty" toml:"destination,omitempty"`
}

// File is the on-disk graph layout.
type File struct {
	Vertices []VertexRecord `json:"vertices" yaml:"vertices" toml:"vertices"`
	Lanes    [][]float64    `json:"lanes" yaml:"lanes" toml:"lanes"`
	Agents   []AgentRecord  `json:"agents,omitempty" yaml:"agents,omitempty" toml:"agents,omitempty"`
}

// Load reads a graph file, choosing the decoder by extension.
func Load(path string) (*core.Graph, error) {
	inst, err := LoadInstance(path)
	if err != nil {
		return nil, err
	}
	return inst.Graph, nil
}

// LoadInstance reads a graph file together with its startup agents.
func LoadInstance(path string) (*core.Instance, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph: %w", err)
	}
	defer f.Close()

	inst, err := DecodeInstance(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inst, nil
}

// Decode reads a graph in the given format.
func Decode(r io.Reader, format Format) (*core.Graph, error) {
	inst, err := DecodeInstance(r, format)
	if err != nil {
		return nil, err
	}
	return inst.Graph, nil
}

// DecodeInstance reads a graph and its startup agents in the given format.
func DecodeInstance(r io.Reader, format Format) (*core.Instance, error) {
	var file File
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&file); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&file); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	default:
		return nil, fmt.Errorf("navgraph: unknown format %q", format)
	}
	return file.Instance()
}

// Instance builds the graph and validates the startup agents against it.
func (file *File) Instance() (*core.Instance, error) {
	g, err := file.Graph()
	if err != nil {
		return nil, err
	}
	inst := &core.Instance{Graph: g}
	for _, rec := range file.Agents {
		spec := core.AgentSpec{Start: core.VertexID(rec.Start)}
		if rec.Destination != nil {
			d := core.VertexID(*rec.Destination)
			spec.Destination = &d
		}
		inst.Agents = append(inst.Agents, spec)
	}
	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return inst, nil
}

// Graph validates the file and builds the graph.
func (file *File) Graph() (*core.Graph, error) {
	if len(file.Vertices) == 0 {
		return nil, fmt.Errorf("%w: no vertices", ErrFormat)
	}

	g := core.NewGraph()
	for _, rec := range file.Vertices {
		if len(rec.Coordinates) != 2 {
			return nil, fmt.Errorf("%w: vertex %d: want 2 coordinates, got %d", ErrFormat, rec.ID, len(rec.Coordinates))
		}
		id := core.VertexID(rec.ID)
		if g.Has(id) {
			return nil, fmt.Errorf("%w: duplicate vertex %d", ErrFormat, rec.ID)
		}
		g.AddVertex(core.Vertex{
			ID:        id,
			Name:      rec.Name,
			Pos:       core.Point{X: rec.Coordinates[0], Y: rec.Coordinates[1]},
			IsCharger: rec.IsCharger,
		})
	}

	for i, lane := range file.Lanes {
		if len(lane) != 2 && len(lane) != 3 {
			return nil, fmt.Errorf("%w: lane %d: want [a, b] or [a, b, cost]", ErrFormat, i)
		}
		a, okA := vertexID(lane[0])
		b, okB := vertexID(lane[1])
		if !okA || !okB {
			return nil, fmt.Errorf("%w: lane %d: non-integer endpoint", ErrFormat, i)
		}
		cost := 0.0
		if len(lane) == 3 {
			cost = lane[2]
			if cost <= 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
				return nil, fmt.Errorf("%w: lane %d: cost %v", ErrFormat, i, cost)
			}
		}
		if err := g.AddEdge(a, b, cost); err != nil {
			return nil, fmt.Errorf("%w: lane %d: %v", ErrFormat, i, err)
		}
	}
	return g, nil
}

func vertexID(f float64) (core.VertexID, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return core.VertexID(f), true
}

// FromGraph converts a graph to its file layout. Lanes whose cost matches
// the Euclidean distance are written without a cost.
func FromGraph(g *core.Graph) File {
	var file File
	for _, id := range g.VertexIDs() {
		v := g.MustVertex(id)
		file.Vertices = append(file.Vertices, VertexRecord{
			ID:          int(id),
			Coordinates: []float64{v.Pos.X, v.Pos.Y},
			Name:        v.Name,
			IsCharger:   v.IsCharger,
		})
	}
	for _, e := range g.Edges() {
		lane := []float64{float64(e.Key.A), float64(e.Key.B)}
		d := g.MustVertex(e.Key.A).Pos.Dist(g.MustVertex(e.Key.B).Pos)
		if math.Abs(d-e.Cost) > 1e-9 {
			lane = append(lane, e.Cost)
		}
		file.Lanes = append(file.Lanes, lane)
	}
	return file
}

// Encode writes g in the given format.
func Encode(w io.Writer, format Format, g *core.Graph) error {
	file := FromGraph(g)
	return EncodeFile(w, format, &file)
}

// EncodeFile writes a file layout, startup agents included.
func EncodeFile(w io.Writer, format Format, file *File) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(file)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(file); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(file)
	}
	return fmt.Errorf("navgraph: unknown format %q", format)
}

// Save writes g to path, choosing the encoder by extension.
func Save(path string, g *core.Graph) error {
	file := FromGraph(g)
	return SaveFile(path, &file)
}

// SaveFile writes a file layout to path, choosing the encoder by extension.
func SaveFile(path string, file *File) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := EncodeFile(&buf, format, file); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Grid builds a w x h grid with the given spacing. Vertices are numbered
// row by row from 1; ids listed in chargers become charging stations.
func Grid(w, h int, spacing float64, chargers ...core.VertexID) (*core.Graph, error) {
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrFormat, w, h)
	}
	if spacing <= 0 {
		spacing = 1
	}

	isCharger := make(map[core.VertexID]bool, len(chargers))
	for _, c := range chargers {
		isCharger[c] = true
	}

	g := core.NewGraph()
	id := func(x, y int) core.VertexID { return core.VertexID(y*w + x + 1) }
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := id(x, y)
			g.AddVertex(core.Vertex{
				ID:        v,
				Name:      fmt.Sprintf("%c%d", 'A'+rune(y%26), x+1),
				Pos:       core.Point{X: float64(x) * spacing, Y: float64(y) * spacing},
				IsCharger: isCharger[v],
			})
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x+1 < w {
				if err := g.AddEdge(id(x, y), id(x+1, y), 0); err != nil {
					return nil, err
				}
			}
			if y+1 < h {
				if err := g.AddEdge(id(x, y), id(x, y+1), 0); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, c := range chargers {
		if !g.Has(c) {
			return nil, fmt.Errorf("%w: charger %d outside %dx%d grid", ErrFormat, c, w, h)
		}
	}
	return g, nil
}
