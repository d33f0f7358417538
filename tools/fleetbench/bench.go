package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/elektrokombinacija/fleet-traffic/internal/bootstrap"
	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
	"github.com/elektrokombinacija/fleet-traffic/internal/navgraph"
	"github.com/elektrokombinacija/fleet-traffic/internal/sim"
)

// BenchmarkResult stores results from a single graph run.
type BenchmarkResult struct {
	Timestamp      string  `json:"timestamp"`
	GoVersion      string  `json:"go_version"`
	OS             string  `json:"os"`
	Arch           string  `json:"arch"`
	Graph          string  `json:"graph"`
	NumVertices    int     `json:"num_vertices"`
	NumAgents      int     `json:"num_agents"`
	Ticks          uint64  `json:"ticks"`
	RuntimeMs      float64 `json:"runtime_ms"`
	Success        bool    `json:"success"`
	TasksCompleted int     `json:"tasks_completed"`
	Throughput     float64 `json:"throughput"` // Tasks per 100 ticks
	WaitEvents     int     `json:"wait_events"`
	Reroutes       int     `json:"reroutes"`
	Conflicts      int     `json:"conflicts"`
	BatteryDeaths  int     `json:"battery_deaths"`
	AvgBattery     float64 `json:"avg_battery"`
	Distance       float64 `json:"distance"`
	Error          string  `json:"error,omitempty"`
}

// Workload keeps every agent busy: whenever an agent is idle or has
// finished, it gets a random destination.
type Workload struct {
	rng *rand.Rand
	ids []core.VertexID
}

// NewWorkload creates a seeded task generator over g.
func NewWorkload(g *core.Graph, seed int64) *Workload {
	return &Workload{rng: rand.New(rand.NewSource(seed)), ids: g.VertexIDs()}
}

// Assign queues a task for every agent that can take one.
func (w *Workload) Assign(f *fleet.Fleet, snap fleet.Snapshot) error {
	for _, a := range snap.Agents {
		if a.State != core.StateIdle && a.State != core.StateTaskComplete {
			continue
		}
		dest := w.ids[w.rng.Intn(len(w.ids))]
		if dest == a.Vertex {
			continue
		}
		if err := f.AssignTask(core.Task{Agent: a.ID, Destination: dest}); err != nil {
			return err
		}
	}
	return nil
}

// runGraph simulates one graph file for the given number of ticks.
func runGraph(path string, ticks uint64, seed int64, params fleet.Params) *BenchmarkResult {
	result := &BenchmarkResult{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Graph:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	inst, err := navgraph.LoadInstance(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.NumVertices = inst.Graph.NumVertices()
	result.NumAgents = len(inst.Agents)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f, err := bootstrap.NewFleet(inst, params, fleet.WithLogger(log))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	s := sim.NewSimulator(f, sim.SimulationConfig{MaxTicks: ticks}, log)
	work := NewWorkload(inst.Graph, seed)

	start := time.Now()
	for i := uint64(0); i < ticks; i++ {
		snap, err := s.Step()
		if err != nil {
			result.Error = err.Error()
			break
		}
		if err := work.Assign(f, snap); err != nil {
			result.Error = err.Error()
			break
		}
	}
	result.RuntimeMs = float64(time.Since(start).Microseconds()) / 1000.0

	m := s.Metrics()
	result.Success = result.Error == "" && m.ConflictsDetected == 0
	result.Ticks = m.Ticks
	result.TasksCompleted = m.TasksCompleted
	if m.Ticks > 0 {
		result.Throughput = float64(m.TasksCompleted) * 100 / float64(m.Ticks)
	}
	result.WaitEvents = m.WaitEvents
	result.Reroutes = m.Reroutes
	result.Conflicts = m.ConflictsDetected
	result.BatteryDeaths = m.BatteryDeaths
	result.AvgBattery = m.AvgBatteryLevel
	result.Distance = m.DistanceTravelled
	return result
}

func writeCSV(results []*BenchmarkResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return encodeCSV(file, results)
}

func encodeCSV(w io.Writer, results []*BenchmarkResult) error {
	writer := csv.NewWriter(w)

	header := []string{
		"timestamp", "go_version", "os", "arch",
		"graph", "num_vertices", "num_agents", "ticks",
		"runtime_ms", "success", "tasks_completed", "throughput",
		"wait_events", "reroutes", "conflicts", "battery_deaths",
		"avg_battery", "distance", "error",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{
			r.Timestamp, r.GoVersion, r.OS, r.Arch,
			r.Graph, fmt.Sprintf("%d", r.NumVertices), fmt.Sprintf("%d", r.NumAgents), fmt.Sprintf("%d", r.Ticks),
			fmt.Sprintf("%.3f", r.RuntimeMs), fmt.Sprintf("%t", r.Success),
			fmt.Sprintf("%d", r.TasksCompleted), fmt.Sprintf("%.2f", r.Throughput),
			fmt.Sprintf("%d", r.WaitEvents), fmt.Sprintf("%d", r.Reroutes),
			fmt.Sprintf("%d", r.Conflicts), fmt.Sprintf("%d", r.BatteryDeaths),
			fmt.Sprintf("%.2f", r.AvgBattery), fmt.Sprintf("%.2f", r.Distance), r.Error,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func printSummary(w io.Writer, results []*BenchmarkResult) {
	fmt.Fprintln(w, "\n=== BENCHMARK SUMMARY ===")
	fmt.Fprintf(w, "%-32s %7s %7s %9s %10s %8s %8s %6s\n",
		"Graph", "Agents", "Ticks", "Time(ms)", "Tasks/100", "Waits", "Deaths", "OK")
	fmt.Fprintln(w, strings.Repeat("-", 94))
	for _, r := range results {
		fmt.Fprintf(w, "%-32s %7d %7d %9.2f %10.2f %8d %8d %6t\n",
			r.Graph, r.NumAgents, r.Ticks, r.RuntimeMs, r.Throughput, r.WaitEvents, r.BatteryDeaths, r.Success)
	}
}
