package sim

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createLine creates vertices 1..n one unit apart.
func createLine(n int) *core.Graph {
	g := core.NewGraph()
	for i := 1; i <= n; i++ {
		g.AddVertex(core.Vertex{ID: core.VertexID(i), Pos: core.Point{X: float64(i - 1)}})
	}
	for i := 1; i < n; i++ {
		if err := g.AddEdge(core.VertexID(i), core.VertexID(i+1), 0); err != nil {
			panic(err)
		}
	}
	return g
}

func newFleet(t *testing.T) *fleet.Fleet {
	t.Helper()
	f := fleet.New(createLine(4), fleet.DefaultParams(), fleet.WithLogger(quietLogger()))
	if err := f.Spawn(1); err != nil {
		t.Fatal(err)
	}
	if err := f.Spawn(3); err != nil {
		t.Fatal(err)
	}
	if err := f.Spawn(3); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestRunTicksCollectsMetrics(t *testing.T) {
	f := newFleet(t)
	if _, err := f.Tick(); err != nil {
		t.Fatal(err)
	}
	if err := f.AssignTask(core.Task{Agent: 0, Destination: 2}); err != nil {
		t.Fatal(err)
	}

	result, err := RunTicks(f, 10, quietLogger())
	if err != nil {
		t.Fatalf("RunTicks failed: %v", err)
	}
	if !result.Success || result.Ticks != 11 {
		t.Errorf("Expected success at tick 11, got %+v", result)
	}
	m := result.Metrics
	if m.TasksAssigned != 1 || m.TasksCompleted != 1 {
		t.Errorf("Expected 1 assigned and completed, got %d/%d", m.TasksAssigned, m.TasksCompleted)
	}
	if m.ConflictsDetected != 0 {
		t.Errorf("Expected no conflicts, got %d", m.ConflictsDetected)
	}
	if m.DistanceTravelled < 0.99 || m.DistanceTravelled > 1.01 {
		t.Errorf("Expected distance 1, got %v", m.DistanceTravelled)
	}
	if m.StateCounts["TASK_COMPLETE"] != 1 || m.StateCounts["IDLE"] != 1 {
		t.Errorf("Unexpected state counts %v", m.StateCounts)
	}
}

func TestSpawnRejectionCounted(t *testing.T) {
	f := newFleet(t)
	s := NewSimulator(f, DefaultConfig(), quietLogger())
	if _, err := s.Step(); err != nil {
		t.Fatal(err)
	}
	m := s.Metrics()
	if m.AgentsSpawned != 2 || m.SpawnsRejected != 1 {
		t.Errorf("Expected 2 spawned and 1 rejected, got %d/%d", m.AgentsSpawned, m.SpawnsRejected)
	}
	if m.AvgBatteryLevel != 100 {
		t.Errorf("Expected average battery 100, got %v", m.AvgBatteryLevel)
	}
}

func TestRunStopsAtMaxTicks(t *testing.T) {
	f := newFleet(t)
	s := NewSimulator(f, SimulationConfig{TickInterval: time.Millisecond, MaxTicks: 5}, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := s.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if m.Ticks != 5 {
		t.Errorf("Expected 5 ticks, got %d", m.Ticks)
	}
	if m.EndTime.Before(m.StartTime) {
		t.Error("End time before start time")
	}
}

func TestPauseBlocksTicks(t *testing.T) {
	f := newFleet(t)
	s := NewSimulator(f, SimulationConfig{TickInterval: time.Millisecond}, quietLogger())
	s.Pause()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	m, err := s.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if m.Ticks != 0 {
		t.Errorf("Paused simulator ticked %d times", m.Ticks)
	}

	s.Resume()
	if s.Paused() {
		t.Error("Expected resumed simulator")
	}
}

func TestExportMetrics(t *testing.T) {
	f := newFleet(t)
	if _, err := RunTicks(f, 3, quietLogger()); err != nil {
		t.Fatal(err)
	}
	s := NewSimulator(f, DefaultConfig(), quietLogger())
	if _, err := s.Step(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "metrics.json")
	if err := s.ExportMetrics(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m SimulationMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Ticks != 4 {
		t.Errorf("Expected tick 4 in export, got %d", m.Ticks)
	}
}
