package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
)

func TestRunGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.yaml")
	src := `
vertices:
  - {id: 1, coordinates: [0, 0], is_charger: true}
  - {id: 2, coordinates: [1, 0]}
  - {id: 3, coordinates: [1, 1]}
  - {id: 4, coordinates: [0, 1]}
lanes:
  - [1, 2]
  - [2, 3]
  - [3, 4]
  - [4, 1]
agents:
  - {start: 1}
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	r := runGraph(path, 200, 5, fleet.DefaultParams())
	if !r.Success {
		t.Fatalf("Expected success, got error %q with %d conflicts", r.Error, r.Conflicts)
	}
	if r.Graph != "ring" || r.NumVertices != 4 || r.NumAgents != 1 {
		t.Errorf("Unexpected run header %+v", r)
	}
	if r.Ticks != 200 {
		t.Errorf("Expected 200 ticks, got %d", r.Ticks)
	}
	if r.TasksCompleted == 0 {
		t.Error("Expected the workload to complete tasks")
	}
	if r.Distance <= 0 {
		t.Error("Expected distance travelled")
	}
}

func TestRunGraphMissingFile(t *testing.T) {
	r := runGraph(filepath.Join(t.TempDir(), "missing.json"), 10, 1, fleet.DefaultParams())
	if r.Success || r.Error == "" {
		t.Errorf("Expected failure for missing file, got %+v", r)
	}
}

func TestEncodeCSV(t *testing.T) {
	results := []*BenchmarkResult{{Graph: "a", NumAgents: 3, Ticks: 10, Success: true, Throughput: 1.5}}
	var buf bytes.Buffer
	if err := encodeCSV(&buf, results); err != nil {
		t.Fatalf("encodeCSV failed: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header and one row, got %d rows", len(rows))
	}
	if len(rows[0]) != len(rows[1]) {
		t.Errorf("Header has %d columns, row has %d", len(rows[0]), len(rows[1]))
	}
	if rows[1][4] != "a" || rows[1][9] != "true" || rows[1][11] != "1.50" {
		t.Errorf("Unexpected row %v", rows[1])
	}
}
