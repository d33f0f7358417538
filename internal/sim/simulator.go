// Package sim drives a fleet in wall-clock time and collects run metrics.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/elektrokombinacija/fleet-traffic/internal/algo"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
)

// SimulationConfig configures the run loop
type SimulationConfig struct {
	// Wall-clock time between ticks
	TickInterval time.Duration

	// Stop after this many ticks (0 = until cancelled)
	MaxTicks uint64

	// Log a progress line every ProgressEvery ticks (0 = never)
	ProgressEvery uint64
}

// DefaultConfig returns default simulation configuration
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		TickInterval:  100 * time.Millisecond,
		ProgressEvery: 600, // once a minute at 10 Hz
	}
}

// SimulationMetrics collects metrics during simulation
type SimulationMetrics struct {
	// Timing
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Ticks     uint64    `json:"ticks"`

	// Commands
	AgentsSpawned  int `json:"agents_spawned"`
	SpawnsRejected int `json:"spawns_rejected"`
	TasksAssigned  int `json:"tasks_assigned"`
	TasksRejected  int `json:"tasks_rejected"`
	TasksCompleted int `json:"tasks_completed"`
	NoPathEvents   int `json:"no_path_events"`

	// Traffic
	Reroutes          int `json:"reroutes"`
	WaitEvents        int `json:"wait_events"`
	ConflictsDetected int `json:"conflicts_detected"`

	// Energy
	ChargeReroutes    int     `json:"charge_reroutes"`
	ChargesCompleted  int     `json:"charges_completed"`
	BatteryDeaths     int     `json:"battery_deaths"`
	AvgBatteryLevel   float64 `json:"avg_battery_level"`
	DistanceTravelled float64 `json:"distance_travelled"`

	// Last observed agent count per state
	StateCounts map[string]int `json:"state_counts"`
}

// Simulator ticks a fleet on a timer
type Simulator struct {
	mu sync.Mutex

	config SimulationConfig
	fleet  *fleet.Fleet
	log    *slog.Logger

	paused  bool
	metrics SimulationMetrics
	samples int
}

// NewSimulator creates a new simulator around f
func NewSimulator(f *fleet.Fleet, config SimulationConfig, log *slog.Logger) *Simulator {
	if log == nil {
		log = slog.Default()
	}
	return &Simulator{
		config:  config,
		fleet:   f,
		log:     log,
		metrics: SimulationMetrics{StateCounts: make(map[string]int)},
	}
}

// Fleet returns the simulated fleet
func (s *Simulator) Fleet() *fleet.Fleet { return s.fleet }

// Run ticks until the context is cancelled, MaxTicks is reached or the fleet
// halts
func (s *Simulator) Run(ctx context.Context) (*SimulationMetrics, error) {
	s.mu.Lock()
	s.metrics.StartTime = time.Now()
	s.mu.Unlock()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}

		if s.Paused() {
			continue
		}
		snap, err := s.Step()
		if err != nil {
			runErr = err
			break loop
		}

		if s.config.ProgressEvery > 0 && snap.Tick%s.config.ProgressEvery == 0 {
			m := s.Metrics()
			s.log.Info("simulation progress",
				"tick", snap.Tick,
				"agents", len(snap.Agents),
				"completed", m.TasksCompleted,
				"waits", m.WaitEvents,
				"avg_battery", m.AvgBatteryLevel)
		}
		if s.config.MaxTicks > 0 && snap.Tick >= s.config.MaxTicks {
			break loop
		}
	}

	s.mu.Lock()
	s.metrics.EndTime = time.Now()
	metrics := s.copyMetrics()
	s.mu.Unlock()
	return &metrics, runErr
}

// Step advances the fleet by one tick regardless of pause state
func (s *Simulator) Step() (fleet.Snapshot, error) {
	snap, err := s.fleet.Tick()
	if err != nil {
		return fleet.Snapshot{}, err
	}

	s.mu.Lock()
	s.record(snap)
	s.mu.Unlock()
	return snap, nil
}

// Pause stops the run loop from ticking
func (s *Simulator) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume restarts ticking
func (s *Simulator) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Paused reports the pause state
func (s *Simulator) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// record folds one snapshot into the metrics
func (s *Simulator) record(snap fleet.Snapshot) {
	s.metrics.Ticks = snap.Tick

	for _, e := range snap.Events {
		switch e.Kind {
		case fleet.EventSpawned:
			s.metrics.AgentsSpawned++
		case fleet.EventSpawnRejected:
			s.metrics.SpawnsRejected++
		case fleet.EventTaskAssigned:
			s.metrics.TasksAssigned++
		case fleet.EventTaskRejected:
			s.metrics.TasksRejected++
		case fleet.EventTaskComplete:
			s.metrics.TasksCompleted++
		case fleet.EventNoPath:
			s.metrics.NoPathEvents++
		case fleet.EventRerouted:
			s.metrics.Reroutes++
		case fleet.EventWaiting:
			s.metrics.WaitEvents++
		case fleet.EventChargeReroute:
			s.metrics.ChargeReroutes++
		case fleet.EventCharged:
			s.metrics.ChargesCompleted++
		case fleet.EventBatteryDead:
			s.metrics.BatteryDeaths++
		}
	}

	if c := algo.FindFirstConflict(snap.Footprints()); c != nil {
		s.metrics.ConflictsDetected++
		s.log.Error("footprint conflict", "tick", snap.Tick, "agent1", c.Agent1, "agent2", c.Agent2)
	}

	if len(snap.Agents) == 0 {
		return
	}
	total, distance := 0.0, 0.0
	counts := make(map[string]int)
	for _, a := range snap.Agents {
		total += a.Battery
		distance += a.Odometer
		counts[a.State.String()]++
	}
	level := total / float64(len(snap.Agents))
	s.samples++
	s.metrics.AvgBatteryLevel += (level - s.metrics.AvgBatteryLevel) / float64(s.samples)
	s.metrics.DistanceTravelled = distance
	s.metrics.StateCounts = counts
}

func (s *Simulator) copyMetrics() SimulationMetrics {
	m := s.metrics
	m.StateCounts = make(map[string]int, len(s.metrics.StateCounts))
	for k, v := range s.metrics.StateCounts {
		m.StateCounts[k] = v
	}
	return m
}

// Metrics returns current simulation metrics
func (s *Simulator) Metrics() SimulationMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyMetrics()
}

// ExportMetrics writes metrics to a JSON file
func (s *Simulator) ExportMetrics(path string) error {
	data, err := json.MarshalIndent(s.Metrics(), "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SimulationResult is the final output of a simulation run
type SimulationResult struct {
	Ticks   uint64            `json:"ticks"`
	Metrics SimulationMetrics `json:"metrics"`
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
}

// RunTicks advances the fleet n ticks as fast as possible, without a timer
func RunTicks(f *fleet.Fleet, n uint64, log *slog.Logger) (*SimulationResult, error) {
	if n == 0 {
		return nil, errors.New("tick count must be positive")
	}
	s := NewSimulator(f, SimulationConfig{MaxTicks: n}, log)
	s.mu.Lock()
	s.metrics.StartTime = time.Now()
	s.mu.Unlock()

	var err error
	for i := uint64(0); i < n; i++ {
		if _, err = s.Step(); err != nil {
			break
		}
	}

	s.mu.Lock()
	s.metrics.EndTime = time.Now()
	s.mu.Unlock()

	m := s.Metrics()
	result := &SimulationResult{Ticks: m.Ticks, Metrics: m, Success: err == nil}
	if err != nil {
		result.Error = err.Error()
	}
	return result, err
}
