// Package bootstrap turns a loaded configuration into the running pieces
// shared by the commands: logger, graph, fleet and startup agents.
package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/elektrokombinacija/fleet-traffic/internal/config"
	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
	"github.com/elektrokombinacija/fleet-traffic/internal/navgraph"
	"github.com/elektrokombinacija/fleet-traffic/internal/sim"
)

// NewLogger builds the slog handler described by cfg, writing to stderr and
// to cfg.File when set. The returned closer releases the log file.
func NewLogger(cfg config.LogConfig, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	out := stderr
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(stderr, f)
		closer = f
	}

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(h), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LoadInstance reads the configured graph file, or builds the demo grid
// when no file is set.
func LoadInstance(cfg config.GraphConfig) (*core.Instance, error) {
	if cfg.Path != "" {
		return navgraph.LoadInstance(cfg.Path)
	}
	chargers := make([]core.VertexID, 0, len(cfg.Chargers))
	for _, c := range cfg.Chargers {
		chargers = append(chargers, core.VertexID(c))
	}
	g, err := navgraph.Grid(cfg.GridWidth, cfg.GridHeight, cfg.Spacing, chargers...)
	if err != nil {
		return nil, err
	}
	return &core.Instance{Graph: g}, nil
}

// Params converts the simulation section into fleet tuning.
func Params(cfg config.SimConfig) fleet.Params {
	return fleet.Params{
		Speed:          cfg.Speed,
		DrainPerUnit:   cfg.DrainPerUnit,
		ChargePerTick:  cfg.ChargePerTick,
		LowBattery:     cfg.LowBattery,
		InitialBattery: cfg.InitialBattery,
	}
}

// SimConfig converts the simulation section into run loop settings.
func SimConfig(cfg config.SimConfig) sim.SimulationConfig {
	sc := sim.DefaultConfig()
	sc.TickInterval = cfg.TickInterval
	return sc
}

// NewFleet validates the tuning and creates a fleet over inst's graph with
// its startup agents queued for the first tick.
func NewFleet(inst *core.Instance, params fleet.Params, opts ...fleet.Option) (*fleet.Fleet, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(inst.Agents) > 0 {
		if err := inst.Validate(); err != nil {
			return nil, err
		}
	}
	f := fleet.New(inst.Graph, params, opts...)
	if err := Preload(f, inst.Agents); err != nil {
		return nil, err
	}
	return f, nil
}

// Preload queues a spawn for every agent and a task for those with a
// destination. Ids follow spawn order, so f must not have agents yet.
func Preload(f *fleet.Fleet, agents []core.AgentSpec) error {
	if n := len(f.Snapshot().Agents); n > 0 && len(agents) > 0 {
		return fmt.Errorf("preload into a fleet with %d agents", n)
	}
	for i, a := range agents {
		if err := f.Spawn(a.Start); err != nil {
			return fmt.Errorf("preload agent %d: %w", i, err)
		}
		if a.Destination == nil {
			continue
		}
		task := core.Task{Agent: core.AgentID(i), Destination: *a.Destination}
		if err := f.AssignTask(task); err != nil {
			return fmt.Errorf("preload agent %d: %w", i, err)
		}
	}
	return nil
}
