// Command fleetsim runs the fleet headless, serving the HTTP API, the
// websocket stream and the NATS bus until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/elektrokombinacija/fleet-traffic/internal/bootstrap"
	"github.com/elektrokombinacija/fleet-traffic/internal/config"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
	"github.com/elektrokombinacija/fleet-traffic/internal/journal"
	"github.com/elektrokombinacija/fleet-traffic/internal/natsbus"
	"github.com/elektrokombinacija/fleet-traffic/internal/sim"
	"github.com/elektrokombinacija/fleet-traffic/internal/web"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "config file (overrides FLEET_CONFIG)")
	graphPath := flag.String("graph", "", "graph file (overrides graph.path)")
	maxTicks := flag.Uint64("ticks", 0, "stop after this many ticks (0 = until interrupted)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fleetsim %s\n", version)
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}
	if *configPath != "" {
		os.Setenv("FLEET_CONFIG", *configPath)
	}

	if err := run(*graphPath, *maxTicks); err != nil {
		slog.Error("fleetsim failed", "error", err)
		os.Exit(1)
	}
}

func run(graphPath string, maxTicks uint64) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if graphPath != "" {
		cfg.Graph.Path = graphPath
	}

	log, logFile, err := bootstrap.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer logFile.Close()
	slog.SetDefault(log)
	log.Info("starting fleetsim", "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inst, err := bootstrap.LoadInstance(cfg.Graph)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	log.Info("graph loaded",
		"vertices", inst.Graph.NumVertices(),
		"edges", inst.Graph.NumEdges(),
		"chargers", len(inst.Graph.Chargers()),
		"agents", len(inst.Agents))

	f, err := bootstrap.NewFleet(inst, bootstrap.Params(cfg.Sim), fleet.WithLogger(log))
	if err != nil {
		return fmt.Errorf("init fleet: %w", err)
	}

	simCfg := bootstrap.SimConfig(cfg.Sim)
	simCfg.MaxTicks = maxTicks
	simulator := sim.NewSimulator(f, simCfg, log)

	// Event journal
	var history web.History
	if cfg.Store.Enabled {
		db, err := journal.Open(cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		j, err := journal.New(db, journal.Options{
			BatchSize:     cfg.Store.BatchSize,
			FlushInterval: cfg.Store.FlushInterval,
		}, log)
		if err != nil {
			return fmt.Errorf("init journal: %w", err)
		}
		defer j.Close()

		done := make(chan struct{})
		go func() {
			j.Run(ctx)
			close(done)
		}()
		defer func() { <-done }()

		f.AddSink(j)
		history = j
		log.Info("journal started", "driver", cfg.Store.Driver, "session", j.Session())
	}

	// NATS
	if cfg.NATS.Enabled {
		client, cleanup, err := connectNATS(cfg.NATS)
		if err != nil {
			return err
		}
		defer cleanup()

		f.AddSink(natsbus.NewPublisher(client, log))
		listener, err := natsbus.ListenCommands(client, f, log)
		if err != nil {
			return fmt.Errorf("subscribe commands: %w", err)
		}
		defer listener.Close()
		log.Info("nats connected", "subject", natsbus.TopicCommand)
	}

	// Web API
	if cfg.Web.Enabled {
		opts := []web.Option{web.WithSimulator(simulator)}
		if history != nil {
			opts = append(opts, web.WithHistory(history))
		}
		srv := web.NewServer(f, cfg.Web, log, opts...)
		f.AddSink(srv)
		go func() {
			if err := srv.Start(ctx); err != nil {
				log.Error("web server error", "error", err)
				stop()
			}
		}()
	}

	metrics, err := simulator.Run(ctx)
	stop()
	log.Info("simulation stopped",
		"ticks", metrics.Ticks,
		"tasks_completed", metrics.TasksCompleted,
		"battery_deaths", metrics.BatteryDeaths)

	if cfg.Sim.MetricsPath != "" {
		if err := simulator.ExportMetrics(cfg.Sim.MetricsPath); err != nil {
			log.Error("export metrics", "error", err)
		} else {
			log.Info("metrics written", "path", cfg.Sim.MetricsPath)
		}
	}
	return err
}

// connectNATS starts the embedded server when configured, otherwise dials
// the external URL.
func connectNATS(cfg config.NATSConfig) (*natsbus.Client, func(), error) {
	if !cfg.Embedded {
		client, err := natsbus.NewClientFromURL(cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect nats: %w", err)
		}
		return client, client.Close, nil
	}

	bus, err := natsbus.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init nats: %w", err)
	}
	client, err := natsbus.NewClient(bus)
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	slog.Info("embedded nats started", "url", bus.ClientURL())
	return client, func() {
		client.Close()
		bus.Close()
	}, nil
}
