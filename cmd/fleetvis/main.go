// Command fleetvis opens an interactive window onto a running fleet.
package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"gioui.org/app"
	"gioui.org/unit"
	"github.com/joho/godotenv"

	"github.com/elektrokombinacija/fleet-traffic/internal/bootstrap"
	"github.com/elektrokombinacija/fleet-traffic/internal/config"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
	"github.com/elektrokombinacija/fleet-traffic/internal/sim"
	"github.com/elektrokombinacija/fleet-traffic/internal/vis"
)

func main() {
	configPath := flag.String("config", "", "config file (overrides FLEET_CONFIG)")
	graphPath := flag.String("graph", "", "graph file (overrides graph.path)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("could not read .env: %v", err)
	}
	if *configPath != "" {
		os.Setenv("FLEET_CONFIG", *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *graphPath != "" {
		cfg.Graph.Path = *graphPath
	}

	logger, logFile, err := bootstrap.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		log.Fatal(err)
	}

	inst, err := bootstrap.LoadInstance(cfg.Graph)
	if err != nil {
		log.Fatalf("load graph: %v", err)
	}
	f, err := bootstrap.NewFleet(inst, bootstrap.Params(cfg.Sim), fleet.WithLogger(logger))
	if err != nil {
		log.Fatalf("init fleet: %v", err)
	}
	simulator := sim.NewSimulator(f, bootstrap.SimConfig(cfg.Sim), logger)

	go func() {
		window := new(app.Window)
		window.Option(
			app.Title("Fleet Traffic"),
			app.Size(unit.Dp(1400), unit.Dp(900)),
		)

		application := vis.NewApp(simulator, logger)
		err := application.Run(window)
		logFile.Close()
		if err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}
