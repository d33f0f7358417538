// Command fleetbench runs the fleet headless over generated graph files
// with a random task workload and records traffic metrics.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
	"github.com/elektrokombinacija/fleet-traffic/internal/navgraph"
)

func main() {
	inputDir := flag.String("input", "testdata", "Directory containing graph files")
	outputFile := flag.String("output", "evidence/benchmark_results.csv", "Output CSV file")
	ticks := flag.Uint64("ticks", 2000, "Ticks per run")
	seed := flag.Int64("seed", 1, "Workload seed")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*outputFile), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	var files []string
	for _, ext := range []string{"json", "yaml", "yml", "toml"} {
		matches, err := filepath.Glob(filepath.Join(*inputDir, "*."+ext))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding graph files: %v\n", err)
			os.Exit(1)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No graph files found in %s\n", *inputDir)
		fmt.Fprintf(os.Stderr, "Run gengraph first: go run ./tools/gengraph -scaling -output testdata\n")
		os.Exit(1)
	}

	fmt.Printf("Running benchmarks: %d graphs x %d ticks\n\n", len(files), *ticks)

	var results []*BenchmarkResult
	for i, file := range files {
		if _, err := navgraph.FormatFor(file); err != nil {
			continue
		}
		if *verbose {
			fmt.Printf("[%d/%d] %s ... ", i+1, len(files), file)
		} else {
			fmt.Printf("\r[%d/%d] Running...", i+1, len(files))
		}

		result := runGraph(file, *ticks, *seed, fleet.DefaultParams())
		results = append(results, result)

		if *verbose {
			if result.Success {
				fmt.Printf("OK (%.2fms, %d tasks)\n", result.RuntimeMs, result.TasksCompleted)
			} else {
				fmt.Printf("FAILED %s\n", result.Error)
			}
		}
	}
	fmt.Println()

	if err := writeCSV(results, *outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Results written to: %s\n", *outputFile)

	printSummary(os.Stdout, results)
}
