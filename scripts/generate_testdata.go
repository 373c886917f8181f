//go:build ignore

// generate_testdata.go creates standard incident datasets for benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates, each as .json and .db:
//
//	testdata/benchmark/small   (20 alerts, 4h)
//	testdata/benchmark/medium  (200 alerts, 2 days)
//	testdata/benchmark/large   (1000 alerts, 2 weeks)
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vanderheijden86/incidentline/internal/datasource"
	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/testutil"
)

type datasetSpec struct {
	name    string
	alerts  int
	records int
	span    time.Duration
}

var datasets = []datasetSpec{
	{"small", 20, 4, 4 * time.Hour},
	{"medium", 200, 6, 48 * time.Hour},
	{"large", 1000, 10, 14 * 24 * time.Hour},
}

func main() {
	outputDir := "testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d alerts)...\n", ds.name, ds.alerts)

		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(ds.alerts) // Reproducible per-size
		cfg.IDPrefix = "BENCH"
		cfg.StatusMix = []model.Status{model.StatusFiring, model.StatusProcessing, model.StatusRecovered, model.StatusClosed}

		inc := testutil.New(cfg).Incident(ds.alerts, ds.records, ds.span)
		inc.Title = fmt.Sprintf("benchmark %s", ds.name)

		jsonPath := filepath.Join(outputDir, ds.name+".json")
		if err := datasource.SaveJSONFile(jsonPath, inc); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", jsonPath, err)
			os.Exit(1)
		}
		dbPath := filepath.Join(outputDir, ds.name+".db")
		if err := datasource.SaveSQLite(ctx, dbPath, inc); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", dbPath, err)
			os.Exit(1)
		}

		fmt.Printf("  Written %s and %s (%d records)\n", jsonPath, dbPath, len(inc.Records))
	}

	fmt.Println("\nDone! Test datasets created in", outputDir)
}
