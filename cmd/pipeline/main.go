package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"openedgar/pkg/core/blob"
	"openedgar/pkg/core/config"
	"openedgar/pkg/core/edgar"
	"openedgar/pkg/core/filing"
	"openedgar/pkg/core/index"
	"openedgar/pkg/core/pipeline"
	"openedgar/pkg/core/store"
)

func main() {
	var (
		year       int
		quarter    int
		forms      string
		configPath string
		indexOut   string
	)

	flag.IntVar(&year, "year", 0, "Filing year to ingest (required)")
	flag.IntVar(&quarter, "quarter", 0, "Quarter 1-4, or 0 for the whole year")
	flag.StringVar(&forms, "forms", "", "Comma-separated form types to ingest (e.g. 10-K,10-Q); empty means all")
	flag.StringVar(&configPath, "config", "", "Optional HJSON config file path")
	flag.StringVar(&indexOut, "index-out", "", "Download the raw index artifact to this file and exit")
	flag.Parse()

	if year == 0 {
		flag.Usage()
		os.Exit(1)
	}

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := edgar.NewClient(edgar.ClientOptions{
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.HTTPTimeout(),
		RequestsPerSecond: cfg.MaxRequestsPerSecond,
		RetryBackoff:      cfg.RetryBackoff(),
	})
	indexes := index.NewFetcher(client)

	// Index-only mode: mirror the raw artifact and exit.
	if indexOut != "" {
		data, err := indexes.DownloadFilingIndexData(ctx, year, quarter)
		if err != nil {
			log.Fatalf("failed to download filing index: %v", err)
		}
		if err := os.WriteFile(indexOut, data, 0644); err != nil {
			log.Fatalf("failed to write %s: %v", indexOut, err)
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(data), indexOut)
		return
	}

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	if err := store.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	blobs, err := blob.NewFSStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	orch := pipeline.NewOrchestrator(
		indexes,
		filing.NewFetcher(client),
		blobs,
		store.NewFilingRepo(pool),
		cfg.Workers,
	)

	var formTypes []string
	for _, ft := range strings.Split(forms, ",") {
		if ft = strings.TrimSpace(ft); ft != "" {
			formTypes = append(formTypes, ft)
		}
	}

	summary, runErr := orch.ProcessAllFilingIndex(ctx, year, formTypes, quarter)

	// The summary covers whatever completed, even on failure.
	out, err := json.MarshalIndent(summary, "", "  ")
	if err == nil {
		fmt.Println(string(out))
	}

	if runErr != nil {
		log.Fatalf("ingestion failed: %v", runErr)
	}
}
