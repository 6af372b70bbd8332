// Command rowsync syncs a local CSV or JSON file into a hosted database,
// reconciling columns against the remote schema and optionally merging
// into existing rows.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jessegersenson/rowsync/internal/cliconfig"
	"github.com/jessegersenson/rowsync/internal/runner"
)

func main() {
	cfg, err := cliconfig.Parse(os.Args[1:])
	if err != nil {
		fatalf(2, "%v", err)
	}

	if cfg.Version {
		fmt.Println("rowsync dev")
		return
	}

	if cfg.LogPath != "" {
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fatalf(2, "open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}
	if !cfg.Verbose {
		log.SetFlags(log.LstdFlags)
	}

	rcfg := runner.Config{
		Config:            cfg,
		CaptionEndpoint:   os.Getenv("CAPTION_PROVIDER_URL"),
		CaptionModel:      os.Getenv("CAPTION_PROVIDER_MODEL"),
		MetricsJobName:    envOr("METRICS_JOB_NAME", "rowsync"),
		MetricsGatewayURL: os.Getenv("PUSHGATEWAY_URL"),
	}

	start := time.Now()
	result, err := runner.Run(context.Background(), rcfg)
	if err != nil {
		if cfg.DeleteAllDatabaseEntries {
			fatalf(2, "%v", err)
		}
		if result.Succeeded == 0 && result.Failed == 0 {
			fatalf(2, "%v", err)
		}
		log.Printf("run ended early: %v", err)
	}

	if cfg.DeleteAllDatabaseEntries {
		log.Printf("archived %d rows", result.ArchivedRows)
		return
	}

	log.Printf("rows: succeeded=%d failed=%d canceled=%v elapsed=%s",
		result.Succeeded, result.Failed, result.Canceled, time.Since(start).Truncate(time.Millisecond))
	for _, re := range result.FirstErrors {
		log.Printf("  %v", re)
	}

	if result.Failed > 0 {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatalf(code int, format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(code)
}
