package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jwebster45206/perec-verify/integration/runner"
	"github.com/jwebster45206/perec-verify/internal/browser"
	"github.com/jwebster45206/perec-verify/internal/config"
	"github.com/jwebster45206/perec-verify/internal/logger"
	"github.com/jwebster45206/perec-verify/internal/storage"
)

func main() {
	list := flag.Bool("list", false, "list available scenarios and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-list] [scenario...]\n\nScenarios: %s\n", os.Args[0], strings.Join(runner.Names(), ", "))
	}
	flag.Parse()

	if *list {
		for _, name := range runner.Names() {
			fmt.Println(name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	log := logger.Setup(cfg)

	scenarios, err := runner.Pick(flag.Args()...)
	if err != nil {
		log.Error("Invalid scenario selection", "error", err, "available", runner.Names())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledgerCtx, ledgerCancel := context.WithTimeout(ctx, 5*time.Second)
	ledger, err := storage.OpenLedger(ledgerCtx, cfg, log)
	ledgerCancel()
	if err != nil {
		log.Error("Failed to open run ledger", "error", err)
		os.Exit(1)
	}
	if ledger != nil {
		defer func() {
			if err := ledger.Close(); err != nil {
				log.Error("Error closing run ledger", "error", err)
			}
		}()
	}

	ctrl := runner.NewController(browser.NewLauncher(cfg), cfg.BaseURL, cfg.ArtifactDir, log)
	ctrl.Timeouts = runner.TimeoutsFromConfig(cfg)

	log.Info("Starting verification",
		"environment", cfg.Environment,
		"base_url", cfg.BaseURL,
		"scenarios", len(scenarios))

	var results []runner.Result
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			log.Warn("Interrupted, skipping remaining scenarios")
			break
		}
		res := ctrl.Run(ctx, sc)
		results = append(results, res)

		if ledger != nil {
			if err := ledger.Record(context.WithoutCancel(ctx), storage.NewRecord(res)); err != nil {
				log.Error("Failed to record run", "error", err, "scenario", sc.Name)
			}
		}
	}

	if failed := summarize(os.Stdout, results); failed > 0 || len(results) < len(scenarios) {
		os.Exit(1)
	}
}

// summarize prints one line per run and returns the number of failures.
func summarize(w io.Writer, results []runner.Result) int {
	failed := 0
	for _, res := range results {
		if err := res.Err(); err != nil {
			failed++
			fmt.Fprintf(w, "FAIL  %-20s %s\n", res.Scenario, err)
			continue
		}
		fmt.Fprintf(w, "PASS  %-20s %6s  %s\n", res.Scenario, res.Duration.Round(time.Millisecond), res.Artifact)
	}
	fmt.Fprintf(w, "\n%d passed, %d failed\n", len(results)-failed, failed)
	return failed
}
