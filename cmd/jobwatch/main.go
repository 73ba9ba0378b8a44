package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"JobWatch/internal/app"
	"JobWatch/internal/config"
	"JobWatch/internal/logging"
	"JobWatch/internal/usecase"
)

func main() {
	once := flag.Bool("once", false, "run sources once and exit instead of serving")
	source := flag.String("source", "", "with -once, run only the named source")
	dryRun := flag.Bool("dry-run", false, "with -once, skip delivery and print the reports")
	recipient := flag.String("recipient", "", "with -once, deliver to this destination")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New("error", "text").Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if !*once {
		if err := application.Run(ctx); err != nil {
			logger.Error("application stopped", "error", err)
			application.Close()
			os.Exit(1)
		}
		return
	}

	reports, err := application.RunOnce(ctx, *source, usecase.RunOptions{DryRun: *dryRun, Recipient: *recipient})
	if *dryRun && len(reports) > 0 {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(reports)
	}
	if err != nil {
		logger.Error("run failed", "error", err)
		application.Close()
		os.Exit(1)
	}
}
