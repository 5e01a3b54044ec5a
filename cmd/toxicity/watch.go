package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/panbanda/toxicity/internal/progress"
	"github.com/panbanda/toxicity/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-analyze whenever issue reports change",
		ArgsUsage: "[report|dir...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "separate",
				Usage: "Analyze each report independently",
			},
			&cli.IntFlag{
				Name:    "top",
				Aliases: []string{"n"},
				Usage:   "Show only the N most toxic sources (0 = all)",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "How long a report must stay unchanged before re-analysis",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg := loaded.Config
	svc, logger, err := newService(c, cfg)
	if err != nil {
		return err
	}
	r, err := newRun(c, cfg, svc)
	if err != nil {
		return err
	}
	paths := getPaths(c)

	watcher, err := watch.NewWatcher(paths, cfg, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()
	watcher.SetOutput(r.stderr)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The aggregator is reused across runs; callbacks never overlap, so a
	// Reset before each run cannot race with an ingest.
	analyze := func() {
		r.agg.Reset()
		spinner := progress.NewSpinner("Analyzing", progress.WithWriter(r.stderr))
		if err := r.execute(ctx, paths, nil); err != nil {
			spinner.FinishError(err)
			logger.Error("analysis failed", "component", "watch", "error", err)
			return
		}
		spinner.FinishSuccess()
	}

	analyze()
	watcher.SetCallback(func(changed []string) {
		analyze()
	})

	err = watcher.Start(ctx)
	if errors.Is(err, context.Canceled) {
		color.New(color.FgCyan).Fprintln(r.stderr, "\nStopped watching.")
		return nil
	}
	return err
}
