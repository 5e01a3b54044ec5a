package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/panbanda/toxicity/internal/fileproc"
	"github.com/panbanda/toxicity/internal/output"
	"github.com/panbanda/toxicity/internal/progress"
	"github.com/panbanda/toxicity/internal/service/analysis"
	"github.com/panbanda/toxicity/pkg/analyzer/toxicity"
	"github.com/panbanda/toxicity/pkg/config"
	"github.com/urfave/cli/v2"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Compute toxicity from issue reports",
		ArgsUsage: "[report|dir...]",
		Description: `Loads every .json, .yaml and .yml issue report under the given paths and
prints the most toxic sources.

By default all reports feed one snapshot, so a source's debt is summed across
modules. With --separate each report is analyzed on its own.

Examples:
  toxicity analyze build/reports
  toxicity analyze --separate --top 10 core.json web.json
  toxicity -f json analyze --ref main build/reports`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "separate",
				Usage: "Analyze each report independently",
			},
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Read reports from this git revision instead of the working tree",
			},
			&cli.IntFlag{
				Name:    "top",
				Aliases: []string{"n"},
				Usage:   "Show only the N most toxic sources (0 = all)",
			},
		},
		Action: runAnalyzeCmd,
	}
}

// run holds the settings of one analyze or watch invocation.
type run struct {
	svc      *analysis.Service
	agg      *toxicity.Aggregator
	format   output.Format
	output   string
	colored  bool
	top      int
	separate bool
	ref      string
	noCache  bool
	stdout   io.Writer
	stderr   io.Writer
}

func newRun(c *cli.Context, cfg *config.Config, svc *analysis.Service) (*run, error) {
	agg, err := svc.NewAggregator()
	if err != nil {
		return nil, err
	}

	format := cfg.Output.Format
	if c.IsSet("format") {
		format = c.String("format")
	}
	top := cfg.Output.Top
	if c.IsSet("top") {
		top = c.Int("top")
	}

	return &run{
		svc:      svc,
		agg:      agg,
		format:   output.ParseFormat(format),
		output:   c.String("output"),
		colored:  cfg.Output.Color && !color.NoColor,
		top:      top,
		separate: c.Bool("separate") || cfg.Analysis.Separate,
		ref:      c.String("ref"),
		noCache:  c.Bool("no-cache"),
		stdout:   c.App.Writer,
		stderr:   c.App.ErrWriter,
	}, nil
}

func runAnalyzeCmd(c *cli.Context) error {
	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, _, err := newService(c, loaded.Config)
	if err != nil {
		return err
	}
	r, err := newRun(c, loaded.Config, svc)
	if err != nil {
		return err
	}

	paths := getPaths(c)
	files, err := svc.Discover(paths, r.ref)
	if err != nil {
		return err
	}
	tracker := progress.NewTracker("Loading reports", len(files), progress.WithWriter(r.stderr))

	if err := r.execute(c.Context, paths, tracker.Tick); err != nil {
		tracker.FinishError(err)
		return err
	}
	tracker.FinishSuccess()
	return nil
}

// execute runs the analysis and renders the result.
func (r *run) execute(ctx context.Context, paths []string, onProgress func()) error {
	opts := analysis.Options{Ref: r.ref, NoCache: r.noCache, OnProgress: onProgress}

	var (
		data    output.Renderable
		skipped *fileproc.ProcessingErrors
	)
	if r.separate {
		result, err := r.svc.AnalyzeSeparately(ctx, r.agg, paths, opts)
		if err != nil {
			return err
		}
		report := &output.ModulesReport{}
		for _, m := range result.Modules {
			report.Reports = append(report.Reports, &output.ToxicityReport{
				Modules:  []string{m.Module},
				Snapshot: m.Toxicity,
				Top:      r.top,
			})
		}
		data = report
		skipped = result.Errors
	} else {
		result, err := r.svc.Analyze(ctx, r.agg, paths, opts)
		if err != nil {
			return err
		}
		data = &output.ToxicityReport{
			Modules:  result.Modules,
			Snapshot: result.Toxicity,
			Top:      r.top,
		}
		skipped = result.Errors
	}

	if skipped != nil {
		for _, pe := range skipped.Errors {
			color.New(color.FgYellow).Fprintf(r.stderr, "Skipped %v\n", pe)
		}
	}
	return r.render(data)
}

func (r *run) render(data output.Renderable) error {
	if r.output == "" {
		return output.NewWriterFormatter(r.format, r.stdout, r.colored).Output(data)
	}

	formatter, err := output.NewFormatter(r.format, r.output, false)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer formatter.Close()
	if err := formatter.Output(data); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(r.stderr, "Report written to %s\n", r.output)
	return nil
}
