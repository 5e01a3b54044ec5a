package main

import (
	"strings"
	"time"

	"github.com/fatih/color"
	htmlreport "github.com/panbanda/toxicity/internal/report"
	"github.com/panbanda/toxicity/internal/service/analysis"
	"github.com/urfave/cli/v2"
)

func reportCmd() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Generate a standalone HTML toxicity report",
		ArgsUsage: "[report|dir...]",
		Description: `Renders the same analysis as "analyze" as a single HTML page with one
section per module. Writes to --output, or to stdout.

Examples:
  toxicity -o toxicity.html report build/reports
  toxicity -o toxicity.html report --separate --top 25 build/reports`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "separate",
				Usage: "One section per report instead of a combined snapshot",
			},
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Read reports from this git revision instead of the working tree",
			},
			&cli.IntFlag{
				Name:    "top",
				Aliases: []string{"n"},
				Usage:   "Show only the N most toxic sources per section (0 = all)",
			},
		},
		Action: runReportCmd,
	}
}

func runReportCmd(c *cli.Context) error {
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

	modules, err := r.modules(c, paths)
	if err != nil {
		return err
	}

	renderer, err := htmlreport.NewRenderer()
	if err != nil {
		return err
	}
	data := htmlreport.NewRenderData(htmlreport.Metadata{
		Paths:       paths,
		Ref:         r.ref,
		GeneratedAt: time.Now(),
		Version:     version,
	}, modules, r.top)

	if r.output == "" {
		return renderer.Render(data, r.stdout)
	}
	if err := renderer.RenderToFile(data, r.output); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(r.stderr, "Report written to %s\n", r.output)
	return nil
}

// modules runs the analysis and returns one snapshot per section.
func (r *run) modules(c *cli.Context, paths []string) ([]htmlreport.Module, error) {
	opts := analysis.Options{Ref: r.ref, NoCache: r.noCache}

	if r.separate {
		result, err := r.svc.AnalyzeSeparately(c.Context, r.agg, paths, opts)
		if err != nil {
			return nil, err
		}
		modules := make([]htmlreport.Module, len(result.Modules))
		for i, m := range result.Modules {
			modules[i] = htmlreport.Module{Name: m.Module, Snapshot: m.Toxicity}
		}
		return modules, nil
	}

	result, err := r.svc.Analyze(c.Context, r.agg, paths, opts)
	if err != nil {
		return nil, err
	}
	return []htmlreport.Module{{Name: strings.Join(result.Modules, ", "), Snapshot: result.Toxicity}}, nil
}
