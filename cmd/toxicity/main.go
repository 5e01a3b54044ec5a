package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/panbanda/toxicity/internal/cache"
	"github.com/panbanda/toxicity/internal/service/analysis"
	"github.com/panbanda/toxicity/pkg/config"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "toxicity",
		Usage:   "Technical debt toxicity from static-analysis issue reports",
		Version: version,
		Description: `Toxicity reads issue reports produced by static analyzers (Checkstyle and
compatible tools, exported as JSON or YAML), classifies every issue into a
debt type and prices it. Costs are summed per source file, so the most toxic
classes of a codebase rise to the top.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"TOXICITY_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon (default from config, text)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging on stderr",
			},
		},
		Commands: []*cli.Command{
			analyzeCmd(),
			watchCmd(),
			reportCmd(),
			rulesCmd(),
			configCmd(),
			mcpCmd(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// loadConfig loads the file named by --config, or searches the standard
// locations.
func loadConfig(c *cli.Context) (*config.LoadResult, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	return config.LoadConfig(opts...)
}

// newLogger writes text logs to w. Debug is enabled by --verbose or
// output.verbose; otherwise only warnings and errors are shown.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newService wires an analysis service from the effective config and the
// global flags.
func newService(c *cli.Context, cfg *config.Config) (*analysis.Service, *slog.Logger, error) {
	logger := newLogger(c.App.ErrWriter, c.Bool("verbose") || cfg.Output.Verbose)

	store, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled && !c.Bool("no-cache"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}

	svc := analysis.New(
		analysis.WithConfig(cfg),
		analysis.WithCache(store),
		analysis.WithLogger(logger),
	)
	return svc, logger, nil
}
