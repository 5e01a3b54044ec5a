package main

import (
	"fmt"
	"os"

	"github.com/panbanda/toxicity/internal/mcpserver"
	"github.com/panbanda/toxicity/internal/service/analysis"
	"github.com/urfave/cli/v2"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes toxicity analysis as
tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "toxicity": {
        "command": "toxicity",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_toxicity   Per-source debt from issue reports
  - list_debt_rules    Rule keys, debt types and pricing in effect`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:  "manifest",
				Usage: "Print the MCP registry manifest (server.json)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "image",
						Usage: "OCI image the registry entry points at",
					},
				},
				Action: runMCPManifest,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	// Logs go to stderr; stdout carries the protocol.
	logger := newLogger(os.Stderr, c.Bool("verbose") || loaded.Config.Output.Verbose)
	server := mcpserver.NewServer(version,
		analysis.WithConfig(loaded.Config),
		analysis.WithLogger(logger),
	)
	return server.Run(c.Context)
}

func runMCPManifest(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(mcpserver.ManifestOptions{
		Version:    version,
		Image:      c.String("image"),
		ConfigPath: c.String("config"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
