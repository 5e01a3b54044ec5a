package main

import (
	"github.com/panbanda/toxicity/internal/output"
	"github.com/urfave/cli/v2"
)

func rulesCmd() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "List the debt classification rules in evaluation order",
		Description: `Shows how analyzer rule keys map to debt types and how each type is priced.
Configured debts come first, ordered by priority; the built-in table follows
when policy.defaults is true.`,
		Action: runRulesCmd,
	}
}

func runRulesCmd(c *cli.Context) error {
	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	policy, err := loaded.Config.Policy.Build()
	if err != nil {
		return err
	}

	format := loaded.Config.Output.Format
	if c.IsSet("format") {
		format = c.String("format")
	}
	formatter := output.NewWriterFormatter(output.ParseFormat(format), c.App.Writer, loaded.Config.Output.Color)
	return formatter.Output(output.NewRulesTable(policy.Rules()))
}
