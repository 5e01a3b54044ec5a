package mcpserver

import (
	"bytes"
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/toxicity/internal/output"
	"github.com/panbanda/toxicity/internal/service/analysis"
)

// ToxicityInput is the input of analyze_toxicity.
type ToxicityInput struct {
	Paths    []string `json:"paths,omitempty" jsonschema:"Report files or directories to analyze. Defaults to current directory if empty."`
	Format   string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, markdown or text."`
	Separate bool     `json:"separate,omitempty" jsonschema:"Analyze each report independently instead of combining them."`
	Top      int      `json:"top,omitempty" jsonschema:"Show only the N most toxic sources. Default all."`
	Ref      string   `json:"ref,omitempty" jsonschema:"Git revision to read the reports from instead of the working tree."`
}

// RulesInput is the input of list_debt_rules.
type RulesInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, markdown or text."`
}

func getPaths(paths []string) []string {
	if len(paths) == 0 {
		return []string{"."}
	}
	return paths
}

func getFormat(format string) output.Format {
	if strings.TrimSpace(format) == "" {
		return output.FormatTOON
	}
	return output.ParseFormat(format)
}

func formatOutput(data any, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(data); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleAnalyzeToxicity(ctx context.Context, req *mcp.CallToolRequest, input ToxicityInput) (*mcp.CallToolResult, any, error) {
	paths := getPaths(input.Paths)
	format := getFormat(input.Format)

	svc := analysis.New(s.options...)
	agg, err := svc.NewAggregator()
	if err != nil {
		return toolError(err.Error())
	}
	opts := analysis.Options{Ref: input.Ref}

	if input.Separate {
		result, err := svc.AnalyzeSeparately(ctx, agg, paths, opts)
		if err != nil {
			return toolError(err.Error())
		}
		report := &output.ModulesReport{}
		for _, m := range result.Modules {
			report.Reports = append(report.Reports, &output.ToxicityReport{
				Modules:  []string{m.Module},
				Snapshot: m.Toxicity,
				Top:      input.Top,
			})
		}
		return toolResult(report, format)
	}

	result, err := svc.Analyze(ctx, agg, paths, opts)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(&output.ToxicityReport{
		Modules:  result.Modules,
		Snapshot: result.Toxicity,
		Top:      input.Top,
	}, format)
}

func (s *Server) handleListRules(ctx context.Context, req *mcp.CallToolRequest, input RulesInput) (*mcp.CallToolResult, any, error) {
	svc := analysis.New(s.options...)
	policy, err := svc.Config().Policy.Build()
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(output.NewRulesTable(policy.Rules()), getFormat(input.Format))
}
