// Package mcpserver exposes toxicity analysis as Model Context Protocol tools.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/toxicity/internal/service/analysis"
)

// Server wraps the MCP server and registers the toxicity tools.
type Server struct {
	server  *mcp.Server
	options []analysis.Option
}

// NewServer creates a new MCP server. opts configure the analysis service
// built for each tool call.
func NewServer(version string, opts ...analysis.Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "toxicity",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, options: opts}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_toxicity",
		Description: describeToxicity(),
	}, s.handleAnalyzeToxicity)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_debt_rules",
		Description: describeRules(),
	}, s.handleListRules)
}
