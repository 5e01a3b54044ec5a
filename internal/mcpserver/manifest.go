package mcpserver

import (
	"encoding/json"
)

const manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"

// Manifest is the registry server.json entry for the toxicity MCP server.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package is one way to launch the server.
type Package struct {
	RegistryType     string     `json:"registryType"`
	Identifier       string     `json:"identifier"`
	PackageArguments []Argument `json:"packageArguments,omitempty"`
	Transport        Transport  `json:"transport"`
}

// Argument is a positional or named command-line argument. Named arguments
// carry the flag in Name.
type Argument struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

type Transport struct {
	Type string `json:"type"`
}

// ManifestOptions overrides the published defaults.
type ManifestOptions struct {
	Version string
	// Image is the OCI image without tag; defaults to ghcr.io/panbanda/toxicity.
	Image string
	// ConfigPath is passed as --config ahead of the mcp subcommand.
	ConfigPath string
}

// GenerateManifest creates the MCP server manifest JSON.
func GenerateManifest(opts ManifestOptions) ([]byte, error) {
	version := opts.Version
	if version == "" || version == "dev" {
		version = "0.0.0"
	}
	image := opts.Image
	if image == "" {
		image = "ghcr.io/panbanda/toxicity"
	}

	var args []Argument
	if opts.ConfigPath != "" {
		args = append(args, Argument{Type: "named", Name: "--config", Value: opts.ConfigPath})
	}
	args = append(args, Argument{Type: "positional", Value: "mcp"})

	return json.MarshalIndent(Manifest{
		Schema:      manifestSchema,
		Name:        "io.github.panbanda/toxicity",
		Description: "Ranks source files by technical debt priced from static-analysis issue reports",
		Version:     version,
		Repository: &Repository{
			URL:    "https://github.com/panbanda/toxicity",
			Source: "github",
		},
		Packages: []Package{{
			RegistryType:     "oci",
			Identifier:       image + ":" + version,
			PackageArguments: args,
			Transport:        Transport{Type: "stdio"},
		}},
	}, "", "  ")
}
