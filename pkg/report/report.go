// Package report loads issue reports produced by static-analysis tools.
//
// A report is a JSON or YAML document of the form
//
//	{"module": "core", "issues": [{"component": "...", "rule": "...", "severity": "...", "message": "...", "line": 12}]}
//
// Both encodings are checked against the same embedded JSON schema before
// they are decoded.
package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/panbanda/toxicity/pkg/models"
	"github.com/panbanda/toxicity/pkg/source"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaURL identifies the embedded report schema.
const SchemaURL = "https://github.com/panbanda/toxicity/report.schema.json"

//go:embed report.schema.json
var schemaJSON []byte

var (
	// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported report format")
	// ErrInvalidReport is returned when a report does not match the schema.
	ErrInvalidReport = errors.New("invalid report")
)

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Report is a decoded issue report for one module.
type Report struct {
	Module string           `json:"module" yaml:"module"`
	Issues []models.Finding `json:"issues" yaml:"issues"`
	// Path is the file the report was read from.
	Path string `json:"-" yaml:"-"`
}

// AsIssues returns the findings as the Issue interface consumed by the aggregator.
func (r *Report) AsIssues() []models.Issue {
	issues := make([]models.Issue, len(r.Issues))
	for i, f := range r.Issues {
		issues[i] = f
	}
	return issues
}

// Supported reports whether path has a report extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads and parses the report at path from src.
func Load(src source.ContentSource, path string) (*Report, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	data, err := src.Read(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// Parse decodes report data, choosing the encoding from the extension of path.
// The module name defaults to the file name without its extension.
func Parse(path string, data []byte) (*Report, error) {
	var (
		doc any
		err error
	)
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		doc, err = jsonschema.UnmarshalJSON(bytes.NewReader(data))
	case ".yaml", ".yml":
		doc, err = yamlDocument(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrInvalidReport, path, err)
	}

	r := &Report{Path: path}
	if ext == ".json" {
		err = json.Unmarshal(data, r)
	} else {
		err = yaml.Unmarshal(data, r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if r.Module == "" {
		r.Module = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return r, nil
}

// yamlDocument converts YAML into the JSON data model the validator expects.
func yamlDocument(data []byte) (any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(buf))
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("report schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(SchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("report schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(SchemaURL)
	})
	return schema, schemaErr
}
