package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/toxicity/internal/output"
	"github.com/panbanda/toxicity/internal/testutil"
	"github.com/panbanda/toxicity/pkg/analyzer/toxicity"
	"github.com/panbanda/toxicity/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// runApp runs the CLI with args and returns stdout and stderr.
func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"toxicity"}, args...))
	return stdout.String(), stderr.String(), err
}

func writeReports(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteReport(t, dir, "core.json", "core", []models.Finding{
		{Component: "core/A.java", Rule: "MethodLengthCheck", Text: "Method length is 90 lines (max allowed is 30).", Row: 4},
		{Component: "core/B.java", Rule: "MagicNumberCheck", Text: "'5' is a magic number.", Row: 8},
	})
	testutil.WriteReport(t, dir, "web.json", "web", []models.Finding{
		{Component: "web/C.java", Rule: "IllegalCatchCheck", Row: 20},
		{Component: "web/C.java", Rule: "UnusedImportsCheck", Row: 1},
	})
	return dir
}

func TestGetPaths(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"no args defaults to current dir", []string{}, []string{"."}},
		{"single path", []string{"/foo/bar"}, []string{"/foo/bar"}},
		{"multiple paths", []string{"/foo", "/bar"}, []string{"/foo", "/bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			app := &cli.App{
				Action: func(c *cli.Context) error {
					got = getPaths(c)
					return nil
				},
			}
			require.NoError(t, app.Run(append([]string{"test"}, tt.args...)))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	quiet := newLogger(&buf, false)
	assert.False(t, quiet.Enabled(ctx, slog.LevelInfo))
	assert.True(t, quiet.Enabled(ctx, slog.LevelWarn))

	verbose := newLogger(&buf, true)
	assert.True(t, verbose.Enabled(ctx, slog.LevelDebug))
}

func TestAnalyzeJSON(t *testing.T) {
	dir := writeReports(t)

	stdout, _, err := runApp(t, "--no-cache", "-f", "json", "analyze", dir)
	require.NoError(t, err)

	var data output.ToxicityData
	require.NoError(t, json.Unmarshal([]byte(stdout), &data))
	assert.Equal(t, []string{"core", "web"}, data.Modules)
	assert.Equal(t, 3, data.Summary.Sources)
	assert.Equal(t, 3, data.Summary.Issues)
	assert.InDelta(t, 5.0, data.Summary.Total, 1e-9)
	require.Len(t, data.Sources, 3)
	assert.Equal(t, "core/A.java", data.Sources[0].Name)
	assert.InDelta(t, 3.0, data.Sources[0].Total, 1e-9)
}

func TestAnalyzeSeparateTop(t *testing.T) {
	dir := writeReports(t)

	stdout, _, err := runApp(t, "--no-cache", "-f", "json", "analyze", "--separate", "--top", "1", dir)
	require.NoError(t, err)

	var modules []output.ModuleData
	require.NoError(t, json.Unmarshal([]byte(stdout), &modules))
	require.Len(t, modules, 2)
	assert.Equal(t, "core", modules[0].Module)
	assert.Len(t, modules[0].Sources, 1)
	assert.Equal(t, 2, modules[0].Summary.Sources)
	assert.Equal(t, "web", modules[1].Module)
	assert.InDelta(t, 1.0, modules[1].Summary.Total, 1e-9)
}

func TestAnalyzeText(t *testing.T) {
	dir := writeReports(t)

	stdout, _, err := runApp(t, "--no-cache", "analyze", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "core/A.java")
	assert.Contains(t, stdout, "method_length")
}

func TestAnalyzeOutputFile(t *testing.T) {
	dir := writeReports(t)
	out := filepath.Join(t.TempDir(), "toxicity.md")

	stdout, stderr, err := runApp(t, "--no-cache", "-f", "markdown", "-o", out, "analyze", dir)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Report written to")

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), "| Rank |")
}

func TestAnalyzeSkipsBrokenReport(t *testing.T) {
	dir := writeReports(t)
	testutil.WriteFile(t, filepath.Join(dir, "broken.json"), `{"module": "broken"}`)

	stdout, stderr, err := runApp(t, "--no-cache", "-f", "json", "analyze", dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "broken.json")

	var data output.ToxicityData
	require.NoError(t, json.Unmarshal([]byte(stdout), &data))
	assert.Equal(t, []string{"core", "web"}, data.Modules)
}

func TestAnalyzeNoReports(t *testing.T) {
	_, _, err := runApp(t, "--no-cache", "analyze", t.TempDir())
	assert.Error(t, err)
}

func TestAnalyzeWithConfig(t *testing.T) {
	dir := writeReports(t)
	cfgPath := filepath.Join(t.TempDir(), "toxicity.toml")
	testutil.WriteFile(t, cfgPath, `
[policy]
defaults = false

[[policy.debts]]
type = "imports"
rules = ["UnusedImportsCheck"]

[policy.debts.cost]
value = 0.5

[cache]
enabled = false

[output]
format = "json"
`)

	stdout, _, err := runApp(t, "-c", cfgPath, "analyze", dir)
	require.NoError(t, err)

	var data output.ToxicityData
	require.NoError(t, json.Unmarshal([]byte(stdout), &data))
	require.Len(t, data.Sources, 1)
	assert.Equal(t, "web/C.java", data.Sources[0].Name)
	assert.InDelta(t, 0.5, data.Summary.Total, 1e-9)
}

func TestRulesJSON(t *testing.T) {
	stdout, _, err := runApp(t, "-f", "json", "rules")
	require.NoError(t, err)

	var rules []output.RuleData
	require.NoError(t, json.Unmarshal([]byte(stdout), &rules))
	assert.Len(t, rules, toxicity.DefaultPolicy().Len())
}

func TestConfigShow(t *testing.T) {
	stdout, _, err := runApp(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Default configuration")
	assert.Contains(t, stdout, "defaults = true")
	assert.Contains(t, stdout, "shards = 32")
}

func TestConfigValidate(t *testing.T) {
	stdout, _, err := runApp(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Default configuration is valid")

	bad := filepath.Join(t.TempDir(), "toxicity.toml")
	testutil.WriteFile(t, bad, "[output]\nformat = \"xml\"\n")
	stdout, _, err = runApp(t, "-c", bad, "config", "validate")
	assert.Error(t, err)
	assert.Contains(t, stdout, "Configuration validation failed")
}

func TestMCPManifest(t *testing.T) {
	stdout, _, err := runApp(t, "mcp", "manifest")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"name": "io.github.panbanda/toxicity"`)

	stdout, _, err = runApp(t, "--config", "tox.toml", "mcp", "manifest", "--image", "registry.local/tox")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"identifier": "registry.local/tox:0.0.0"`)
	assert.Contains(t, stdout, `"value": "tox.toml"`)
}

func TestReportHTML(t *testing.T) {
	dir := writeReports(t)
	out := filepath.Join(t.TempDir(), "toxicity.html")

	_, stderr, err := runApp(t, "--no-cache", "-o", out, "report", "--separate", dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Report written to")

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	html := string(content)
	assert.Contains(t, html, "<h2>core</h2>")
	assert.Contains(t, html, "<h2>web</h2>")
	assert.Contains(t, html, "core/A.java")
}

func TestReportHTMLStdout(t *testing.T) {
	dir := writeReports(t)

	stdout, _, err := runApp(t, "--no-cache", "report", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "<h2>core, web</h2>")
}
