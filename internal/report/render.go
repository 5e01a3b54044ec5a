// Package report renders toxicity snapshots as a standalone HTML page.
package report

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"os"
	"strings"

	"github.com/panbanda/toxicity/pkg/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed template.html
var templateFS embed.FS

// Renderer handles HTML report generation.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer creates a new renderer with the embedded template.
func NewRenderer() (*Renderer, error) {
	printer := message.NewPrinter(language.English)
	funcMap := template.FuncMap{
		// debtLabel turns "method_length" into "Method Length".
		"debtLabel": func(t models.DebtType) string {
			return cases.Title(language.English).String(strings.ReplaceAll(string(t), "_", " "))
		},
		"truncatePath": truncatePath,
		"cost": func(v float64) string {
			return printer.Sprintf("%.2f", v)
		},
		"num": func(n any) string {
			switch v := n.(type) {
			case int:
				return printer.Sprintf("%d", v)
			case uint64:
				return printer.Sprintf("%d", v)
			case float64:
				return printer.Sprintf("%d", int64(v))
			default:
				return "0"
			}
		},
		"percent": func(v float64) string {
			return printer.Sprintf("%.1f%%", v)
		},
		"json": func(v any) template.JS {
			b, _ := json.Marshal(v)
			return template.JS(b)
		},
	}

	tmplContent, err := templateFS.ReadFile("template.html")
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("report").Funcs(funcMap).Parse(string(tmplContent))
	if err != nil {
		return nil, err
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the HTML report for data to w.
func (r *Renderer) Render(data *RenderData, w io.Writer) error {
	return r.tmpl.Execute(w, data)
}

// RenderToFile writes the HTML report to a file.
func (r *Renderer) RenderToFile(data *RenderData, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return r.Render(data, f)
}

// truncatePath shortens long source paths, keeping the file name.
func truncatePath(s string, n int) string {
	if len(s) <= n {
		return s
	}
	parts := strings.Split(s, "/")
	if len(parts) <= 2 {
		return s[:n-3] + "..."
	}
	filename := parts[len(parts)-1]
	if len(filename) >= n-3 {
		return "..." + filename[len(filename)-n+3:]
	}
	remaining := n - len(filename) - 4
	if remaining < 0 {
		remaining = 0
	}
	prefix := strings.Join(parts[:len(parts)-1], "/")
	if len(prefix) > remaining {
		prefix = prefix[len(prefix)-remaining:]
	}
	return ".../" + prefix + "/" + filename
}
