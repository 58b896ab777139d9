package report

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/Afrawles/devmetrics/internal/chart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed "templates"
var templateFS embed.FS

// ExportMarkdown writes a Markdown summary with one Mermaid chart per
// non-empty series.
func ExportMarkdown(r *StatsReport, series []chart.Series, path string) error {
	funcMap := template.FuncMap{
		"title":    cases.Title(language.English).String,
		"humanize": func(s string) string { return strings.ReplaceAll(s, "_", " ") },
		"join":     strings.Join,
		"mermaid":  chart.Mermaid,
	}
	tmpl, err := template.New("summary.md.tmpl").Funcs(funcMap).ParseFS(templateFS, "templates/summary.md.tmpl")
	if err != nil {
		return fmt.Errorf("failed to parse markdown template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create markdown file: %w", err)
	}
	defer f.Close()

	data := map[string]any{
		"Report": r,
		"Charts": series,
	}
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	return nil
}
