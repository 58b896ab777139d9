package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/Afrawles/devmetrics/internal/chart"
	"github.com/rs/zerolog/log"
)

const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatMarkdown = "markdown"
)

// WeeklyDocument is the weekly subset of a report.
type WeeklyDocument struct {
	Commits      []WeeklyCount  `json:"commits"`
	PullRequests []WeeklyPRStat `json:"pullRequests"`
}

// Documents is everything Export produced for one report. Files lists the
// paths that were written successfully.
type Documents struct {
	Report *StatsReport
	Weekly WeeklyDocument
	Charts []chart.Series
	Files  []string
}

type Exporter struct {
	OutputDir string
	Formats   []string
	Renderer  chart.Renderer
}

func NewExporter(outputDir string, formats []string, renderer chart.Renderer) *Exporter {
	return &Exporter{OutputDir: outputDir, Formats: formats, Renderer: renderer}
}

// Export shapes r into documents and chart series and writes them under
// OutputDir. Write failures are logged and skipped; the returned documents
// stay valid either way.
func (e *Exporter) Export(ctx context.Context, r *StatsReport) (*Documents, error) {
	if r == nil {
		return nil, errors.New("export: nil report")
	}

	docs := &Documents{
		Report: r,
		Weekly: WeeklyDocument{
			Commits:      r.CommitStats.WeeklyCommits,
			PullRequests: r.PRStats.WeeklyPRStats,
		},
		Charts: ChartSeries(r),
	}

	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		log.Error().Err(err).Str("dir", e.OutputDir).Msg("Failed to create output directory")
		return docs, nil
	}

	stamp := r.Window.StartDate + "_" + r.Window.EndDate

	e.persist(docs, fmt.Sprintf("report_%s.json", stamp), func(path string) error {
		return e.ExportJSON(r, path)
	})
	e.persist(docs, fmt.Sprintf("weekly_%s.json", stamp), func(path string) error {
		return e.ExportJSON(docs.Weekly, path)
	})

	if e.wants(FormatCSV) {
		for _, s := range docs.Charts {
			e.persist(docs, fmt.Sprintf("weekly_%s_%s.csv", s.Name, stamp), func(path string) error {
				return ExportSeriesCSV(s, path)
			})
		}
	}
	if e.wants(FormatXLSX) {
		e.persist(docs, fmt.Sprintf("metrics_%s.xlsx", stamp), func(path string) error {
			return NewExcelExporter().Export(r, docs.Charts, path)
		})
	}
	if e.wants(FormatMarkdown) {
		e.persist(docs, fmt.Sprintf("summary_%s.md", stamp), func(path string) error {
			return ExportMarkdown(r, docs.Charts, path)
		})
	}

	docs.Files = append(docs.Files, e.RenderCharts(ctx, r)...)
	return docs, nil
}

// RenderCharts exports the charts of r into charts_<start>_<end> under
// OutputDir.
func (e *Exporter) RenderCharts(ctx context.Context, r *StatsReport) []string {
	dir := filepath.Join(e.OutputDir, "charts_"+r.Window.StartDate+"_"+r.Window.EndDate)
	return e.ExportCharts(ctx, ChartSeries(r), dir)
}

// ExportCharts writes a Vega-Lite description per series into dir and, when
// a renderer is available, the rendered SVG next to it.
func (e *Exporter) ExportCharts(ctx context.Context, series []chart.Series, dir string) []string {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("Failed to create charts directory")
		return nil
	}

	render := e.Renderer != nil
	if a, ok := e.Renderer.(interface{ Available() bool }); ok && !a.Available() {
		log.Warn().Msg("Chart renderer not found on PATH, writing chart descriptions only")
		render = false
	}

	var written []string
	for _, s := range series {
		spec, err := chart.Describe(s)
		if err != nil {
			log.Warn().Err(err).Str("chart", s.Name).Msg("Failed to describe chart")
			continue
		}

		specPath := filepath.Join(dir, s.Name+".vl.json")
		if err := os.WriteFile(specPath, spec, 0644); err != nil {
			log.Warn().Err(err).Str("path", specPath).Msg("Failed to write chart description")
			continue
		}
		written = append(written, specPath)

		if !render {
			continue
		}
		svg, err := e.Renderer.Render(ctx, spec)
		if err != nil {
			log.Warn().Err(err).Str("chart", s.Name).Msg("Failed to render chart")
			continue
		}
		svgPath := filepath.Join(dir, s.Name+".svg")
		if err := os.WriteFile(svgPath, svg, 0644); err != nil {
			log.Warn().Err(err).Str("path", svgPath).Msg("Failed to write chart image")
			continue
		}
		written = append(written, svgPath)
	}

	log.Info().Int("files", len(written)).Str("dir", dir).Msg("Charts exported")
	return written
}

func (e *Exporter) ExportJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadReport reads a report previously written by Export.
func LoadReport(path string) (*StatsReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r StatsReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return &r, nil
}

func (e *Exporter) persist(docs *Documents, filename string, write func(path string) error) {
	path := filepath.Join(e.OutputDir, filename)
	if err := write(path); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to write report file")
		return
	}
	log.Info().Str("path", path).Msg("Report file written")
	docs.Files = append(docs.Files, path)
}

func (e *Exporter) wants(format string) bool {
	return slices.Contains(e.Formats, format)
}
