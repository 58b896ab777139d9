package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Afrawles/devmetrics/internal/config"
	"github.com/Afrawles/devmetrics/internal/devreport"
	"github.com/Afrawles/devmetrics/internal/report"
)

var reportPath string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Re-render charts from a saved report",
	Long:  `Reads a report_<start>_<end>.json written by a previous run and writes its chart descriptions and images again.`,
	RunE:  renderReport,
}

func init() {
	renderCmd.Flags().StringVar(&reportPath, "report", "", "Path to a saved report JSON file")
	_ = renderCmd.MarkFlagRequired("report")
}

func renderReport(cmd *cobra.Command, _ []string) error {
	r, err := report.LoadReport(reportPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load(v, time.Now())
	if err != nil {
		return err
	}

	bar := newSpinner("Rendering charts")
	files := devreport.NewExporter(cfg).RenderCharts(cmd.Context(), r)
	finishBar(bar)

	fmt.Printf("Rendered %d files for %s\n", len(files), r.Repository)
	for _, f := range files {
		fmt.Printf("  -> %s\n", f)
	}
	return nil
}
