package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Afrawles/devmetrics/internal/config"
	"github.com/Afrawles/devmetrics/internal/devreport"
	"github.com/Afrawles/devmetrics/internal/logging"
	"github.com/Afrawles/devmetrics/internal/report"
)

var (
	v       = config.NewViper()
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "devmetrics",
	Short: "Generate weekly activity metrics for a GitHub repository",
	Long: `DevMetrics collects commit activity, pull requests and deployments from GitHub,
optionally completed tasks from ClickUp, and writes weekly statistics with charts.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              generateReport,
}

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(renderCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringP("output-dir", "o", "reports", "Output directory")
	pf.String("chart-renderer", "vl2svg", "Command that turns a Vega-Lite description on stdin into SVG")
	pf.String("logs-folder", "logs", "Directory for the rotating log file (empty disables it)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	f := rootCmd.Flags()
	f.StringP("start-date", "s", "", "Start date (YYYY-MM-DD), default one year before the end date")
	f.StringP("end-date", "e", "", "End date (YYYY-MM-DD), default today")
	f.String("period", "", "Named period instead of dates: "+strings.Join(config.Periods, ", "))
	f.String("output-format", "json,markdown", "Comma-separated formats: json, csv, xlsx, markdown")

	// github
	f.String("github-token", "", "GitHub token")
	f.String("github-owner", "", "Repository owner")
	f.String("github-repo", "", "Repository name")
	f.String("github-api-url", "", "GitHub API base URL (GitHub Enterprise)")
	f.String("github-deploy-environment", "", "Only count deployments to this environment")

	// clickup
	f.String("clickup-api-key", "", "ClickUp API token")
	f.String("clickup-listids", "", "Comma-separated ClickUp list IDs")
	f.String("clickup-folderid", "", "ClickUp folder ID (alternative to list IDs)")
	f.String("clickup-bug-tag", "bug", "ClickUp tag that marks a task as a bug")

	_ = v.BindPFlags(pf)
	_ = v.BindPFlags(f)
}

func setup(cmd *cobra.Command, _ []string) error {
	loaded := config.LoadDotEnv()

	level := v.GetString("log-level")
	if verbose {
		level = "debug"
	}
	logging.Init(level, v.GetString("logs-folder"))

	for _, path := range loaded {
		log.Debug().Str("path", path).Msg("Loaded configuration from .env")
	}
	return nil
}

func generateReport(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(v, time.Now())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	ctx := cmd.Context()

	fmt.Printf("Generating report for %s/%s (%s to %s)\n",
		cfg.GitHub.Owner, cfg.GitHub.Repo,
		cfg.Window.Start.Format(time.DateOnly), cfg.Window.End.Format(time.DateOnly))

	bar := newSpinner("Connecting to sources")
	app, err := devreport.New(ctx, cfg)
	finishBar(bar)
	if err != nil {
		return err
	}

	bar = newSpinner("Fetching activity")
	r, docs, err := app.Run(ctx)
	finishBar(bar)
	if err != nil {
		return err
	}

	fmt.Println()
	if err := report.WriteSummary(os.Stdout, r, !color.NoColor); err != nil {
		return err
	}

	fmt.Printf("\nReports saved to %s/\n", cfg.Output.Directory)
	for _, f := range docs.Files {
		fmt.Printf("  -> %s\n", f)
	}
	return nil
}
