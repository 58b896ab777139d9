package devreport

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Afrawles/devmetrics/internal/chart"
	"github.com/Afrawles/devmetrics/internal/clickup"
	"github.com/Afrawles/devmetrics/internal/config"
	"github.com/Afrawles/devmetrics/internal/fetch"
	"github.com/Afrawles/devmetrics/internal/github"
	"github.com/Afrawles/devmetrics/internal/report"
)

type Application struct {
	Config    *config.Config
	Generator *report.Generator
	Exporter  *report.Exporter
}

// New wires the configured sources into a generator and exporter. When a
// ClickUp folder is configured its lists are resolved here.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	repo, err := newGitHubSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("repo", repo.Name()).Str("environment", cfg.GitHub.Environment).Msg("GitHub source initialized")

	var tasks report.TaskSource
	if cfg.ClickUp.Enabled() {
		src, err := newClickUpSource(ctx, cfg.ClickUp)
		if err != nil {
			return nil, err
		}
		log.Info().Int("lists", len(src.ListIDs)).Str("bugTag", src.BugTag).Msg("ClickUp source initialized")
		tasks = src
	}

	return &Application{
		Config:    cfg,
		Generator: report.NewGenerator(repo, tasks),
		Exporter:  NewExporter(cfg),
	}, nil
}

// NewExporter builds the exporter alone, for commands that only re-render
// persisted reports.
func NewExporter(cfg *config.Config) *report.Exporter {
	return report.NewExporter(cfg.Output.Directory, cfg.Output.Format, chart.NewCommandRenderer(cfg.Output.ChartRenderer))
}

// Run collects, composes and exports one report.
func (app *Application) Run(ctx context.Context) (*report.StatsReport, *report.Documents, error) {
	w := app.Config.Window
	log.Info().
		Str("start", w.Start.Format(time.DateOnly)).
		Str("end", w.End.Format(time.DateOnly)).
		Msg("Generating report")

	r, err := app.Generator.Generate(ctx, w)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate report: %w", err)
	}

	docs, err := app.Exporter.Export(ctx, r)
	if err != nil {
		return r, nil, fmt.Errorf("failed to export report: %w", err)
	}

	log.Info().
		Int("totalPRs", r.PRStats.TotalPRs).
		Int("totalCommits", r.CommitStats.TotalCommitsLastYear).
		Int("files", len(docs.Files)).
		Msg("Report generation complete")

	return r, docs, nil
}

func newGitHubSource(ctx context.Context, cfg *config.Config) (*github.Source, error) {
	retrier := fetch.Retrier{
		MaxAttempts: cfg.Retry.Attempts,
		Delay:       cfg.Retry.Delay,
		Sleep:       fetch.SleepContext,
	}
	opts := []github.Option{
		github.WithRetrier(retrier),
		github.WithEnvironment(cfg.GitHub.Environment),
	}
	if cfg.GitHub.BaseURL != "" {
		opts = append(opts, github.WithBaseURL(cfg.GitHub.BaseURL))
	}
	return github.NewSource(ctx, cfg.GitHub.Token, cfg.GitHub.Owner, cfg.GitHub.Repo, opts...)
}

func newClickUpSource(ctx context.Context, cfg config.ClickUpConfig) (*clickup.ClickUpSource, error) {
	client := clickup.NewClient(cfg.APIKey, cfg.BaseURL, nil)

	listIDs := append([]string(nil), cfg.ListIDs...)
	var names map[string]string
	if cfg.FolderID != "" {
		ids, folderNames, err := client.GetListIDsFromFolder(ctx, cfg.FolderID)
		if err != nil {
			return nil, fmt.Errorf("error fetching lists from folder: %w", err)
		}
		log.Info().Str("folder", cfg.FolderID).Int("lists", len(ids)).Msg("Found lists in folder")
		for _, id := range ids {
			if !slices.Contains(listIDs, id) {
				listIDs = append(listIDs, id)
			}
		}
		names = folderNames
	}

	src := clickup.NewClickUpSource(client, listIDs, cfg.BugTag)
	src.SetListNames(names)
	return src, nil
}
