package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Afrawles/devmetrics/internal/report"
)

const dateLayout = "2006-01-02"

var knownFormats = []string{report.FormatJSON, report.FormatCSV, report.FormatXLSX, report.FormatMarkdown}

type Config struct {
	GitHub   GitHubConfig
	ClickUp  ClickUpConfig
	Output   OutputConfig
	Retry    RetryConfig
	Window   report.Window
	LogDir   string
	LogLevel string
}

type GitHubConfig struct {
	Token       string
	Owner       string
	Repo        string
	BaseURL     string
	Environment string
}

type ClickUpConfig struct {
	APIKey   string
	BaseURL  string
	ListIDs  []string
	FolderID string
	BugTag   string
}

func (c ClickUpConfig) Enabled() bool {
	return c.APIKey != ""
}

type OutputConfig struct {
	Directory     string
	Format        []string // json, csv, xlsx, markdown
	ChartRenderer string
}

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// LoadDotEnv loads .env from the executable's directory and then from the
// working directory, returning the files it read. Variables already set in
// the environment win.
func LoadDotEnv() []string {
	var loaded []string
	if exePath, err := os.Executable(); err == nil {
		envPath := filepath.Join(filepath.Dir(exePath), ".env")
		if err := godotenv.Load(envPath); err == nil {
			loaded = append(loaded, envPath)
		}
	}
	if err := godotenv.Load(); err == nil {
		loaded = append(loaded, ".env")
	}
	return loaded
}

// NewViper returns a viper instance with defaults set and every key bound to
// its environment variable (start-date -> START_DATE).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("output-dir", "reports")
	v.SetDefault("output-format", "json,markdown")
	v.SetDefault("chart-renderer", "vl2svg")
	v.SetDefault("clickup-bug-tag", "bug")
	v.SetDefault("logs-folder", "logs")
	v.SetDefault("log-level", "info")
	v.SetDefault("retry-attempts", 5)
	v.SetDefault("retry-delay", "2s")
	return v
}

// Load resolves the configuration from v. now anchors the default window.
func Load(v *viper.Viper, now time.Time) (*Config, error) {
	cfg := &Config{
		GitHub: GitHubConfig{
			Token:       v.GetString("github-token"),
			Owner:       v.GetString("github-owner"),
			Repo:        v.GetString("github-repo"),
			BaseURL:     v.GetString("github-api-url"),
			Environment: v.GetString("github-deploy-environment"),
		},
		ClickUp: ClickUpConfig{
			APIKey:   v.GetString("clickup-api-key"),
			BaseURL:  v.GetString("clickup-base-url"),
			ListIDs:  splitList(v.GetString("clickup-listids")),
			FolderID: v.GetString("clickup-folderid"),
			BugTag:   v.GetString("clickup-bug-tag"),
		},
		Output: OutputConfig{
			Directory:     v.GetString("output-dir"),
			ChartRenderer: v.GetString("chart-renderer"),
		},
		Retry: RetryConfig{
			Attempts: v.GetInt("retry-attempts"),
			Delay:    v.GetDuration("retry-delay"),
		},
		LogDir:   v.GetString("logs-folder"),
		LogLevel: v.GetString("log-level"),
	}

	// GITHUB_REPOSITORY is set by GitHub Actions as owner/repo.
	if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" {
		if owner, repo, ok := strings.Cut(v.GetString("github-repository"), "/"); ok {
			if cfg.GitHub.Owner == "" {
				cfg.GitHub.Owner = owner
			}
			if cfg.GitHub.Repo == "" {
				cfg.GitHub.Repo = repo
			}
		}
	}

	for _, f := range splitList(v.GetString("output-format")) {
		f = strings.ToLower(f)
		if f == "md" {
			f = report.FormatMarkdown
		}
		if !slices.Contains(knownFormats, f) {
			return nil, fmt.Errorf("unknown output format %q (valid: %s)", f, strings.Join(knownFormats, ", "))
		}
		if !slices.Contains(cfg.Output.Format, f) {
			cfg.Output.Format = append(cfg.Output.Format, f)
		}
	}

	w, err := resolveWindow(v.GetString("start-date"), v.GetString("end-date"), v.GetString("period"), now)
	if err != nil {
		return nil, err
	}
	cfg.Window = w

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.GitHub.Token == "" {
		errs = append(errs, errors.New("GITHUB_TOKEN is required"))
	}
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		errs = append(errs, errors.New("GITHUB_OWNER and GITHUB_REPO (or GITHUB_REPOSITORY=owner/repo) are required"))
	}
	if c.ClickUp.Enabled() && len(c.ClickUp.ListIDs) == 0 && c.ClickUp.FolderID == "" {
		errs = append(errs, errors.New("CLICKUP_API_KEY provided but neither CLICKUP_LISTIDS nor CLICKUP_FOLDERID is set"))
	}
	if c.Window.Start.After(c.Window.End) {
		errs = append(errs, fmt.Errorf("start date %s is after end date %s",
			c.Window.Start.Format(dateLayout), c.Window.End.Format(dateLayout)))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", c.Retry.Attempts))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, fmt.Errorf("RETRY_DELAY must not be negative, got %s", c.Retry.Delay))
	}

	return errors.Join(errs...)
}

// resolveWindow prefers explicit dates, then a named period, then the year
// ending today. Explicit end dates cover the whole day.
func resolveWindow(startStr, endStr, period string, now time.Time) (report.Window, error) {
	now = now.UTC()

	if startStr == "" && endStr == "" && period != "" {
		return PeriodWindow(period, now)
	}

	end := endOfDay(now)
	if endStr != "" {
		d, err := time.Parse(dateLayout, endStr)
		if err != nil {
			return report.Window{}, fmt.Errorf("invalid end date %q: %w", endStr, err)
		}
		end = endOfDay(d)
	}

	start := startOfDay(end).AddDate(-1, 0, 0)
	if startStr != "" {
		d, err := time.Parse(dateLayout, startStr)
		if err != nil {
			return report.Window{}, fmt.Errorf("invalid start date %q: %w", startStr, err)
		}
		start = d
	}

	return report.Window{Start: start, End: end}, nil
}

func splitList(input string) []string {
	if input == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).Add(24*time.Hour - time.Nanosecond)
}
