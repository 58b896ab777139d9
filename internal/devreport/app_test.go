package devreport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afrawles/devmetrics/internal/config"
	"github.com/Afrawles/devmetrics/internal/report"
)

func githubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":1,"full_name":"acme/widgets"}`)
	})
	mux.HandleFunc("/repos/acme/widgets/stats/commit_activity", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"total":5,"week":1717891200},{"total":7,"week":1718496000}]`)
	})
	mux.HandleFunc("/repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":2,"number":2,"created_at":"2024-06-18T10:00:00Z","labels":[]},
			{"id":1,"number":1,"created_at":"2024-06-12T10:00:00Z","merged_at":"2024-06-13T10:00:00Z","labels":[{"name":"bug"}]}
		]`)
	})
	mux.HandleFunc("/repos/acme/widgets/deployments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":3,"environment":"production","created_at":"2024-06-14T10:00:00Z"}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func clickupServer(t *testing.T, taskStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"user":{"id":1}}`)
	})
	mux.HandleFunc("/folder/77/list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"lists":[{"id":"901","name":"Backend"}]}`)
	})
	mux.HandleFunc("/list/901/task", func(w http.ResponseWriter, r *http.Request) {
		if taskStatus != http.StatusOK {
			w.WriteHeader(taskStatus)
			return
		}
		done := time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC).UnixMilli()
		fmt.Fprintf(w, `{"tasks":[{"id":"a1","name":"Fix login","date_created":"%d","date_done":"%d","tags":[{"name":"bug"}]}],"last_page":true}`, done, done)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, githubURL string) *config.Config {
	return &config.Config{
		GitHub: config.GitHubConfig{Token: "ghp", Owner: "acme", Repo: "widgets", BaseURL: githubURL},
		Output: config.OutputConfig{
			Directory:     t.TempDir(),
			Format:        []string{report.FormatJSON, report.FormatMarkdown},
			ChartRenderer: "devmetrics-no-such-renderer",
		},
		Retry: config.RetryConfig{Attempts: 2},
		Window: report.Window{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC),
		},
	}
}

func TestApplication_Run(t *testing.T) {
	cfg := testConfig(t, githubServer(t).URL)
	cfg.ClickUp = config.ClickUpConfig{
		APIKey:   "pk",
		BaseURL:  clickupServer(t, http.StatusOK).URL,
		FolderID: "77",
		BugTag:   "bug",
	}

	app, err := New(context.Background(), cfg)
	require.NoError(t, err)

	r, docs, err := app.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "acme/widgets", r.Repository)
	assert.Equal(t, 12, r.CommitStats.TotalCommitsLastYear)
	assert.Equal(t, "6.00", r.CommitStats.AverageCommitsPerWeek)
	assert.Equal(t, 2, r.PRStats.TotalPRs)
	assert.Equal(t, "50.00", r.PRStats.PRMergeRate)
	assert.Equal(t, 1, r.PRStats.BugPRs.TotalBugPRs)
	assert.Equal(t, 1, r.DeploymentStats.TotalDeployments)
	require.NotNil(t, r.TaskStats)
	assert.Equal(t, 1, r.TaskStats.TotalBugs)
	assert.Empty(t, r.DegradedSources)

	dir := cfg.Output.Directory
	assert.FileExists(t, filepath.Join(dir, "report_2024-01-01_2024-06-30.json"))
	assert.FileExists(t, filepath.Join(dir, "summary_2024-01-01_2024-06-30.md"))
	assert.FileExists(t, filepath.Join(dir, "charts_2024-01-01_2024-06-30", "tasks.vl.json"))
	assert.NoFileExists(t, filepath.Join(dir, "charts_2024-01-01_2024-06-30", "tasks.svg"))
	assert.Len(t, docs.Charts, 6)
}

func TestApplication_Run_DegradedTasks(t *testing.T) {
	cfg := testConfig(t, githubServer(t).URL)
	cfg.ClickUp = config.ClickUpConfig{
		APIKey:  "pk",
		BaseURL: clickupServer(t, http.StatusServiceUnavailable).URL,
		ListIDs: []string{"901"},
	}

	app, err := New(context.Background(), cfg)
	require.NoError(t, err)

	r, _, err := app.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ClickUp"}, r.DegradedSources)
	assert.Equal(t, 2, r.PRStats.TotalPRs)
}

func TestApplication_Run_Unauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	app, err := New(context.Background(), testConfig(t, srv.URL))
	require.NoError(t, err)

	_, _, err = app.Run(context.Background())
	assert.ErrorIs(t, err, report.ErrUnauthorized)
}

func TestNew_FolderLookupFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/folder/77/list", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.ClickUp = config.ClickUpConfig{APIKey: "pk", BaseURL: srv.URL, FolderID: "77"}

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "folder")
}
