package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func testComposer() Composer {
	return Composer{Now: func() time.Time { return fixedNow }}
}

func testWindow() Window {
	return Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC),
	}
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tsp(s string) *time.Time {
	t := ts(s)
	return &t
}

func TestCompose_EndToEnd(t *testing.T) {
	ds := Dataset{
		Repository:  "acme/widgets",
		CommitWeeks: []CommitWeek{{WeekStart: 0, Total: 5}, {WeekStart: 604800, Total: 7}},
		PullRequests: []PullRequest{
			{ID: "1", CreatedAt: ts("2024-06-12T10:00:00Z"), MergedAt: tsp("2024-06-13T10:00:00Z")},
		},
	}

	r := testComposer().Compose(ds, testWindow())

	assert.Equal(t, "acme/widgets", r.Repository)
	assert.Equal(t, WindowInfo{StartDate: "2024-01-01", EndDate: "2024-06-30"}, r.Window)
	assert.Equal(t, 12, r.CommitStats.TotalCommitsLastYear)
	assert.Equal(t, "6.00", r.CommitStats.AverageCommitsPerWeek)
	assert.Equal(t, []WeeklyCount{
		{Week: "1969-12-28", Count: 5},
		{Week: "1970-01-04", Count: 7},
	}, r.CommitStats.WeeklyCommits)

	assert.Equal(t, 1, r.PRStats.TotalPRs)
	assert.Equal(t, 1, r.PRStats.MergedPRs)
	assert.Equal(t, "100.00", r.PRStats.PRMergeRate)
	assert.Equal(t, []WeeklyPRStat{
		{Week: "2024-06-09", Created: 1, Merged: 1, AverageMergeTime: 24},
	}, r.PRStats.WeeklyPRStats)

	assert.Nil(t, r.TaskStats)
	assert.Nil(t, r.DegradedSources)
}

func TestCompose_MergeRate(t *testing.T) {
	var prs []PullRequest
	for i := 0; i < 10; i++ {
		pr := PullRequest{CreatedAt: ts("2024-03-05T09:00:00Z")}
		if i < 4 {
			pr.MergedAt = tsp("2024-03-05T15:00:00Z")
		}
		prs = append(prs, pr)
	}

	r := testComposer().Compose(Dataset{PullRequests: prs}, testWindow())

	assert.Equal(t, 10, r.PRStats.TotalPRs)
	assert.Equal(t, 4, r.PRStats.MergedPRs)
	assert.Equal(t, "40.00", r.PRStats.PRMergeRate)
	// fixed 52-week normalization regardless of the window length
	assert.Equal(t, "0.19", r.PRStats.AveragePRsPerWeek)
	require.Len(t, r.PRStats.WeeklyPRStats, 1)
	assert.Equal(t, 6.0, r.PRStats.WeeklyPRStats[0].AverageMergeTime)
}

func TestCompose_EmptyInputsUseZeroSentinel(t *testing.T) {
	r := testComposer().Compose(Dataset{HasTasks: true}, testWindow())

	assert.Equal(t, 0, r.CommitStats.TotalCommitsLastYear)
	assert.Equal(t, "0.00", r.CommitStats.AverageCommitsPerWeek)
	assert.Equal(t, "0.00", r.PRStats.PRMergeRate)
	assert.Equal(t, "0.00", r.PRStats.AveragePRsPerWeek)
	assert.Equal(t, "0.00", r.PRStats.RecentPRsPerWeek)
	assert.Equal(t, "0.00", r.PRStats.BugPRs.BugPRMergeRate)
	assert.Equal(t, "0.00", r.DeploymentStats.AverageDeploymentsPerWeek)
	require.NotNil(t, r.TaskStats)
	assert.Equal(t, "0.00", r.TaskStats.BugRate)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "NaN")
	assert.NotContains(t, string(data), "Inf")
	assert.Contains(t, string(data), `"weeklyCommits":[]`)
	assert.Contains(t, string(data), `"weeklyPRStats":[]`)
	assert.Contains(t, string(data), `"weeklyBugPRStats":[]`)
}

func TestCompose_BugPRFamily(t *testing.T) {
	prs := []PullRequest{
		{CreatedAt: ts("2024-06-03T09:00:00Z"), MergedAt: tsp("2024-06-04T09:00:00Z"), Labels: []string{"bug", "P1"}},
		{CreatedAt: ts("2024-06-04T09:00:00Z"), Labels: []string{"bug"}},
		{CreatedAt: ts("2024-06-05T09:00:00Z"), MergedAt: tsp("2024-06-05T10:00:00Z"), Labels: []string{"feature"}},
		{CreatedAt: ts("2024-06-12T09:00:00Z"), Labels: []string{"Bug"}}, // label match is exact
	}

	r := testComposer().Compose(Dataset{PullRequests: prs}, testWindow())

	assert.Equal(t, 4, r.PRStats.TotalPRs)
	assert.Equal(t, 2, r.PRStats.MergedPRs)
	assert.Equal(t, 2, r.PRStats.BugPRs.TotalBugPRs)
	assert.Equal(t, 1, r.PRStats.BugPRs.MergedBugPRs)
	assert.Equal(t, "50.00", r.PRStats.BugPRs.BugPRMergeRate)
	assert.Equal(t, []WeeklyBugPRStat{
		{Week: "2024-06-02", Created: 2, Merged: 1},
	}, r.PRStats.BugPRs.WeeklyBugPRStats)
	assert.Equal(t, []WeeklyPRStat{
		{Week: "2024-06-02", Created: 3, Merged: 2, AverageMergeTime: 12.5},
		{Week: "2024-06-09", Created: 1, Merged: 0, AverageMergeTime: 0},
	}, r.PRStats.WeeklyPRStats)
}

func TestCompose_RecentWindowIsOneCalendarMonth(t *testing.T) {
	prs := []PullRequest{
		{CreatedAt: ts("2024-06-29T00:00:00Z")},
		{CreatedAt: ts("2024-06-01T00:00:00Z")},
		{CreatedAt: ts("2024-05-30T12:00:00Z")}, // exactly the cutoff, excluded
		{CreatedAt: ts("2024-05-01T00:00:00Z")},
	}
	deployments := []Deployment{
		{ID: "d1", CreatedAt: ts("2024-06-15T00:00:00Z")},
		{ID: "d2", CreatedAt: ts("2024-04-15T00:00:00Z")},
	}

	r := testComposer().Compose(Dataset{PullRequests: prs, Deployments: deployments}, testWindow())

	assert.Equal(t, 2, r.PRStats.RecentPRCount)
	assert.Equal(t, "0.50", r.PRStats.RecentPRsPerWeek)
	assert.Equal(t, 1, r.DeploymentStats.RecentDeploymentCount)
	assert.Equal(t, "0.25", r.DeploymentStats.RecentDeploymentsPerWeek)
	assert.Equal(t, 2, r.DeploymentStats.TotalDeployments)
	assert.Equal(t, "0.04", r.DeploymentStats.AverageDeploymentsPerWeek)
	assert.Equal(t, []WeeklyCount{
		{Week: "2024-04-14", Count: 1},
		{Week: "2024-06-09", Count: 1},
	}, r.DeploymentStats.WeeklyDeployments)
}

func TestCompose_RecentWindowUsesMonthArithmetic(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	c := Composer{Now: func() time.Time { return now }}

	// 30 days before is 2024-02-14; one calendar month before is 2024-02-15.
	prs := []PullRequest{{CreatedAt: ts("2024-02-14T12:00:00Z")}}

	r := c.Compose(Dataset{PullRequests: prs}, testWindow())
	assert.Equal(t, 0, r.PRStats.RecentPRCount)
}

func TestCompose_Tasks(t *testing.T) {
	tasks := []Task{
		{ID: "t1", CompletedAt: tsp("2024-06-10T09:00:00Z"), IsBug: true},
		{ID: "t2", CompletedAt: tsp("2024-06-11T09:00:00Z")},
		{ID: "t3", CompletedAt: tsp("2024-06-18T09:00:00Z")},
		{ID: "t4"}, // never completed: counted, not bucketed
	}

	r := testComposer().Compose(Dataset{Tasks: tasks, HasTasks: true}, testWindow())

	require.NotNil(t, r.TaskStats)
	assert.Equal(t, 4, r.TaskStats.TotalTasks)
	assert.Equal(t, 1, r.TaskStats.TotalBugs)
	assert.Equal(t, "25.00", r.TaskStats.BugRate)
	assert.Equal(t, []WeeklyTaskStat{
		{Week: "2024-06-09", Tasks: 2, Bugs: 1},
		{Week: "2024-06-16", Tasks: 1, Bugs: 0},
	}, r.TaskStats.WeeklyTaskStats)
}

func TestCompose_IsIdempotent(t *testing.T) {
	ds := Dataset{
		Repository:  "acme/widgets",
		CommitWeeks: []CommitWeek{{WeekStart: 1717891200, Total: 3}, {WeekStart: 1718496000, Total: 9}},
		PullRequests: []PullRequest{
			{CreatedAt: ts("2024-06-12T10:00:00Z"), MergedAt: tsp("2024-06-12T13:20:00Z"), Labels: []string{"bug"}},
			{CreatedAt: ts("2024-06-20T10:00:00Z")},
			{CreatedAt: ts("2024-06-03T10:00:00Z"), MergedAt: tsp("2024-06-07T11:00:00Z")},
		},
		Deployments: []Deployment{{CreatedAt: ts("2024-06-21T10:00:00Z")}},
		Degraded:    []string{"deployments"},
	}

	first, err := json.Marshal(testComposer().Compose(ds, testWindow()))
	require.NoError(t, err)
	second, err := json.Marshal(testComposer().Compose(ds, testWindow()))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestCompose_DegradedSourcesAreCopied(t *testing.T) {
	ds := Dataset{Degraded: []string{"pull requests"}}
	r := testComposer().Compose(ds, testWindow())

	ds.Degraded[0] = "mutated"
	assert.Equal(t, []string{"pull requests"}, r.DegradedSources)
}

func TestFixed2(t *testing.T) {
	assert.Equal(t, "6.00", ratio(12, 2))
	assert.Equal(t, "0.00", ratio(5, 0))
	assert.Equal(t, "33.33", percent(1, 3))
	assert.Equal(t, "0.00", percent(0, 0))
}
