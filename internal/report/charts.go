package report

import (
	"github.com/Afrawles/devmetrics/internal/chart"
)

// ChartSeries projects the weekly series of r into one tabular series per
// chart. Task charts are included only when the report has task stats.
func ChartSeries(r *StatsReport) []chart.Series {
	prs := chart.Series{Name: "pull_requests", Title: "Pull Requests Per Week", Mark: chart.MarkLine, YTitle: "Pull requests"}
	mergeTime := chart.Series{Name: "merge_time", Title: "Average Merge Time", Mark: chart.MarkBar, YTitle: "Hours"}
	for _, w := range r.PRStats.WeeklyPRStats {
		prs.Points = append(prs.Points,
			chart.Point{X: w.Week, Y: float64(w.Created), Series: "created"},
			chart.Point{X: w.Week, Y: float64(w.Merged), Series: "merged"},
		)
		mergeTime.Points = append(mergeTime.Points, chart.Point{X: w.Week, Y: w.AverageMergeTime, Series: "hours"})
	}

	commits := chart.Series{Name: "commits", Title: "Commits Per Week", Mark: chart.MarkBar, YTitle: "Commits"}
	for _, w := range r.CommitStats.WeeklyCommits {
		commits.Points = append(commits.Points, chart.Point{X: w.Week, Y: float64(w.Count), Series: "commits"})
	}

	bugs := chart.Series{Name: "bug_pull_requests", Title: "Bug Pull Requests Per Week", Mark: chart.MarkLine, YTitle: "Bug pull requests"}
	for _, w := range r.PRStats.BugPRs.WeeklyBugPRStats {
		bugs.Points = append(bugs.Points,
			chart.Point{X: w.Week, Y: float64(w.Created), Series: "created"},
			chart.Point{X: w.Week, Y: float64(w.Merged), Series: "merged"},
		)
	}

	deployments := chart.Series{Name: "deployments", Title: "Deployments Per Week", Mark: chart.MarkBar, YTitle: "Deployments"}
	for _, w := range r.DeploymentStats.WeeklyDeployments {
		deployments.Points = append(deployments.Points, chart.Point{X: w.Week, Y: float64(w.Count), Series: "deployments"})
	}

	series := []chart.Series{prs, mergeTime, commits, bugs, deployments}

	if r.TaskStats != nil {
		tasks := chart.Series{Name: "tasks", Title: "Completed Tasks Per Week", Mark: chart.MarkLine, YTitle: "Tasks"}
		for _, w := range r.TaskStats.WeeklyTaskStats {
			tasks.Points = append(tasks.Points,
				chart.Point{X: w.Week, Y: float64(w.Tasks), Series: "completed"},
				chart.Point{X: w.Week, Y: float64(w.Bugs), Series: "bugs"},
			)
		}
		series = append(series, tasks)
	}

	return series
}
