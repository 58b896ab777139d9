package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteSummary prints the headline numbers of r as a table, followed by a
// warning line when any source returned partial data.
func WriteSummary(w io.Writer, r *StatsReport, useColors bool) error {
	p := message.NewPrinter(language.English)

	var warn, bold func(...any) string
	if useColors {
		warn = color.New(color.FgYellow, color.Bold).SprintFunc()
		bold = color.New(color.Bold).SprintFunc()
	} else {
		warn = fmt.Sprint
		bold = fmt.Sprint
	}

	if _, err := fmt.Fprintf(w, "%s (%s to %s)\n", bold(r.Repository), r.Window.StartDate, r.Window.EndDate); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Metric", "Total", "Per week", "Last month"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := [][]string{
		{"Commits", p.Sprintf("%d", r.CommitStats.TotalCommitsLastYear), r.CommitStats.AverageCommitsPerWeek, "-"},
		{"Pull requests", p.Sprintf("%d", r.PRStats.TotalPRs), r.PRStats.AveragePRsPerWeek,
			p.Sprintf("%d (%s/wk)", r.PRStats.RecentPRCount, r.PRStats.RecentPRsPerWeek)},
		{"Merged", p.Sprintf("%d (%s%%)", r.PRStats.MergedPRs, r.PRStats.PRMergeRate), "-", "-"},
		{"Bug pull requests", p.Sprintf("%d (%s%% merged)", r.PRStats.BugPRs.TotalBugPRs, r.PRStats.BugPRs.BugPRMergeRate), "-", "-"},
		{"Deployments", p.Sprintf("%d", r.DeploymentStats.TotalDeployments), r.DeploymentStats.AverageDeploymentsPerWeek,
			p.Sprintf("%d (%s/wk)", r.DeploymentStats.RecentDeploymentCount, r.DeploymentStats.RecentDeploymentsPerWeek)},
	}
	if r.TaskStats != nil {
		data = append(data,
			[]string{"Completed tasks", p.Sprintf("%d", r.TaskStats.TotalTasks), "-", "-"},
			[]string{"Bugs", p.Sprintf("%d (%s%%)", r.TaskStats.TotalBugs, r.TaskStats.BugRate), "-", "-"},
		)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(r.DegradedSources) > 0 {
		if _, err := fmt.Fprintf(w, "%s %s\n", warn("Incomplete data from:"), strings.Join(r.DegradedSources, ", ")); err != nil {
			return err
		}
	}
	return nil
}
