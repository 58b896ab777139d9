package report

import (
	"math"
	"strconv"
	"time"
)

const (
	weeksPerYear  = 52
	weeksPerMonth = 4
)

// StatsReport is the composed result of one analysis run. It is not modified
// after Compose returns.
type StatsReport struct {
	Repository      string          `json:"repository"`
	Window          WindowInfo      `json:"window"`
	CommitStats     CommitStats     `json:"commitStats"`
	PRStats         PRStats         `json:"prStats"`
	DeploymentStats DeploymentStats `json:"deploymentStats"`
	TaskStats       *TaskStats      `json:"taskStats,omitempty"`
	DegradedSources []string        `json:"degradedSources,omitempty"`
}

type WindowInfo struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type CommitStats struct {
	TotalCommitsLastYear  int           `json:"totalCommitsLastYear"`
	AverageCommitsPerWeek string        `json:"averageCommitsPerWeek"`
	WeeklyCommits         []WeeklyCount `json:"weeklyCommits"`
}

type WeeklyCount struct {
	Week  string `json:"week"`
	Count int    `json:"count"`
}

type PRStats struct {
	TotalPRs          int            `json:"totalPRs"`
	MergedPRs         int            `json:"mergedPRs"`
	AveragePRsPerWeek string         `json:"averagePRsPerWeek"`
	PRMergeRate       string         `json:"prMergeRate"`
	RecentPRCount     int            `json:"recentPRCount"`
	RecentPRsPerWeek  string         `json:"recentPRsPerWeek"`
	WeeklyPRStats     []WeeklyPRStat `json:"weeklyPRStats"`
	BugPRs            BugPRStats     `json:"bugPRs"`
}

type WeeklyPRStat struct {
	Week             string  `json:"week"`
	Created          int     `json:"created"`
	Merged           int     `json:"merged"`
	AverageMergeTime float64 `json:"averageMergeTime"` // hours
}

type BugPRStats struct {
	TotalBugPRs      int               `json:"totalBugPRs"`
	MergedBugPRs     int               `json:"mergedBugPRs"`
	BugPRMergeRate   string            `json:"bugPRMergeRate"`
	WeeklyBugPRStats []WeeklyBugPRStat `json:"weeklyBugPRStats"`
}

type WeeklyBugPRStat struct {
	Week    string `json:"week"`
	Created int    `json:"created"`
	Merged  int    `json:"merged"`
}

type DeploymentStats struct {
	TotalDeployments          int           `json:"totalDeployments"`
	AverageDeploymentsPerWeek string        `json:"averageDeploymentsPerWeek"`
	RecentDeploymentCount     int           `json:"recentDeploymentCount"`
	RecentDeploymentsPerWeek  string        `json:"recentDeploymentsPerWeek"`
	WeeklyDeployments         []WeeklyCount `json:"weeklyDeployments"`
}

type TaskStats struct {
	TotalTasks      int              `json:"totalTasks"`
	TotalBugs       int              `json:"totalBugs"`
	BugRate         string           `json:"bugRate"`
	WeeklyTaskStats []WeeklyTaskStat `json:"weeklyTaskStats"`
}

type WeeklyTaskStat struct {
	Week  string `json:"week"`
	Tasks int    `json:"tasks"`
	Bugs  int    `json:"bugs"`
}

// Dataset holds the raw records collected for one run.
type Dataset struct {
	Repository   string
	CommitWeeks  []CommitWeek
	PullRequests []PullRequest
	Deployments  []Deployment
	Tasks        []Task
	HasTasks     bool
	Degraded     []string
}

// Composer derives a StatsReport from raw records. Now anchors the recency
// windows and defaults to time.Now.
type Composer struct {
	Now func() time.Time
}

func (c Composer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Compose builds the report. Rates and averages whose denominator is zero are
// reported as "0.00".
func (c Composer) Compose(ds Dataset, w Window) *StatsReport {
	recentCutoff := c.now().UTC().AddDate(0, -1, 0)

	r := &StatsReport{
		Repository: ds.Repository,
		Window: WindowInfo{
			StartDate: w.Start.UTC().Format(dateLayout),
			EndDate:   w.End.UTC().Format(dateLayout),
		},
		CommitStats:     composeCommits(ds.CommitWeeks),
		PRStats:         composePRs(ds.PullRequests, recentCutoff),
		DeploymentStats: composeDeployments(ds.Deployments, recentCutoff),
	}
	if ds.HasTasks {
		ts := composeTasks(ds.Tasks)
		r.TaskStats = &ts
	}
	if len(ds.Degraded) > 0 {
		r.DegradedSources = append([]string(nil), ds.Degraded...)
	}
	return r
}

func composeCommits(commitWeeks []CommitWeek) CommitStats {
	total := 0
	for _, cw := range commitWeeks {
		total += cw.Total
	}

	weeks := Aggregate(commitWeeks,
		func(cw CommitWeek) time.Time { return time.Unix(cw.WeekStart, 0) },
		func(b *CountBucket, cw CommitWeek) { b.Count += cw.Total },
	)

	return CommitStats{
		TotalCommitsLastYear:  total,
		AverageCommitsPerWeek: ratio(float64(total), float64(len(commitWeeks))),
		WeeklyCommits:         countSeries(weeks),
	}
}

func composePRs(prs []PullRequest, recentCutoff time.Time) PRStats {
	s := PRStats{
		TotalPRs:          len(prs),
		AveragePRsPerWeek: ratio(float64(len(prs)), weeksPerYear),
	}

	for _, pr := range prs {
		if pr.Merged() {
			s.MergedPRs++
		}
		if pr.IsBug() {
			s.BugPRs.TotalBugPRs++
			if pr.Merged() {
				s.BugPRs.MergedBugPRs++
			}
		}
		if pr.CreatedAt.After(recentCutoff) {
			s.RecentPRCount++
		}
	}

	s.PRMergeRate = percent(s.MergedPRs, s.TotalPRs)
	s.BugPRs.BugPRMergeRate = percent(s.BugPRs.MergedBugPRs, s.BugPRs.TotalBugPRs)
	s.RecentPRsPerWeek = ratio(float64(s.RecentPRCount), weeksPerMonth)

	weeks := Aggregate(prs,
		func(pr PullRequest) time.Time { return pr.CreatedAt },
		func(b *PRBucket, pr PullRequest) {
			b.PRCount++
			bug := pr.IsBug()
			if bug {
				b.BugPRCount++
			}
			if pr.Merged() {
				b.MergedCount++
				b.TotalMergeTimeHours += pr.MergedAt.Sub(pr.CreatedAt).Hours()
				if bug {
					b.MergedBugPRCount++
				}
			}
		},
	)

	s.WeeklyPRStats = make([]WeeklyPRStat, 0, len(weeks))
	s.BugPRs.WeeklyBugPRStats = []WeeklyBugPRStat{}
	for _, wk := range weeks {
		b := wk.Bucket
		avg := 0.0
		if b.MergedCount > 0 {
			avg = round2(b.TotalMergeTimeHours / float64(b.MergedCount))
		}
		s.WeeklyPRStats = append(s.WeeklyPRStats, WeeklyPRStat{
			Week:             wk.Key,
			Created:          b.PRCount,
			Merged:           b.MergedCount,
			AverageMergeTime: avg,
		})
		if b.BugPRCount > 0 {
			s.BugPRs.WeeklyBugPRStats = append(s.BugPRs.WeeklyBugPRStats, WeeklyBugPRStat{
				Week:    wk.Key,
				Created: b.BugPRCount,
				Merged:  b.MergedBugPRCount,
			})
		}
	}

	return s
}

func composeDeployments(deployments []Deployment, recentCutoff time.Time) DeploymentStats {
	s := DeploymentStats{
		TotalDeployments:          len(deployments),
		AverageDeploymentsPerWeek: ratio(float64(len(deployments)), weeksPerYear),
	}
	for _, d := range deployments {
		if d.CreatedAt.After(recentCutoff) {
			s.RecentDeploymentCount++
		}
	}
	s.RecentDeploymentsPerWeek = ratio(float64(s.RecentDeploymentCount), weeksPerMonth)

	weeks := Aggregate(deployments,
		func(d Deployment) time.Time { return d.CreatedAt },
		func(b *CountBucket, _ Deployment) { b.Count++ },
	)
	s.WeeklyDeployments = countSeries(weeks)
	return s
}

func composeTasks(tasks []Task) TaskStats {
	s := TaskStats{TotalTasks: len(tasks)}

	var completed []Task
	for _, t := range tasks {
		if t.IsBug {
			s.TotalBugs++
		}
		if t.CompletedAt != nil {
			completed = append(completed, t)
		}
	}
	s.BugRate = percent(s.TotalBugs, s.TotalTasks)

	weeks := Aggregate(completed,
		func(t Task) time.Time { return *t.CompletedAt },
		func(b *TaskBucket, t Task) {
			b.TaskCount++
			if t.IsBug {
				b.BugCount++
			}
		},
	)
	s.WeeklyTaskStats = make([]WeeklyTaskStat, 0, len(weeks))
	for _, wk := range weeks {
		s.WeeklyTaskStats = append(s.WeeklyTaskStats, WeeklyTaskStat{
			Week:  wk.Key,
			Tasks: wk.Bucket.TaskCount,
			Bugs:  wk.Bucket.BugCount,
		})
	}
	return s
}

func countSeries(weeks []Week[CountBucket]) []WeeklyCount {
	out := make([]WeeklyCount, 0, len(weeks))
	for _, wk := range weeks {
		out = append(out, WeeklyCount{Week: wk.Key, Count: wk.Bucket.Count})
	}
	return out
}

func ratio(num, den float64) string {
	if den == 0 {
		return fixed2(0)
	}
	return fixed2(num / den)
}

func percent(part, whole int) string {
	if whole == 0 {
		return fixed2(0)
	}
	return fixed2(float64(part) / float64(whole) * 100)
}

func fixed2(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
