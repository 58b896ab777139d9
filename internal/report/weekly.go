package report

import (
	"slices"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Week is one aggregated calendar week, keyed by the date of its Sunday.
type Week[B any] struct {
	Key    string
	Bucket B
}

// PRBucket accumulates pull requests created in a week.
type PRBucket struct {
	PRCount             int
	MergedCount         int
	TotalMergeTimeHours float64
	BugPRCount          int
	MergedBugPRCount    int
}

// TaskBucket accumulates tasks completed in a week.
type TaskBucket struct {
	TaskCount int
	BugCount  int
}

// CountBucket is used for commits and deployments.
type CountBucket struct {
	Count int
}

// WeekStart returns UTC midnight of the Sunday at or before t.
func WeekStart(t time.Time) time.Time {
	u := t.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func WeekKey(t time.Time) string {
	return WeekStart(t).Format(dateLayout)
}

// Aggregate groups records into weeks by the timestamp returned from at and
// lets update fold each record into its week's bucket. Buckets are created on
// first use. The result is sorted by week key.
func Aggregate[R, B any](records []R, at func(R) time.Time, update func(*B, R)) []Week[B] {
	buckets := make(map[string]*B)
	for _, r := range records {
		key := WeekKey(at(r))
		b, ok := buckets[key]
		if !ok {
			b = new(B)
			buckets[key] = b
		}
		update(b, r)
	}

	weeks := make([]Week[B], 0, len(buckets))
	for key, b := range buckets {
		weeks = append(weeks, Week[B]{Key: key, Bucket: *b})
	}
	slices.SortFunc(weeks, func(a, b Week[B]) int {
		return strings.Compare(a.Key, b.Key)
	})
	return weeks
}
