package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Afrawles/devmetrics/internal/report"
)

// Periods lists the names accepted by PeriodWindow.
var Periods = []string{"today", "yesterday", "this-week", "last-week", "this-month", "last-month", "this-year", "last-year"}

// PeriodWindow turns a named period into a window relative to now. Weeks
// start on Sunday, matching the weekly buckets of the report.
func PeriodWindow(name string, now time.Time) (report.Window, error) {
	now = now.UTC()
	today := startOfDay(now)

	var start, end time.Time
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "today":
		start, end = today, today.AddDate(0, 0, 1)
	case "yesterday":
		start, end = today.AddDate(0, 0, -1), today
	case "this-week", "thisweek":
		start = report.WeekStart(now)
		end = start.AddDate(0, 0, 7)
	case "last-week", "lastweek":
		end = report.WeekStart(now)
		start = end.AddDate(0, 0, -7)
	case "this-month", "thismonth":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	case "last-month", "lastmonth":
		end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = end.AddDate(0, -1, 0)
	case "this-year", "thisyear":
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	case "last-year", "lastyear":
		end = today.AddDate(0, 0, 1)
		start = today.AddDate(-1, 0, 0)
	default:
		return report.Window{}, fmt.Errorf("unknown period %q (valid: %s)", name, strings.Join(Periods, ", "))
	}

	return report.Window{Start: start, End: end.Add(-time.Nanosecond)}, nil
}
