package clickup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Afrawles/devmetrics/internal/fetch"
	"github.com/Afrawles/devmetrics/internal/report"
)

const DefaultBugTag = "bug"

// ClickUpSource reads completed tasks from a set of ClickUp lists.
type ClickUpSource struct {
	Client    *Client
	ListIDs   []string
	BugTag    string
	listNames map[string]string
}

var _ report.TaskSource = (*ClickUpSource)(nil)

func NewClickUpSource(client *Client, listIDs []string, bugTag string) *ClickUpSource {
	if bugTag == "" {
		bugTag = DefaultBugTag
	}
	return &ClickUpSource{
		Client:    client,
		ListIDs:   listIDs,
		BugTag:    bugTag,
		listNames: make(map[string]string),
	}
}

// SetListNames supplies display names for lists, typically those returned by
// GetListIDsFromFolder.
func (c *ClickUpSource) SetListNames(names map[string]string) {
	for id, name := range names {
		c.listNames[id] = name
	}
}

func (c *ClickUpSource) Name() string {
	return "ClickUp"
}

func (c *ClickUpSource) HealthCheck(ctx context.Context) error {
	return c.Client.HealthCheck(ctx)
}

// Tasks walks every list page by page and keeps tasks completed inside w.
// Lists are read one after another; a list that fails part way keeps what it
// returned and the remaining lists are still read.
func (c *ClickUpSource) Tasks(ctx context.Context, w report.Window) ([]report.Task, error) {
	var (
		tasks  []report.Task
		failed []error
	)

	for _, listID := range c.ListIDs {
		fn := func(ctx context.Context, page int) (fetch.Page[report.Task], error) {
			resp, err := c.Client.FetchTasksPage(ctx, listID, page, w)
			if err != nil {
				return fetch.Page[report.Task]{}, err
			}
			records := make([]report.Task, 0, len(resp.Tasks))
			for _, t := range resp.Tasks {
				records = append(records, c.convert(t, listID))
			}
			return fetch.Page[report.Task]{Records: records, HasMore: !resp.LastPage}, nil
		}

		listTasks, err := fetch.FetchAll(ctx, fn, func(t report.Task) bool {
			return t.CompletedAt != nil && w.Contains(*t.CompletedAt)
		})
		tasks = append(tasks, listTasks...)

		if err != nil {
			if errors.Is(err, report.ErrUnauthorized) || ctx.Err() != nil {
				return tasks, fmt.Errorf("list %s: %w", listID, err)
			}
			failed = append(failed, fmt.Errorf("list %s: %w", listID, err))
		}
	}

	if len(failed) > 0 {
		return tasks, fmt.Errorf("%w: %w", report.ErrDegraded, errors.Join(failed...))
	}
	return tasks, nil
}

// IsBug reports whether the task carries the bug tag, ignoring case.
func (c *ClickUpSource) IsBug(t ClickUpTask) bool {
	for _, tag := range t.Tags {
		if strings.EqualFold(tag.Name, c.BugTag) {
			return true
		}
	}
	return false
}

func (c *ClickUpSource) convert(t ClickUpTask, listID string) report.Task {
	createdAt := parseMillis(&t.DateCreated)

	completed := t.DateDone
	if completed == nil || *completed == "" {
		completed = t.DateClosed
	}
	var completedAt *time.Time
	if completed != nil && *completed != "" {
		ts := parseMillis(completed)
		completedAt = &ts
	}

	list := t.List.Name
	if name, ok := c.listNames[listID]; ok && name != "" {
		list = name
	}
	if list == "" {
		list = listID
	}

	return report.Task{
		ID:          t.ID,
		Title:       t.Name,
		Status:      t.Status.Status,
		URL:         t.URL,
		List:        list,
		Source:      c.Name(),
		CreatedAt:   createdAt,
		CompletedAt: completedAt,
		IsBug:       c.IsBug(t),
	}
}

func parseMillis(s *string) time.Time {
	ms, _ := strconv.ParseInt(*s, 10, 64)
	return time.UnixMilli(ms).UTC()
}
