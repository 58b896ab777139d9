package clickup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Afrawles/devmetrics/internal/report"
)

const DefaultBaseURL = "https://api.clickup.com/api/v2"

// ClickUp allows 100 requests per minute per token on the free plan.
const requestsPerMinute = 100

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(apiKey, baseURL string, limiter *rate.Limiter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(time.Minute/requestsPerMinute), 10)
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
	}
}

type ClickUpTask struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Status      ClickUpStatus `json:"status"`
	URL         string        `json:"url"`
	DateCreated string        `json:"date_created"`
	DateClosed  *string       `json:"date_closed"`
	DateDone    *string       `json:"date_done"`
	Tags        []Tag         `json:"tags"`
	List        ListRef       `json:"list"`
}

type ClickUpStatus struct {
	Status string `json:"status"`
	Type   string `json:"type"`
}

type Tag struct {
	Name string `json:"name"`
}

type ListRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TasksResponse struct {
	Tasks    []ClickUpTask `json:"tasks"`
	LastPage bool          `json:"last_page"`
}

type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ListsResponse struct {
	Lists []List `json:"lists"`
}

// FetchTasksPage fetches one page of tasks of listID that were closed inside
// w. page is 1-based; the API counts from 0.
func (c *Client) FetchTasksPage(ctx context.Context, listID string, page int, w report.Window) (TasksResponse, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page-1))
	q.Set("order_by", "created")
	q.Set("subtasks", "true")
	q.Set("include_closed", "true")
	q.Set("date_done_gt", strconv.FormatInt(w.Start.UnixMilli(), 10))
	q.Set("date_done_lt", strconv.FormatInt(w.End.UnixMilli(), 10))

	var result TasksResponse
	if err := c.get(ctx, fmt.Sprintf("/list/%s/task?%s", url.PathEscape(listID), q.Encode()), &result); err != nil {
		return TasksResponse{}, err
	}
	log.Debug().Str("list", listID).Int("page", page).Int("tasks", len(result.Tasks)).Bool("lastPage", result.LastPage).Msg("Fetched ClickUp tasks")
	return result, nil
}

// GetListIDsFromFolder returns the IDs and names of every list in a folder.
func (c *Client) GetListIDsFromFolder(ctx context.Context, folderID string) ([]string, map[string]string, error) {
	var result ListsResponse
	if err := c.get(ctx, fmt.Sprintf("/folder/%s/list", url.PathEscape(folderID)), &result); err != nil {
		return nil, nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}

	ids := make([]string, 0, len(result.Lists))
	names := make(map[string]string, len(result.Lists))
	for _, l := range result.Lists {
		ids = append(ids, l.ID)
		names[l.ID] = l.Name
	}
	return ids, names, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	var user json.RawMessage
	if err := c.get(ctx, "/user", &user); err != nil {
		return fmt.Errorf("API health check failed: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), report.ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
