package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v61/github"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/Afrawles/devmetrics/internal/fetch"
	"github.com/Afrawles/devmetrics/internal/report"
)

const (
	userAgent = "devmetrics/0.1"
	perPage   = 100
)

// Source reads repository activity from the GitHub REST API.
type Source struct {
	client      *gh.Client
	owner       string
	repo        string
	environment string
	limiter     *rate.Limiter
	retrier     fetch.Retrier
}

var _ report.RepositorySource = (*Source)(nil)

type Option func(*Source) error

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(raw string) Option {
	return func(s *Source) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		s.client.BaseURL = u
		return nil
	}
}

// WithEnvironment restricts deployments to one environment.
func WithEnvironment(env string) Option {
	return func(s *Source) error {
		s.environment = env
		return nil
	}
}

func WithRetrier(r fetch.Retrier) Option {
	return func(s *Source) error {
		s.retrier = r
		return nil
	}
}

func WithLimiter(l *rate.Limiter) Option {
	return func(s *Source) error {
		s.limiter = l
		return nil
	}
}

// NewSource creates a source for owner/repo. An empty token yields an
// unauthenticated client.
func NewSource(ctx context.Context, token, owner, repo string, opts ...Option) (*Source, error) {
	if owner == "" || repo == "" {
		return nil, errors.New("github: owner and repo are required")
	}

	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	client := gh.NewClient(httpClient)
	client.UserAgent = userAgent

	s := &Source{
		client:  client,
		owner:   owner,
		repo:    repo,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		retrier: fetch.NewRetrier(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Source) Name() string {
	return s.owner + "/" + s.repo
}

func (s *Source) HealthCheck(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, resp, err := s.client.Repositories.Get(ctx, s.owner, s.repo)
	if err != nil {
		return classify(resp, err)
	}
	return nil
}

// CommitActivity returns the last year of weekly commit totals. GitHub
// computes this resource lazily and answers 202 until it is ready, so the
// request is polled through the retrier.
func (s *Source) CommitActivity(ctx context.Context) ([]report.CommitWeek, error) {
	ready, transient := false, false
	weeks, err := fetch.Compute(ctx, s.retrier, func(ctx context.Context) fetch.Outcome[report.CommitWeek] {
		if err := s.limiter.Wait(ctx); err != nil {
			return fetch.Failed[report.CommitWeek](err)
		}

		activity, resp, err := s.client.Repositories.ListCommitActivity(ctx, s.owner, s.repo)
		var accepted *gh.AcceptedError
		switch {
		case errors.As(err, &accepted):
			log.Debug().Str("repo", s.Name()).Msg("Commit activity still being computed")
			return fetch.NotReady[report.CommitWeek]()
		case err != nil:
			transient = isTransient(resp, err)
			return fetch.Failed[report.CommitWeek](classify(resp, err))
		case activity == nil:
			return fetch.NotReady[report.CommitWeek]()
		}

		ready = true
		out := make([]report.CommitWeek, 0, len(activity))
		for _, a := range activity {
			out = append(out, report.CommitWeek{
				WeekStart: a.GetWeek().Unix(),
				Total:     a.GetTotal(),
			})
		}
		return fetch.Ready(out)
	})

	// Server errors and rate limits leave the run degraded; anything else ends it.
	switch {
	case err != nil && transient:
		return []report.CommitWeek{}, fmt.Errorf("commit activity: %w: %w", report.ErrDegraded, err)
	case err != nil:
		return nil, fmt.Errorf("commit activity: %w", err)
	case !ready:
		return weeks, fmt.Errorf("commit activity not ready after %d attempts: %w", s.retrier.Attempts(), report.ErrDegraded)
	}
	return weeks, nil
}

// PullRequests lists pull requests in any state created inside w.
//
// The API cannot filter by creation date, so every page is read and older
// pull requests are dropped by the filter. On repositories with a long
// history this costs one request per hundred pull requests ever opened.
func (s *Source) PullRequests(ctx context.Context, w report.Window) ([]report.PullRequest, error) {
	opts := &gh.PullRequestListOptions{
		State:     "all",
		Sort:      "created",
		Direction: "desc",
	}

	prs, err := fetch.FetchAll(ctx, func(ctx context.Context, page int) (fetch.Page[report.PullRequest], error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return fetch.Page[report.PullRequest]{}, err
		}

		opts.ListOptions = gh.ListOptions{Page: page, PerPage: perPage}
		list, resp, err := s.client.PullRequests.List(ctx, s.owner, s.repo, opts)
		if err != nil {
			return fetch.Page[report.PullRequest]{}, classify(resp, err)
		}

		records := make([]report.PullRequest, 0, len(list))
		for _, pr := range list {
			records = append(records, convertPullRequest(pr))
		}
		return fetch.Page[report.PullRequest]{Records: records, HasMore: resp.NextPage != 0}, nil
	}, func(pr report.PullRequest) bool {
		return w.Contains(pr.CreatedAt)
	})

	return prs, degraded("pull requests", err)
}

// Deployments lists deployments created inside w, optionally restricted to
// the configured environment.
func (s *Source) Deployments(ctx context.Context, w report.Window) ([]report.Deployment, error) {
	opts := &gh.DeploymentsListOptions{Environment: s.environment}

	deployments, err := fetch.FetchAll(ctx, func(ctx context.Context, page int) (fetch.Page[report.Deployment], error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return fetch.Page[report.Deployment]{}, err
		}

		opts.ListOptions = gh.ListOptions{Page: page, PerPage: perPage}
		list, resp, err := s.client.Repositories.ListDeployments(ctx, s.owner, s.repo, opts)
		if err != nil {
			return fetch.Page[report.Deployment]{}, classify(resp, err)
		}

		records := make([]report.Deployment, 0, len(list))
		for _, d := range list {
			records = append(records, report.Deployment{
				ID:          strconv.FormatInt(d.GetID(), 10),
				Environment: d.GetEnvironment(),
				CreatedAt:   d.GetCreatedAt().Time,
			})
		}
		return fetch.Page[report.Deployment]{Records: records, HasMore: resp.NextPage != 0}, nil
	}, func(d report.Deployment) bool {
		return w.Contains(d.CreatedAt)
	})

	return deployments, degraded("deployments", err)
}

func convertPullRequest(pr *gh.PullRequest) report.PullRequest {
	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}

	out := report.PullRequest{
		ID:        strconv.FormatInt(pr.GetID(), 10),
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		CreatedAt: pr.GetCreatedAt().Time,
		Labels:    labels,
	}
	if pr.MergedAt != nil {
		merged := pr.MergedAt.Time
		out.MergedAt = &merged
	}
	return out
}

// degraded marks a pagination failure as partial data. Rejected credentials,
// cancellation and an expired deadline keep their identity.
func degraded(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, report.ErrUnauthorized) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %w", what, report.ErrDegraded, err)
}

// isTransient reports whether a failed request may succeed on a later run:
// server errors and rate limits.
func isTransient(resp *gh.Response, err error) bool {
	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}
	if resp == nil || resp.Response == nil {
		return false
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return true
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError
}

// classify wraps responses that no retry can fix in report.ErrUnauthorized.
func classify(resp *gh.Response, err error) error {
	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return err
	}
	if resp == nil || resp.Response == nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusNotFound:
		return fmt.Errorf("%w: %w", report.ErrUnauthorized, err)
	case http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return err
		}
		return fmt.Errorf("%w: %w", report.ErrUnauthorized, err)
	}
	return err
}
