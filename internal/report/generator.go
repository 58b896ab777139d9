package report

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Generator struct {
	Repo     RepositorySource
	Tasks    TaskSource // optional
	Composer Composer
}

func NewGenerator(repo RepositorySource, tasks TaskSource) *Generator {
	return &Generator{Repo: repo, Tasks: tasks}
}

// Collect fetches every source for the window. Sources run concurrently and
// all of them finish before Collect returns. Partial results are kept and
// the source is listed in Dataset.Degraded; any other failure aborts the run.
func (g *Generator) Collect(ctx context.Context, w Window) (*Dataset, error) {
	if g.Repo == nil {
		return nil, ErrNoSources
	}

	if err := g.Repo.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("%s health check failed: %w", g.Repo.Name(), err)
	}

	ds := &Dataset{Repository: g.Repo.Name(), HasTasks: g.Tasks != nil}

	var mu sync.Mutex
	degrade := func(name string, err error) {
		log.Warn().Err(err).Str("source", name).Msg("Continuing with partial data")
		mu.Lock()
		ds.Degraded = append(ds.Degraded, name)
		mu.Unlock()
	}
	// settle decides whether a source error is a degradation or fatal.
	settle := func(name string, err error) error {
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrDegraded) && !errors.Is(err, ErrUnauthorized) {
			degrade(name, err)
			return nil
		}
		return fmt.Errorf("%s: %w", name, err)
	}

	eg, gctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		weeks, err := g.Repo.CommitActivity(gctx)
		ds.CommitWeeks = weeks
		return settle("commit activity", err)
	})
	eg.Go(func() error {
		prs, err := g.Repo.PullRequests(gctx, w)
		ds.PullRequests = prs
		return settle("pull requests", err)
	})
	eg.Go(func() error {
		deployments, err := g.Repo.Deployments(gctx, w)
		ds.Deployments = deployments
		return settle("deployments", err)
	})
	if g.Tasks != nil {
		eg.Go(func() error {
			if err := g.Tasks.HealthCheck(gctx); err != nil {
				if errors.Is(err, ErrUnauthorized) {
					return fmt.Errorf("%s health check failed: %w", g.Tasks.Name(), err)
				}
				degrade(g.Tasks.Name(), err)
				return nil
			}
			tasks, err := g.Tasks.Tasks(gctx, w)
			ds.Tasks = tasks
			return settle(g.Tasks.Name(), err)
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	slices.Sort(ds.Degraded)

	log.Info().
		Int("commitWeeks", len(ds.CommitWeeks)).
		Int("pullRequests", len(ds.PullRequests)).
		Int("deployments", len(ds.Deployments)).
		Int("tasks", len(ds.Tasks)).
		Strs("degraded", ds.Degraded).
		Msg("Collection complete")

	return ds, nil
}

// Generate collects the window and composes the report.
func (g *Generator) Generate(ctx context.Context, w Window) (*StatsReport, error) {
	ds, err := g.Collect(ctx, w)
	if err != nil {
		return nil, err
	}
	return g.Composer.Compose(*ds, w), nil
}
