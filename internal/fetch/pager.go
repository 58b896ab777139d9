package fetch

import (
	"context"
	"iter"

	"github.com/rs/zerolog/log"
)

// Page is one response from a page-based data source.
type Page[T any] struct {
	Records []T
	HasMore bool
}

// PageFunc requests a single page. Page numbers start at 1.
type PageFunc[T any] func(ctx context.Context, page int) (Page[T], error)

// Pages returns a lazy sequence over the pages produced by fn.
//
// The sequence stops after a page with no records, after a page that reports
// no further pages, or after yielding the first error. It can only be ranged
// over once.
func Pages[T any](ctx context.Context, fn PageFunc[T]) iter.Seq2[Page[T], error] {
	used := false
	return func(yield func(Page[T], error) bool) {
		if used {
			return
		}
		used = true

		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				yield(Page[T]{}, err)
				return
			}

			p, err := fn(ctx, page)
			if err != nil {
				yield(Page[T]{}, &PageError{Page: page, Err: err})
				return
			}
			if len(p.Records) == 0 {
				return
			}
			if !yield(p, nil) || !p.HasMore {
				return
			}
		}
	}
}

// FetchAll drains fn page by page and keeps the records accepted by filter.
// A nil filter accepts everything.
//
// A failing page halts pagination. The records collected so far are still
// returned, together with the error that stopped the walk.
func FetchAll[T any](ctx context.Context, fn PageFunc[T], filter func(T) bool) ([]T, error) {
	var all []T
	pages := 0

	for p, err := range Pages(ctx, fn) {
		if err != nil {
			log.Warn().Err(err).Int("pages", pages).Int("records", len(all)).Msg("Pagination halted, keeping partial results")
			return all, err
		}
		pages++

		kept := 0
		for _, r := range p.Records {
			if filter == nil || filter(r) {
				all = append(all, r)
				kept++
			}
		}
		log.Debug().Int("page", pages).Int("raw", len(p.Records)).Int("kept", kept).Bool("more", p.HasMore).Msg("Fetched page")
	}

	return all, nil
}
