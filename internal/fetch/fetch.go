// Package fetch hydrates a whole project: it walks the paginated item
// listing and fetches each page's items concurrently while keeping the
// listing order.
package fetch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/ghtrack/internal/github"
	"github.com/steveyegge/ghtrack/internal/types"
)

// progressBuffer is the capacity of the page-completion channel.
const progressBuffer = 100

// Source is the part of the GitHub client the fetcher drives.
type Source interface {
	ProjectItemIDs(ctx context.Context, after string) (github.IDPage, error)
	Items(ctx context.Context, ids []types.ProjectItemID) ([]types.WorkItem, error)
}

// ProgressFunc receives the number of hydrated items so far and the
// project's item count. done never decreases.
type ProgressFunc func(done, total int)

// Fetcher loads every item of a project.
type Fetcher struct {
	Source Source

	// MaxConcurrency limits concurrent page hydrations; 0 means unbounded.
	MaxConcurrency int
}

// New returns a fetcher over src.
func New(src Source) *Fetcher {
	return &Fetcher{Source: src}
}

type slot struct {
	items []types.WorkItem
	err   error
}

type pageDone struct {
	count int
	total int
}

// FetchAll lists the project's items page by page and starts hydrating
// each page as soon as its ids arrive. A failing page does not cancel the
// others. Items are returned in listing order; if anything failed, the
// listing error wins, then the error of the earliest failing page.
//
// progress is called on the caller's goroutine.
func (f *Fetcher) FetchAll(ctx context.Context, progress ProgressFunc) ([]types.WorkItem, error) {
	var g errgroup.Group
	if f.MaxConcurrency > 0 {
		g.SetLimit(f.MaxConcurrency)
	}

	events := make(chan pageDone, progressBuffer)
	listed := make(chan struct{})
	var slots []*slot
	var listErr error

	go func() {
		defer close(listed)
		cursor := ""
		for {
			page, err := f.Source.ProjectItemIDs(ctx, cursor)
			if err != nil {
				listErr = err
				return
			}
			s := &slot{}
			slots = append(slots, s)
			ids, total := page.IDs, page.TotalCount
			g.Go(func() error {
				s.items, s.err = f.Source.Items(ctx, ids)
				events <- pageDone{count: len(s.items), total: total}
				return nil
			})
			if !page.HasNextPage {
				return
			}
			cursor = page.EndCursor
		}
	}()

	go func() {
		<-listed
		_ = g.Wait()
		close(events)
	}()

	done := 0
	for ev := range events {
		done += ev.count
		if progress != nil {
			progress(done, ev.total)
		}
	}

	if listErr != nil {
		return nil, listErr
	}
	var items []types.WorkItem
	for i, s := range slots {
		if s.err != nil {
			return nil, fmt.Errorf("hydrate page %d: %w", i+1, s.err)
		}
		items = append(items, s.items...)
	}
	return items, nil
}
