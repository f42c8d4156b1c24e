// Package listing pages through platform projects for chat display. Pages are
// fetched on demand, one platform call per request, so listings always reflect
// the platform's current state.
package listing

import (
	"context"

	"github.com/edvin/devlake-bot/internal/model"
)

// DefaultPageSize is the number of projects shown per chat page.
const DefaultPageSize = 10

// listAllPageSize is used when draining every page in one call.
const listAllPageSize = 50

// ProjectLister fetches one page of projects with the total count.
type ProjectLister interface {
	ListProjects(ctx context.Context, page, pageSize int) ([]model.ProjectSummary, int, error)
}

// Engine serves fixed-size pages of projects.
type Engine struct {
	lister   ProjectLister
	pageSize int
}

func NewEngine(lister ProjectLister) *Engine {
	return &Engine{lister: lister, pageSize: DefaultPageSize}
}

// Page fetches the page the cursor points at. Out-of-range cursors are
// normalized rather than rejected: anything below 1 reads page 1, and a page
// past the end simply comes back empty.
func (e *Engine) Page(ctx context.Context, cursor model.PageCursor) (*model.ProjectPage, error) {
	if cursor.Page < 1 {
		cursor.Page = 1
	}
	cursor.PageSize = e.pageSize

	items, total, err := e.lister.ListProjects(ctx, cursor.Page, cursor.PageSize)
	if err != nil {
		return nil, err
	}

	return &model.ProjectPage{
		Items:       items,
		TotalCount:  total,
		Cursor:      cursor,
		HasNext:     cursor.Page*cursor.PageSize < total,
		HasPrevious: cursor.Page > 1,
	}, nil
}

// Next returns the cursor for the page after p. When p is already the last
// page the cursor stays put, so a stale button click re-renders the same page
// instead of walking past the end.
func (e *Engine) Next(p *model.ProjectPage) model.PageCursor {
	if !p.HasNext {
		return model.PageCursor{Page: p.Cursor.Page, PageSize: e.pageSize}
	}
	return model.PageCursor{Page: p.Cursor.Page + 1, PageSize: e.pageSize}
}

// Prev returns the cursor for the page before p, floored at page 1.
func (e *Engine) Prev(p *model.ProjectPage) model.PageCursor {
	page := p.Cursor.Page - 1
	if page < 1 {
		page = 1
	}
	return model.PageCursor{Page: page, PageSize: e.pageSize}
}

// ListAll drains every page and returns the full project list. It uses a
// larger page size than interactive paging and stops as soon as the platform
// reports no more rows, so a concurrent deletion cannot loop it forever.
func (e *Engine) ListAll(ctx context.Context) ([]model.ProjectSummary, error) {
	var all []model.ProjectSummary
	for page := 1; ; page++ {
		items, total, err := e.lister.ListProjects(ctx, page, listAllPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) == 0 || len(items) < listAllPageSize || len(all) >= total {
			return all, nil
		}
	}
}
