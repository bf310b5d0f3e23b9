package eol

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
)

// subPageSize is the largest proper divisor of size. Pages of that size tile a
// page of the original size exactly, so no boundary item is lost or repeated.
// Even sizes are halved, odd ones fall back to their largest factor, primes to 1.
func subPageSize(size int) int {
	for d := size / 2; d > 1; d-- {
		if size%d == 0 {
			return d
		}
	}
	return 1
}

// subPages lists the pages of subSize covering page `page` of `size`, that is
// the item window [(page-1)*size, page*size).
func subPages(page, size, subSize int) []int {
	first := (page-1)*size/subSize + 1
	count := size / subSize
	pages := make([]int, count)
	for i := range pages {
		pages[i] = first + i
	}
	return pages
}

// splitAndFetch recovers from an oversized response by re-requesting the same
// item window as several smaller pages. Every level strictly shrinks the page
// size and size 1 is never split, which bounds the recursion.
func (e *Engine) splitAndFetch(ctx context.Context, params Params, depth int) (Page, error) {
	page, size := params.Page(), params.Size()
	if size <= 1 || page < 1 {
		return Page{}, fmt.Errorf(
			"%w: uri %s page %d size %d",
			ErrOversize, params.URI(), page, size,
		)
	}

	subSize := subPageSize(size)
	pages := subPages(page, size, subSize)

	ctx, span := tracer.Start(ctx, "engine:splitAndFetch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("eol.depth", depth+1),
		attribute.Int("eol.sub_size", subSize),
		attribute.IntSlice("eol.sub_pages", pages),
	)

	splitCounter.Add(ctx, 1)
	slog.WarnContext(
		ctx, "response too large, splitting request",
		"uri", params.URI(),
		"page", page,
		"size", size,
		"sub_size", subSize,
		"sub_pages", pages,
		"depth", depth+1,
	)

	var merged Page
	for i, p := range pages {
		err := e.opts.Waiter.Wait(ctx, e.opts.QueryInterval)
		if err != nil {
			return Page{}, err
		}
		sub, err := e.query(ctx, params.WithPage(p, subSize), depth+1)
		if err != nil {
			return Page{}, err
		}
		if i == 0 {
			merged.NumFound = sub.NumFound
		} else if sub.NumFound != merged.NumFound {
			// the total moved while we were paging, boundaries may be off
			slog.WarnContext(
				ctx, "pagination drift between split sub-requests",
				"uri", params.URI(),
				"first_num_found", merged.NumFound,
				"num_found", sub.NumFound,
				"sub_page", p,
			)
		}
		merged.Items = append(merged.Items, sub.Items...)
	}

	slog.InfoContext(ctx, "split request recovered", "uri", params.URI(), "page", page, "items", len(merged.Items))
	return merged, nil
}
