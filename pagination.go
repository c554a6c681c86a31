package mcp

import (
	"context"
	"iter"
)

// PageFunc fetches the page that starts at cursor and returns its items together with the cursor of the
// next page. An empty cursor requests the first page; an empty next cursor marks the last one.
type PageFunc[T any] func(ctx context.Context, cursor string) (items []T, nextCursor string, err error)

// Pages returns an iterator over the pages of a listing. Each page is a separate request, issued only
// when the previous page has been consumed. Iteration ends after the page without a next cursor, when
// the consumer stops, or after yielding the first error.
func Pages[T any](ctx context.Context, fetch PageFunc[T]) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		cursor := ""
		for {
			items, next, err := fetch(ctx, cursor)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(items, nil) {
				return
			}
			if next == "" {
				return
			}
			cursor = next
		}
	}
}

// ListAll walks every page of a listing and concatenates the items in fetch order.
func ListAll[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var all []T
	for items, err := range Pages(ctx, fetch) {
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}
