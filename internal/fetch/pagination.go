package fetch

import (
	"context"
	"fmt"
)

// PageFunc fetches the page that begins at offset start.
type PageFunc[T any] func(ctx context.Context, start, limit int) ([]T, error)

// SizedPageFunc fetches the page that begins at offset start and reports the
// page size the server applied, which may be lower than requested. A
// non-positive applied size means the requested limit was honoured.
type SizedPageFunc[T any] func(ctx context.Context, start, limit int) (items []T, applied int, err error)

// Paginate requests pages of size limit until one comes back shorter than
// limit. It gives up after maxPages pages with ErrPageLimit. Whatever was
// collected before an error is returned along with it.
func Paginate[T any](ctx context.Context, limit, maxPages int, fetch PageFunc[T]) ([]T, error) {
	return PaginateSized(ctx, limit, maxPages, func(ctx context.Context, start, limit int) ([]T, int, error) {
		items, err := fetch(ctx, start, limit)
		return items, limit, err
	})
}

// PaginateSized is Paginate for servers that may cap the page size. A page
// counts as short only against the size the server reported for it.
func PaginateSized[T any](ctx context.Context, limit, maxPages int, fetch SizedPageFunc[T]) ([]T, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("invalid page limit %d", limit)
	}

	var all []T
	start := 0

	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		items, applied, err := fetch(ctx, start, limit)
		if err != nil {
			return all, fmt.Errorf("fetching page at offset %d: %w", start, err)
		}

		size := limit
		if applied > 0 {
			size = min(limit, applied)
		}

		all = append(all, items...)
		if len(items) == 0 || len(items) < size {
			return all, nil
		}
		start += len(items)
	}

	return all, fmt.Errorf("%w: stopped after %d pages", ErrPageLimit, maxPages)
}
